package source

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aipdigest/reportcrawl/internal/report"
)

func TestInfer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		wantName string
		wantType report.SourceType
	}{
		{"known government host", "https://www.copyright.gov/ai/part2.pdf", "US Copyright Office", report.SourceGovernment},
		{"known without www", "https://wipo.int/publications/ai", "WIPO", report.SourceIntergovernmental},
		{"regulator", "https://euipo.europa.eu/report", "EUIPO", report.SourceRegulator},
		{"unknown host falls back", "https://thinktank.example.net/reports/1", "thinktank.example.net", report.SourceOther},
		{"unparseable", "://nope", "Unknown", report.SourceOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name, kind := Infer(tt.url)
			require.Equal(t, tt.wantName, name)
			require.Equal(t, tt.wantType, kind)
		})
	}
}
