package classify

import (
	"os"
	"testing"

	"github.com/aipdigest/reportcrawl/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}
