package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeywordHits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "no hits",
			text: "quarterly transit ridership bulletin",
			want: nil,
		},
		{
			name: "case insensitive",
			text: "COPYRIGHT Office issues guidance on Training Data",
			want: []string{"copyright", "training data"},
		},
		{
			name: "multi word keyword",
			text: "the text and data mining exception applies",
			want: []string{"text and data mining"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, KeywordHits(tt.text))
		})
	}
}

func TestKeywordSignal(t *testing.T) {
	t.Parallel()

	text := "copyright and patent guidance for artificial intelligence systems"
	require.True(t, keywordSignal(KeywordHits(text), text))

	// Two topic hits but no AI indicator.
	noAI := "copyright and patent reform in the legislature"
	require.False(t, keywordSignal(KeywordHits(noAI), noAI))

	// AI indicator but a single topic hit.
	oneHit := "copyright questions around artificial intelligence"
	require.False(t, keywordSignal(KeywordHits(oneHit), oneHit))
}

func TestHasLitigationSignal(t *testing.T) {
	t.Parallel()

	require.True(t, hasLitigationSignal("Authors Guild v. OpenAI heads to district court"))
	require.True(t, hasLitigationSignal("the plaintiff seeks an injunction"))
	require.False(t, hasLitigationSignal("agency guidance on model training disclosures"))
}
