package doctext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromPDFRejectsNonPDF(t *testing.T) {
	t.Parallel()

	_, err := FromPDF([]byte("<html>not a pdf</html>"), Options{})
	require.Error(t, err)
}

func TestCollapse(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a b c", collapse("  a\n\tb   c  "))
}
