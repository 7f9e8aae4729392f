package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPDFExporterProducesDocument(t *testing.T) {
	body, err := NewPDFExporter().Render(Table{
		Title:   "Occupancy Report",
		Headers: []string{"Organization", "Position", "Person"},
		Rows:    [][]string{{"Health Council", "Director", "Maria Souza"}},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(body), "%PDF"))
}

func TestPDFExporterRejectsRaggedRows(t *testing.T) {
	_, err := NewPDFExporter().Render(Table{
		Headers: []string{"Organization", "Position"},
		Rows:    [][]string{{"Health Council"}},
	})
	require.Error(t, err)
}
