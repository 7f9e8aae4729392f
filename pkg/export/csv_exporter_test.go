package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterRendersPositionalRows(t *testing.T) {
	body, err := NewCSVExporter().Render(Table{
		Headers: []string{"Organization", "Position", "Person"},
		Rows: [][]string{
			{"Health Council", "Director", "Maria Souza"},
			{"Health Council", "Advisor", "Pedro Silva"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "Organization,Position,Person", lines[0])
	require.Equal(t, "Health Council,Director,Maria Souza", lines[1])
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{
		Headers: []string{"Organization", "Position"},
		Rows:    [][]string{{"Health Council"}},
	})
	require.Error(t, err)
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{})
	require.Error(t, err)
}
