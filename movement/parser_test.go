package movement

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestParse(t *testing.T) {
	page := loadFixture(t, "resultado.html")

	movements, err := Parse(page)
	require.NoError(t, err)
	require.Len(t, movements, 3)

	t.Run("row with document and role", func(t *testing.T) {
		m := movements[0]
		assert.Equal(t, "45", m.Seq)
		assert.Equal(t, "12/03/2024 14:22", m.Data)
		assert.Contains(t, m.Evento, "JUNTADA DE PETIÇÃO DE MANIFESTAÇÃO DA PARTE")
		assert.Equal(t, "Maria Helena Souza - Analista Judiciário", m.MovimentadoPor)
		require.Len(t, m.Documentos, 1)
		assert.Equal(t, "Manifestação.pdf", m.Documentos[0].Descricao)
		assert.Equal(t, "/projudi_consulta/arquivo.do?_tj=abc123", m.Documentos[0].URL)
	})

	t.Run("row without name falls back to role", func(t *testing.T) {
		m := movements[1]
		assert.Equal(t, "44", m.Seq)
		assert.Equal(t, "Escrivão", m.MovimentadoPor)
		assert.Empty(t, m.Documentos)
	})

	t.Run("second table is appended in source order", func(t *testing.T) {
		m := movements[2]
		assert.Equal(t, "1", m.Seq)
		assert.Equal(t, "DISTRIBUIÇÃO", m.Evento)
		assert.Equal(t, "Sistema Projudi", m.MovimentadoPor)
	})
}

func TestParseNoMovementTable(t *testing.T) {
	page := loadFixture(t, "sem_tabela.html")

	movements, err := Parse(page)
	require.ErrorIs(t, err, ErrNoMovements)
	assert.Nil(t, movements)
}

func TestParseEmptyTable(t *testing.T) {
	// A result region with only the header row is a legitimately empty
	// movement list, not a parse failure.
	page := `<table class="resultTable"><tr><th>Seq.</th></tr></table>`

	movements, err := Parse(page)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestParseSkipsShortRows(t *testing.T) {
	page := `<table class="resultTable">
		<tr><th>h</th></tr>
		<tr><td colspan="5">Paginação</td></tr>
		<tr><td></td><td>2</td><td>01/02/2024 08:00</td><td>CITAÇÃO</td><td>Oficial de Justiça</td></tr>
	</table>`

	movements, err := Parse(page)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "2", movements[0].Seq)
}

func TestParseIsDeterministic(t *testing.T) {
	page := loadFixture(t, "resultado.html")

	first, err := Parse(page)
	require.NoError(t, err)
	second, err := Parse(page)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
