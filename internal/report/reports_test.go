package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lfbrandt/pdf-excel-ingestor/constants"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/locate"
)

func TestWriteReports(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()

	accepted := []locate.Record{record("123456", "JOAO DA SILVA", "111.444.777-35")}
	rejected := []Rejected{{
		Record: locate.Record{constants.FieldBeneficiarioNome: "ANA LIMA"},
		Issues: []string{"CPF inválido/ausente", "Campo obrigatório ausente: titular_matricula"},
	}}
	require.NoError(t, WriteReports(dir, cfg, accepted, rejected))

	jf, err := os.Open(filepath.Join(dir, "report.jsonl"))
	require.NoError(t, err)
	defer jf.Close()

	var lines []jsonlLine
	sc := bufio.NewScanner(jf)
	for sc.Scan() {
		var ln jsonlLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ln))
		lines = append(lines, ln)
	}
	require.NoError(t, sc.Err())
	require.Len(t, lines, 2)

	assert.True(t, lines[0].OK)
	assert.Empty(t, lines[0].Errors)
	assert.Equal(t, "111.444.777-35", lines[0].Row[constants.FieldCPF])

	assert.False(t, lines[1].OK)
	assert.Contains(t, lines[1].Errors, "CPF inválido/ausente")

	cf, err := os.Open(filepath.Join(dir, "rejeitados.csv"))
	require.NoError(t, err)
	defer cf.Close()

	r := csv.NewReader(cf)
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "erro", rows[0][0])
	assert.Equal(t, append([]string{"erro"}, cfg.FieldOrder...), rows[0])
	assert.Equal(t, "CPF inválido/ausente | Campo obrigatório ausente: titular_matricula", rows[1][0])
	assert.Equal(t, "ANA LIMA", rows[1][2])
}

func TestWriteColumnAudit(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	info := HeaderInfo{
		Sheet:     "Importação",
		HeaderRow: 2,
		KeyToCol: map[string]int{
			constants.FieldTitularMatricula: 1,
			constants.FieldBeneficiarioNome: 2,
			constants.FieldCPF:              3,
		},
	}
	require.NoError(t, WriteColumnAudit(dir, cfg, info))

	f, err := os.Open(filepath.Join(dir, "column_map.csv"))
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(cfg.FieldOrder)+1)

	assert.Equal(t, []string{"key", "header_name", "col_number"}, rows[0])
	assert.Equal(t, []string{"titular_matricula", "Matrícula", "1"}, rows[1])
	// unresolved columns are flagged, not dropped
	assert.Equal(t, "MISSING", rows[4][2])
}

func TestDumpPageText(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, DumpPageText(dir, "/docs/lote_julho.pdf", 7, "conteudo da pagina"))

	b, err := os.ReadFile(filepath.Join(dir, "trace", "lote_julho_p007.txt"))
	require.NoError(t, err)
	assert.Equal(t, "conteudo da pagina", string(b))
}
