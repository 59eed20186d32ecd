package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/lfbrandt/pdf-excel-ingestor/constants"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/dedupe"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/fieldcfg"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/locate"
)

func testConfig() *fieldcfg.Config {
	return &fieldcfg.Config{
		OutputSheet: "Importação",
		FieldOrder: []string{
			constants.FieldTitularMatricula, constants.FieldBeneficiarioNome,
			constants.FieldCPF, constants.FieldNascimento,
			constants.FieldDDD, constants.FieldCelular,
		},
		OutputColumns: map[string]string{
			constants.FieldTitularMatricula: "Matrícula",
			constants.FieldBeneficiarioNome: "Nome do Beneficiário",
			constants.FieldCPF:              "CPF",
			constants.FieldNascimento:       "Data de Nascimento",
			constants.FieldDDD:              "DDD",
			constants.FieldCelular:          "Celular",
		},
		RequiredFields: []string{constants.FieldCPF, constants.FieldTitularMatricula},
	}
}

// writeTemplate builds a workbook with a title row and the configured
// headers on row 2, like the real import template.
func writeTemplate(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	require.NoError(t, f.SetCellValue(sheet, "A1", "Relação de Beneficiários"))
	headers := []string{"Matrícula", "Nome do Beneficiário", "CPF", "Data de Nascimento", "DDD", "Celular"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func record(matricula, nome, cpf string) locate.Record {
	return locate.Record{
		constants.FieldTitularMatricula: matricula,
		constants.FieldBeneficiarioNome: nome,
		constants.FieldCPF:              cpf,
		constants.FieldNascimento:       "01/02/1990",
		constants.FieldDDD:              "11",
		constants.FieldCelular:          "98765-4321",
	}
}

func TestCheckTemplate(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "template.xlsx")
	writeTemplate(t, tpl)

	x := NewXLSX(testConfig(), nil)
	info, err := x.CheckTemplate(tpl)
	require.NoError(t, err)

	assert.Equal(t, 2, info.HeaderRow)
	assert.Equal(t, 1, info.KeyToCol[constants.FieldTitularMatricula])
	assert.Equal(t, 3, info.KeyToCol[constants.FieldCPF])
	assert.Len(t, info.KeyToCol, 6)
}

func TestCheckTemplateMissingHeader(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "template.xlsx")
	writeTemplate(t, tpl)

	cfg := testConfig()
	cfg.OutputColumns["cep"] = "CEP"
	cfg.FieldOrder = append(cfg.FieldOrder, "cep")

	x := NewXLSX(cfg, nil)
	_, err := x.CheckTemplate(tpl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CEP")
}

func TestAppendAndReadBack(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "template.xlsx")
	out := filepath.Join(dir, "saida", "beneficiarios.xlsx")
	writeTemplate(t, tpl)

	x := NewXLSX(testConfig(), nil)
	info, err := x.Append(out, tpl, []locate.Record{
		record("123456", "JOAO DA SILVA", "111.444.777-35"),
		record("654321", "MARIA DOS SANTOS", "529.982.247-25"),
	}, false)
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	get := func(col, row int) string {
		cell, err := excelize.CoordinatesToCellName(col, row)
		require.NoError(t, err)
		v, err := f.GetCellValue(info.Sheet, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "123456", get(1, 3))
	assert.Equal(t, "JOAO DA SILVA", get(2, 3))
	assert.Equal(t, "111.444.777-35", get(3, 3))
	assert.Equal(t, "654321", get(1, 4))

	keys, err := x.ReadPriorKeys(out)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, dedupe.Key{CPFDigits: "11144477735", Matricula: "123456"})
	assert.Contains(t, keys, dedupe.Key{CPFDigits: "52998224725", Matricula: "654321"})
}

func TestAppendContinuesAfterLastRow(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "template.xlsx")
	out := filepath.Join(dir, "beneficiarios.xlsx")
	writeTemplate(t, tpl)

	x := NewXLSX(testConfig(), nil)
	_, err := x.Append(out, tpl, []locate.Record{
		record("111111", "PRIMEIRA PESSOA", "111.444.777-35"),
	}, false)
	require.NoError(t, err)

	info, err := x.Append(out, tpl, []locate.Record{
		record("222222", "SEGUNDA PESSOA", "529.982.247-25"),
	}, false)
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(info.Sheet, "A4")
	require.NoError(t, err)
	assert.Equal(t, "222222", v)
}

func TestAppendFreshResetsOutput(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "template.xlsx")
	out := filepath.Join(dir, "beneficiarios.xlsx")
	writeTemplate(t, tpl)

	x := NewXLSX(testConfig(), nil)
	_, err := x.Append(out, tpl, []locate.Record{
		record("111111", "PRIMEIRA PESSOA", "111.444.777-35"),
	}, false)
	require.NoError(t, err)

	info, err := x.Append(out, tpl, []locate.Record{
		record("222222", "SEGUNDA PESSOA", "529.982.247-25"),
	}, true)
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(info.Sheet, "A3")
	require.NoError(t, err)
	assert.Equal(t, "222222", v)
	v, err = f.GetCellValue(info.Sheet, "A4")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestAppendFiltersMalformedPhones(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "template.xlsx")
	out := filepath.Join(dir, "beneficiarios.xlsx")
	writeTemplate(t, tpl)

	rec := record("123456", "JOAO DA SILVA", "111.444.777-35")
	rec[constants.FieldDDD] = "011"
	rec[constants.FieldCelular] = "3456-7890"

	x := NewXLSX(testConfig(), nil)
	info, err := x.Append(out, tpl, []locate.Record{rec}, false)
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(info.Sheet, "E3")
	require.NoError(t, err)
	assert.Equal(t, "", v)
	v, err = f.GetCellValue(info.Sheet, "F3")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestReadPriorKeysMissingFile(t *testing.T) {
	x := NewXLSX(testConfig(), nil)
	keys, err := x.ReadPriorKeys(filepath.Join(t.TempDir(), "nao-existe.xlsx"))
	require.NoError(t, err)
	assert.Empty(t, keys)
}
