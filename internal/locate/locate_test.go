package locate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lfbrandt/pdf-excel-ingestor/constants"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/fieldcfg"
)

const testMapping = `
output_sheet: "Plan1"
output_columns:
  titular_matricula: "Matrícula"
  titular_nome: "Nome do Titular"
  beneficiario_nome: "Nome do Beneficiário"
  cpf: "CPF"
  nascimento: "Data de Nascimento"
  data_admissao: "Data de Admissão"
  sexo: "Sexo"
  mae_nome: "Nome da Mãe"
  pis: "PIS"
  cbo: "CBO"
  beneficiario_grau_dependencia: "Grau de Dependência"
  beneficiario_cnpj_lotacao: "CNPJ de Lotação"
  beneficiario_tipo_acomodacao: "Tipo de Acomodação"
  beneficiario_inclusao: "Inclusão"
  estado_civil: "Estado Civil"
  nacionalidade: "Nacionalidade"
  cep: "CEP"
  numero: "Número"
  complemento: "Complemento"
  ddd: "DDD"
  celular: "Celular"
  email: "E-mail"
  sos_sn: "SOS"
required_fields: [cpf, titular_matricula, beneficiario_nome]
synonyms:
  cpf: ["cpf"]
  nascimento: ["nascimento", "data de nascimento"]
  data_admissao: ["admissao", "data de admissao"]
  pis: ["pis"]
  cbo: ["cbo"]
  email: ["e-mail", "email"]
  sexo: ["sexo"]
  estado_civil: ["estado civil"]
  nacionalidade: ["nacionalidade"]
  mae_nome: ["nome da mae"]
  beneficiario_nome: ["beneficiario", "nome do beneficiario"]
  titular_nome: ["titular", "nome do titular"]
  titular_matricula: ["matricula"]
  beneficiario_grau_dependencia: ["grau de dependencia", "parentesco"]
  beneficiario_cnpj_lotacao: ["cnpj de lotacao", "cnpj"]
  beneficiario_tipo_acomodacao: ["acomodacao"]
  beneficiario_inclusao: ["inclusao"]
  complemento: ["complemento"]
  celular: ["celular"]
patterns:
  cpf: '\d{3}\.?\d{3}\.?\d{3}-?\d{2}'
  data: '\d{1,2}[\/\.\-]\d{1,2}[\/\.\-]\d{2,4}'
  pis: '\d{3}\.?\d{5}\.?\d{2}-?\d{1}'
  cbo: '\d{4}-?\d{2}'
  cnpj: '\d{2}\.?\d{3}\.?\d{3}[\/]?\d{4}-?\d{2}'
  email: '[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}'
`

func testLocator(t *testing.T) *Locator {
	t.Helper()
	cfg, err := fieldcfg.Parse([]byte(testMapping))
	require.NoError(t, err)
	return New(cfg, DefaultHeuristics())
}

func TestExtractHeaderLine(t *testing.T) {
	l := testLocator(t)
	rec := l.ExtractFields("FICHA CADASTRAL\n123456 - JOAO DA SILVA SANTOS\nCPF: 111.444.777-35\n")

	assert.Equal(t, "123456", rec[constants.FieldTitularMatricula])
	assert.Equal(t, "JOAO DA SILVA SANTOS", rec[constants.FieldTitularNome])
	assert.Equal(t, "JOAO DA SILVA SANTOS", rec[constants.FieldBeneficiarioNome])
	assert.Equal(t, "111.444.777-35", rec[constants.FieldCPF])
}

func TestHeaderWinsOverLabels(t *testing.T) {
	l := testLocator(t)
	rec := l.ExtractFields("123456 - JOAO DA SILVA\nMatricula: 99\nTitular: OUTRO NOME\n")

	assert.Equal(t, "123456", rec[constants.FieldTitularMatricula])
	assert.Equal(t, "JOAO DA SILVA", rec[constants.FieldTitularNome])
}

func TestExtractLabeledDates(t *testing.T) {
	l := testLocator(t)
	rec := l.ExtractFields("Nascimento: 01/02/1990\nData de Admissao: 15-03-2020\n")

	assert.Equal(t, "01/02/1990", rec[constants.FieldNascimento])
	assert.Equal(t, "15-03-2020", rec[constants.FieldDataAdmissao])
}

func TestExtractMaeAnchor(t *testing.T) {
	l := testLocator(t)

	rec := l.ExtractFields("Mãe: MARIA DA SILVA PAI: JOSE DA SILVA\n")
	assert.Equal(t, "MARIA DA SILVA", rec[constants.FieldMaeNome])

	// NBSP inside the label, value truncated at the next section
	rec = l.ExtractFields("MA E: APARECIDA DE SOUZA CPF: 111.444.777-35\n")
	assert.Equal(t, "APARECIDA DE SOUZA", rec[constants.FieldMaeNome])
}

func TestExtractPhoneOnlyFromCelularLines(t *testing.T) {
	l := testLocator(t)

	rec := l.ExtractFields("Telefone: (11) 3456-7890\nCelular: (11) 98765-4321\n")
	assert.Equal(t, "11", rec[constants.FieldDDD])
	assert.Equal(t, "98765-4321", rec[constants.FieldCelular])

	// a switchboard line alone never yields a phone
	rec = l.ExtractFields("Telefone: (11) 3456-7890\n")
	assert.Equal(t, "", rec[constants.FieldDDD])
	assert.Equal(t, "", rec[constants.FieldCelular])
}

func TestExtractNameNearCPF(t *testing.T) {
	l := testLocator(t)
	rec := l.ExtractFields("CPF: 111.444.777-35\nFULANO DE TAL\nEstado Civil: Solteiro\n")

	assert.Equal(t, "FULANO DE TAL", rec[constants.FieldBeneficiarioNome])
	assert.Equal(t, "FULANO DE TAL", rec[constants.FieldTitularNome])
}

func TestExtractCEPOnlyFromAddress(t *testing.T) {
	l := testLocator(t)

	rec := l.ExtractFields("Endereço: Rua das Flores, Centro - CEP 01310-100\n")
	assert.Equal(t, "01310-100", rec[constants.FieldCEP])
	assert.Equal(t, "", rec[constants.FieldNumero])

	// a CEP outside the address section is ignored
	rec = l.ExtractFields("CEP 01310-100\n")
	assert.Equal(t, "", rec[constants.FieldCEP])
}

func TestExtractComplementoBlacklist(t *testing.T) {
	l := testLocator(t)

	rec := l.ExtractFields("Complemento: CASA B\n")
	assert.Equal(t, "CASA B", rec[constants.FieldComplemento])

	rec = l.ExtractFields("Complemento: MOTIVO AUMENTO SALARIO\n")
	assert.Equal(t, "", rec[constants.FieldComplemento])
}

func TestExtractMatriculaFallback(t *testing.T) {
	l := testLocator(t)
	rec := l.ExtractFields("Registro: 98765-4\nCPF: 111.444.777-35\n")

	assert.Equal(t, "98765-4", rec[constants.FieldTitularMatricula])
}

func TestExtractInclusao(t *testing.T) {
	l := testLocator(t)
	rec := l.ExtractFields("Inclusão: atendimento 24h urgencia\n")

	assert.Equal(t, "24h", rec[constants.FieldInclusao])
}

func TestExtractNeverInventsValues(t *testing.T) {
	l := testLocator(t)
	rec := l.ExtractFields("pagina sem dados\n")

	for _, k := range []string{
		constants.FieldCPF, constants.FieldTitularMatricula,
		constants.FieldBeneficiarioNome, constants.FieldMaeNome,
	} {
		assert.Equal(t, "", rec[k], "field %s", k)
	}
	assert.Equal(t, "", rec[constants.FieldSosSN])
}
