package constants

// Field keys of the output record. Keys match mapping.yaml and the
// column headers of the template workbook.
const (
	FieldCPF              = "cpf"
	FieldNascimento       = "nascimento"
	FieldDataAdmissao     = "data_admissao"
	FieldPIS              = "pis"
	FieldCBO              = "cbo"
	FieldCEP              = "cep"
	FieldEmail            = "email"
	FieldDDD              = "ddd"
	FieldCelular          = "celular"
	FieldSexo             = "sexo"
	FieldEstadoCivil      = "estado_civil"
	FieldNacionalidade    = "nacionalidade"
	FieldMaeNome          = "mae_nome"
	FieldBeneficiarioNome = "beneficiario_nome"
	FieldTitularNome      = "titular_nome"
	FieldTitularMatricula = "titular_matricula"
	FieldNumero           = "numero"
	FieldComplemento      = "complemento"
	FieldSosSN            = "sos_sn"

	FieldGrauDependencia = "beneficiario_grau_dependencia"
	FieldCNPJLotacao     = "beneficiario_cnpj_lotacao"
	FieldTipoAcomodacao  = "beneficiario_tipo_acomodacao"
	FieldInclusao        = "beneficiario_inclusao"
)

// NameFields are the fields eligible for OCR re-extraction and
// homoglyph repair.
var NameFields = []string{FieldMaeNome, FieldBeneficiarioNome, FieldTitularNome}

// TextFormatFields are written to the workbook with the text number
// format "@" so Excel never reinterprets IDs and dates.
var TextFormatFields = map[string]struct{}{
	FieldCNPJLotacao:      {},
	FieldCPF:              {},
	FieldPIS:              {},
	FieldCEP:              {},
	FieldDDD:              {},
	FieldCelular:          {},
	FieldTitularMatricula: {},
	FieldNumero:           {},
	FieldCBO:              {},
	FieldNascimento:       {},
	FieldDataAdmissao:     {},
}
