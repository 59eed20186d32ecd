// Package locate finds raw field values in noisy page text. Strategy
// per field, in priority order: header pattern, label-anchored pattern
// window, free pattern, labeled free-text value, proximity fallback.
// Values come out raw; validation and normalization happen later.
package locate

import (
	"regexp"
	"strings"

	"github.com/lfbrandt/pdf-excel-ingestor/constants"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/fieldcfg"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/textnorm"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/validate"
)

// Record maps a field key to its (possibly empty) string value. One
// record per page; every output column is present as a key.
type Record map[string]string

// Heuristics are the tunable bounds of the best-effort extraction
// rules. The defaults were tuned on the target document family.
type Heuristics struct {
	HeaderScanLines int // header id+name search depth
	LabelWindow     int // chars inspected after a label anchor
	AddressWindow   int // chars inspected after an address label
	ProximityLines  int // lines around the id line searched for a name
	NameMinWords    int
	NameMaxWords    int
	NameMinLen      int
	NameMaxLen      int
}

func DefaultHeuristics() Heuristics {
	return Heuristics{
		HeaderScanLines: 60,
		LabelWindow:     160,
		AddressWindow:   240,
		ProximityLines:  3,
		NameMinWords:    2,
		NameMaxWords:    7,
		NameMinLen:      5,
		NameMaxLen:      80,
	}
}

// labelStopwords disqualify a line from being a person's name in the
// proximity fallback.
var labelStopwords = []string{
	"cpf", "pis", "cbo", "nasc", "nascimento", "admiss", "admissao", "estado civil",
	"nacionalidade", "sexo", "mãe", "mae", "cep", "matric", "endereço", "endereco",
	"lotacao", "lotação", "cnpj", "grau", "dependencia", "dependência", "acomodacao",
	"acomodação", "inclusao", "inclusão", "email", "e-mail", "telefone", "celular",
}

var (
	reHeader      = regexp.MustCompile(`\b(\d{6,})\s*[-–—]\s*([A-ZÀ-Ü][A-ZÀ-Ü\s'.-]{4,})`)
	reMultiSpace  = regexp.MustCompile(`\s{2,}`)
	reAnyDigit    = regexp.MustCompile(`\d`)
	reValueCut    = regexp.MustCompile(`[;•|]`)
	reMaeLine     = regexp.MustCompile(`(?im)^[ \t]*M[ÃA]\x{00A0}?E\s*:\s*([^\r\n]+)`)
	reMaeLoose    = regexp.MustCompile(`(?i)\bM[ÃA]\s*E\s*:\s*([^\r\n]+)`)
	reMaeStop     = regexp.MustCompile(`(?i)\b(PAI|PIS|CPF|NACIONALIDADE|NATURALIDADE|DATA|ENDEREÇO|ENDERECO)\b\s*:`)
	reCEP         = regexp.MustCompile(`\b(\d{5})[-.\s]?(\d{3})\b`)
	rePhoneLine   = regexp.MustCompile(`(?:\(?(\d{2})\)?\s*)?([0-9]{4,5})[-.\s]?([0-9]{4})\b`)
	reDDD         = regexp.MustCompile(`^\d{2}$`)
	reCelular     = regexp.MustCompile(`^\d{5}-\d{4}$`)
	reInclusao    = regexp.MustCompile(`\b(?:24\s*h|24h|programada|agendada)\b`)
	reComplBlack  = regexp.MustCompile(`\b(salario|motivo|classe|nivel|aumento)\b`)
	reMatriculaRx = []*regexp.Regexp{
		regexp.MustCompile(`(?im)ficha[:.\s]*([A-Z0-9./\-]{2,20})`),
		regexp.MustCompile(`(?im)matr[íi]cula\s*[:\-]?\s*([A-Z0-9./\-]{2,20})`),
		regexp.MustCompile(`(?im)(?:registro|id\s*funcional|id)\s*[:\-]?\s*([A-Z0-9./\-]{2,20})`),
		regexp.MustCompile(`(?im)(?:c[oó]d\.?\s*funcional|codigo\s*funcional)\s*[:\-]?\s*([A-Z0-9./\-]{2,20})`),
	}
	addressLabels = []string{"endereço", "endereco", "logradouro"}
)

type Locator struct {
	cfg *fieldcfg.Config
	h   Heuristics
}

func New(cfg *fieldcfg.Config, h Heuristics) *Locator {
	return &Locator{cfg: cfg, h: h}
}

// ExtractFields populates a Record from one page of text. Absent
// fields stay empty; nothing here validates values.
func (l *Locator) ExtractFields(text string) Record {
	out := Record{}
	for _, k := range l.cfg.FieldOrder {
		out[k] = ""
	}
	pat, syn := l.cfg.Patterns, l.cfg.Synonyms

	// Highest-confidence source: "123456 - FULL NAME" header line.
	hdrID, hdrName := l.headerIDAndName(text)
	if hdrID != "" {
		out[constants.FieldTitularMatricula] = hdrID
	}
	if hdrName != "" {
		out[constants.FieldTitularNome] = hdrName
		out[constants.FieldBeneficiarioNome] = hdrName
	}

	folded := textnorm.FoldAccentsLower(text)

	if re, ok := pat["cpf"]; ok {
		out[constants.FieldCPF] = firstNonEmpty(
			l.labelThenPattern(folded, syn["cpf"], re),
			re.FindString(text),
		)
	}
	if re, ok := pat["data"]; ok {
		out[constants.FieldNascimento] = l.labelThenPattern(folded, syn[constants.FieldNascimento], re)
		out[constants.FieldDataAdmissao] = l.labelThenPattern(folded, syn[constants.FieldDataAdmissao], re)
	}
	if re, ok := pat["pis"]; ok {
		out[constants.FieldPIS] = firstNonEmpty(
			l.labelThenPattern(folded, syn[constants.FieldPIS], re),
			l.labeledValue(text, syn[constants.FieldPIS], 64),
			re.FindString(text),
		)
	}
	if re, ok := pat["cbo"]; ok {
		out[constants.FieldCBO] = firstNonEmpty(
			l.labelThenPattern(folded, syn[constants.FieldCBO], re),
			re.FindString(text),
		)
	}

	// CEP comes only from the address section; the building number is
	// deliberately never filled (it belongs to the employer).
	out[constants.FieldCEP] = l.cepFromAddress(text, folded)
	out[constants.FieldNumero] = ""

	if re, ok := pat["email"]; ok {
		out[constants.FieldEmail] = firstNonEmpty(
			l.labelThenPattern(folded, syn[constants.FieldEmail], re),
			re.FindString(text),
		)
	}

	out[constants.FieldDDD], out[constants.FieldCelular] = l.phoneLabeled(text)

	grab := func(key string, maxlen int) string {
		return l.grabAfterLabel(text, folded, syn[key], maxlen)
	}

	if out[constants.FieldBeneficiarioNome] == "" {
		out[constants.FieldBeneficiarioNome] = grab(constants.FieldBeneficiarioNome, 96)
	}
	out[constants.FieldGrauDependencia] = grab(constants.FieldGrauDependencia, 48)

	// SOS flag disabled upstream; never populated.
	out[constants.FieldSosSN] = ""

	cnpjRe := pat["cnpj"]
	if cnpjRe == nil {
		cnpjRe = regexp.MustCompile(`.{0,18}`)
	}
	out[constants.FieldCNPJLotacao] = firstNonEmpty(
		l.labelThenPattern(folded, syn[constants.FieldCNPJLotacao], cnpjRe),
		grab(constants.FieldCNPJLotacao, 32),
	)
	out[constants.FieldTipoAcomodacao] = grab(constants.FieldTipoAcomodacao, 32)

	if incl := grab(constants.FieldInclusao, 32); incl != "" {
		out[constants.FieldInclusao] = reInclusao.FindString(textnorm.FoldAccentsLower(incl))
	}

	out[constants.FieldNacionalidade] = grab(constants.FieldNacionalidade, 32)
	out[constants.FieldEstadoCivil] = grab(constants.FieldEstadoCivil, 24)
	out[constants.FieldSexo] = grab(constants.FieldSexo, 8)

	out[constants.FieldMaeNome] = firstNonEmpty(
		extractMaeLabel(text),
		grab(constants.FieldMaeNome, 96),
	)

	if out[constants.FieldTitularNome] == "" {
		out[constants.FieldTitularNome] = grab(constants.FieldTitularNome, 96)
	}
	if out[constants.FieldTitularMatricula] == "" {
		out[constants.FieldTitularMatricula] = firstNonEmpty(
			grab(constants.FieldTitularMatricula, 32),
			fallbackMatricula(text),
		)
	}

	out[constants.FieldComplemento] = sanitizeComplemento(grab(constants.FieldComplemento, 64))

	// Cross-fill the name fields; last resort is a name-looking line
	// near the CPF digits.
	cpfDigits := textnorm.Digits(out[constants.FieldCPF])
	if out[constants.FieldBeneficiarioNome] == "" {
		out[constants.FieldBeneficiarioNome] = l.nameNearToken(text, cpfDigits)
	}
	if out[constants.FieldTitularNome] == "" && out[constants.FieldBeneficiarioNome] != "" {
		out[constants.FieldTitularNome] = out[constants.FieldBeneficiarioNome]
	}
	if out[constants.FieldBeneficiarioNome] == "" && out[constants.FieldTitularNome] != "" {
		out[constants.FieldBeneficiarioNome] = out[constants.FieldTitularNome]
	}

	return out
}

func (l *Locator) headerIDAndName(text string) (id, name string) {
	ls := lines(text)
	if len(ls) > l.h.HeaderScanLines {
		ls = ls[:l.h.HeaderScanLines]
	}
	for _, ln := range ls {
		if m := reHeader.FindStringSubmatch(ln); m != nil {
			id = m[1]
			name = strings.Trim(reMultiSpace.ReplaceAllString(m[2], " "), " -–—.")
			name = strings.TrimSpace(name)
			return id, name
		}
	}
	return "", ""
}

// labelThenPattern anchors on the first synonym found in the folded
// text and searches the window after it. Values matched here come from
// the folded copy, which is fine for the digit-only fields it serves.
func (l *Locator) labelThenPattern(folded string, labels []string, re *regexp.Regexp) string {
	for _, label := range labels {
		lab := textnorm.FoldAccentsLower(label)
		idx := strings.Index(folded, lab)
		if idx == -1 {
			continue
		}
		start := idx + len(lab)
		end := start + l.h.LabelWindow
		if end > len(folded) {
			end = len(folded)
		}
		if m := re.FindString(folded[start:end]); m != "" {
			return m
		}
	}
	return ""
}

// labeledValue captures free text after a label up to end of line,
// truncated at the first of ; • | and length-capped.
func (l *Locator) labeledValue(text string, labels []string, maxlen int) string {
	for _, lab := range labels {
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(lab) + `\s*[:\-]?\s*(.+)`)
		if err != nil {
			continue
		}
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		raw := m[1]
		if i := strings.IndexByte(raw, '\n'); i >= 0 {
			raw = raw[:i]
		}
		if loc := reValueCut.FindStringIndex(raw); loc != nil {
			raw = raw[:loc[0]]
		}
		raw = strings.Trim(raw, " \t:.-")
		if raw != "" {
			return capLen(raw, maxlen)
		}
	}
	return ""
}

// grabAfterLabel tries labeledValue on the raw text, then a bare
// window on the folded text.
func (l *Locator) grabAfterLabel(text, folded string, labels []string, maxlen int) string {
	if v := l.labeledValue(text, labels, maxlen); v != "" {
		return v
	}
	for _, label := range labels {
		lab := textnorm.FoldAccentsLower(label)
		idx := strings.Index(folded, lab)
		if idx == -1 {
			continue
		}
		start := idx + len(lab)
		end := start + maxlen
		if end > len(folded) {
			end = len(folded)
		}
		raw := folded[start:end]
		if i := strings.IndexByte(raw, '\n'); i >= 0 {
			raw = raw[:i]
		}
		if loc := reValueCut.FindStringIndex(raw); loc != nil {
			raw = raw[:loc[0]]
		}
		raw = strings.Trim(raw, " :.-\t")
		if raw != "" {
			return raw
		}
	}
	return ""
}

// extractMaeLabel captures the value after the literal "Mãe:" label,
// tolerating accent variants and a following NBSP, truncated at the
// next section keyword.
func extractMaeLabel(text string) string {
	m := reMaeLine.FindStringSubmatch(text)
	if m == nil {
		m = reMaeLoose.FindStringSubmatch(text)
	}
	if m == nil {
		return ""
	}
	val := m[1]
	if loc := reMaeStop.FindStringIndex(val); loc != nil {
		val = val[:loc[0]]
	}
	val = textnorm.NormalizeWhitespace(val)
	val = strings.Trim(val, " \t:.-")
	return capLen(val, 96)
}

// cepFromAddress searches a bounded window after an address label. The
// window is taken from the folded copy; the digits it matches are
// unaffected by folding.
func (l *Locator) cepFromAddress(text, folded string) string {
	_ = text
	for _, lab := range addressLabels {
		labFolded := textnorm.FoldAccentsLower(lab)
		i := strings.Index(folded, labFolded)
		if i == -1 {
			continue
		}
		end := i + l.h.AddressWindow
		if end > len(folded) {
			end = len(folded)
		}
		win := folded[i:end]
		if m := reCEP.FindStringSubmatch(win); m != nil {
			return m[1] + "-" + m[2]
		}
		return ""
	}
	return ""
}

// phoneLabeled extracts DDD and mobile number only from lines carrying
// the whole word "celular"; "telefone" lines are ignored so the
// employer's switchboard never leaks into the record.
func (l *Locator) phoneLabeled(text string) (string, string) {
	labels := append([]string{}, l.cfg.Synonyms[constants.FieldCelular]...)
	labels = append(labels, "celular", "cel.")

	var wordRes []*regexp.Regexp
	for _, lb := range labels {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(textnorm.FoldAccentsLower(lb)) + `\b`)
		if err == nil {
			wordRes = append(wordRes, re)
		}
	}

	for _, ln := range strings.Split(text, "\n") {
		lnFolded := textnorm.FoldAccentsLower(ln)
		matched := false
		for _, re := range wordRes {
			if re.MatchString(lnFolded) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		m := rePhoneLine.FindStringSubmatch(ln)
		if m == nil {
			continue
		}
		ddd, cel, ok := validate.Phone(m[1], m[2]+m[3])
		if !ok {
			return "", ""
		}
		if !reDDD.MatchString(ddd) {
			ddd = ""
		}
		if !reCelular.MatchString(cel) {
			cel = ""
		}
		return ddd, cel
	}
	return "", ""
}

// nameNearToken looks for a name-shaped line close to the line holding
// the given digits (usually the CPF), skipping lines with labels or
// digits.
func (l *Locator) nameNearToken(text, tokenDigits string) string {
	if tokenDigits == "" {
		return ""
	}
	ls := lines(text)
	idx := -1
	for i, ln := range ls {
		if strings.Contains(textnorm.Digits(ln), tokenDigits) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ""
	}

	lo := idx - l.h.ProximityLines
	if lo < 0 {
		lo = 0
	}
	hi := idx + l.h.ProximityLines + 1
	if hi > len(ls) {
		hi = len(ls)
	}
	for j := lo; j < hi; j++ {
		if j == idx {
			continue
		}
		cand := ls[j]
		low := textnorm.FoldAccentsLower(cand)
		if containsAny(low, labelStopwords) {
			continue
		}
		if reAnyDigit.MatchString(cand) {
			continue
		}
		words := len(strings.Fields(cand))
		n := len([]rune(cand))
		if words >= l.h.NameMinWords && words <= l.h.NameMaxWords &&
			n >= l.h.NameMinLen && n <= l.h.NameMaxLen {
			return strings.TrimSpace(reMultiSpace.ReplaceAllString(cand, " "))
		}
	}
	return ""
}

func fallbackMatricula(text string) string {
	for _, re := range reMatriculaRx {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// sanitizeComplemento drops values carrying payroll vocabulary, a sign
// the window landed on an unrelated section.
func sanitizeComplemento(val string) string {
	if val == "" {
		return ""
	}
	if reComplBlack.MatchString(textnorm.FoldAccentsLower(val)) {
		return ""
	}
	return textnorm.NormalizeWhitespace(val)
}

func lines(text string) []string {
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(ln); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func capLen(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max])
	}
	return s
}
