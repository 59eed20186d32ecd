// Package assemble turns one page of text into a validated,
// normalized record. It orchestrates the locator, the per-page OCR
// repair of name fields, and the domain validators, collecting
// human-readable issues along the way.
package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lfbrandt/pdf-excel-ingestor/constants"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/fieldcfg"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/locate"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/pdftext"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/textnorm"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/validate"
)

// PageOCR re-recognizes a single page. Implemented by ocr.Extractor;
// stubbed in tests.
type PageOCR interface {
	OCRPage(ctx context.Context, path string, page int) (string, bool)
}

type Assembler struct {
	cfg      *fieldcfg.Config
	locator  *locate.Locator
	ocr      PageOCR // nil disables OCR repair
	logger   *slog.Logger
	ForceOCR bool
}

func New(cfg *fieldcfg.Config, locator *locate.Locator, pageOCR PageOCR, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{cfg: cfg, locator: locator, ocr: pageOCR, logger: logger}
}

// Assemble extracts, repairs and normalizes one page. The returned
// issue list is empty for accepted records.
func (a *Assembler) Assemble(ctx context.Context, docPath string, page pdftext.PageText) (locate.Record, []string) {
	rec := a.locator.ExtractFields(page.Text)
	rec = a.fixNames(ctx, docPath, page.Number, rec)
	return a.normalize(rec)
}

// fixNames re-runs extraction on an OCR'd version of the page when any
// name field looks corrupted (or OCR is forced), overwriting only the
// name fields the re-extraction actually populated.
func (a *Assembler) fixNames(ctx context.Context, docPath string, pageNum int, rec locate.Record) locate.Record {
	need := a.ForceOCR
	if !need {
		for _, k := range constants.NameFields {
			if textnorm.HasSuspectGlyphs(rec[k]) {
				need = true
				break
			}
		}
	}
	if !need {
		return rec
	}

	if a.ocr == nil {
		a.logger.Warn("no OCR backend available, keeping uncorrected names",
			"doc", filepath.Base(docPath), "page", pageNum)
		return rec
	}
	ocrText, ok := a.ocr.OCRPage(ctx, docPath, pageNum)
	if !ok {
		a.logger.Warn("page OCR yielded no text, keeping uncorrected names",
			"doc", filepath.Base(docPath), "page", pageNum)
		return rec
	}

	reRec := a.locator.ExtractFields(ocrText)
	for _, k := range constants.NameFields {
		if reRec[k] != "" {
			rec[k] = reRec[k]
		}
	}
	return rec
}

// normalize applies the domain validators field by field and collects
// issues. Every string value gets a final whitespace sweep; the name
// fields always pass through homoglyph repair, OCR-repaired or not.
func (a *Assembler) normalize(rec locate.Record) (locate.Record, []string) {
	var issues []string

	for _, k := range constants.NameFields {
		rec[k] = textnorm.RepairHomoglyphs(rec[k])
	}

	if v, ok := validate.CPF(rec[constants.FieldCPF]); ok {
		rec[constants.FieldCPF] = v
	} else {
		rec[constants.FieldCPF] = ""
		issues = append(issues, "CPF inválido/ausente")
	}

	for _, k := range []string{constants.FieldNascimento, constants.FieldDataAdmissao} {
		if rec[k] != "" {
			v, ok := validate.Date(rec[k])
			if ok {
				rec[k] = v
			} else {
				rec[k] = ""
			}
		}
		if rec[k] == "" {
			issues = append(issues, fmt.Sprintf("Data inválida/ausente: %s", k))
		}
	}

	if rec[constants.FieldSexo] != "" {
		if v, ok := validate.Sexo(rec[constants.FieldSexo], a.cfg.SexoMap); ok {
			rec[constants.FieldSexo] = v
		}
	}
	if rec[constants.FieldInclusao] != "" {
		if v, ok := validate.Inclusao(rec[constants.FieldInclusao], a.cfg.InclusaoMap); ok {
			rec[constants.FieldInclusao] = v
		}
	}
	if rec[constants.FieldCNPJLotacao] != "" {
		if v, ok := validate.CNPJ(rec[constants.FieldCNPJLotacao]); ok {
			rec[constants.FieldCNPJLotacao] = v
		}
	}
	if rec[constants.FieldCEP] != "" {
		if v, ok := validate.CEP(rec[constants.FieldCEP]); ok {
			rec[constants.FieldCEP] = v
		}
	}
	if rec[constants.FieldPIS] != "" {
		if v, ok := validate.PIS(rec[constants.FieldPIS]); ok {
			rec[constants.FieldPIS] = v
		} else {
			rec[constants.FieldPIS] = ""
		}
	}

	ddd, cel, ok := validate.Phone(rec[constants.FieldDDD], rec[constants.FieldCelular])
	if ok {
		rec[constants.FieldDDD], rec[constants.FieldCelular] = ddd, cel
	} else {
		rec[constants.FieldDDD], rec[constants.FieldCelular] = "", ""
	}

	for k, v := range rec {
		rec[k] = textnorm.NormalizeWhitespace(v)
	}

	for _, k := range a.cfg.RequiredFields {
		if rec[k] == "" {
			issues = append(issues, fmt.Sprintf("Campo obrigatório ausente: %s", k))
		}
	}

	return rec, issues
}
