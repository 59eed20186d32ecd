// Package pipeline drives the page-by-page ingestion: acquire text,
// assemble a record, classify against the dedupe index, and collect
// accepted/rejected rows for the writer. Single-threaded by design;
// one page failing never stops the run.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/lfbrandt/pdf-excel-ingestor/internal/assemble"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/dedupe"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/ledger"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/locate"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/pdftext"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/report"
)

// Acquirer produces the best-available text per page of a document.
// Implemented by ocr.Extractor.
type Acquirer interface {
	AcquirePageTexts(ctx context.Context, path string) ([]pdftext.PageText, error)
}

// Options are the run-level behavior flags.
type Options struct {
	RelaxRequired bool   // demote required-field issues to log lines
	DumpText      bool   // trace extracted page text under Outdir
	Outdir        string // report/trace directory
}

// Counters summarize a run for reporting. Monotonically increasing.
type Counters struct {
	Accepted int
	Rejected int
	Skipped  int // prior duplicates, silently omitted
}

// Processor holds the run context: dedupe index, counters, and the
// collected output rows. Not safe for concurrent use; the pipeline is
// synchronous.
type Processor struct {
	logger    *slog.Logger
	acquirer  Acquirer
	assembler *assemble.Assembler
	index     *dedupe.Index
	ledger    *ledger.Ledger // nil disables the run ledger
	opts      Options

	counters Counters
	accepted []locate.Record
	rejected []report.Rejected
}

func NewProcessor(logger *slog.Logger, acq Acquirer, asm *assemble.Assembler, index *dedupe.Index, led *ledger.Ledger, opts Options) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger,
		acquirer:  acq,
		assembler: asm,
		index:     index,
		ledger:    led,
		opts:      opts,
	}
}

// ProcessDocument ingests every page of one document. Acquisition
// failures are logged and skip the document; page-level problems only
// affect their own page.
func (p *Processor) ProcessDocument(ctx context.Context, path string) {
	name := filepath.Base(path)
	p.logger.Info("processing document", "doc", name)

	pages, err := p.acquirer.AcquirePageTexts(ctx, path)
	if err != nil {
		p.logger.Warn("document unreadable, skipping", "doc", name, "error", err)
		return
	}
	if len(pages) == 0 {
		p.logger.Warn("no pages extracted", "doc", name)
		return
	}

	for _, page := range pages {
		p.processPage(ctx, path, page)
	}
}

func (p *Processor) processPage(ctx context.Context, path string, page pdftext.PageText) {
	name := filepath.Base(path)

	if p.opts.DumpText {
		if err := report.DumpPageText(p.opts.Outdir, path, page.Number, page.Text); err != nil {
			p.logger.Warn("trace dump failed", "doc", name, "page", page.Number, "error", err)
		}
	}
	if strings.TrimSpace(page.Text) == "" {
		p.logger.Warn("page has no text", "doc", name, "page", page.Number)
		return
	}

	rec, issues := p.assembler.Assemble(ctx, path, page)

	if p.opts.RelaxRequired {
		kept := issues[:0]
		for _, is := range issues {
			if strings.HasPrefix(is, "Campo obrigatório ausente") {
				p.logger.Debug("relaxed required-field issue",
					"doc", name, "page", page.Number, "issue", is)
				continue
			}
			kept = append(kept, is)
		}
		issues = kept
	}

	key := dedupe.KeyOf(rec)
	switch p.index.Classify(key) {
	case dedupe.PriorDuplicate:
		p.counters.Skipped++
		p.logger.Info("page skipped, already in output",
			"doc", name, "page", page.Number,
			"cpf", key.CPFDigits, "matricula", key.Matricula)
		return
	case dedupe.RunDuplicate:
		issues = append(issues, "Duplicado (CPF+Matrícula)")
	}

	if len(issues) > 0 {
		p.counters.Rejected++
		p.rejected = append(p.rejected, report.Rejected{Record: rec, Issues: issues})
		p.logger.Warn("page rejected",
			"doc", name, "page", page.Number, "issues", strings.Join(issues, " | "))
		return
	}

	p.counters.Accepted++
	p.accepted = append(p.accepted, rec)
	p.index.Remember(key)
	if p.ledger != nil {
		if err := p.ledger.RecordAccepted(ctx, key); err != nil {
			p.logger.Warn("ledger update failed", "doc", name, "page", page.Number, "error", err)
		}
	}
}

// Accepted returns the accepted records in processing order.
func (p *Processor) Accepted() []locate.Record { return p.accepted }

// Rejected returns the rejected records with their issues.
func (p *Processor) Rejected() []report.Rejected { return p.rejected }

func (p *Processor) Counters() Counters { return p.counters }
