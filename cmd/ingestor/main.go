// Command ingestor extracts beneficiary records from per-page PDF
// documents and appends them to a template-based Excel workbook,
// with rejection and audit reports alongside.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/lfbrandt/pdf-excel-ingestor/internal/assemble"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/common"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/dedupe"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/fieldcfg"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/ingest"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/ledger"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/locate"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/ocr"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/pipeline"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/report"
)

type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

func main() {
	var inputs multiFlag
	flag.Var(&inputs, "input", "PDF file, directory, or glob (repeatable)")
	mappingPath := flag.String("mapping", "mapping.yaml", "field mapping configuration")
	templatePath := flag.String("template", "", "template .xlsx defining the output layout (required)")
	outdir := flag.String("outdir", "saida", "output directory for workbook and reports")
	xlsxName := flag.String("xlsx-name", "beneficiarios.xlsx", "output workbook file name")
	fresh := flag.Bool("fresh", false, "start the workbook over from the template")
	forceOCR := flag.Bool("force-ocr", false, "OCR every page for name repair, not just suspect ones")
	ocrLang := flag.String("ocr-lang", "", "OCR language spec (overrides OCR_LANG)")
	relaxRequired := flag.Bool("relax-required", false, "do not reject records over missing required fields")
	writeEvenIfErrors := flag.Bool("write-even-if-errors", false, "append rejected rows to the workbook too")
	dumpText := flag.Bool("dump-text", false, "write per-page extracted text under outdir/trace/")
	checkTemplate := flag.Bool("check-template", false, "validate template headers and exit")
	auditColumns := flag.Bool("audit-columns", false, "write column_map.csv with the resolved layout")
	noReports := flag.Bool("no-reports", false, "skip report.jsonl and rejeitados.csv")
	ledgerPath := flag.String("ledger", "", "sqlite run ledger path (empty disables)")
	logLevel := flag.String("loglevel", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, logger, inputs, runFlags{
		mapping:           *mappingPath,
		template:          *templatePath,
		outdir:            *outdir,
		xlsxName:          *xlsxName,
		fresh:             *fresh,
		forceOCR:          *forceOCR,
		ocrLang:           *ocrLang,
		relaxRequired:     *relaxRequired,
		writeEvenIfErrors: *writeEvenIfErrors,
		dumpText:          *dumpText,
		checkTemplate:     *checkTemplate,
		auditColumns:      *auditColumns,
		noReports:         *noReports,
		ledgerPath:        *ledgerPath,
	}); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

type runFlags struct {
	mapping, template, outdir, xlsxName, ocrLang, ledgerPath string
	fresh, forceOCR, relaxRequired, writeEvenIfErrors        bool
	dumpText, checkTemplate, auditColumns, noReports         bool
}

func run(ctx context.Context, logger *slog.Logger, inputs []string, fl runFlags) error {
	cfg, err := fieldcfg.Load(fl.mapping)
	if err != nil {
		return err
	}

	if fl.template == "" {
		return fmt.Errorf("-template is required")
	}
	xlsx := report.NewXLSX(cfg, logger)

	if fl.checkTemplate {
		info, err := xlsx.CheckTemplate(fl.template)
		if err != nil {
			return err
		}
		logger.Info("template OK",
			"sheet", info.Sheet, "header_row", info.HeaderRow, "columns", len(info.KeyToCol))
		if fl.auditColumns {
			return report.WriteColumnAudit(fl.outdir, cfg, info)
		}
		return nil
	}

	inputs = append(inputs, flag.Args()...)
	docs, err := ingest.Collect(inputs)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no input PDFs found")
	}

	appCfg := common.LoadConfig()
	if fl.ocrLang != "" {
		appCfg.OCR.Lang = fl.ocrLang
	}
	extractor := ocr.NewExtractor(appCfg.OCR, logger)

	locator := locate.New(cfg, locate.DefaultHeuristics())
	assembler := assemble.New(cfg, locator, extractor, logger)
	assembler.ForceOCR = fl.forceOCR

	outPath := filepath.Join(fl.outdir, fl.xlsxName)

	prior := map[dedupe.Key]struct{}{}
	if !fl.fresh {
		prior, err = xlsx.ReadPriorKeys(outPath)
		if err != nil {
			return err
		}
	}

	var led *ledger.Ledger
	if fl.ledgerPath != "" {
		led, err = ledger.Open(ctx, fl.ledgerPath, logger)
		if err != nil {
			return err
		}
		defer led.Close()

		ledgerKeys, err := led.PriorKeys(ctx)
		if err != nil {
			return err
		}
		for k := range ledgerKeys {
			prior[k] = struct{}{}
		}
	}
	index := dedupe.NewIndex(prior)
	logger.Info("starting run", "documents", len(docs), "prior_keys", index.PriorCount())

	proc := pipeline.NewProcessor(logger, extractor, assembler, index, led, pipeline.Options{
		RelaxRequired: fl.relaxRequired,
		DumpText:      fl.dumpText,
		Outdir:        fl.outdir,
	})
	for _, doc := range docs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		proc.ProcessDocument(ctx, doc)
	}

	accepted := proc.Accepted()
	rejected := proc.Rejected()
	rows := accepted
	if fl.writeEvenIfErrors {
		rows = append(append([]locate.Record{}, accepted...), recordsOf(rejected)...)
	}

	var info report.HeaderInfo
	if len(rows) > 0 || fl.fresh {
		info, err = xlsx.Append(outPath, fl.template, rows, fl.fresh)
		if err != nil {
			return err
		}
	} else {
		info, err = xlsx.CheckTemplate(fl.template)
		if err != nil {
			return err
		}
	}

	if !fl.noReports {
		if err := report.WriteReports(fl.outdir, cfg, accepted, rejected); err != nil {
			return err
		}
	}
	if fl.auditColumns {
		if err := report.WriteColumnAudit(fl.outdir, cfg, info); err != nil {
			return err
		}
	}

	c := proc.Counters()
	if led != nil {
		if err := led.FinishRun(ctx, c.Accepted, c.Rejected, c.Skipped); err != nil {
			logger.Warn("ledger finish failed", "error", err)
		}
	}
	logger.Info("run finished",
		"accepted", c.Accepted, "rejected", c.Rejected, "skipped", c.Skipped,
		"workbook", outPath)
	return nil
}

func recordsOf(rejected []report.Rejected) []locate.Record {
	out := make([]locate.Record, 0, len(rejected))
	for _, r := range rejected {
		out = append(out, r.Record)
	}
	return out
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
