package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lfbrandt/pdf-excel-ingestor/internal/fieldcfg"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/locate"
)

// Rejected pairs a record with the issues that kept it out of the
// accepted output.
type Rejected struct {
	Record locate.Record
	Issues []string
}

type jsonlLine struct {
	OK     bool              `json:"ok"`
	Row    map[string]string `json:"row"`
	Errors []string          `json:"errors,omitempty"`
}

// WriteReports writes report.jsonl (every record, accepted and
// rejected) and rejeitados.csv (rejected only, issues first).
func WriteReports(outdir string, cfg *fieldcfg.Config, accepted []locate.Record, rejected []Rejected) error {
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	jf, err := os.Create(filepath.Join(outdir, "report.jsonl"))
	if err != nil {
		return fmt.Errorf("create report.jsonl: %w", err)
	}
	defer jf.Close()

	enc := json.NewEncoder(jf)
	for _, r := range accepted {
		if err := enc.Encode(jsonlLine{OK: true, Row: r}); err != nil {
			return fmt.Errorf("write report.jsonl: %w", err)
		}
	}
	for _, r := range rejected {
		if err := enc.Encode(jsonlLine{OK: false, Row: r.Record, Errors: r.Issues}); err != nil {
			return fmt.Errorf("write report.jsonl: %w", err)
		}
	}

	cf, err := os.Create(filepath.Join(outdir, "rejeitados.csv"))
	if err != nil {
		return fmt.Errorf("create rejeitados.csv: %w", err)
	}
	defer cf.Close()

	w := csv.NewWriter(cf)
	w.Comma = ';'

	header := append([]string{"erro"}, cfg.FieldOrder...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write rejeitados.csv: %w", err)
	}
	for _, r := range rejected {
		row := make([]string, 0, len(header))
		row = append(row, strings.Join(r.Issues, " | "))
		for _, k := range cfg.FieldOrder {
			row = append(row, r.Record[k])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write rejeitados.csv: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteColumnAudit writes column_map.csv mapping each field key to its
// resolved template column.
func WriteColumnAudit(outdir string, cfg *fieldcfg.Config, info HeaderInfo) error {
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(filepath.Join(outdir, "column_map.csv"))
	if err != nil {
		return fmt.Errorf("create column_map.csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write([]string{"key", "header_name", "col_number"}); err != nil {
		return err
	}
	for _, key := range cfg.FieldOrder {
		col := "MISSING"
		if c, ok := info.KeyToCol[key]; ok {
			col = fmt.Sprintf("%d", c)
		}
		if err := w.Write([]string{key, cfg.OutputColumns[key], col}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// DumpPageText traces the extracted text of one page to
// outdir/trace/<doc>_pNNN.txt.
func DumpPageText(outdir, docPath string, page int, text string) error {
	traceDir := filepath.Join(outdir, "trace")
	if err := os.MkdirAll(traceDir, 0o755); err != nil {
		return err
	}
	stem := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
	name := fmt.Sprintf("%s_p%03d.txt", stem, page)
	return os.WriteFile(filepath.Join(traceDir, name), []byte(text), 0o644)
}
