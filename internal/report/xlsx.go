// Package report is the output side of the ingestor: appending
// accepted rows to the template workbook, reading prior keys back for
// dedupe, and writing the rejection/audit reports.
package report

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/lfbrandt/pdf-excel-ingestor/constants"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/dedupe"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/fieldcfg"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/locate"
	"github.com/lfbrandt/pdf-excel-ingestor/internal/textnorm"
)

const headerScanRows = 30

var (
	reDDDExact     = regexp.MustCompile(`^\d{2}$`)
	reCelularExact = regexp.MustCompile(`^\d{5}-\d{4}$`)
)

// emptyFillColor marks cells left blank in written rows, so a reviewer
// spots the gaps at a glance.
const emptyFillColor = "FFF2CC"

type XLSX struct {
	cfg    *fieldcfg.Config
	logger *slog.Logger
}

func NewXLSX(cfg *fieldcfg.Config, logger *slog.Logger) *XLSX {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSX{cfg: cfg, logger: logger}
}

// HeaderInfo is the resolved layout of the template sheet.
type HeaderInfo struct {
	Sheet     string
	HeaderRow int            // 1-based
	KeyToCol  map[string]int // field key -> 1-based column
}

// DetectHeader scans the first rows of the configured sheet for the
// row matching the most configured column headers.
func (x *XLSX) DetectHeader(f *excelize.File) (HeaderInfo, error) {
	sheet := x.cfg.OutputSheet
	if idx, _ := f.GetSheetIndex(sheet); idx == -1 {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return HeaderInfo{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	expected := map[string]struct{}{}
	for _, h := range x.cfg.OutputColumns {
		expected[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}

	bestRow, bestMatches := -1, 0
	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}
	for r := 0; r < limit; r++ {
		matches := 0
		for _, cell := range rows[r] {
			if _, ok := expected[strings.ToLower(strings.TrimSpace(cell))]; ok {
				matches++
			}
		}
		if matches > bestMatches {
			bestRow, bestMatches = r, matches
		}
	}
	if bestRow == -1 {
		return HeaderInfo{}, fmt.Errorf("no header row found in sheet %q", sheet)
	}

	headerToCol := map[string]int{}
	for c, cell := range rows[bestRow] {
		if s := strings.TrimSpace(cell); s != "" {
			headerToCol[s] = c + 1
		}
	}

	keyToCol := map[string]int{}
	var missing []string
	for key, header := range x.cfg.OutputColumns {
		if col, ok := headerToCol[header]; ok {
			keyToCol[key] = col
		} else {
			missing = append(missing, header)
		}
	}
	if len(missing) > 0 {
		return HeaderInfo{}, fmt.Errorf("template is missing configured headers: %s",
			strings.Join(missing, ", "))
	}

	return HeaderInfo{Sheet: sheet, HeaderRow: bestRow + 1, KeyToCol: keyToCol}, nil
}

// CheckTemplate validates the template layout without writing anything.
func (x *XLSX) CheckTemplate(templatePath string) (HeaderInfo, error) {
	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return HeaderInfo{}, fmt.Errorf("open template: %w", err)
	}
	defer f.Close()
	return x.DetectHeader(f)
}

// Append writes rows after the last data row of the output workbook,
// creating it from the template when absent (or when fresh is set).
// ID and date columns get the text number format; empty cells get a
// marker fill.
func (x *XLSX) Append(outPath, templatePath string, rows []locate.Record, fresh bool) (HeaderInfo, error) {
	if templatePath == "" {
		return HeaderInfo{}, fmt.Errorf("a template workbook is required for layout-identical output")
	}
	if _, err := os.Stat(outPath); err != nil || fresh {
		if err := copyFile(templatePath, outPath); err != nil {
			return HeaderInfo{}, fmt.Errorf("seed output from template: %w", err)
		}
	}

	f, err := excelize.OpenFile(outPath)
	if err != nil {
		return HeaderInfo{}, fmt.Errorf("open output workbook: %w", err)
	}
	defer f.Close()

	info, err := x.DetectHeader(f)
	if err != nil {
		return HeaderInfo{}, err
	}

	all, err := f.GetRows(info.Sheet)
	if err != nil {
		return HeaderInfo{}, fmt.Errorf("read rows: %w", err)
	}
	rowIdx := info.HeaderRow + 1
	for rowIdx <= len(all) && rowHasData(all[rowIdx-1]) {
		rowIdx++
	}

	textStyle, plainStyle, textEmpty, plainEmpty, err := x.styles(f)
	if err != nil {
		return HeaderInfo{}, err
	}

	for _, rec := range rows {
		for key, col := range info.KeyToCol {
			val := textnorm.NormalizeWhitespace(rec[key])

			// last line of defense for phone columns
			if key == constants.FieldDDD && !reDDDExact.MatchString(val) {
				val = ""
			}
			if key == constants.FieldCelular && val != "" && !reCelularExact.MatchString(val) {
				val = ""
			}

			cell, _ := excelize.CoordinatesToCellName(col, rowIdx)
			if err := f.SetCellValue(info.Sheet, cell, val); err != nil {
				return HeaderInfo{}, fmt.Errorf("set cell %s: %w", cell, err)
			}

			_, isText := constants.TextFormatFields[key]
			style := plainStyle
			switch {
			case val == "" && isText:
				style = textEmpty
			case val == "":
				style = plainEmpty
			case isText:
				style = textStyle
			}
			if err := f.SetCellStyle(info.Sheet, cell, cell, style); err != nil {
				return HeaderInfo{}, fmt.Errorf("style cell %s: %w", cell, err)
			}
		}
		rowIdx++
	}

	for key, col := range info.KeyToCol {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			continue
		}
		w := len([]rune(x.cfg.OutputColumns[key])) + 4
		if w < 12 {
			w = 12
		}
		if w > 36 {
			w = 36
		}
		if err := f.SetColWidth(info.Sheet, name, name, float64(w)); err != nil {
			return HeaderInfo{}, fmt.Errorf("set column width %s: %w", name, err)
		}
	}

	if err := f.Save(); err != nil {
		return HeaderInfo{}, fmt.Errorf("save workbook (close it in Excel if open): %w", err)
	}
	return info, nil
}

// styles builds the four cell styles used for written rows: text/plain
// number format, each with and without the empty-cell fill. Calibri 11
// and left alignment everywhere so inherited column styles cannot
// re-corrupt names.
func (x *XLSX) styles(f *excelize.File) (textStyle, plainStyle, textEmpty, plainEmpty int, err error) {
	font := &excelize.Font{Family: "Calibri", Size: 11}
	align := &excelize.Alignment{Horizontal: "left", Indent: 0}
	fill := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{emptyFillColor}}

	// 49 is the built-in "@" (text) number format.
	if textStyle, err = f.NewStyle(&excelize.Style{Font: font, Alignment: align, NumFmt: 49}); err != nil {
		return 0, 0, 0, 0, err
	}
	if plainStyle, err = f.NewStyle(&excelize.Style{Font: font, Alignment: align}); err != nil {
		return 0, 0, 0, 0, err
	}
	if textEmpty, err = f.NewStyle(&excelize.Style{Font: font, Alignment: align, NumFmt: 49, Fill: fill}); err != nil {
		return 0, 0, 0, 0, err
	}
	if plainEmpty, err = f.NewStyle(&excelize.Style{Font: font, Alignment: align, Fill: fill}); err != nil {
		return 0, 0, 0, 0, err
	}
	return textStyle, plainStyle, textEmpty, plainEmpty, nil
}

// ReadPriorKeys loads the (cpf digits, matrícula) pairs already
// committed to the output workbook. A missing workbook is an empty set.
func (x *XLSX) ReadPriorKeys(outPath string) (map[dedupe.Key]struct{}, error) {
	keys := map[dedupe.Key]struct{}{}
	if _, err := os.Stat(outPath); err != nil {
		return keys, nil
	}

	f, err := excelize.OpenFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("open existing output: %w", err)
	}
	defer f.Close()

	info, err := x.DetectHeader(f)
	if err != nil {
		return nil, err
	}
	colCPF, okCPF := info.KeyToCol[constants.FieldCPF]
	colMat, okMat := info.KeyToCol[constants.FieldTitularMatricula]
	if !okCPF || !okMat {
		return keys, nil
	}

	rows, err := f.GetRows(info.Sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	for r := info.HeaderRow; r < len(rows); r++ {
		k := dedupe.Key{
			CPFDigits: textnorm.Digits(cellAt(rows[r], colCPF)),
			Matricula: strings.TrimSpace(cellAt(rows[r], colMat)),
		}
		if k.Valid() {
			keys[k] = struct{}{}
		}
	}
	return keys, nil
}

func cellAt(row []string, col int) string {
	if col-1 < len(row) {
		return row[col-1]
	}
	return ""
}

func rowHasData(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
