// Package pdftext reads the native text layer of a PDF, one string per
// page. OCR escalation for scanned documents lives in the ocr package;
// this one never shells out.
package pdftext

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageText is the text associated with one page. Immutable once
// produced.
type PageText struct {
	Number  int // 1-based
	Text    string
	FromOCR bool
}

// PageTexts extracts the native text layer of every page. Pages whose
// extraction fails yield an empty string rather than failing the
// document.
func PageTexts(path string) ([]PageText, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := reader.NumPage()
	pages := make([]PageText, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, PageText{Number: i, Text: pageText(reader, i)})
	}
	return pages, nil
}

// TotalLen is the combined character count of all page texts, used by
// the scanned-document heuristic.
func TotalLen(pages []PageText) int {
	total := 0
	for _, p := range pages {
		total += len(p.Text)
	}
	return total
}

func pageText(reader *pdf.Reader, num int) string {
	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	rows, err := page.GetTextByRow()
	if err != nil || len(rows) == 0 {
		// fall back to the flat text stream
		if txt, err2 := page.GetPlainText(nil); err2 == nil {
			return strings.TrimSpace(txt)
		}
		return ""
	}

	var b strings.Builder
	for _, row := range rows {
		var line strings.Builder
		for _, word := range row.Content {
			if line.Len() > 0 && !strings.HasSuffix(line.String(), " ") &&
				!strings.HasPrefix(word.S, " ") {
				line.WriteByte(' ')
			}
			line.WriteString(word.S)
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String())
}
