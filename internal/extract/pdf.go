package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF extracts page text from PDF bytes. Pages are emitted with a
// "[Page N]" marker so question numbering survives into the prompt. Pages
// that fail to parse are skipped; the extraction only fails when no page
// yields any text at all (scanned papers without a text layer).
func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var b strings.Builder
	extracted := 0
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if extracted > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Page %d]\n%s", i, text)
		extracted++
	}

	if extracted == 0 {
		return "", fmt.Errorf("no extractable text in PDF (%d pages)", numPages)
	}
	return b.String(), nil
}
