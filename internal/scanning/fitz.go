package scanning

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Fitz extracts the embedded text layer from PDF invoices. It cannot read
// scanned images; use the Gemini or Ollama extractor for those.
type Fitz struct{}

// NewFitz creates the PDF text-layer extractor.
func NewFitz() *Fitz {
	return &Fitz{}
}

// ExtractText concatenates the text of every page.
func (f *Fitz) ExtractText(data []byte, contentType string) (string, error) {
	if contentType != "" && contentType != "application/pdf" {
		return "", fmt.Errorf("unsupported content type %q: the pdf extractor reads PDFs only, use a vision extractor for images", contentType)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("extracting text from page %d: %w", i+1, err)
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n"), nil
}

// Close is a no-op; documents are opened per call.
func (f *Fitz) Close() error {
	return nil
}
