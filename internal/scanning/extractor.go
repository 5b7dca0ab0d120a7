package scanning

// Extractor turns an invoice document (PDF or image bytes) into raw page
// text for the invoice parser. Implementations must preserve line structure;
// the parser works line by line.
type Extractor interface {
	// ExtractText returns the document's text content.
	ExtractText(data []byte, contentType string) (string, error)
	// Close releases extractor resources.
	Close() error
}

// transcriptionPrompt is shared by the vision-model extractors. They are
// used for scanned invoices that have no embedded text layer.
const transcriptionPrompt = `You are transcribing a parts invoice document. Read every piece of text in the image and reproduce it as plain text, one line of the document per line of output.

Requirements:
- Keep the invoice number line and the invoice date line exactly as printed (e.g. "Invoice Number: INV-1001", "Date: 2024-01-15").
- Reproduce each line item on its own line as: part number, description, unit price, quantity. Example: "GP0171NAVY Navy work cap 15.50 2".
- Reproduce the summary lines at the bottom exactly as labeled (e.g. "SUBTOTAL 31.00", "FREIGHT 4.50", "TAX 2.48", "TOTAL 37.98"), one per line, in the order they appear.
- Do not summarize, translate, or reorder anything. Do not add commentary.
- Output plain text only, no markdown code blocks.`
