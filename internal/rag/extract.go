package rag

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
)

// SupportedDocumentTypes lists the upload extensions the extractor accepts.
var SupportedDocumentTypes = []string{".pdf", ".docx", ".txt"}

// Segment is one extractable unit of a document. Ref is the 1-based page
// number for paged formats and -1 where pages do not apply.
type Segment struct {
	Ref  int
	Text string
}

// ExtractedDocument is the text pulled out of one uploaded file.
type ExtractedDocument struct {
	FileType string
	Segments []Segment
}

// ExtractDocument pulls plain text from an uploaded file, keyed on the file
// extension. PDFs keep per-page segments so answers can cite page numbers.
func ExtractDocument(data []byte, fileName string) (*ExtractedDocument, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	case ".txt":
		text := strings.TrimSpace(string(data))
		if text == "" {
			return nil, fmt.Errorf("document %s contains no text", fileName)
		}
		return &ExtractedDocument{FileType: "txt", Segments: []Segment{{Ref: -1, Text: text}}}, nil
	default:
		return nil, fmt.Errorf("unsupported document type %q (supported: %s)",
			filepath.Ext(fileName), strings.Join(SupportedDocumentTypes, ", "))
	}
}

func extractPDF(data []byte) (*ExtractedDocument, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	doc := &ExtractedDocument{FileType: "pdf"}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// One unreadable page should not sink the document.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		doc.Segments = append(doc.Segments, Segment{Ref: i, Text: text})
	}
	if len(doc.Segments) == 0 {
		return nil, fmt.Errorf("pdf contains no extractable text")
	}
	return doc, nil
}

func extractDOCX(data []byte) (*ExtractedDocument, error) {
	res, err := docconv.Convert(bytes.NewReader(data), "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true)
	if err != nil {
		return nil, fmt.Errorf("convert docx: %w", err)
	}
	text := strings.TrimSpace(res.Body)
	if text == "" {
		return nil, fmt.Errorf("docx contains no extractable text")
	}
	return &ExtractedDocument{FileType: "docx", Segments: []Segment{{Ref: -1, Text: text}}}, nil
}
