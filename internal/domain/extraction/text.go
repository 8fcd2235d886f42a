package extraction

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extracted is the raw outcome of pulling text out of one file type.
type extracted struct {
	text       string
	pageCount  *int
	sourceType string
}

// extractText dispatches on the file extension taken from the storage key.
// Image formats carry no text layer and are reported as unsupported.
func extractText(data []byte, ext string) (*extracted, error) {
	switch ext {
	case "pdf":
		return extractPDF(data)
	case "docx":
		return extractDOCX(data)
	case "xlsx":
		return extractXLSX(data)
	default:
		return nil, fmt.Errorf("%w: .%s", ErrUnsupportedType, ext)
	}
}

func extractPDF(data []byte) (*extracted, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	pages := reader.NumPage()

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("pdf text layer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	return &extracted{
		text:       strings.TrimSpace(buf.String()),
		pageCount:  &pages,
		sourceType: "pdf",
	}, nil
}

func extractDOCX(data []byte) (*extracted, error) {
	raw, err := readZipEntry(data, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	return &extracted{
		text:       flattenXMLText(raw, "p", "br"),
		sourceType: "docx",
	}, nil
}

func extractXLSX(data []byte) (*extracted, error) {
	// The shared-strings part holds every distinct cell text in the
	// workbook, which is all a referral scan needs.
	raw, err := readZipEntry(data, "xl/sharedStrings.xml")
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	return &extracted{
		text:       flattenXMLText(raw, "si"),
		sourceType: "xlsx",
	}, nil
}

func readZipEntry(data []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

// flattenXMLText collects character data, inserting a newline after each of
// the named closing elements.
func flattenXMLText(raw []byte, breakElements ...string) string {
	breaks := make(map[string]bool, len(breakElements))
	for _, e := range breakElements {
		breaks[e] = true
	}

	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if breaks[t.Name.Local] && buf.Len() > 0 {
				buf.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
