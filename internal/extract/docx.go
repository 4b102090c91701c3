package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errNoDocumentXML = errors.New("word/document.xml not found")

func extractDOCX(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if !strings.EqualFold(f.Name, "word/document.xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return docxText(rc)
	}
	return "", errNoDocumentXML
}

// docxText collects w:t runs, one line per paragraph.
func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		current    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				var s string
				if err := dec.DecodeElement(&s, &t); err != nil {
					return "", fmt.Errorf("parse document.xml: %w", err)
				}
				current.WriteString(s)
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return strings.Join(paragraphs, "\n"), nil
}
