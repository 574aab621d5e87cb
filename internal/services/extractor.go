package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"alfredoptarigan/applicant-tracker/internal/apperr"
)

const (
	MediaTypeText = "text/plain"
	MediaTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypePDF  = "application/pdf"
)

// Upload is a resume file as received from the client.
type Upload struct {
	Filename  string
	MediaType string
	Data      []byte
}

type ExtractorService interface {
	Extract(upload Upload) (string, error)
}

type extractorService struct{}

func NewExtractorService() ExtractorService {
	return &extractorService{}
}

// Extract returns best-effort plain text. Plain text is returned unchanged;
// documents are converted; anything else is read as raw bytes. Only an
// empty result is an error.
func (e *extractorService) Extract(upload Upload) (string, error) {
	var (
		text string
		err  error
	)

	switch resolveMediaType(upload) {
	case MediaTypeText:
		text = string(upload.Data)
	case MediaTypeDocx:
		text, err = extractDocx(upload.Data)
	case MediaTypePDF:
		text, err = extractPDF(upload.Data)
	default:
		text = rawText(upload.Data)
	}

	if err != nil {
		text = rawText(upload.Data)
	}

	if strings.TrimSpace(text) == "" {
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", apperr.ErrExtractionFailed, upload.Filename, err)
		}
		return "", fmt.Errorf("%w: %s: no text content found", apperr.ErrExtractionFailed, upload.Filename)
	}

	return text, nil
}

func resolveMediaType(upload Upload) string {
	if upload.MediaType != "" {
		if mt, _, err := mime.ParseMediaType(upload.MediaType); err == nil {
			switch mt {
			case MediaTypeText, MediaTypeDocx, MediaTypePDF:
				return mt
			}
		}
	}

	switch strings.ToLower(filepath.Ext(upload.Filename)) {
	case ".txt", ".text", ".md":
		return MediaTypeText
	case ".docx":
		return MediaTypeDocx
	case ".pdf":
		return MediaTypePDF
	}

	return ""
}

func rawText(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

func extractDocx(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open document.xml: %w", err)
		}
		defer rc.Close()
		return documentXMLText(rc)
	}

	return "", errors.New("no document.xml found in docx")
}

// documentXMLText walks WordprocessingML and keeps run text, turning
// paragraph ends and breaks into newlines.
func documentXMLText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var b strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteString("\t")
			case "br", "cr":
				b.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return normalizeWhitespace(b.String()), nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := textBuilder.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("no text content found in PDF")
	}

	return text, nil
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\r\f\v\x{00A0}]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
