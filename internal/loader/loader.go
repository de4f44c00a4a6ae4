// Package loader extracts plain text and structural metadata from
// uploaded resume files (PDF and DOCX).
package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/talentmatch/backend/internal/document"
	"github.com/talentmatch/backend/pkg/logger"
)

var (
	ErrNotFound          = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// minPageChars is the threshold below which per-page block extraction is
// considered failed and word-level extraction is tried instead. Scanned
// and multi-column layouts often produce near-empty block output.
const minPageChars = 50

type Loader struct{}

func New() *Loader {
	return &Loader{}
}

// Load reads the file at path and returns one Document with the
// extracted text. Base metadata (filename, source type, resolved path)
// is merged with extra, the caller's fields winning on conflict.
func (l *Loader) Load(path string, extra document.Metadata) ([]document.Document, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	ext := strings.ToLower(filepath.Ext(path))
	base := document.Metadata{
		Filename:   filepath.Base(path),
		SourceType: strings.TrimPrefix(ext, "."),
		FilePath:   abs,
	}

	var text string
	switch ext {
	case ".pdf":
		text, err = loadPDF(path)
	case ".docx", ".doc":
		text, err = loadDOCX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Document loaded",
		zap.String("filename", base.Filename),
		zap.String("source_type", base.SourceType),
		zap.Int("chars", len(text)),
	)

	return []document.Document{{
		Content: text,
		Meta:    base.Merge(extra),
	}}, nil
}

// loadPDF extracts per-page text, falling back to word-level extraction
// when block extraction yields almost nothing for a page.
func loadPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}

		if len(strings.TrimSpace(text)) < minPageChars {
			if words := extractWords(page); words != "" {
				text = words
			}
		}

		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

func extractWords(page pdf.Page) string {
	content := page.Content()
	words := make([]string, 0, len(content.Text))
	for _, t := range content.Text {
		if s := strings.TrimSpace(t.S); s != "" {
			words = append(words, s)
		}
	}
	return strings.Join(words, " ")
}

// loadDOCX reads word/document.xml out of the OOXML archive and
// concatenates non-empty paragraph texts. Legacy binary .doc files
// share the extension but are not zip archives; they are rejected
// with a typed error before the archive is opened.
func loadDOCX(path string) (string, error) {
	if !isZipArchive(path) {
		return "", fmt.Errorf("%w: not an OOXML document, legacy binary .doc is not supported", ErrUnsupportedFormat)
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml: %w", err)
		}

		return parseDocumentXML(raw)
	}

	return "", fmt.Errorf("open docx: word/document.xml missing")
}

func isZipArchive(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	sig := make([]byte, 4)
	if _, err := io.ReadFull(f, sig); err != nil {
		return false
	}
	return bytes.Equal(sig, []byte("PK\x03\x04"))
}

type documentXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

func parseDocumentXML(raw []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}

	var paragraphs []string
	for _, para := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Text {
				sb.WriteString(t.Content)
			}
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	return strings.Join(paragraphs, "\n\n"), nil
}
