package loader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentmatch/backend/internal/document"
)

func writeDOCX(t *testing.T, dir, name, documentXML string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return path
}

const resumeXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t>Senior Go engineer, </w:t></w:r><w:r><w:t>five years experience</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Built grpc services</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestLoadMissingFile(t *testing.T) {
	l := New()

	_, err := l.Load(filepath.Join(t.TempDir(), "absent.pdf"), document.Metadata{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadDirectory(t *testing.T) {
	l := New()

	_, err := l.Load(t.TempDir(), document.Metadata{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	l := New()

	path := filepath.Join(t.TempDir(), "resume.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text resume"), 0o644))

	_, err := l.Load(path, document.Metadata{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadDOCX(t *testing.T) {
	l := New()
	path := writeDOCX(t, t.TempDir(), "resume.docx", resumeXML)

	docs, err := l.Load(path, document.Metadata{})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	// Runs within a paragraph concatenate, empty paragraphs drop,
	// paragraphs join on blank lines.
	want := "Jane Doe\n\nSenior Go engineer, five years experience\n\nBuilt grpc services"
	assert.Equal(t, want, docs[0].Content)

	assert.Equal(t, "resume.docx", docs[0].Meta.Filename)
	assert.Equal(t, "docx", docs[0].Meta.SourceType)
	assert.NotEmpty(t, docs[0].Meta.FilePath)
}

func TestLoadLegacyBinaryDoc(t *testing.T) {
	l := New()

	// OLE compound file signature, not a zip archive.
	path := filepath.Join(t.TempDir(), "resume.doc")
	require.NoError(t, os.WriteFile(path, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, 0o644))

	_, err := l.Load(path, document.Metadata{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadDOCXMissingDocumentXML(t *testing.T) {
	l := New()

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = l.Load(path, document.Metadata{})
	assert.Error(t, err)
}

func TestLoadMergesCallerMetadata(t *testing.T) {
	l := New()
	path := writeDOCX(t, t.TempDir(), "upload-7f3a.docx", resumeXML)

	docs, err := l.Load(path, document.Metadata{
		CandidateID: "cand-42",
		Filename:    "jane_doe.docx",
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	// Caller metadata wins over what the loader derives from the path.
	assert.Equal(t, "cand-42", docs[0].Meta.CandidateID)
	assert.Equal(t, "jane_doe.docx", docs[0].Meta.Filename)
	assert.Equal(t, "docx", docs[0].Meta.SourceType)
}
