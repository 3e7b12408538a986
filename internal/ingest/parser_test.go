package ingest

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildDOCX(t *testing.T, bodyXML string) []byte {
	t.Helper()
	var b bytes.Buffer
	zw := zip.NewWriter(&b)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(bodyXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return b.Bytes()
}

func TestParsePlainText(t *testing.T) {
	parsed, err := Parse("novela.txt", []byte("Primer  párrafo   aquí.\r\n\r\nSegundo párrafo."))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Title != "novela" {
		t.Fatalf("unexpected title: %q", parsed.Title)
	}
	if parsed.Text != "Primer párrafo aquí.\n\nSegundo párrafo." {
		t.Fatalf("unexpected text: %q", parsed.Text)
	}
}

func TestParseMarkdownStripsFormatting(t *testing.T) {
	md := "# Capítulo 1\n\nElla caminaba **despacio** por la [plaza](http://x).\n\nOtro párrafo."
	parsed, err := Parse("obra.md", []byte(md))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if strings.ContainsAny(parsed.Text, "*#[") {
		t.Fatalf("markdown syntax leaked into text: %q", parsed.Text)
	}
	if !strings.Contains(parsed.Text, "Ella caminaba despacio por la plaza.") {
		t.Fatalf("content lost: %q", parsed.Text)
	}
	if !strings.Contains(parsed.Text, "\n\n") {
		t.Fatalf("paragraph boundaries lost: %q", parsed.Text)
	}
}

func TestParseHTMLDropsMarkup(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head><body><p>Hola mundo.</p><p>Adiós mundo.</p><script>alert(1)</script></body></html>`
	parsed, err := Parse("pagina.html", []byte(html))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if strings.Contains(parsed.Text, "alert") || strings.Contains(parsed.Text, "color") {
		t.Fatalf("script or style leaked: %q", parsed.Text)
	}
	if !strings.Contains(parsed.Text, "Hola mundo.") || !strings.Contains(parsed.Text, "Adiós mundo.") {
		t.Fatalf("content lost: %q", parsed.Text)
	}
}

func TestParseDOCX(t *testing.T) {
	raw := buildDOCX(t, `<w:document><w:body><w:p><w:r><w:t>Hola desde Word.</w:t></w:r></w:p><w:p><w:r><w:t>Segundo párrafo.</w:t></w:r></w:p></w:body></w:document>`)
	parsed, err := Parse("manuscrito.docx", raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !strings.Contains(parsed.Text, "Hola desde Word.") {
		t.Fatalf("docx text lost: %q", parsed.Text)
	}
	if !strings.Contains(parsed.Text, "\n\n") {
		t.Fatalf("word paragraphs should become blank-line breaks: %q", parsed.Text)
	}
}

func TestParseUnsupportedExtension(t *testing.T) {
	if _, err := Parse("imagen.png", []byte{1, 2, 3}); err == nil {
		t.Fatal("expected unsupported file type error")
	}
}
