package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFromPlainText(t *testing.T) {
	r := FromFile("quiz.txt", []byte("\xEF\xBB\xBF1. 题目\nA. 选项"))
	if r.Text != "1. 题目\nA. 选项" {
		t.Errorf("BOM should be stripped, got %q", r.Text)
	}
	if len(r.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", r.Diagnostics)
	}
}

func TestFromDocxExtractsParagraphs(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>1. 下列哪项正确？</w:t></w:r></w:p>
    <w:p><w:r><w:t>A. 第一项</w:t></w:r></w:p>
    <w:p><w:r><w:t>答案：</w:t></w:r><w:r><w:t>A</w:t></w:r></w:p>
  </w:body>
</w:document>`

	r := FromFile("quiz.docx", buildDocx(t, doc))
	if !strings.Contains(r.Text, "1. 下列哪项正确？") {
		t.Errorf("missing title line in %q", r.Text)
	}
	if !strings.Contains(r.Text, "答案：A") {
		t.Errorf("split runs should join within a paragraph, got %q", r.Text)
	}
	lines := strings.Split(strings.TrimSpace(r.Text), "\n")
	if len(lines) != 3 {
		t.Errorf("expected 3 lines, got %d: %q", len(lines), r.Text)
	}
}

func TestFromDocxCorruptArchive(t *testing.T) {
	r := FromFile("broken.docx", []byte("this is not a zip file"))
	if r.Text != "" {
		t.Errorf("corrupt archive should yield no text, got %q", r.Text)
	}
	if len(r.Diagnostics) == 0 {
		t.Error("corrupt archive should yield a diagnostic")
	}
}

func TestFromDocxMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte("<styles/>"))
	zw.Close()

	r := FromFile("odd.docx", buf.Bytes())
	if len(r.Diagnostics) == 0 {
		t.Error("archive without document.xml should yield a diagnostic")
	}
}

func TestUnsupportedExtension(t *testing.T) {
	r := FromFile("quiz.xlsx", []byte("whatever"))
	if r.Text != "" || len(r.Diagnostics) == 0 {
		t.Errorf("unsupported type should yield diagnostic only, got %+v", r)
	}
}

func TestLegacyDocScavenge(t *testing.T) {
	// Printable runs embedded in binary noise.
	data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0x00, 0x00}, []byte("1. 什么是正确答案？")...)
	data = append(data, 0x00, 0x01, 0x02)
	data = append(data, []byte("A. 这一项")...)

	r := FromFile("old.doc", data)
	if !strings.Contains(r.Text, "什么是正确答案") {
		t.Errorf("expected scavenged text, got %q", r.Text)
	}
	if len(r.Diagnostics) == 0 {
		t.Error("legacy extraction should always carry the conversion hint")
	}
}
