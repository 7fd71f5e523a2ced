package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Result is a best-effort extraction: Text may be empty, Diagnostics explains
// what went wrong or was skipped. Extraction never fails hard; a corrupt
// upload yields empty text plus a diagnostic and the caller decides what to
// surface.
type Result struct {
	Text        string   `json:"text"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// FromFile dispatches on the filename extension.
func FromFile(name string, data []byte) Result {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", "":
		return fromPlainText(data)
	case ".docx":
		return fromDocx(data)
	case ".doc":
		return fromLegacyDoc(data)
	default:
		return Result{Diagnostics: []string{fmt.Sprintf("不支持的文件类型：%s", filepath.Ext(name))}}
	}
}

func fromPlainText(data []byte) Result {
	text := string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	if !utf8.ValidString(text) {
		text = decodeFallback(data)
	}
	return Result{Text: text}
}

// decodeFallback keeps the valid UTF-8 runs and drops the rest. Enough for
// mostly-UTF-8 files with a few mangled bytes; full GBK decoding is out of
// scope for uploads this side handles.
func decodeFallback(data []byte) string {
	var b strings.Builder
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r != utf8.RuneError || size != 1 {
			b.WriteRune(r)
		}
		data = data[size:]
	}
	return b.String()
}

// ── .docx ──────────────────────────────────────────────────

// fromDocx unpacks the OOXML archive and walks word/document.xml, turning
// paragraphs into lines and tabs into tabs. Anything unreadable becomes a
// diagnostic instead of an error.
func fromDocx(data []byte) Result {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{Diagnostics: []string{"无法读取 .docx 文件（压缩包损坏）"}}
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return Result{Diagnostics: []string{"无法读取 .docx 文件（缺少文档内容）"}}
	}

	rc, err := doc.Open()
	if err != nil {
		return Result{Diagnostics: []string{"无法读取 .docx 文件（文档内容损坏）"}}
	}
	defer rc.Close()

	text, diags := walkDocumentXML(rc)
	if strings.TrimSpace(text) == "" && len(diags) == 0 {
		diags = append(diags, "文档不包含可提取的文本")
	}
	return Result{Text: text, Diagnostics: diags}
}

// walkDocumentXML streams the XML, collecting w:t text, breaking lines at
// paragraph ends and w:br, and tabs at w:tab.
func walkDocumentXML(r io.Reader) (string, []string) {
	decoder := xml.NewDecoder(r)

	var b strings.Builder
	var diags []string
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			diags = append(diags, "文档内容部分损坏，已提取可读部分")
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), diags
}

// ── .doc (legacy) ──────────────────────────────────────────

// fromLegacyDoc scavenges readable runs out of the binary CFB container.
// Real .doc parsing needs the full compound-file machinery; for quiz imports
// a text scrape plus a "convert to .docx" hint covers the actual uploads.
func fromLegacyDoc(data []byte) Result {
	var b strings.Builder
	var run []rune

	flush := func() {
		if len(run) >= 4 {
			for _, r := range run {
				b.WriteRune(r)
			}
			b.WriteByte('\n')
		}
		run = run[:0]
	}

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r == utf8.RuneError && size == 1 {
			flush()
			continue
		}
		if unicode.IsPrint(r) || r == '\t' {
			run = append(run, r)
		} else {
			flush()
		}
	}
	flush()

	text := b.String()
	diags := []string{"旧版 .doc 文件仅做粗略提取，建议转存为 .docx 后重新导入"}
	if strings.TrimSpace(text) == "" {
		return Result{Diagnostics: append(diags, "未能从文件中提取文本")}
	}
	return Result{Text: text, Diagnostics: diags}
}
