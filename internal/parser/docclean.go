package parser

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/quizbank/backend/internal/models"
)

// Cleanup strategies pre-clean known copy corruption and then delegate to the
// standard block parser. Each only volunteers when its artifacts are present,
// so clean text never pays for the extra pass.

var bulletGlyphs = strings.NewReplacer(
	"\u2022", "", "\u25cf", "", "\u25cb", "", "\u25aa", "", "\u25e6", "",
	"\uf0b7", "", "\uf06c", "", // Wingdings bullets from Word lists
	"\u00a0", " ", "\u3000", " ", // non-breaking / ideographic spaces
	"\u200b", "", "\ufeff", "",
	"\u201c", `"`, "\u201d", `"`, "\u2018", "'", "\u2019", "'",
	"\ufb01", "fi", "\ufb02", "fl",
)

const wordArtifactSet = "\u2022\u25cf\u25cb\u25aa\u25e6\uf0b7\uf06c\u00a0\u3000\u200b\ufeff\u201c\u201d\u2018\u2019"

var (
	rePageNumber   = regexp.MustCompile(`(?m)^\s*-?\s*\d{1,4}\s*-?\s*$`)
	reSoftHyphen   = regexp.MustCompile("[-\u00ad]\n[ \t]*")
	reManyNewlines = regexp.MustCompile(`\n{3,}`)
)

// WordCleanupStrategy strips the glyph debris Word paste leaves behind.
type WordCleanupStrategy struct {
	inner StandardBlockStrategy
}

func (s *WordCleanupStrategy) Name() string                          { return "word_cleanup" }
func (s *WordCleanupStrategy) InputTypes() []models.InputKind        { return textOnly() }
func (s *WordCleanupStrategy) AnswerIndexing() models.AnswerIndexing { return models.OneBased }

func (s *WordCleanupStrategy) Supports(in Input) bool {
	if !isText(in) {
		return false
	}
	return strings.ContainsAny(in.Text, wordArtifactSet)
}

func (s *WordCleanupStrategy) Parse(ctx context.Context, in Input) models.ParseResult {
	started := time.Now()

	cleaned := bulletGlyphs.Replace(in.Text)
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	cleaned = reManyNewlines.ReplaceAllString(cleaned, "\n\n")

	result := s.inner.Parse(ctx, Input{Kind: models.InputText, Text: cleaned, Hints: in.Hints})
	result.Metadata.Strategy = s.Name()
	result.Metadata.ProcessingTimeMs = time.Since(started).Milliseconds()
	if result.Success {
		result.Confidence = 0.75
	}
	return result
}

// PDFCleanupStrategy repairs PDF copy damage: hyphenated line wraps, page
// numbers, form feeds, and mid-sentence line breaks.
type PDFCleanupStrategy struct {
	inner StandardBlockStrategy
}

func (s *PDFCleanupStrategy) Name() string                          { return "pdf_cleanup" }
func (s *PDFCleanupStrategy) InputTypes() []models.InputKind        { return textOnly() }
func (s *PDFCleanupStrategy) AnswerIndexing() models.AnswerIndexing { return models.OneBased }

func (s *PDFCleanupStrategy) Supports(in Input) bool {
	if !isText(in) {
		return false
	}
	return strings.Contains(in.Text, "\f") ||
		rePageNumber.MatchString(in.Text) ||
		reSoftHyphen.MatchString(in.Text)
}

func (s *PDFCleanupStrategy) Parse(ctx context.Context, in Input) models.ParseResult {
	started := time.Now()

	cleaned := strings.ReplaceAll(in.Text, "\f", "\n")
	cleaned = reSoftHyphen.ReplaceAllString(cleaned, "")
	cleaned = rePageNumber.ReplaceAllString(cleaned, "")
	cleaned = joinWrappedLines(cleaned)
	cleaned = reManyNewlines.ReplaceAllString(cleaned, "\n\n")

	result := s.inner.Parse(ctx, Input{Kind: models.InputText, Text: cleaned, Hints: in.Hints})
	result.Metadata.Strategy = s.Name()
	result.Metadata.ProcessingTimeMs = time.Since(started).Milliseconds()
	if result.Success {
		result.Confidence = 0.75
	}
	return result
}

// joinWrappedLines merges a line into its successor when the break is clearly
// a layout wrap: the next line carries no structural marker and the current
// line does not end a sentence.
func joinWrappedLines(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			out = append(out, line)
			continue
		}
		if len(out) > 0 {
			prev := strings.TrimSpace(out[len(out)-1])
			if prev != "" && !endsSentence(prev) && ClassifyLine(trimmed) == LineContinuation {
				out[len(out)-1] = prev + trimmed
				continue
			}
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

func endsSentence(line string) bool {
	r := []rune(line)
	switch r[len(r)-1] {
	case '。', '.', '？', '?', '！', '!', '：', ':', '；', ';':
		return true
	}
	return false
}
