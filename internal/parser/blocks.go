package parser

import (
	"regexp"
	"strings"
)

// Block separator families, tried in order. The first family that splits the
// text into more than one part wins; otherwise the whole text is one block.
// The name labels the numbering format of the input for parse metadata.
var blockSeparators = []struct {
	name string
	re   *regexp.Regexp
}{
	{"arabic_numbered", regexp.MustCompile(`(?m)^\s*\d{1,3}\s*[.、．]`)},
	{"chinese_numbered", regexp.MustCompile(`(?m)^\s*[一二三四五六七八九十]{1,3}\s*[、.．]`)},
	{"parenthesized", regexp.MustCompile(`(?m)^\s*[（(]\s*\d{1,3}\s*[)）]`)},
	{"question_tagged", regexp.MustCompile(`(?m)^\s*第\s*\d{1,3}\s*题`)},
}

// SplitBlocks splits cleaned text into question-block candidates. Empty input
// yields an empty slice. Text before the first separator is kept as its own
// block unless it is blank.
func SplitBlocks(text string) []string {
	blocks, _ := splitBlocksDetect(text)
	return blocks
}

// splitBlocksDetect additionally reports the separator family that split the
// text; the format is empty when no family produced more than one block.
func splitBlocksDetect(text string) ([]string, string) {
	if strings.TrimSpace(text) == "" {
		return nil, ""
	}

	for _, sep := range blockSeparators {
		locs := sep.re.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}

		var blocks []string
		if head := text[:locs[0][0]]; strings.TrimSpace(head) != "" {
			blocks = append(blocks, strings.TrimSpace(head))
		}
		for i, loc := range locs {
			end := len(text)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			block := strings.TrimSpace(text[loc[0]:end])
			if block != "" {
				blocks = append(blocks, block)
			}
		}
		if len(blocks) > 1 {
			return blocks, sep.name
		}
	}

	return []string{strings.TrimSpace(text)}, ""
}
