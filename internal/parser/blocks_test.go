package parser

import (
	"strings"
	"testing"
)

func TestSplitBlocksNumbered(t *testing.T) {
	text := "1. 第一题\nA. 甲\nB. 乙\n答案：A\n2. 第二题\nA. 丙\nB. 丁\n答案：B"
	blocks := SplitBlocks(text)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d: %v", len(blocks), blocks)
	}
	if !strings.HasPrefix(blocks[0], "1.") || !strings.HasPrefix(blocks[1], "2.") {
		t.Errorf("blocks should start at their markers: %v", blocks)
	}
}

func TestSplitBlocksChineseNumerals(t *testing.T) {
	text := "一、第一题\nA. 甲\nB. 乙\n答案：A\n二、第二题\nA. 丙\nB. 丁\n答案：B"
	blocks, format := splitBlocksDetect(text)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if format != "chinese_numbered" {
		t.Errorf("detected format = %q", format)
	}
}

func TestSplitBlocksTaggedMarkers(t *testing.T) {
	text := "第1题 这是第一题\nA. 甲\nB. 乙\n答案：A\n第2题 这是第二题\nA. 丙\nB. 丁\n答案：B"
	blocks := SplitBlocks(text)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
}

func TestSplitBlocksKeepsHead(t *testing.T) {
	text := "以下是本章练习\n1. 第一题\nA. 甲\nB. 乙\n答案：A\n2. 第二题\nA. 丙\nB. 丁\n答案：B"
	blocks := SplitBlocks(text)
	if len(blocks) != 3 {
		t.Fatalf("expected head + 2 blocks, got %d: %v", len(blocks), blocks)
	}
	if blocks[0] != "以下是本章练习" {
		t.Errorf("head block mismatch: %q", blocks[0])
	}
}

func TestSplitBlocksSingleQuestion(t *testing.T) {
	text := "1. 只有一题\nA. 甲\nB. 乙\n答案：A"
	blocks := SplitBlocks(text)
	if len(blocks) != 1 {
		t.Fatalf("single marker should yield one block, got %d", len(blocks))
	}
}

func TestSplitBlocksEmpty(t *testing.T) {
	if blocks := SplitBlocks("   \n\n  "); blocks != nil {
		t.Errorf("blank input should yield nil, got %v", blocks)
	}
}
