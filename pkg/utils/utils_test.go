package utils

import "testing"

func TestSplitLines(t *testing.T) {
	lines := SplitLines("a\nb\nc\n")
	if len(lines) != 3 || lines[0] != "a" || lines[2] != "c" {
		t.Fatalf("unexpected split result: %v", lines)
	}
}

func TestRenderTableRejectsRaggedRows(t *testing.T) {
	_, err := RenderTable([][]string{{"a", "b"}, {"c"}})
	if err == nil {
		t.Fatal("expected an error for ragged rows")
	}
}

func TestRenderTableAlignsColumns(t *testing.T) {
	out, err := RenderTable([][]string{
		{"update", "hello.o"},
		{"clean", "longer-name.o"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if out == "" {
		t.Fatal("expected non-empty table output")
	}
}

func TestFormatBinaryBytes(t *testing.T) {
	if got := FormatBinaryBytes(0); got != "0B" {
		t.Fatalf("expected 0B, got %s", got)
	}
	if got := FormatBinaryBytes(1024); got != "1.00kiB" {
		t.Fatalf("expected 1.00kiB, got %s", got)
	}
}

func TestSafeTruncate(t *testing.T) {
	if got := SafeTruncate("hello", 3); got != "hel" {
		t.Fatalf("expected truncated string, got %s", got)
	}
	if got := SafeTruncate("hi", 10); got != "hi" {
		t.Fatalf("expected untouched string, got %s", got)
	}
}
