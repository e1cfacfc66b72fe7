package cli

import (
	"testing"
	"unicode/utf8"
)

func TestTruncate_ShortStringUntouched(t *testing.T) {
	if got := truncate("hello", 40); got != "hello" {
		t.Errorf("expected short string unchanged, got %q", got)
	}
}

func TestTruncate_LongASCII(t *testing.T) {
	got := truncate("abcdefghij", 8)
	if got != "abcde..." {
		t.Errorf("expected %q, got %q", "abcde...", got)
	}
}

func TestTruncate_MultibyteStaysValid(t *testing.T) {
	// Cyrillic description longer than the limit. A byte-based cut would
	// split a 2-byte rune and produce invalid UTF-8.
	s := "новый заголовок для главной страницы"
	got := truncate(s, 10)
	if !utf8.ValidString(got) {
		t.Errorf("truncated string is not valid UTF-8: %q", got)
	}
	if want := "новый з..."; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTruncate_EmojiBoundary(t *testing.T) {
	s := "🚀🚀🚀🚀🚀🚀🚀🚀🚀🚀"
	got := truncate(s, 8)
	if !utf8.ValidString(got) {
		t.Errorf("truncated string is not valid UTF-8: %q", got)
	}
	if want := "🚀🚀🚀🚀🚀..."; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
