package html

import "testing"

func TestTokenizer_TagWithAttributes(t *testing.T) {
	tokenizer := NewTokenizer(`<img lazy-src="a.png?w=1&amp;h=2" class=thumb hidden>`)
	token, err := tokenizer.NextToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.Type != TokenStartTag || token.TagName != "img" {
		t.Fatalf("expected <img> start tag, got %+v", token)
	}
	if token.Attributes["lazy-src"] != "a.png?w=1&h=2" {
		t.Errorf("lazy-src = %q", token.Attributes["lazy-src"])
	}
	if token.Attributes["class"] != "thumb" {
		t.Errorf("class = %q", token.Attributes["class"])
	}
	if _, ok := token.Attributes["hidden"]; !ok {
		t.Error("expected boolean attribute 'hidden'")
	}
}

func TestTokenizer_CompleteSequence(t *testing.T) {
	tokenizer := NewTokenizer("<!DOCTYPE html><!-- c --><div>  Hello\n  world </div>")
	want := []Token{
		{Type: TokenStartTag, TagName: "div"},
		{Type: TokenText, Text: " Hello world "},
		{Type: TokenEndTag, TagName: "div"},
		{Type: TokenEOF},
	}
	for i, w := range want {
		got, err := tokenizer.NextToken()
		if err != nil {
			t.Fatalf("token %d: unexpected error: %v", i, err)
		}
		if got.Type != w.Type || got.TagName != w.TagName || got.Text != w.Text {
			t.Errorf("token %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestTokenizer_UnterminatedTag(t *testing.T) {
	tokenizer := NewTokenizer(`<div class="a"`)
	if _, err := tokenizer.NextToken(); err == nil {
		t.Error("expected error for unterminated tag")
	}
}
