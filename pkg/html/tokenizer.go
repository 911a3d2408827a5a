package html

import (
	"fmt"
	gohtml "html"
	"strings"
	"unicode"
)

type TokenType int

const (
	TokenStartTag TokenType = iota
	TokenEndTag
	TokenText
	TokenEOF
)

type Token struct {
	Type        TokenType
	TagName     string
	Attributes  map[string]string
	Text        string
	SelfClosing bool // <img ... />
}

// Tokenizer splits card templates and demo pages into tags and text runs.
// It understands comments, doctype/processing instructions, quoted and
// bare attribute values, and raw text elements via ReadRawUntil.
type Tokenizer struct {
	input string
	pos   int
}

func NewTokenizer(html string) *Tokenizer {
	return &Tokenizer{input: html}
}

func (t *Tokenizer) NextToken() (Token, error) {
	for t.pos < len(t.input) {
		if t.input[t.pos] != '<' {
			tok, ok := t.readText()
			if ok {
				return tok, nil
			}
			continue
		}
		if t.skipMarkup() {
			continue
		}
		return t.readTag()
	}
	return Token{Type: TokenEOF}, nil
}

// skipMarkup consumes <!-- -->, <!DOCTYPE> and <? ?> constructs.
func (t *Tokenizer) skipMarkup() bool {
	rest := t.input[t.pos:]
	var open, end string
	switch {
	case strings.HasPrefix(rest, "<!--"):
		open, end = "<!--", "-->"
	case strings.HasPrefix(rest, "<?"):
		open, end = "<?", "?>"
	case strings.HasPrefix(rest, "<!"):
		open, end = "<!", ">"
	default:
		return false
	}
	idx := strings.Index(rest[len(open):], end)
	if idx < 0 {
		t.pos = len(t.input)
		return true
	}
	t.pos += len(open) + idx + len(end)
	return true
}

func (t *Tokenizer) readTag() (Token, error) {
	t.pos++ // '<'

	isEndTag := t.peek() == '/'
	if isEndTag {
		t.pos++
	}
	tagName := t.readName(isTagNameChar)
	if tagName == "" {
		return Token{}, fmt.Errorf("expected tag name at position %d", t.pos)
	}
	if isEndTag {
		if err := t.skipTo('>'); err != nil {
			return Token{}, err
		}
		t.pos++
		return Token{Type: TokenEndTag, TagName: tagName}, nil
	}

	tok := Token{Type: TokenStartTag, TagName: tagName, Attributes: make(map[string]string)}
	for {
		t.skipWhitespace()
		switch t.peek() {
		case 0:
			return Token{}, fmt.Errorf("unexpected EOF in <%s>", tagName)
		case '>':
			t.pos++
			return tok, nil
		case '/':
			t.pos++
			t.skipWhitespace()
			if t.peek() == '>' {
				t.pos++
				tok.SelfClosing = true
				return tok, nil
			}
			continue
		}
		name := t.readName(isAttributeNameChar)
		if name == "" {
			return Token{}, fmt.Errorf("expected attribute name at position %d", t.pos)
		}
		t.skipWhitespace()
		if t.peek() != '=' {
			tok.Attributes[name] = ""
			continue
		}
		t.pos++
		t.skipWhitespace()
		value, err := t.readAttributeValue()
		if err != nil {
			return Token{}, err
		}
		tok.Attributes[name] = gohtml.UnescapeString(value)
	}
}

func (t *Tokenizer) readName(accept func(byte) bool) string {
	start := t.pos
	for t.pos < len(t.input) && accept(t.input[t.pos]) {
		t.pos++
	}
	return strings.ToLower(t.input[start:t.pos])
}

func (t *Tokenizer) readAttributeValue() (string, error) {
	quote := t.peek()
	if quote == 0 {
		return "", fmt.Errorf("expected attribute value at position %d", t.pos)
	}
	if quote == '"' || quote == '\'' {
		t.pos++
		end := strings.IndexByte(t.input[t.pos:], quote)
		if end < 0 {
			return "", fmt.Errorf("unterminated attribute value")
		}
		value := t.input[t.pos : t.pos+end]
		t.pos += end + 1
		return value, nil
	}
	start := t.pos
	for t.pos < len(t.input) && !unicode.IsSpace(rune(t.input[t.pos])) && t.input[t.pos] != '>' {
		t.pos++
	}
	return t.input[start:t.pos], nil
}

// readText returns the text run up to the next tag. Whitespace-only runs
// between tags are dropped (ok=false).
func (t *Tokenizer) readText() (Token, bool) {
	end := strings.IndexByte(t.input[t.pos:], '<')
	if end < 0 {
		end = len(t.input) - t.pos
	}
	raw := t.input[t.pos : t.pos+end]
	t.pos += end
	if strings.TrimSpace(raw) == "" {
		return Token{}, false
	}
	return Token{Type: TokenText, Text: gohtml.UnescapeString(normalizeWhitespace(raw))}, true
}

// normalizeWhitespace collapses runs of whitespace to a single space,
// keeping one space at each boundary that had whitespace.
func normalizeWhitespace(s string) string {
	result := strings.Join(strings.Fields(s), " ")
	if unicode.IsSpace(rune(s[0])) {
		result = " " + result
	}
	if unicode.IsSpace(rune(s[len(s)-1])) {
		result += " "
	}
	return result
}

func (t *Tokenizer) peek() byte {
	if t.pos >= len(t.input) {
		return 0
	}
	return t.input[t.pos]
}

func (t *Tokenizer) skipWhitespace() {
	for t.pos < len(t.input) && unicode.IsSpace(rune(t.input[t.pos])) {
		t.pos++
	}
}

func (t *Tokenizer) skipTo(target byte) error {
	idx := strings.IndexByte(t.input[t.pos:], target)
	if idx < 0 {
		t.pos = len(t.input)
		return fmt.Errorf("expected '%c' but reached EOF", target)
	}
	t.pos += idx
	return nil
}

// ReadRawUntil reads raw content until the closing end tag (e.g. </script>)
// and consumes the end tag. Without a closing tag the rest of the input is
// returned.
func (t *Tokenizer) ReadRawUntil(endTag string) string {
	needle := "</" + endTag + ">"
	idx := strings.Index(strings.ToLower(t.input[t.pos:]), needle)
	if idx < 0 {
		content := t.input[t.pos:]
		t.pos = len(t.input)
		return content
	}
	content := t.input[t.pos : t.pos+idx]
	t.pos += idx + len(needle)
	return content
}

func isTagNameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isAttributeNameChar(c byte) bool {
	return isTagNameChar(c) || c == ':' || c == '.'
}
