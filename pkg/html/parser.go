package html

import (
	"fmt"
)

type Parser struct {
	tokenizer *Tokenizer
	doc       *Document
	stack     []*Node
}

func NewParser(html string) *Parser {
	return &Parser{
		tokenizer: NewTokenizer(html),
		doc:       NewDocument(),
	}
}

func (p *Parser) Parse() (*Document, error) {
	p.stack = []*Node{p.doc.Root}

	for {
		token, err := p.tokenizer.NextToken()
		if err != nil {
			return nil, fmt.Errorf("tokenizer error: %w", err)
		}
		if token.Type == TokenEOF {
			break
		}

		switch token.Type {
		case TokenStartTag:
			// Raw text elements: scripts are collected, styles dropped.
			if token.TagName == "script" || token.TagName == "style" {
				body := p.tokenizer.ReadRawUntil(token.TagName)
				if token.TagName == "script" {
					p.doc.Scripts = append(p.doc.Scripts, body)
				}
				continue
			}

			if p.isBlockElement(token.TagName) {
				p.autoCloseP()
			}

			node := &Node{
				Type:       ElementNode,
				TagName:    token.TagName,
				Attributes: token.Attributes,
				Children:   make([]*Node, 0),
			}
			p.currentParent().AddChild(node)

			if !token.SelfClosing && !isVoidElement(token.TagName) {
				p.push(node)
			}

		case TokenText:
			if token.Text != "" {
				p.currentParent().AppendText(token.Text)
			}

		case TokenEndTag:
			p.closeTag(token.TagName)
		}
	}

	return p.doc, nil
}

func (p *Parser) currentParent() *Node {
	if len(p.stack) == 0 {
		return p.doc.Root
	}
	return p.stack[len(p.stack)-1]
}

func (p *Parser) push(node *Node) {
	p.stack = append(p.stack, node)
}

// closeTag pops the stack until the matching tag is found and closed.
// Unmatched end tags are ignored.
func (p *Parser) closeTag(tagName string) {
	for i := len(p.stack) - 1; i >= 1; i-- {
		if p.stack[i].TagName == tagName {
			p.stack = p.stack[:i]
			return
		}
	}
}

// autoCloseP closes an open <p> element if one is on the stack
func (p *Parser) autoCloseP() {
	for i := len(p.stack) - 1; i >= 1; i-- {
		if p.stack[i].TagName == "p" {
			p.stack = p.stack[:i]
			return
		}
		if p.isBlockElement(p.stack[i].TagName) {
			return
		}
	}
}

func (p *Parser) isBlockElement(tagName string) bool {
	switch tagName {
	case "address", "article", "aside", "blockquote", "details", "dialog",
		"dd", "div", "dl", "dt", "fieldset", "figcaption", "figure",
		"footer", "form", "h1", "h2", "h3", "h4", "h5", "h6",
		"header", "hgroup", "hr", "li", "main", "nav", "ol",
		"p", "pre", "section", "table", "ul":
		return true
	}
	return false
}

func Parse(html string) (*Document, error) {
	return NewParser(html).Parse()
}

// ParseFragment parses a card template and returns its top-level elements.
func ParseFragment(html string) ([]*Node, error) {
	doc, err := Parse(html)
	if err != nil {
		return nil, err
	}
	nodes := doc.Root.ElementChildren()
	for _, n := range nodes {
		doc.Root.RemoveChild(n)
	}
	return nodes, nil
}
