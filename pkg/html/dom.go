package html

import (
	"sort"
	"strings"
)

type Node struct {
	Type       NodeType
	TagName    string
	Attributes map[string]string
	Text       string
	Children   []*Node
	Parent     *Node
}

type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
)

type Document struct {
	Root    *Node
	Scripts []string // JavaScript from <script> tags, in document order
}

func NewDocument() *Document {
	return &Document{
		Root: &Node{
			Type:     ElementNode,
			TagName:  "document",
			Children: make([]*Node, 0),
		},
		Scripts: make([]string, 0),
	}
}

// NewElement creates a detached element with an empty attribute map.
func NewElement(tag string) *Node {
	return &Node{
		Type:       ElementNode,
		TagName:    strings.ToLower(tag),
		Attributes: make(map[string]string),
		Children:   make([]*Node, 0),
	}
}

func (n *Node) GetAttribute(name string) (string, bool) {
	if n.Attributes == nil {
		return "", false
	}
	val, ok := n.Attributes[name]
	return val, ok
}

// Attr returns the attribute value, or "" when absent.
func (n *Node) Attr(name string) string {
	val, _ := n.GetAttribute(name)
	return val
}

func (n *Node) SetAttribute(name, value string) {
	if n.Attributes == nil {
		n.Attributes = make(map[string]string)
	}
	n.Attributes[name] = value
}

func (n *Node) RemoveAttribute(name string) {
	if n.Attributes != nil {
		delete(n.Attributes, name)
	}
}

// Classes returns the class tokens of the element.
func (n *Node) Classes() []string {
	return strings.Fields(n.Attr("class"))
}

func (n *Node) HasClass(cls string) bool {
	for _, c := range n.Classes() {
		if c == cls {
			return true
		}
	}
	return false
}

// AddClass appends cls to the class list unless it is already present.
func (n *Node) AddClass(cls string) {
	if cls == "" || n.HasClass(cls) {
		return
	}
	n.SetAttribute("class", strings.Join(append(n.Classes(), cls), " "))
}

func (n *Node) RemoveClass(cls string) {
	classes := n.Classes()
	kept := classes[:0]
	for _, c := range classes {
		if c != cls {
			kept = append(kept, c)
		}
	}
	n.SetAttribute("class", strings.Join(kept, " "))
}

// Style returns a single declaration from the inline style attribute.
func (n *Node) Style(prop string) (string, bool) {
	val, ok := ParseInlineStyle(n.Attr("style"))[prop]
	return val, ok
}

// SetStyle sets one inline style declaration, keeping the others.
func (n *Node) SetStyle(prop, value string) {
	styles := ParseInlineStyle(n.Attr("style"))
	styles[prop] = value
	n.SetAttribute("style", SerializeInlineStyle(styles))
}

// AddChild adds a child node and sets up the parent relationship.
// A child that already has a parent is moved.
func (n *Node) AddChild(child *Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// AppendText creates a text node and adds it as a child
func (n *Node) AppendText(text string) {
	if text == "" {
		return
	}
	textNode := &Node{
		Type:   TextNode,
		Text:   text,
		Parent: n,
	}
	n.Children = append(n.Children, textNode)
}

// RemoveChild removes the given child from this node's children list,
// clears its parent pointer, and returns the removed child.
// Returns nil if child is not found.
func (n *Node) RemoveChild(child *Node) *Node {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return child
		}
	}
	return nil
}

// Remove detaches the node from its parent, if any.
func (n *Node) Remove() {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// RemoveAll detaches every child (innerHTML = "").
func (n *Node) RemoveAll() {
	for _, c := range n.Children {
		c.Parent = nil
	}
	n.Children = make([]*Node, 0)
}

// InsertBefore inserts newChild before refChild in this node's children.
// If refChild is nil or not a child, newChild is appended.
func (n *Node) InsertBefore(newChild, refChild *Node) *Node {
	if newChild.Parent != nil {
		newChild.Parent.RemoveChild(newChild)
	}
	for i, c := range n.Children {
		if c == refChild {
			n.Children = append(n.Children, nil)
			copy(n.Children[i+1:], n.Children[i:])
			n.Children[i] = newChild
			newChild.Parent = n
			return newChild
		}
	}
	n.AddChild(newChild)
	return newChild
}

// CloneNode returns a copy of the node. If deep is true, all descendants
// are cloned recursively. The clone has no parent.
func (n *Node) CloneNode(deep bool) *Node {
	clone := &Node{
		Type:    n.Type,
		TagName: n.TagName,
		Text:    n.Text,
	}
	if n.Attributes != nil {
		clone.Attributes = make(map[string]string, len(n.Attributes))
		for k, v := range n.Attributes {
			clone.Attributes[k] = v
		}
	}
	clone.Children = make([]*Node, 0, len(n.Children))
	if deep {
		for _, child := range n.Children {
			childClone := child.CloneNode(true)
			childClone.Parent = clone
			clone.Children = append(clone.Children, childClone)
		}
	}
	return clone
}

// ElementChildren returns the element children, skipping text nodes.
func (n *Node) ElementChildren() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Type == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// ElementsByTagName collects descendant elements (not n itself) in tree order.
func (n *Node) ElementsByTagName(tag string) []*Node {
	var result []*Node
	for _, child := range n.Children {
		child.walk(func(c *Node) {
			if c.Type == ElementNode && c.TagName == tag {
				result = append(result, c)
			}
		})
	}
	return result
}

// FirstByTagName returns the first descendant with the tag, or nil.
func (n *Node) FirstByTagName(tag string) *Node {
	for _, child := range n.Children {
		if child.Type == ElementNode && child.TagName == tag {
			return child
		}
		if found := child.FirstByTagName(tag); found != nil {
			return found
		}
	}
	return nil
}

// ElementsByClassName collects n and its descendants carrying cls.
func (n *Node) ElementsByClassName(cls string) []*Node {
	var result []*Node
	n.walk(func(c *Node) {
		if c.Type == ElementNode && c.HasClass(cls) {
			result = append(result, c)
		}
	})
	return result
}

// ElementByID returns the first element in the subtree with a matching id.
func (n *Node) ElementByID(id string) *Node {
	var found *Node
	n.walk(func(c *Node) {
		if found == nil && c.Type == ElementNode && c.Attr("id") == id {
			found = c
		}
	})
	return found
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.walk(fn)
	}
}

// Contains returns true if other is a descendant of n (or n itself).
func (n *Node) Contains(other *Node) bool {
	for p := other; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

// IndexInParent returns the index of this node among its parent's children,
// or -1 if it has no parent.
func (n *Node) IndexInParent() int {
	if n.Parent == nil {
		return -1
	}
	for i, c := range n.Parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// TextContent returns the concatenated text of the node and its descendants.
func (n *Node) TextContent() string {
	if n.Type == TextNode {
		return n.Text
	}
	var sb strings.Builder
	for _, child := range n.Children {
		sb.WriteString(child.TextContent())
	}
	return sb.String()
}

// Serialize returns the innerHTML of this node.
func (n *Node) Serialize() string {
	var sb strings.Builder
	for _, child := range n.Children {
		serializeNode(&sb, child)
	}
	return sb.String()
}

// SerializeOuter returns the outerHTML of this node.
func (n *Node) SerializeOuter() string {
	var sb strings.Builder
	serializeNode(&sb, n)
	return sb.String()
}

func serializeNode(sb *strings.Builder, n *Node) {
	if n.Type == TextNode {
		sb.WriteString(escapeHTML(n.Text))
		return
	}

	sb.WriteByte('<')
	sb.WriteString(n.TagName)

	// Sort attributes for deterministic output
	if len(n.Attributes) > 0 {
		keys := make([]string, 0, len(n.Attributes))
		for k := range n.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteByte(' ')
			sb.WriteString(k)
			sb.WriteString(`="`)
			sb.WriteString(escapeAttr(n.Attributes[k]))
			sb.WriteByte('"')
		}
	}

	sb.WriteByte('>')
	if isVoidElement(n.TagName) {
		return
	}
	for _, child := range n.Children {
		serializeNode(sb, child)
	}
	sb.WriteString("</")
	sb.WriteString(n.TagName)
	sb.WriteByte('>')
}

var (
	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;", "<", "&lt;", ">", "&gt;")
)

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }

func isVoidElement(tag string) bool {
	switch tag {
	case "br", "hr", "img", "input", "meta", "link", "area", "base",
		"col", "embed", "param", "source", "track", "wbr":
		return true
	}
	return false
}
