package js

import (
	"strings"
	"unicode"

	"github.com/dop251/goja"

	"waterfall/pkg/html"
)

// domContext holds the DOM bindings of one runtime. It keeps a
// node-to-proxy cache so the same JS object is returned for the same
// *html.Node (needed for === identity checks).
type domContext struct {
	vm    *goja.Runtime
	cache map[*html.Node]goja.Value
	nodes map[*goja.Object]*html.Node
}

func newDOMContext(vm *goja.Runtime) *domContext {
	return &domContext{
		vm:    vm,
		cache: make(map[*html.Node]goja.Value),
		nodes: make(map[*goja.Object]*html.Node),
	}
}

// registerDocument sets the global `document` object.
func (ctx *domContext) registerDocument(doc *html.Document) {
	vm := ctx.vm
	docObj := vm.NewObject()
	docObj.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		if n := doc.Root.ElementByID(call.Argument(0).String()); n != nil {
			return ctx.elementProxy(n)
		}
		return goja.Null()
	})
	docObj.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return ctx.elementArray(doc.Root.ElementsByTagName(strings.ToLower(call.Argument(0).String())))
	})
	docObj.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		return ctx.elementArray(doc.Root.ElementsByClassName(call.Argument(0).String()))
	})
	docObj.Set("createElement", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(vm.NewTypeError("Failed to execute 'createElement' on 'Document': 1 argument required"))
		}
		return ctx.elementProxy(html.NewElement(call.Arguments[0].String()))
	})
	docObj.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		text := ""
		if len(call.Arguments) > 0 {
			text = call.Arguments[0].String()
		}
		return ctx.elementProxy(&html.Node{Type: html.TextNode, Text: text})
	})
	if body := doc.Root.FirstByTagName("body"); body != nil {
		docObj.Set("body", ctx.elementProxy(body))
	} else {
		docObj.Set("body", ctx.elementProxy(doc.Root))
	}
	vm.Set("document", docObj)
}

func (ctx *domContext) elementArray(nodes []*html.Node) goja.Value {
	vals := make([]interface{}, len(nodes))
	for i, n := range nodes {
		vals[i] = ctx.elementProxy(n)
	}
	return ctx.vm.NewArray(vals...)
}

// elementProxy creates (or retrieves from cache) the JS object wrapping node.
func (ctx *domContext) elementProxy(node *html.Node) goja.Value {
	if v, ok := ctx.cache[node]; ok {
		return v
	}
	obj := ctx.vm.NewDynamicObject(&elementAccessor{ctx: ctx, node: node})
	ctx.cache[node] = obj
	ctx.nodes[obj] = node
	return obj
}

// unwrapNode returns the node behind a proxy, or nil for anything else.
func (ctx *domContext) unwrapNode(val goja.Value) *html.Node {
	if val == nil || goja.IsNull(val) || goja.IsUndefined(val) {
		return nil
	}
	obj, ok := val.(*goja.Object)
	if !ok {
		return nil
	}
	return ctx.nodes[obj]
}

// elementAccessor implements goja.DynamicObject over one node.
type elementAccessor struct {
	ctx  *domContext
	node *html.Node
}

var elementKeys = []string{
	"nodeType", "nodeName", "tagName", "id", "className", "textContent",
	"innerHTML", "outerHTML", "getAttribute", "setAttribute", "hasAttribute",
	"removeAttribute", "children", "childNodes", "childElementCount",
	"parentNode", "parentElement", "firstElementChild", "style", "classList",
	"appendChild", "removeChild", "insertBefore", "remove", "cloneNode",
	"contains", "getElementsByTagName", "getElementsByClassName",
}

func (e *elementAccessor) Get(key string) goja.Value {
	vm := e.ctx.vm
	n := e.node
	switch key {
	case "nodeType":
		if n.Type == html.TextNode {
			return vm.ToValue(3)
		}
		return vm.ToValue(1)
	case "nodeName", "tagName":
		if n.Type == html.TextNode {
			if key == "tagName" {
				return goja.Undefined()
			}
			return vm.ToValue("#text")
		}
		return vm.ToValue(strings.ToUpper(n.TagName))
	case "id":
		return vm.ToValue(n.Attr("id"))
	case "className":
		return vm.ToValue(n.Attr("class"))
	case "textContent":
		return vm.ToValue(n.TextContent())
	case "innerHTML":
		return vm.ToValue(n.Serialize())
	case "outerHTML":
		return vm.ToValue(n.SerializeOuter())
	case "getAttribute":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if val, ok := n.GetAttribute(call.Argument(0).String()); ok {
				return vm.ToValue(val)
			}
			return goja.Null()
		})
	case "setAttribute":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) >= 2 {
				n.SetAttribute(call.Arguments[0].String(), call.Arguments[1].String())
			}
			return goja.Undefined()
		})
	case "hasAttribute":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			_, ok := n.GetAttribute(call.Argument(0).String())
			return vm.ToValue(ok)
		})
	case "removeAttribute":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			n.RemoveAttribute(call.Argument(0).String())
			return goja.Undefined()
		})
	case "children":
		return e.ctx.elementArray(n.ElementChildren())
	case "childNodes":
		return e.ctx.elementArray(n.Children)
	case "childElementCount":
		return vm.ToValue(len(n.ElementChildren()))
	case "parentNode", "parentElement":
		if n.Parent != nil && n.Parent.TagName != "document" {
			return e.ctx.elementProxy(n.Parent)
		}
		return goja.Null()
	case "firstElementChild":
		if kids := n.ElementChildren(); len(kids) > 0 {
			return e.ctx.elementProxy(kids[0])
		}
		return goja.Null()
	case "style":
		return vm.NewDynamicObject(&styleAccessor{vm: vm, node: n})
	case "classList":
		return newClassListProxy(e.ctx, n)
	case "appendChild":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			child := e.argNode(call, 0, "appendChild")
			n.AddChild(child)
			return e.ctx.elementProxy(child)
		})
	case "removeChild":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			child := e.argNode(call, 0, "removeChild")
			if n.RemoveChild(child) == nil {
				panic(vm.NewTypeError("Failed to execute 'removeChild': The node to be removed is not a child of this node"))
			}
			return e.ctx.elementProxy(child)
		})
	case "insertBefore":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			child := e.argNode(call, 0, "insertBefore")
			n.InsertBefore(child, e.ctx.unwrapNode(call.Argument(1)))
			return e.ctx.elementProxy(child)
		})
	case "remove":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			n.Remove()
			return goja.Undefined()
		})
	case "cloneNode":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return e.ctx.elementProxy(n.CloneNode(call.Argument(0).ToBoolean()))
		})
	case "contains":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			other := e.ctx.unwrapNode(call.Argument(0))
			return vm.ToValue(other != nil && n.Contains(other))
		})
	case "getElementsByTagName":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return e.ctx.elementArray(n.ElementsByTagName(strings.ToLower(call.Argument(0).String())))
		})
	case "getElementsByClassName":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			var result []*html.Node
			for _, c := range n.ElementChildren() {
				result = append(result, c.ElementsByClassName(call.Argument(0).String())...)
			}
			return e.ctx.elementArray(result)
		})
	}
	return goja.Undefined()
}

func (e *elementAccessor) argNode(call goja.FunctionCall, i int, method string) *html.Node {
	node := e.ctx.unwrapNode(call.Argument(i))
	if node == nil {
		panic(e.ctx.vm.NewTypeError("Failed to execute '" + method + "': parameter is not a Node"))
	}
	return node
}

func (e *elementAccessor) Set(key string, val goja.Value) bool {
	switch key {
	case "textContent":
		e.node.RemoveAll()
		e.node.AppendText(val.String())
	case "className":
		e.node.SetAttribute("class", val.String())
	case "id":
		e.node.SetAttribute("id", val.String())
	case "innerHTML":
		e.node.RemoveAll()
		nodes, err := html.ParseFragment(val.String())
		if err != nil {
			panic(e.ctx.vm.NewGoError(err))
		}
		for _, c := range nodes {
			e.node.AddChild(c)
		}
	default:
		return false
	}
	return true
}

func (e *elementAccessor) Has(key string) bool {
	for _, k := range elementKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (e *elementAccessor) Delete(key string) bool {
	return false
}

func (e *elementAccessor) Keys() []string {
	return elementKeys
}

// styleAccessor maps camelCase property access to kebab-case declarations
// of the inline style attribute.
type styleAccessor struct {
	vm   *goja.Runtime
	node *html.Node
}

func (s *styleAccessor) Get(key string) goja.Value {
	val, _ := s.node.Style(camelToKebab(key))
	return s.vm.ToValue(val)
}

func (s *styleAccessor) Set(key string, val goja.Value) bool {
	s.node.SetStyle(camelToKebab(key), val.String())
	return true
}

func (s *styleAccessor) Has(key string) bool {
	return true
}

func (s *styleAccessor) Delete(key string) bool {
	styles := html.ParseInlineStyle(s.node.Attr("style"))
	delete(styles, camelToKebab(key))
	s.node.SetAttribute("style", html.SerializeInlineStyle(styles))
	return true
}

func (s *styleAccessor) Keys() []string {
	styles := html.ParseInlineStyle(s.node.Attr("style"))
	keys := make([]string, 0, len(styles))
	for k := range styles {
		keys = append(keys, k)
	}
	return keys
}

// camelToKebab converts a JS camelCase property name to CSS kebab-case.
func camelToKebab(s string) string {
	if s == "cssFloat" {
		return "float"
	}
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
