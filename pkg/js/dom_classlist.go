package js

import (
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"waterfall/pkg/html"
)

// newClassListProxy implements DOMTokenList for element.classList. The
// lazy loader's animated marker and the column classes are visible here.
func newClassListProxy(ctx *domContext, node *html.Node) goja.Value {
	return ctx.vm.NewDynamicObject(&classListAccessor{vm: ctx.vm, node: node})
}

type classListAccessor struct {
	vm   *goja.Runtime
	node *html.Node
}

var classListKeys = []string{"length", "value", "add", "remove", "toggle", "contains", "replace", "item", "toString"}

func (cl *classListAccessor) Get(key string) goja.Value {
	vm := cl.vm
	n := cl.node
	classes := n.Classes()

	switch key {
	case "length":
		return vm.ToValue(len(classes))
	case "value":
		return vm.ToValue(strings.Join(classes, " "))
	case "add":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			for _, arg := range call.Arguments {
				n.AddClass(arg.String())
			}
			return goja.Undefined()
		})
	case "remove":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			for _, arg := range call.Arguments {
				n.RemoveClass(arg.String())
			}
			return goja.Undefined()
		})
	case "toggle":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				panic(vm.NewTypeError("Failed to execute 'toggle': 1 argument required"))
			}
			token := call.Arguments[0].String()
			want := !n.HasClass(token)
			if len(call.Arguments) > 1 {
				want = call.Arguments[1].ToBoolean()
			}
			if want {
				n.AddClass(token)
			} else {
				n.RemoveClass(token)
			}
			return vm.ToValue(want)
		})
	case "contains":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(n.HasClass(call.Argument(0).String()))
		})
	case "replace":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 2 {
				panic(vm.NewTypeError("Failed to execute 'replace': 2 arguments required"))
			}
			oldToken, newToken := call.Arguments[0].String(), call.Arguments[1].String()
			cls := n.Classes()
			for i, c := range cls {
				if c == oldToken {
					cls[i] = newToken
					n.SetAttribute("class", strings.Join(cls, " "))
					return vm.ToValue(true)
				}
			}
			return vm.ToValue(false)
		})
	case "item":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			idx := int(call.Argument(0).ToInteger())
			if idx < 0 || idx >= len(classes) {
				return goja.Null()
			}
			return vm.ToValue(classes[idx])
		})
	case "toString":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return vm.ToValue(strings.Join(classes, " "))
		})
	}
	if idx, err := strconv.Atoi(key); err == nil && idx >= 0 && idx < len(classes) {
		return vm.ToValue(classes[idx])
	}
	return goja.Undefined()
}

func (cl *classListAccessor) Set(key string, val goja.Value) bool {
	if key == "value" {
		cl.node.SetAttribute("class", val.String())
		return true
	}
	return false
}

func (cl *classListAccessor) Has(key string) bool {
	for _, k := range classListKeys {
		if k == key {
			return true
		}
	}
	idx, err := strconv.Atoi(key)
	return err == nil && idx >= 0
}

func (cl *classListAccessor) Delete(key string) bool {
	return false
}

func (cl *classListAccessor) Keys() []string {
	return classListKeys
}
