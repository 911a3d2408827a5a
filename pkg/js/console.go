package js

import (
	"strings"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"
)

// consoleAPI routes console.log, console.warn and console.error to the
// script logger.
type consoleAPI struct {
	log *logrus.Entry
}

func (c *consoleAPI) register(vm *goja.Runtime) {
	console := vm.NewObject()
	console.Set("log", c.logFn(logrus.InfoLevel))
	console.Set("info", c.logFn(logrus.InfoLevel))
	console.Set("warn", c.logFn(logrus.WarnLevel))
	console.Set("error", c.logFn(logrus.ErrorLevel))
	vm.Set("console", console)
}

func (c *consoleAPI) logFn(level logrus.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		c.log.Log(level, formatArgs(call.Arguments))
		return goja.Undefined()
	}
}

func formatArgs(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return strings.Join(parts, " ")
}
