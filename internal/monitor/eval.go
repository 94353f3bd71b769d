package monitor

import (
	"fmt"

	"github.com/robertkrimen/otto"

	"github.com/cyberplant/c64py/c64"
)

// newEvalVM builds an otto runtime with peek/poke/regs helpers bound to
// exec, so EVAL can compute an address or condition ("peek(0xd020)",
// "poke(53280, 6)", "regs().A") without restarting the monitor.
func newEvalVM(exec *c64.Executive) *otto.Otto {
	vm := otto.New()

	vm.Set("peek", func(call otto.FunctionCall) otto.Value {
		addr, _ := call.Argument(0).ToInteger()
		var v byte
		exec.WithLock(func() { v = exec.Mem.Read(uint16(addr)) })
		result, _ := vm.ToValue(int64(v))
		return result
	})

	vm.Set("poke", func(call otto.FunctionCall) otto.Value {
		addr, _ := call.Argument(0).ToInteger()
		val, _ := call.Argument(1).ToInteger()
		exec.WithLock(func() { exec.Mem.Write(uint16(addr), byte(val)) })
		return otto.UndefinedValue()
	})

	vm.Set("regs", func(call otto.FunctionCall) otto.Value {
		obj, _ := vm.Object(`({})`)
		exec.WithLock(func() {
			obj.Set("PC", exec.CPU.PC)
			obj.Set("A", exec.CPU.A)
			obj.Set("X", exec.CPU.X)
			obj.Set("Y", exec.CPU.Y)
			obj.Set("SP", exec.CPU.SP)
		})
		return obj.Value()
	})

	return vm
}

// EvalExpr runs expr against vm and renders the result as text.
func EvalExpr(vm *otto.Otto, expr string) (string, error) {
	v, err := vm.Run(expr)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", v), nil
}
