package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// VM wraps a Lua state. It is not safe for concurrent use.
type VM struct {
	L     *lua.LState
	table *lua.LTable
}

// NewVM creates a new Lua VM with the standard libraries loaded.
func NewVM() *VM {
	L := lua.NewState(lua.Options{
		CallStackSize: 120,
		RegistrySize:  120 * 20,
	})

	return &VM{L: L}
}

// Close shuts down the Lua VM.
func (vm *VM) Close() {
	vm.L.Close()
}

// LoadString runs a Lua chunk. The chunk is expected to return a table of
// hook functions; a global named "hooks" is used otherwise.
func (vm *VM) LoadString(src string) error {
	if err := vm.L.DoString(src); err != nil {
		return fmt.Errorf("load hooks: %w", err)
	}
	vm.captureTable()
	return nil
}

// LoadScript loads and executes a Lua script file.
func (vm *VM) LoadScript(path string) error {
	if err := vm.L.DoFile(path); err != nil {
		return fmt.Errorf("load script %s: %w", path, err)
	}
	vm.captureTable()
	return nil
}

func (vm *VM) captureTable() {
	if tbl, ok := vm.L.Get(-1).(*lua.LTable); ok {
		vm.table = tbl
		vm.L.Pop(1)
		return
	}
	if tbl, ok := vm.L.GetGlobal("hooks").(*lua.LTable); ok {
		vm.table = tbl
	}
}

// HasHandler checks if the hook table defines funcName.
func (vm *VM) HasHandler(funcName string) bool {
	if vm.table == nil {
		return false
	}
	_, ok := vm.table.RawGetString(funcName).(*lua.LFunction)
	return ok
}

// CallBool calls funcName and converts its first return value with Lua
// truthiness. Undefined handlers return false.
func (vm *VM) CallBool(funcName string, args ...lua.LValue) (bool, error) {
	if vm.table == nil {
		return false, nil
	}

	fn := vm.table.RawGetString(funcName)
	if fn == lua.LNil {
		return false, nil
	}
	if _, ok := fn.(*lua.LFunction); !ok {
		return false, fmt.Errorf("hooks.%s is not a function", funcName)
	}

	if err := vm.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		return false, fmt.Errorf("call hooks.%s: %w", funcName, err)
	}

	ret := vm.L.Get(-1)
	vm.L.Pop(1)
	return lua.LVAsBool(ret), nil
}

// RegisterModule registers a table of functions as a Lua module.
func (vm *VM) RegisterModule(name string, funcs map[string]lua.LGFunction) {
	mod := vm.L.NewTable()
	for fname, fn := range funcs {
		mod.RawSetString(fname, vm.L.NewFunction(fn))
	}
	vm.L.SetGlobal(name, mod)
}
