package reflection

import (
	"fmt"
	"reflect"
	"runtime/debug"
)

// PanicError is returned by Invoke when the constructor panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("constructor panicked: %v", e.Value)
}

// Invoke calls the analyzed function with args. The returned error is the
// function's own error return, or a *PanicError if it panicked.
func Invoke(info *FuncInfo, args []reflect.Value) (result reflect.Value, err error) {
	if len(args) != len(info.Params) {
		return reflect.Value{}, fmt.Errorf("constructor %v expects %d arguments, got %d",
			info.Type, len(info.Params), len(args))
	}

	defer func() {
		if r := recover(); r != nil {
			result = reflect.Value{}
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	results := info.Value.Call(args)

	if info.HasErrorReturn {
		if last := results[1]; !last.IsNil() {
			return reflect.Value{}, last.Interface().(error)
		}
	}

	return results[0], nil
}
