package reflection

import (
	"fmt"
	"reflect"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// Analyzer performs reflection-based analysis of constructor functions.
// Signatures are cached per function type; closures created from the same
// literal share a code pointer, so the function value is never cached.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[reflect.Type]*FuncInfo
}

// FuncInfo contains analyzed information about a constructor function.
type FuncInfo struct {
	Type  reflect.Type
	Value reflect.Value

	// Params are the raw Go parameter types in declared order.
	Params []reflect.Type

	// Out is the produced type (the first return value).
	Out reflect.Type

	// HasErrorReturn is set when the function returns (Out, error).
	HasErrorReturn bool
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[reflect.Type]*FuncInfo),
	}
}

// Analyze validates fn and extracts its signature. fn must be a non-nil,
// non-variadic function returning either T or (T, error).
func (a *Analyzer) Analyze(fn any) (*FuncInfo, error) {
	if fn == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	val := reflect.ValueOf(fn)
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %v", typ)
	}

	if val.IsNil() {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	a.mu.RLock()
	cached, ok := a.cache[typ]
	a.mu.RUnlock()
	if ok {
		info := *cached
		info.Value = val
		return &info, nil
	}

	if typ.IsVariadic() {
		return nil, fmt.Errorf("variadic constructor %v is not supported", typ)
	}

	info := &FuncInfo{
		Type:   typ,
		Params: make([]reflect.Type, typ.NumIn()),
	}

	for i := 0; i < typ.NumIn(); i++ {
		info.Params[i] = typ.In(i)
	}

	switch typ.NumOut() {
	case 1:
		info.Out = typ.Out(0)
	case 2:
		if typ.Out(1) != errType {
			return nil, fmt.Errorf("constructor %v: second return value must be error", typ)
		}
		info.Out = typ.Out(0)
		info.HasErrorReturn = true
	default:
		return nil, fmt.Errorf("constructor %v must return T or (T, error)", typ)
	}

	if info.Out == errType {
		return nil, fmt.Errorf("constructor %v only returns error", typ)
	}

	a.mu.Lock()
	a.cache[typ] = info
	a.mu.Unlock()

	out := *info
	out.Value = val
	return &out, nil
}
