package di

import "reflect"

// Disposable is implemented by instances that hold resources.
// The injector closes disposable Singleton instances when it is closed, and
// SharedPerRequest instances when their last reference is released.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// asDisposable returns the Disposable behind v, checking both the value and,
// when addressable, its pointer.
func asDisposable(v reflect.Value) (Disposable, bool) {
	if !v.IsValid() {
		return nil, false
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil, false
		}
	}

	if v.CanInterface() {
		if d, ok := v.Interface().(Disposable); ok {
			return d, true
		}
	}

	if v.CanAddr() {
		if d, ok := v.Addr().Interface().(Disposable); ok {
			return d, true
		}
	}

	return nil, false
}
