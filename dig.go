package di

import (
	"reflect"

	"go.uber.org/dig"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ProvideTo exports every bound key to a dig container so that dig-based
// code can consume the graph. Each key becomes a constructor returning
// (T, error) that builds the key by value from the injector; tagged keys are
// exported under dig.Name with the tag's type name. dig caches each result,
// so the injector is consulted at most once per key and container.
//
// Example:
//
//	c := dig.New()
//	if err := inj.ProvideTo(c); err != nil {
//	    return err
//	}
//	err := c.Invoke(func(db *sql.DB) { ... })
func (inj *Injector) ProvideTo(c *dig.Container) error {
	if inj.closed.Load() {
		return ErrInjectorClosed
	}

	seen := make(map[Key]bool)
	for _, b := range inj.table.all {
		key := b.Key
		if seen[key] {
			continue
		}
		seen[key] = true

		var opts []dig.ProvideOption
		if key.Tag != nil {
			opts = append(opts, dig.Name(DigName(key.Tag)))
		}

		if err := c.Provide(inj.digConstructor(key).Interface(), opts...); err != nil {
			return RegistrationError{Key: key, Operation: "export to dig", Cause: err}
		}
	}

	return nil
}

// DigName returns the dig name used by ProvideTo for a tag type.
func DigName(tag reflect.Type) string {
	return tag.String()
}

func (inj *Injector) digConstructor(key Key) reflect.Value {
	fnType := reflect.FuncOf(nil, []reflect.Type{key.Type, errorType}, false)
	return reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		inst, err := inj.Build(key, FormValue)
		if err != nil {
			return []reflect.Value{reflect.Zero(key.Type), reflect.ValueOf(&err).Elem()}
		}
		return []reflect.Value{inst.value, reflect.Zero(errorType)}
	})
}
