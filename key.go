package di

import (
	"fmt"
	"reflect"
)

// Key identifies a request: a type plus an optional tag.
//
// Tags are marker types compared by identity only:
//
//	type Primary struct{}
//
//	key := di.TaggedKeyOf[*sql.DB, Primary]()
//
// A nil Tag is the untagged key. Untagged bindings act as a wildcard for
// tagged requests that have no exact binding.
type Key struct {
	Type reflect.Type
	Tag  reflect.Type
}

// KeyOf returns the untagged key for T.
func KeyOf[T any]() Key {
	return Key{Type: typeOf[T]()}
}

// TaggedKeyOf returns the key for T tagged with the marker type Tag.
func TaggedKeyOf[T, Tag any]() Key {
	return Key{Type: typeOf[T](), Tag: typeOf[Tag]()}
}

// String returns a string representation of the key.
func (k Key) String() string {
	if k.Type == nil {
		return "<nil>"
	}
	if k.Tag != nil {
		return fmt.Sprintf("%v[%v]", k.Type, k.Tag)
	}
	return k.Type.String()
}

// IsTagged reports whether the key carries a tag.
func (k Key) IsTagged() bool {
	return k.Tag != nil
}

// Untagged returns the key without its tag.
func (k Key) Untagged() Key {
	return Key{Type: k.Type}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
