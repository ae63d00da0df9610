// Package policy provides boolean predicates over a binding table.
//
// Predicates are ordinary expression trees built from IsBound, IsRoot,
// Always and the And, Or and Not combinators. They are evaluated against a
// Context supplied by the injector, either as a binding guard (di.When) or as
// an injector-wide policy (di.WithPolicy).
//
// Example:
//
//	// Only allow the mock client when no real client is bound.
//	guard := policy.Not(policy.Bound[*http.Client]())
//
//	// Every dependency must be explicitly bound.
//	strict := policy.IsArgBound()
package policy

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrMalformed is returned by Validate for predicates that cannot be evaluated.
var ErrMalformed = errors.New("malformed predicate")

// Kind identifies the node type of a Predicate.
type Kind int

const (
	KindAlways Kind = iota
	KindIsBound
	KindIsRoot
	KindAnd
	KindOr
	KindNot
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindAlways:
		return "Always"
	case KindIsBound:
		return "IsBound"
	case KindIsRoot:
		return "IsRoot"
	case KindAnd:
		return "And"
	case KindOr:
		return "Or"
	case KindNot:
		return "Not"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Context is the resolution state a predicate is evaluated against.
type Context interface {
	// Bound reports whether a binding for (t, tag) is eligible.
	Bound(t, tag reflect.Type) bool

	// IsRoot reports whether the current resolution is the outermost one.
	IsRoot() bool

	// Arg returns the key currently being resolved.
	Arg() (t, tag reflect.Type)
}

// Predicate is a node of a predicate tree.
type Predicate struct {
	Kind Kind

	// Type and Tag are the key tested by KindIsBound. A nil Type stands for
	// the key currently being resolved.
	Type reflect.Type
	Tag  reflect.Type

	// Value is the result of KindAlways.
	Value bool

	Children []Predicate
}

// Always returns a predicate that evaluates to b.
func Always(b bool) Predicate {
	return Predicate{Kind: KindAlways, Value: b}
}

// IsBound returns a predicate that holds when (t, tag) has an eligible binding.
// A nil tag tests the untagged key.
func IsBound(t, tag reflect.Type) Predicate {
	return Predicate{Kind: KindIsBound, Type: t, Tag: tag}
}

// Bound is IsBound for the untagged key of T.
func Bound[T any]() Predicate {
	return IsBound(typeOf[T](), nil)
}

// BoundTagged is IsBound for T tagged with Tag.
func BoundTagged[T, Tag any]() Predicate {
	return IsBound(typeOf[T](), typeOf[Tag]())
}

// IsArgBound returns a predicate that holds when the key currently being
// resolved has an eligible binding.
func IsArgBound() Predicate {
	return Predicate{Kind: KindIsBound}
}

// IsRoot returns a predicate that holds for the outermost resolution only.
func IsRoot() Predicate {
	return Predicate{Kind: KindIsRoot}
}

// And returns a predicate that holds when all children hold.
func And(children ...Predicate) Predicate {
	return Predicate{Kind: KindAnd, Children: children}
}

// Or returns a predicate that holds when any child holds.
func Or(children ...Predicate) Predicate {
	return Predicate{Kind: KindOr, Children: children}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return Predicate{Kind: KindNot, Children: []Predicate{p}}
}

// Evaluate evaluates p against ctx. Every child of And and Or is evaluated;
// there is no short-circuiting. Malformed nodes evaluate to false.
func Evaluate(p Predicate, ctx Context) bool {
	switch p.Kind {
	case KindAlways:
		return p.Value

	case KindIsBound:
		t, tag := p.Type, p.Tag
		if t == nil {
			t, tag = ctx.Arg()
		}
		return ctx.Bound(t, tag)

	case KindIsRoot:
		return ctx.IsRoot()

	case KindAnd:
		result := true
		for _, c := range p.Children {
			if !Evaluate(c, ctx) {
				result = false
			}
		}
		return result

	case KindOr:
		result := false
		for _, c := range p.Children {
			if Evaluate(c, ctx) {
				result = true
			}
		}
		return result

	case KindNot:
		if len(p.Children) != 1 {
			return false
		}
		return !Evaluate(p.Children[0], ctx)
	}

	return false
}

// Validate checks that the tree is well formed.
func (p Predicate) Validate() error {
	switch p.Kind {
	case KindAlways, KindIsRoot:
		if len(p.Children) != 0 {
			return fmt.Errorf("%w: %s takes no operands", ErrMalformed, p.Kind)
		}
	case KindIsBound:
		if len(p.Children) != 0 {
			return fmt.Errorf("%w: %s takes no operands", ErrMalformed, p.Kind)
		}
		if p.Type == nil && p.Tag != nil {
			return fmt.Errorf("%w: tag %v without a type", ErrMalformed, p.Tag)
		}
	case KindAnd, KindOr:
		if len(p.Children) == 0 {
			return fmt.Errorf("%w: %s needs at least one operand", ErrMalformed, p.Kind)
		}
	case KindNot:
		if len(p.Children) != 1 {
			return fmt.Errorf("%w: Not needs exactly one operand, got %d", ErrMalformed, len(p.Children))
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrMalformed, int(p.Kind))
	}

	for _, c := range p.Children {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String renders the predicate in infix form.
func (p Predicate) String() string {
	switch p.Kind {
	case KindAlways:
		return fmt.Sprintf("always(%t)", p.Value)
	case KindIsBound:
		switch {
		case p.Type == nil:
			return "is_bound(_)"
		case p.Tag != nil:
			return fmt.Sprintf("is_bound(%v[%v])", p.Type, p.Tag)
		default:
			return fmt.Sprintf("is_bound(%v)", p.Type)
		}
	case KindIsRoot:
		return "is_root"
	case KindAnd:
		return join(p.Children, " && ")
	case KindOr:
		return join(p.Children, " || ")
	case KindNot:
		if len(p.Children) == 1 {
			return "!" + p.Children[0].String()
		}
	}
	return fmt.Sprintf("<%s>", p.Kind)
}

func join(children []Predicate, op string) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, op) + ")"
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
