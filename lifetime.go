package di

import (
	"encoding/json"
	"fmt"
)

// ScopeKind specifies the lifetime of instances produced by a binding.
// The scope determines when the provider is invoked and how the result is cached.
type ScopeKind int

const (
	// Unique specifies that every resolution invokes the provider again.
	// The instance is owned by its immediate consumer and is never cached.
	Unique ScopeKind = iota

	// SharedPerRequest specifies that one instance is created per top-level
	// Build call and shared by every consumer within that call.
	// The cache is discarded when the call returns.
	SharedPerRequest

	// Singleton specifies that a single instance is created on first use and
	// reused for the remaining lifetime of the injector.
	Singleton
)

// String returns the string representation of the ScopeKind.
func (k ScopeKind) String() string {
	switch k {
	case Unique:
		return "Unique"
	case SharedPerRequest:
		return "SharedPerRequest"
	case Singleton:
		return "Singleton"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// IsValid checks if the scope kind is valid.
func (k ScopeKind) IsValid() bool {
	return k >= Unique && k <= Singleton
}

// cached reports whether the scope stores its instances behind a shared handle.
func (k ScopeKind) cached() bool {
	return k == SharedPerRequest || k == Singleton
}

// MarshalText implements encoding.TextMarshaler.
func (k ScopeKind) MarshalText() ([]byte, error) {
	if !k.IsValid() {
		return nil, ScopeError{Value: int(k)}
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ScopeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Unique", "unique":
		*k = Unique
	case "SharedPerRequest", "shared_per_request", "request":
		*k = SharedPerRequest
	case "Singleton", "singleton":
		*k = Singleton
	default:
		return ScopeError{Value: string(text)}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (k ScopeKind) MarshalJSON() ([]byte, error) {
	text, err := k.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *ScopeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	return k.UnmarshalText([]byte(s))
}
