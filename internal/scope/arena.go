package scope

import (
	"fmt"

	"fortio.org/safecast"

	"microvium/internal/source"
)

// Scopes stores every allocated Scope in a compact, 1-based arena.
type Scopes struct {
	data []Scope
}

func NewScopes(capacity uint32) *Scopes {
	if capacity == 0 {
		capacity = 16
	}
	return &Scopes{data: make([]Scope, 1, capacity+1)} // index 0 reserved
}

// New allocates a scope and links it under its parent's Children.
func (s *Scopes) New(kind ScopeKind, parent ScopeID, span source.Span) ScopeID {
	value, err := safecast.Conv[uint32](len(s.data))
	if err != nil {
		panic(fmt.Errorf("scopes arena overflow: %w", err))
	}
	id := ScopeID(value)
	s.data = append(s.data, Scope{
		ID:       id,
		Kind:     kind,
		Parent:   parent,
		Span:     span,
		Bindings: make(map[source.StringID]BindingID),
	})
	if parent.IsValid() {
		if p := s.Get(parent); p != nil {
			p.Children = append(p.Children, id)
		}
	}
	return id
}

func (s *Scopes) Get(id ScopeID) *Scope {
	if !id.IsValid() || int(id) >= len(s.data) {
		return nil
	}
	return &s.data[id]
}

func (s *Scopes) Len() int { return len(s.data) - 1 }

// Bindings stores every allocated Binding in a compact, 1-based arena.
type Bindings struct {
	data []Binding
}

func NewBindings(capacity uint32) *Bindings {
	if capacity == 0 {
		capacity = 32
	}
	return &Bindings{data: make([]Binding, 1, capacity+1)}
}

func (b *Bindings) New(binding Binding) BindingID {
	value, err := safecast.Conv[uint32](len(b.data))
	if err != nil {
		panic(fmt.Errorf("bindings arena overflow: %w", err))
	}
	id := BindingID(value)
	binding.ID = id
	b.data = append(b.data, binding)
	return id
}

func (b *Bindings) Get(id BindingID) *Binding {
	if !id.IsValid() || int(id) >= len(b.data) {
		return nil
	}
	return &b.data[id]
}

func (b *Bindings) Len() int { return len(b.data) - 1 }
