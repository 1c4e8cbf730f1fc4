package input

import (
	"sort"
	"strings"
)

// Binding maps one raw key identifier to a trigger
type Binding struct {
	Key     string
	Trigger Trigger
}

// Bindings is an immutable key table built once at startup
type Bindings struct {
	keys map[string]Trigger
}

// NewBindings builds a table. Later entries for the same key win
func NewBindings(bs ...Binding) *Bindings {
	keys := make(map[string]Trigger, len(bs))
	for _, b := range bs {
		keys[normalizeKey(b.Key)] = b.Trigger
	}
	return &Bindings{keys: keys}
}

// DefaultBindings returns the A/S/W/D plus arrow key table
func DefaultBindings() *Bindings {
	return NewBindings(
		Binding{"A", TriggerLeft},
		Binding{"ArrowLeft", TriggerLeft},
		Binding{"S", TriggerCenter},
		Binding{"W", TriggerCenter},
		Binding{"ArrowUp", TriggerCenter},
		Binding{"ArrowDown", TriggerCenter},
		Binding{"D", TriggerRight},
		Binding{"ArrowRight", TriggerRight},
	)
}

// Lookup returns TriggerNone for unbound keys
func (b *Bindings) Lookup(key string) Trigger {
	if b == nil {
		return TriggerNone
	}
	return b.keys[normalizeKey(key)]
}

// Len returns the number of bound keys
func (b *Bindings) Len() int {
	return len(b.keys)
}

// List returns the table sorted by key
func (b *Bindings) List() []Binding {
	out := make([]Binding, 0, len(b.keys))
	for k, t := range b.keys {
		out = append(out, Binding{Key: k, Trigger: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// normalizeKey folds single letters to upper case and KeyboardEvent.code
// style names ("KeyA") to the bare letter
func normalizeKey(k string) string {
	k = strings.TrimSpace(k)
	if len(k) == 4 && strings.HasPrefix(k, "Key") {
		k = k[3:]
	}
	if len(k) == 1 {
		return strings.ToUpper(k)
	}
	return k
}
