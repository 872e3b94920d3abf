package compiler

import "sort"

// ImportEntry is a type referenced by a unit
type ImportEntry struct {
	Type                   *Type
	RequiresFullDefinition bool
}

// ImportTracker accumulates the types one unit references. An entry that requires
// the full definition never goes back to requiring a forward declaration only.
type ImportTracker struct {
	self    string
	entries map[string]*ImportEntry
}

// NewImportTracker creates a tracker for the unit emitting self
func NewImportTracker(self *Type) *ImportTracker {
	key := ""
	if self != nil {
		key = definitionOf(self).DefinitionKey()
	}
	return &ImportTracker{self: key, entries: map[string]*ImportEntry{}}
}

func definitionOf(t *Type) *Type {
	if t.Definition != nil {
		return t.Definition
	}
	return t
}

// Note records a reference to t
func (it *ImportTracker) Note(t *Type, requiresFullDefinition bool) {
	if t == nil {
		return
	}
	switch t.Kind {
	case TypeArray:
		it.Note(t.Elem, requiresFullDefinition)
		return
	case TypeInvalid, TypeVoid, TypeNull, TypePrimitive, TypeString, TypeObject, TypeDynamic, TypeParameter:
		return
	}
	// generic arguments are instantiated inline
	if t.Definition != nil {
		for _, a := range t.TypeArgs {
			it.Note(a, true)
		}
	}
	def := definitionOf(t)
	key := def.DefinitionKey()
	if key == it.self {
		return
	}
	if e, ok := it.entries[key]; ok {
		e.RequiresFullDefinition = e.RequiresFullDefinition || requiresFullDefinition
		return
	}
	it.entries[key] = &ImportEntry{Type: def, RequiresFullDefinition: requiresFullDefinition}
}

// Lookup returns the current entry for t
func (it *ImportTracker) Lookup(t *Type) (ImportEntry, bool) {
	e, ok := it.entries[definitionOf(t).DefinitionKey()]
	if !ok {
		return ImportEntry{}, false
	}
	return *e, true
}

// Entries returns every entry ordered by type key
func (it *ImportTracker) Entries() []ImportEntry {
	keys := make([]string, 0, len(it.entries))
	for k := range it.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ImportEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, *it.entries[k])
	}
	return out
}

// Len is the number of distinct referenced types
func (it *ImportTracker) Len() int {
	return len(it.entries)
}
