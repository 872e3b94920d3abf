package compiler

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/coderline/phase/errors"
)

// SemanticOracle answers every semantic question the engine asks about a node.
// Implementations must be safe for concurrent readers.
type SemanticOracle interface {
	// ResolveSymbol returns the symbol a node binds to, or nil
	ResolveSymbol(n *Node) *Symbol
	// ResolveType returns the node's own type and the type its context expects
	ResolveType(n *Node) (static, converted *Type)
	// ResolveConstant returns the folded compile-time value of n
	ResolveConstant(n *Node) (Constant, bool)
	// ResolveDeclaredSymbol returns the symbol introduced by a declaring node
	// (local declaration, foreach variable, lambda)
	ResolveDeclaredSymbol(n *Node) *Symbol
}

// symbolKeyer is implemented by oracles that memoize symbol identities
type symbolKeyer interface {
	SymbolKey(s *Symbol) string
}

// SymbolKey computes the identity of a symbol: its explicit ID, or the container
// qualified name, member name and parameter types.
func SymbolKey(s *Symbol) string {
	if s == nil {
		return ""
	}
	if s.ID != "" {
		return s.ID
	}
	var sb strings.Builder
	if s.Container != nil {
		sb.WriteString(s.Container.DefinitionKey())
		sb.WriteString(".")
	}
	sb.WriteString(s.Name)
	if s.Kind == SymbolMethod || s.Kind == SymbolConstructor || s.Kind == SymbolOperator {
		sb.WriteString("(")
		for i, p := range s.Parameters {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(p.Type.Key())
		}
		sb.WriteString(")")
	}
	return sb.String()
}

const symbolKeyCacheSize = 4096

type typePair struct {
	static, converted *Type
}

// MemoryOracle is an in-memory SemanticOracle. It is populated once (by
// LoadCompilation or by the Set* methods), then frozen; after Freeze it only serves
// reads and may be shared by any number of workers.
type MemoryOracle struct {
	symbols   map[*Node]*Symbol
	types     map[*Node]typePair
	constants map[*Node]Constant
	declared  map[*Node]*Symbol
	keys      *lru.Cache
	frozen    atomic.Bool
}

// NewMemoryOracle creates an empty, writable oracle
func NewMemoryOracle() *MemoryOracle {
	cache, err := lru.New(symbolKeyCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "symbol key cache"))
	}
	return &MemoryOracle{
		symbols:   map[*Node]*Symbol{},
		types:     map[*Node]typePair{},
		constants: map[*Node]Constant{},
		declared:  map[*Node]*Symbol{},
		keys:      cache,
	}
}

func (o *MemoryOracle) mustBeWritable() {
	if o.frozen.Load() {
		panic(errors.AssertionFailedf("oracle annotations are frozen"))
	}
}

// SetSymbol binds n to s
func (o *MemoryOracle) SetSymbol(n *Node, s *Symbol) {
	o.mustBeWritable()
	o.symbols[n] = s
}

// SetType records the static and converted type of n; a nil converted type means
// no conversion applies.
func (o *MemoryOracle) SetType(n *Node, static, converted *Type) {
	o.mustBeWritable()
	if converted == nil {
		converted = static
	}
	o.types[n] = typePair{static, converted}
}

// SetConverted overrides the converted type of an annotated node
func (o *MemoryOracle) SetConverted(n *Node, converted *Type) {
	o.mustBeWritable()
	p := o.types[n]
	p.converted = converted
	o.types[n] = p
}

// SetConstant records the folded value of n
func (o *MemoryOracle) SetConstant(n *Node, c Constant) {
	o.mustBeWritable()
	o.constants[n] = c
}

// SetDeclared records the symbol a declaring node introduces
func (o *MemoryOracle) SetDeclared(n *Node, s *Symbol) {
	o.mustBeWritable()
	o.declared[n] = s
}

// Freeze makes the oracle read-only
func (o *MemoryOracle) Freeze() {
	o.frozen.Store(true)
}

func (o *MemoryOracle) ResolveSymbol(n *Node) *Symbol {
	return o.symbols[n]
}

func (o *MemoryOracle) ResolveType(n *Node) (static, converted *Type) {
	p := o.types[n]
	return p.static, p.converted
}

func (o *MemoryOracle) ResolveConstant(n *Node) (Constant, bool) {
	if c, ok := o.constants[n]; ok {
		return c, true
	}
	if n != nil && n.Kind == NodeLiteral && n.Literal != nil {
		return *n.Literal, true
	}
	return Constant{}, false
}

func (o *MemoryOracle) ResolveDeclaredSymbol(n *Node) *Symbol {
	return o.declared[n]
}

// SymbolKey returns the memoized identity of s
func (o *MemoryOracle) SymbolKey(s *Symbol) string {
	if s == nil {
		return ""
	}
	if k, ok := o.keys.Get(s); ok {
		return k.(string)
	}
	k := SymbolKey(s)
	o.keys.Add(s, k)
	return k
}

// TypeIndex knows every type of a compilation by simple name and arity
type TypeIndex struct {
	byKey  map[string]*Type
	arity  map[string]map[int]bool
	byName map[string]*Type
}

// NewTypeIndex indexes the given definition types plus the builtins
func NewTypeIndex(types ...*Type) *TypeIndex {
	idx := &TypeIndex{
		byKey:  map[string]*Type{},
		arity:  map[string]map[int]bool{},
		byName: map[string]*Type{},
	}
	for k, t := range builtinTypes {
		idx.byKey[k] = t
	}
	for _, t := range types {
		idx.Add(t)
	}
	return idx
}

// Add registers a definition type
func (idx *TypeIndex) Add(t *Type) {
	idx.byKey[t.DefinitionKey()] = t
	simple := t.QualifiedName()
	if idx.arity[simple] == nil {
		idx.arity[simple] = map[int]bool{}
	}
	idx.arity[simple][t.Arity] = true
	if _, ok := idx.byName[t.Name]; !ok || t.Arity == 0 {
		idx.byName[t.Name] = t
	}
}

// Lookup finds a definition by qualified name and arity
func (idx *TypeIndex) Lookup(qualified string, arity int) *Type {
	key := qualified
	if arity > 0 {
		key = qualified + "`" + strconv.Itoa(arity)
	}
	if t, ok := idx.byKey[key]; ok {
		return t
	}
	return nil
}

// LookupSimple finds a definition by unqualified name, preferring the non-generic one
func (idx *TypeIndex) LookupSimple(name string) *Type {
	return idx.byName[name]
}

// HasArityCollision reports whether t's qualified name is declared at more than one
// generic arity
func (idx *TypeIndex) HasArityCollision(t *Type) bool {
	if idx == nil || t == nil {
		return false
	}
	def := t
	if t.Definition != nil {
		def = t.Definition
	}
	return len(idx.arity[def.QualifiedName()]) > 1
}

// Definitions returns all indexed non-builtin definitions ordered by key
func (idx *TypeIndex) Definitions() []*Type {
	var out []*Type
	for k, t := range idx.byKey {
		if _, builtin := builtinTypes[k]; builtin {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DefinitionKey() < out[j].DefinitionKey() })
	return out
}

// Compilation is the translator's input: declarations to emit, the types they
// reference and the oracle answering questions about their trees.
type Compilation struct {
	Types  []*TypeDecl
	Index  *TypeIndex
	Oracle SemanticOracle
	// Members indexes every member symbol (declared and external) by container key
	Members map[string][]*Symbol
}

// MembersOf returns the member symbols of t and its supertypes, nearest first
func (c *Compilation) MembersOf(t *Type) []*Symbol {
	if c == nil || t == nil {
		return nil
	}
	var out []*Symbol
	for _, s := range append([]*Type{t}, t.Supertypes()...) {
		def := s
		if s.Definition != nil {
			def = s.Definition
		}
		out = append(out, c.Members[def.DefinitionKey()]...)
	}
	return out
}
