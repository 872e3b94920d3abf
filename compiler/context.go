package compiler

import (
	"sort"
	"strconv"
	"strings"
)

// NameAllocator mints collision-free temporary names for one unit. Counters only
// grow; a name handed out is never handed out again.
type NameAllocator struct {
	next map[string]int
}

// NewNameAllocator returns an allocator with every counter at zero
func NewNameAllocator() *NameAllocator {
	return &NameAllocator{next: map[string]int{}}
}

// Temp returns prefix followed by the next counter value for prefix
func (a *NameAllocator) Temp(prefix string) string {
	a.next[prefix]++
	return prefix + strconv.Itoa(a.next[prefix])
}

// Context is the emission state of a single output unit. It is owned by one worker
// and discarded once the unit's text has been materialized.
type Context struct {
	Compilation *Compilation
	Oracle      SemanticOracle
	Renderer    Renderer
	Templates   *TemplateTable
	Types       *TypeResolver
	Casts       *AutoCaster
	Binder      *Binder

	Decl     *TypeDecl
	Member   *MemberDecl
	Artifact Artifact

	Writer  *Writer
	Imports *ImportTracker
	Names   *NameAllocator

	// PreviousSection is the access-section header last written in this unit
	PreviousSection string
	// Trace logs every emitted statement
	Trace bool

	// catchNames holds the exception variables of the enclosing catch clauses
	catchNames []string
	// inConstructor is set while a constructor body is emitted
	inConstructor bool
	// Mutating is set while the target of an assignment is rendered
	Mutating bool
	// statementExpr is the expression of the expression statement being emitted
	statementExpr *Node
	// receiverCall is set while the receiver of a method call or property access
	// is spelled
	receiverCall bool

	// requires collects prologue lines (headers, imports) not tied to a type
	requires map[string]bool

	fallbacks []Diagnostic
}

// NewContext prepares the emission context of one artifact of decl
func NewContext(c *Compilation, r Renderer, templates *TemplateTable, decl *TypeDecl, artifact Artifact) *Context {
	types := NewTypeResolver(r.Syntax(), c.Index)
	ctx := &Context{
		Compilation: c,
		Oracle:      c.Oracle,
		Renderer:    r,
		Templates:   templates,
		Types:       types,
		Decl:        decl,
		Artifact:    artifact,
		Writer:      NewWriter(r.Syntax().Indent),
		Imports:     NewImportTracker(decl.Type),
		Names:       NewNameAllocator(),
	}
	ctx.Casts = NewAutoCaster(r.CastSyntax(), types)
	ctx.Binder = NewBinder(c.Oracle)
	return ctx
}

// Symbol resolves the symbol bound to n
func (ctx *Context) Symbol(n *Node) *Symbol {
	return ctx.Oracle.ResolveSymbol(n)
}

// TypeOf resolves the static type of n
func (ctx *Context) TypeOf(n *Node) *Type {
	static, _ := ctx.Oracle.ResolveType(n)
	return static
}

// ConvertedTypeOf resolves the type the context of n expects
func (ctx *Context) ConvertedTypeOf(n *Node) *Type {
	_, converted := ctx.Oracle.ResolveType(n)
	return converted
}

// SymbolKey returns the identity of s, memoized when the oracle supports it
func (ctx *Context) SymbolKey(s *Symbol) string {
	if k, ok := ctx.Oracle.(symbolKeyer); ok {
		return k.SymbolKey(s)
	}
	return SymbolKey(s)
}

// Fallback records that n was emitted without a resolved symbol
func (ctx *Context) Fallback(n *Node) {
	ctx.fallbacks = append(ctx.fallbacks, unresolvedSymbol(n))
}

// Fallbacks returns the unresolved-symbol diagnostics recorded so far
func (ctx *Context) Fallbacks() []Diagnostic {
	return ctx.fallbacks
}

// TypeName renders t for the current backend and records the reference
func (ctx *Context) TypeName(t *Type, kind OwnershipKind) string {
	ctx.NoteType(t)
	return ctx.Types.TypeName(t, kind, TypeNameOptions{})
}

// NoteType records a reference to t. Values held inline need the full definition,
// references only a forward declaration.
func (ctx *Context) NoteType(t *Type) {
	if t == nil {
		return
	}
	ctx.Imports.Note(t, t.IsValueType())
}

// Capture emits into a fresh buffer and returns its text
func (ctx *Context) Capture(fn func() error) (string, error) {
	return ctx.Writer.Capture(fn)
}

// Ownership returns the ownership kind a value of t has in a position
func (ctx *Context) Ownership(t *Type, declaration bool, weak bool) OwnershipKind {
	return ctx.Types.Ownership(t, declaration, weak)
}

// CaptureInline captures text that continues the current line: the indentation of
// its first line is dropped, later lines keep the enclosing level
func (ctx *Context) CaptureInline(fn func() error) (string, error) {
	text, err := ctx.Writer.Capture(fn)
	if err != nil {
		return "", err
	}
	return strings.TrimLeft(text, " \t"), nil
}

// Temp mints a fresh temporary name with the backend's prefix
func (ctx *Context) Temp(hint string) string {
	prefix := ctx.Renderer.Dialect().TempPrefix
	if prefix == "" {
		prefix = "__"
	}
	return ctx.Names.Temp(prefix + hint)
}

// Require records a prologue line the unit needs
func (ctx *Context) Require(line string) {
	if ctx.requires == nil {
		ctx.requires = map[string]bool{}
	}
	ctx.requires[line] = true
}

// Requirements returns the recorded prologue lines in order
func (ctx *Context) Requirements() []string {
	out := make([]string, 0, len(ctx.requires))
	for line := range ctx.requires {
		out = append(out, line)
	}
	sort.Strings(out)
	return out
}
