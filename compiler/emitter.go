// Package compiler provides the generation engine of the phase translator.
package compiler

import (
	"path"
	"strings"
)

// ArtifactKind distinguishes the files a type produces
type ArtifactKind int

const (
	// ArtifactSource is the single file of a garbage-collected backend
	ArtifactSource ArtifactKind = iota
	// ArtifactDeclaration is the header of a declaration/definition split
	ArtifactDeclaration
	// ArtifactDefinition is the implementation of a declaration/definition split
	ArtifactDefinition
)

func (k ArtifactKind) String() string {
	switch k {
	case ArtifactDeclaration:
		return "declaration"
	case ArtifactDefinition:
		return "definition"
	}
	return "source"
}

// Artifact is one output file of a unit
type Artifact struct {
	Kind ArtifactKind
	Path string
}

// Dialect holds the tokens a backend spells differently from its siblings
type Dialect struct {
	Name string

	This string
	Base string
	Null string

	// InstanceSeparator joins a receiver and an instance member
	InstanceSeparator string
	// StaticSeparator joins a type and a static member
	StaticSeparator string

	// FloatSuffix is appended to single-precision literals
	FloatSuffix string
	// LongSuffix is appended to 64-bit integer literals
	LongSuffix string

	Types      *TypeSyntax
	Casts      *CastSyntax
	Precedence PrecedenceTable

	// Extensions per artifact kind
	Extensions map[ArtifactKind]string
	// PathSegment rewrites namespace directories and file names
	PathSegment func(segment string, file bool) string

	// MemberName rewrites source member names (e.g. to camelCase)
	MemberName func(string) string
	// Keywords are escaped when used as identifiers
	Keywords map[string]bool
	// EscapeKeyword spells a reserved word as an identifier
	EscapeKeyword func(string) string
	// LocalName rewrites locals and parameters (e.g. to snake_case)
	LocalName func(string) string

	// GenericCall appends explicit type arguments to a method name
	GenericCall func(name string, args []string) string
	// TempPrefix starts the names of engine-introduced temporaries
	TempPrefix string

	// OperatorTokens rewrites source operator tokens (e.g. == to ===)
	OperatorTokens map[string]string
	// NullCoalescing is set when the target has a native ?? operator
	NullCoalescing bool
	// NonAssociativeComparisons forbids chaining comparison operators unparenthesized
	NonAssociativeComparisons bool
	// NativeEvents is set when += and -= on events are target syntax
	NativeEvents bool
	// NativeIndexers is set when user-defined indexers keep the a[i] syntax
	NativeIndexers bool

	// BraceOnNewLine puts opening braces of blocks on their own line
	BraceOnNewLine bool
	// BareConditions drops the parentheses around if and while conditions
	BareConditions bool
	// Rethrow is the statement rethrowing the current exception, empty when the
	// caught variable must be thrown again
	Rethrow string
	// ForeachHead spells the head of a foreach loop
	ForeachHead func(typ, name, collection string) string
}

// Operator spells a source operator token
func (d *Dialect) Operator(op string) string {
	if t, ok := d.OperatorTokens[op]; ok {
		return t
	}
	return op
}

// ArtifactPath derives the path of t's artifact from its declared qualified name:
// renamed namespaces move the file and arity suffixes keep generic siblings apart
func (d *Dialect) ArtifactPath(types *TypeResolver, t *Type, kind ArtifactKind) string {
	var segments []string
	if ns := types.DeclaredNamespace(t); ns != "" {
		segments = strings.Split(ns, ".")
	}
	name := types.FileName(t)
	if d.PathSegment != nil {
		for i, s := range segments {
			segments[i] = d.PathSegment(s, false)
		}
		name = d.PathSegment(name, true)
	}
	segments = append(segments, name+d.Extensions[kind])
	return path.Join(segments...)
}

// Identifier spells a source identifier, escaping reserved words
func (d *Dialect) Identifier(name string) string {
	if d.Keywords[name] && d.EscapeKeyword != nil {
		return d.EscapeKeyword(name)
	}
	return name
}

// Member spells a member name
func (d *Dialect) Member(name string) string {
	if d.MemberName != nil {
		name = d.MemberName(name)
	}
	return d.Identifier(name)
}

// Renderer is the per-backend capability set. The dispatcher switches on node kinds
// and calls the matching method; backends embed BaseEmitter and override what
// their target spells differently.
type Renderer interface {
	Dialect() *Dialect
	Syntax() *TypeSyntax
	CastSyntax() *CastSyntax

	// Artifacts lists the files decl produces
	Artifacts(decl *TypeDecl, types *TypeResolver) []Artifact
	// EmitArtifact writes the complete text of ctx.Artifact
	EmitArtifact(ctx *Context) error

	EmitLiteral(ctx *Context, n *Node) (Rendered, error)
	EmitIdentifier(ctx *Context, n *Node) (Rendered, error)
	EmitMemberAccess(ctx *Context, n *Node) (Rendered, error)
	EmitInvocation(ctx *Context, n *Node) (Rendered, error)
	EmitObjectCreation(ctx *Context, n *Node) (Rendered, error)
	EmitArrayCreation(ctx *Context, n *Node) (Rendered, error)
	EmitBinary(ctx *Context, n *Node) (Rendered, error)
	EmitUnary(ctx *Context, n *Node) (Rendered, error)
	EmitAssignment(ctx *Context, n *Node) (Rendered, error)
	EmitCast(ctx *Context, n *Node) (Rendered, error)
	EmitConditional(ctx *Context, n *Node) (Rendered, error)
	EmitParenthesized(ctx *Context, n *Node) (Rendered, error)
	EmitThis(ctx *Context, n *Node) (Rendered, error)
	EmitBase(ctx *Context, n *Node) (Rendered, error)
	EmitElementAccess(ctx *Context, n *Node) (Rendered, error)
	EmitLambda(ctx *Context, n *Node) (Rendered, error)
	EmitIs(ctx *Context, n *Node) (Rendered, error)
	EmitAs(ctx *Context, n *Node) (Rendered, error)
	EmitDefault(ctx *Context, n *Node) (Rendered, error)
	EmitAnonymousObject(ctx *Context, n *Node) (Rendered, error)
	EmitTypeOf(ctx *Context, n *Node) (Rendered, error)

	EmitBlock(ctx *Context, n *Node) error
	EmitExpressionStatement(ctx *Context, n *Node) error
	EmitLocalDeclaration(ctx *Context, n *Node) error
	EmitReturn(ctx *Context, n *Node) error
	EmitIf(ctx *Context, n *Node) error
	EmitWhile(ctx *Context, n *Node) error
	EmitFor(ctx *Context, n *Node) error
	EmitForeach(ctx *Context, n *Node) error
	EmitBreak(ctx *Context, n *Node) error
	EmitContinue(ctx *Context, n *Node) error
	EmitThrow(ctx *Context, n *Node) error
	EmitTry(ctx *Context, n *Node) error
	EmitYield(ctx *Context, n *Node) error

	// Hooks used by shared emission routines

	// SymbolName spells the target name of a declared entity
	SymbolName(ctx *Context, sym *Symbol) string
	// Literal spells a constant
	Literal(ctx *Context, c Constant, t *Type) string
	// DefaultValue spells the zero value of t
	DefaultValue(ctx *Context, t *Type) string
	// PackParams builds the params container from already rendered elements
	PackParams(ctx *Context, elem *Type, items []string) string
	// RefArgument marks a by-reference argument
	RefArgument(ctx *Context, kind RefKind, arg *Node, text string) (string, error)
	// PropertyGet reads a property through its accessor
	PropertyGet(ctx *Context, receiver string, prop *Symbol) Rendered
	// PropertySet writes a property through its accessor; op is "=" or a compound
	// assignment operator
	PropertySet(ctx *Context, receiver string, prop *Symbol, op string, value Rendered) Rendered
	// FieldGet reads a field or event storage
	FieldGet(ctx *Context, receiver string, field *Symbol) Rendered
	// MethodGroup references a method as a delegate value
	MethodGroup(ctx *Context, receiver string, method *Symbol) (Rendered, error)
	// NewObject constructs an instance of t from rendered arguments; ctor is nil
	// when the constructor did not resolve
	NewObject(ctx *Context, t *Type, ctor *Symbol, args []string) Rendered
	// NewArray creates an array of elem with a size, or from items when literal is set
	NewArray(ctx *Context, elem *Type, size string, items []string, literal bool) Rendered
	// InitializeObject lowers an object creation with initializer elements
	InitializeObject(ctx *Context, n *Node, created Rendered, t *Type) (Rendered, error)
	// OperatorCall invokes a user-defined operator
	OperatorCall(ctx *Context, op *Symbol, operands []Rendered) Rendered
	// DelegateCall invokes a delegate value
	DelegateCall(ctx *Context, callee Rendered, args []string) Rendered
	// TypeReference spells t where a type is used as an expression (static access)
	TypeReference(ctx *Context, t *Type) string
	// Receiver spells a rendered receiver before an instance member
	Receiver(ctx *Context, target *Node, r Rendered) string
	// TemplateReceiver adapts a rendered receiver before it is bound to {this}
	TemplateReceiver(ctx *Context, target *Node, r Rendered) Rendered
}

// artifactsFor is the common artifact rule: one declaration and, for non-generic
// types, one definition on split backends; a single source file otherwise
func artifactsFor(d *Dialect, types *TypeResolver, decl *TypeDecl, split bool) []Artifact {
	if !split {
		return []Artifact{{Kind: ArtifactSource, Path: d.ArtifactPath(types, decl.Type, ArtifactSource)}}
	}
	out := []Artifact{{Kind: ArtifactDeclaration, Path: d.ArtifactPath(types, decl.Type, ArtifactDeclaration)}}
	if needsDefinition(decl) {
		out = append(out, Artifact{Kind: ArtifactDefinition, Path: d.ArtifactPath(types, decl.Type, ArtifactDefinition)})
	}
	return out
}

// needsDefinition reports whether a split backend emits an implementation file
func needsDefinition(decl *TypeDecl) bool {
	if decl.IsGeneric() {
		return false
	}
	switch decl.Type.Kind {
	case TypeClass, TypeStruct:
		return true
	}
	return false
}
