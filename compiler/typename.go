package compiler

import (
	"strconv"
	"strings"
)

// OwnershipKind is the reference-management discipline of a rendered type
type OwnershipKind int

const (
	OwnershipValue OwnershipKind = iota
	OwnershipSharedDeclaration
	OwnershipSharedUsage
	OwnershipWeakDeclaration
	OwnershipWeakUsage
)

func (k OwnershipKind) String() string {
	switch k {
	case OwnershipSharedDeclaration:
		return "shared-decl"
	case OwnershipSharedUsage:
		return "shared-use"
	case OwnershipWeakDeclaration:
		return "weak-decl"
	case OwnershipWeakUsage:
		return "weak-use"
	}
	return "value"
}

// IsWeak reports whether k is one of the weak kinds
func (k OwnershipKind) IsWeak() bool {
	return k == OwnershipWeakDeclaration || k == OwnershipWeakUsage
}

// TypeNameOptions tune a single TypeName call
type TypeNameOptions struct {
	// Simple drops the namespace qualification
	Simple bool
	// NoTypeArguments drops the generic argument list
	NoTypeArguments bool
}

// TypeSyntax describes how one backend spells types
type TypeSyntax struct {
	// Indent is one level of indentation in generated code
	Indent string

	Primitives map[PrimitiveKind]string
	// BoxedPrimitives spell primitives used as generic arguments, when different
	BoxedPrimitives map[PrimitiveKind]string

	String  string
	Object  string
	Dynamic string
	Void    string

	NamespaceSeparator string
	// QualifyNames emits namespace-qualified names everywhere
	QualifyNames bool
	// NamespaceSegment rewrites each namespace segment (e.g. lower-casing)
	NamespaceSegment func(string) string

	GenericOpen  string
	GenericClose string

	// ArrayFormat formats a single-dimension array given the element type
	ArrayFormat func(elem string) string

	// Ownership wraps a reference type name for the non-value kinds.
	// A nil map marks a garbage-collected backend.
	Ownership map[OwnershipKind]func(name string) string

	// ArityOverloading reports whether the target can declare the same name at
	// several generic arities
	ArityOverloading bool

	// ExternalTypes maps definition keys of library types to target names
	ExternalTypes map[string]string

	// InterfaceFormat spells an interface held through a reference (e.g. dyn T)
	InterfaceFormat func(name string) string
}

// IsGarbageCollected reports whether the backend collapses the ownership axis
func (s *TypeSyntax) IsGarbageCollected() bool {
	return s.Ownership == nil
}

// TypeResolver renders semantic types for one backend
type TypeResolver struct {
	syntax *TypeSyntax
	index  *TypeIndex
}

// NewTypeResolver creates a resolver; index may be nil when no arity collision
// detection is wanted
func NewTypeResolver(syntax *TypeSyntax, index *TypeIndex) *TypeResolver {
	return &TypeResolver{syntax: syntax, index: index}
}

// Syntax returns the backend's type syntax
func (r *TypeResolver) Syntax() *TypeSyntax {
	return r.syntax
}

// Ownership returns the kind a value of t has at a declaration or usage position
func (r *TypeResolver) Ownership(t *Type, declaration, weak bool) OwnershipKind {
	if r.syntax.IsGarbageCollected() || t == nil || collapsesToValue(t) || !t.IsReferenceType() {
		return OwnershipValue
	}
	switch {
	case weak && declaration:
		return OwnershipWeakDeclaration
	case weak:
		return OwnershipWeakUsage
	case declaration:
		return OwnershipSharedDeclaration
	}
	return OwnershipSharedUsage
}

// declarationKind is the kind used for array elements and generic arguments
func (r *TypeResolver) declarationKind(t *Type) OwnershipKind {
	return r.Ownership(t, true, false)
}

func collapsesToValue(t *Type) bool {
	switch t.Kind {
	case TypeString, TypeDelegate, TypeDynamic, TypeParameter:
		return true
	}
	return t.IsValueType()
}

// TypeName renders t at ownership kind
func (r *TypeResolver) TypeName(t *Type, kind OwnershipKind, opts TypeNameOptions) string {
	s := r.syntax
	if t == nil {
		return s.Dynamic
	}
	switch t.Kind {
	case TypeArray:
		elem := r.TypeName(t.Elem, r.declarationKind(t.Elem), TypeNameOptions{})
		return r.own(s.ArrayFormat(elem), kind)
	case TypeDynamic:
		return s.Dynamic
	case TypeParameter:
		return t.Name
	case TypeVoid:
		return s.Void
	case TypePrimitive:
		return s.Primitives[t.Primitive]
	case TypeString:
		return s.String
	case TypeObject, TypeNull:
		return r.own(s.Object, kind)
	}

	name := r.baseName(t, opts.Simple)
	if !opts.NoTypeArguments && len(t.TypeArgs) > 0 {
		args := make([]string, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			args[i] = r.genericArgument(a)
		}
		name += s.GenericOpen + strings.Join(args, ", ") + s.GenericClose
	}
	if collapsesToValue(t) {
		return name
	}
	if t.Kind == TypeInterface && kind != OwnershipValue && s.InterfaceFormat != nil && s.Ownership != nil {
		name = s.InterfaceFormat(name)
	}
	return r.own(name, kind)
}

// genericArgument renders a type argument, always at declaration kind
func (r *TypeResolver) genericArgument(t *Type) string {
	if t.Kind == TypePrimitive {
		if boxed, ok := r.syntax.BoxedPrimitives[t.Primitive]; ok {
			return boxed
		}
	}
	return r.TypeName(t, r.declarationKind(t), TypeNameOptions{})
}

func (r *TypeResolver) own(name string, kind OwnershipKind) string {
	if kind == OwnershipValue || r.syntax.Ownership == nil {
		return name
	}
	if f, ok := r.syntax.Ownership[kind]; ok {
		return f(name)
	}
	return name
}

// baseName resolves the (namespace, name) pair of a named type
func (r *TypeResolver) baseName(t *Type, simple bool) string {
	s := r.syntax
	def := definitionOf(t)
	if target, ok := s.ExternalTypes[def.DefinitionKey()]; ok {
		if simple {
			if i := strings.LastIndex(target, s.NamespaceSeparator); i >= 0 {
				return target[i+len(s.NamespaceSeparator):]
			}
		}
		return target
	}

	namespace, name := def.Namespace, def.Name
	if def.Rename != "" {
		if i := strings.LastIndex(def.Rename, "."); i >= 0 {
			namespace, name = def.Rename[:i], def.Rename[i+1:]
		} else {
			name = def.Rename
		}
	}
	if def.Arity > 0 && !s.ArityOverloading && r.index.HasArityCollision(def) {
		name += strconv.Itoa(def.Arity)
	}
	if simple || !s.QualifyNames || namespace == "" {
		return name
	}
	return r.Namespace(namespace) + s.NamespaceSeparator + name
}

// Namespace renders a dotted source namespace in the backend's spelling
func (r *TypeResolver) Namespace(namespace string) string {
	if namespace == "" {
		return ""
	}
	segments := strings.Split(namespace, ".")
	if f := r.syntax.NamespaceSegment; f != nil {
		for i, seg := range segments {
			segments[i] = f(seg)
		}
	}
	return strings.Join(segments, r.syntax.NamespaceSeparator)
}

// DeclaredNamespace is the dotted source namespace t is declared in, after renames
func (r *TypeResolver) DeclaredNamespace(t *Type) string {
	def := definitionOf(t)
	if i := strings.LastIndex(def.Rename, "."); i >= 0 {
		return def.Rename[:i]
	}
	return def.Namespace
}

// FileName is the base name of the files declaring t. Backends overloading names by
// arity still keep colliding generic declarations in separate files.
func (r *TypeResolver) FileName(t *Type) string {
	name := r.DeclaredName(t)
	def := definitionOf(t)
	if def.Arity > 0 && r.syntax.ArityOverloading && r.index.HasArityCollision(def) {
		name += strconv.Itoa(def.Arity)
	}
	return name
}

// DeclaredName is the simple name a declaration introduces, arity suffix included
func (r *TypeResolver) DeclaredName(t *Type) string {
	return r.baseName(t, true)
}
