package compiler

import (
	"strconv"
	"strings"
)

// TypeKind classifies a semantic type
type TypeKind int

const (
	TypeInvalid TypeKind = iota
	TypeVoid
	TypeNull
	TypePrimitive
	TypeString
	TypeObject  // the root reference type (System.Object)
	TypeDynamic // untyped / late-bound
	TypeClass
	TypeInterface
	TypeStruct
	TypeEnum
	TypeDelegate
	TypeArray
	TypeParameter
)

var typeKindNames = map[TypeKind]string{
	TypeInvalid:   "invalid",
	TypeVoid:      "void",
	TypeNull:      "null",
	TypePrimitive: "primitive",
	TypeString:    "string",
	TypeObject:    "object",
	TypeDynamic:   "dynamic",
	TypeClass:     "class",
	TypeInterface: "interface",
	TypeStruct:    "struct",
	TypeEnum:      "enum",
	TypeDelegate:  "delegate",
	TypeArray:     "array",
	TypeParameter: "typeparam",
}

func (k TypeKind) String() string {
	return typeKindNames[k]
}

// PrimitiveKind identifies a built-in value type
type PrimitiveKind int

const (
	PrimNone PrimitiveKind = iota
	PrimBool
	PrimChar
	PrimInt8
	PrimUInt8
	PrimInt16
	PrimUInt16
	PrimInt32
	PrimUInt32
	PrimInt64
	PrimUInt64
	PrimFloat32
	PrimFloat64
)

// primitiveNames maps source-language names to primitive kinds
var primitiveNames = map[string]PrimitiveKind{
	"System.Boolean": PrimBool,
	"System.Char":    PrimChar,
	"System.SByte":   PrimInt8,
	"System.Byte":    PrimUInt8,
	"System.Int16":   PrimInt16,
	"System.UInt16":  PrimUInt16,
	"System.Int32":   PrimInt32,
	"System.UInt32":  PrimUInt32,
	"System.Int64":   PrimInt64,
	"System.UInt64":  PrimUInt64,
	"System.Single":  PrimFloat32,
	"System.Double":  PrimFloat64,
}

// IsIntegral reports whether p is an integer kind (char included)
func (p PrimitiveKind) IsIntegral() bool {
	return p >= PrimChar && p <= PrimUInt64
}

// IsFloating reports whether p is a floating point kind
func (p PrimitiveKind) IsFloating() bool {
	return p == PrimFloat32 || p == PrimFloat64
}

// IsNumeric reports whether p takes part in numeric promotion
func (p PrimitiveKind) IsNumeric() bool {
	return p.IsIntegral() || p.IsFloating()
}

func (p PrimitiveKind) isUnsigned() bool {
	switch p {
	case PrimChar, PrimUInt8, PrimUInt16, PrimUInt32, PrimUInt64:
		return true
	}
	return false
}

// bits returns the storage width of an integral or floating kind
func (p PrimitiveKind) bits() int {
	switch p {
	case PrimInt8, PrimUInt8:
		return 8
	case PrimChar, PrimInt16, PrimUInt16:
		return 16
	case PrimInt32, PrimUInt32, PrimFloat32:
		return 32
	case PrimInt64, PrimUInt64, PrimFloat64:
		return 64
	}
	return 0
}

// Type is a resolved semantic type. Types are shared between units and never mutated
// once a compilation has been loaded.
type Type struct {
	Kind       TypeKind
	Primitive  PrimitiveKind
	Namespace  string
	Name       string
	TypeArgs   []*Type // instantiation arguments, or type parameters on a definition
	Elem       *Type   // array element type
	Base       *Type
	Interfaces []*Type
	Arity      int    // generic arity of the definition
	Rename     string // explicit target-language name, overrides Name
	Definition *Type  // open generic definition for instantiations
}

// Builtin types shared by every compilation
var (
	VoidType    = &Type{Kind: TypeVoid, Namespace: "System", Name: "Void"}
	NullType    = &Type{Kind: TypeNull, Name: "null"}
	ObjectType  = &Type{Kind: TypeObject, Namespace: "System", Name: "Object"}
	DynamicType = &Type{Kind: TypeDynamic, Name: "dynamic"}
	StringType  = &Type{Kind: TypeString, Namespace: "System", Name: "String", Base: ObjectType}

	BoolType    = primitive("Boolean", PrimBool)
	CharType    = primitive("Char", PrimChar)
	Int8Type    = primitive("SByte", PrimInt8)
	UInt8Type   = primitive("Byte", PrimUInt8)
	Int16Type   = primitive("Int16", PrimInt16)
	UInt16Type  = primitive("UInt16", PrimUInt16)
	Int32Type   = primitive("Int32", PrimInt32)
	UInt32Type  = primitive("UInt32", PrimUInt32)
	Int64Type   = primitive("Int64", PrimInt64)
	UInt64Type  = primitive("UInt64", PrimUInt64)
	Float32Type = primitive("Single", PrimFloat32)
	Float64Type = primitive("Double", PrimFloat64)

	// EnumerableType is the non-generic enumerable root; EnumerableOfType the generic one.
	EnumerableType   = &Type{Kind: TypeInterface, Namespace: "System.Collections", Name: "IEnumerable"}
	EnumerableOfType = &Type{Kind: TypeInterface, Namespace: "System.Collections.Generic", Name: "IEnumerable", Arity: 1,
		TypeArgs: []*Type{TypeParam("T")}, Interfaces: []*Type{EnumerableType}}
)

func primitive(name string, p PrimitiveKind) *Type {
	return &Type{Kind: TypePrimitive, Primitive: p, Namespace: "System", Name: name}
}

// builtinTypes lists every builtin by its qualified source name
var builtinTypes = map[string]*Type{
	"System.Void":    VoidType,
	"System.Object":  ObjectType,
	"System.String":  StringType,
	"dynamic":        DynamicType,
	"System.Boolean": BoolType,
	"System.Char":    CharType,
	"System.SByte":   Int8Type,
	"System.Byte":    UInt8Type,
	"System.Int16":   Int16Type,
	"System.UInt16":  UInt16Type,
	"System.Int32":   Int32Type,
	"System.UInt32":  UInt32Type,
	"System.Int64":   Int64Type,
	"System.UInt64":  UInt64Type,
	"System.Single":  Float32Type,
	"System.Double":  Float64Type,

	"System.Collections.IEnumerable":           EnumerableType,
	"System.Collections.Generic.IEnumerable`1": EnumerableOfType,
}

// ArrayOf returns the single-dimension array type of elem
func ArrayOf(elem *Type) *Type {
	return &Type{Kind: TypeArray, Elem: elem, Base: ObjectType}
}

// TypeParam returns a type parameter reference
func TypeParam(name string) *Type {
	return &Type{Kind: TypeParameter, Name: name}
}

// NamedType creates a named definition type
func NamedType(kind TypeKind, namespace, name string) *Type {
	return &Type{Kind: kind, Namespace: namespace, Name: name, Base: defaultBase(kind)}
}

func defaultBase(kind TypeKind) *Type {
	switch kind {
	case TypeClass, TypeDelegate:
		return ObjectType
	}
	return nil
}

// Instantiate closes a generic definition over args
func (t *Type) Instantiate(args ...*Type) *Type {
	def := t
	if t.Definition != nil {
		def = t.Definition
	}
	inst := *def
	inst.TypeArgs = args
	inst.Definition = def
	if len(def.TypeArgs) == len(args) {
		env := make(map[string]*Type, len(args))
		for i, p := range def.TypeArgs {
			if p.Kind == TypeParameter {
				env[p.Name] = args[i]
			}
		}
		inst.Base = substitute(def.Base, env)
		inst.Interfaces = make([]*Type, len(def.Interfaces))
		for i, it := range def.Interfaces {
			inst.Interfaces[i] = substitute(it, env)
		}
	}
	return &inst
}

// substitute replaces type parameters in t according to env
func substitute(t *Type, env map[string]*Type) *Type {
	if t == nil || len(env) == 0 {
		return t
	}
	switch {
	case t.Kind == TypeParameter:
		if r, ok := env[t.Name]; ok {
			return r
		}
		return t
	case t.Kind == TypeArray:
		return ArrayOf(substitute(t.Elem, env))
	case len(t.TypeArgs) > 0 && t.Definition != nil:
		args := make([]*Type, len(t.TypeArgs))
		for i, a := range t.TypeArgs {
			args[i] = substitute(a, env)
		}
		return t.Definition.Instantiate(args...)
	}
	return t
}

// QualifiedName is the namespace-qualified source name without type arguments
func (t *Type) QualifiedName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Key is the canonical identity of the type. Two types are the same type iff their
// keys are equal.
func (t *Type) Key() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeArray:
		return t.Elem.Key() + "[]"
	case TypeParameter:
		return "!" + t.Name
	}
	var sb strings.Builder
	sb.WriteString(t.QualifiedName())
	if len(t.TypeArgs) > 0 {
		sb.WriteString("<")
		for i, a := range t.TypeArgs {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(a.Key())
		}
		sb.WriteString(">")
	}
	return sb.String()
}

// DefinitionKey identifies the open generic definition (name plus arity)
func (t *Type) DefinitionKey() string {
	if t.Arity == 0 {
		return t.QualifiedName()
	}
	return t.QualifiedName() + "`" + strconv.Itoa(t.Arity)
}

func (t *Type) String() string {
	return t.Key()
}

// Equal reports whether both types denote the same type
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t == o || t.Key() == o.Key()
}

// IsValueType reports whether values of t are copied rather than referenced
func (t *Type) IsValueType() bool {
	switch t.Kind {
	case TypePrimitive, TypeStruct, TypeEnum:
		return true
	}
	return false
}

// IsReferenceType reports whether t is handled through references
func (t *Type) IsReferenceType() bool {
	switch t.Kind {
	case TypeClass, TypeInterface, TypeArray, TypeObject, TypeDelegate, TypeString, TypeDynamic:
		return true
	}
	return false
}

// IsNumeric reports whether t is a numeric primitive
func (t *Type) IsNumeric() bool {
	return t.Kind == TypePrimitive && t.Primitive.IsNumeric()
}

// IsUntyped reports whether t is the dynamic root or the object root
func (t *Type) IsUntyped() bool {
	return t.Kind == TypeObject || t.Kind == TypeDynamic
}

// IsEnumerable reports whether t is one of the enumerable interfaces
func (t *Type) IsEnumerable() bool {
	if t.Kind != TypeInterface || t.Name != "IEnumerable" {
		return false
	}
	return t.Namespace == "System.Collections" || t.Namespace == "System.Collections.Generic"
}

// Supertypes returns base classes and interfaces, nearest first, without duplicates
func (t *Type) Supertypes() []*Type {
	var result []*Type
	seen := map[string]bool{}
	var walk func(*Type)
	walk = func(c *Type) {
		if c == nil {
			return
		}
		for _, s := range append([]*Type{c.Base}, c.Interfaces...) {
			if s == nil || seen[s.Key()] {
				continue
			}
			seen[s.Key()] = true
			result = append(result, s)
		}
		walk(c.Base)
		for _, i := range c.Interfaces {
			walk(i)
		}
	}
	walk(t)
	return result
}

// AssignableTo reports whether a value of t is assignable to target without an
// explicit conversion (identity, reference widening, null, array covariance).
func (t *Type) AssignableTo(target *Type) bool {
	if t == nil || target == nil {
		return false
	}
	if t.Equal(target) {
		return true
	}
	if t.Kind == TypeNull {
		return target.IsReferenceType()
	}
	if target.IsUntyped() {
		return true
	}
	if t.Kind == TypeArray && target.Kind == TypeArray {
		return t.Elem.IsReferenceType() && t.Elem.AssignableTo(target.Elem)
	}
	if t.IsReferenceType() {
		for _, s := range t.Supertypes() {
			if s.Equal(target) {
				return true
			}
		}
	}
	return false
}
