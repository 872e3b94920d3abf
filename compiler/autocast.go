package compiler

import "strings"

// AutoCastMode tells the caller of an emission routine whether it still owes a
// conversion wrapper
type AutoCastMode int

const (
	// AutoCastDefault: compare static and converted type and wrap as needed
	AutoCastDefault AutoCastMode = iota
	// AutoCastAddParenthesis: correctly typed but an unparenthesized compound expression
	AutoCastAddParenthesis
	// AutoCastSkip: the text already has the converted type
	AutoCastSkip
)

func (m AutoCastMode) String() string {
	switch m {
	case AutoCastAddParenthesis:
		return "paren"
	case AutoCastSkip:
		return "skip"
	}
	return "default"
}

// Expression precedence levels; higher binds tighter
const (
	PrecLowest = iota
	PrecAssignment
	PrecConditional
	PrecCoalesce
	PrecLogicalOr
	PrecLogicalAnd
	PrecBitOr
	PrecBitXor
	PrecBitAnd
	PrecEquality
	PrecRelational
	PrecShift
	PrecAdditive
	PrecMultiplicative
	PrecCast
	PrecUnary
	PrecPostfix
	PrecPrimary
)

// PrecedenceTable maps binary operator tokens to their precedence
type PrecedenceTable map[string]int

// Of returns the precedence of a binary operator
func (p PrecedenceTable) Of(op string) int {
	if v, ok := p[op]; ok {
		return v
	}
	return PrecLowest
}

// CFamilyPrecedence is shared by C++, C#, Java and TypeScript
var CFamilyPrecedence = PrecedenceTable{
	"??": PrecCoalesce,
	"||": PrecLogicalOr,
	"&&": PrecLogicalAnd,
	"|":  PrecBitOr,
	"^":  PrecBitXor,
	"&":  PrecBitAnd,
	"==": PrecEquality, "!=": PrecEquality, "===": PrecEquality, "!==": PrecEquality,
	"<": PrecRelational, ">": PrecRelational, "<=": PrecRelational, ">=": PrecRelational,
	"<<": PrecShift, ">>": PrecShift, ">>>": PrecShift,
	"+": PrecAdditive, "-": PrecAdditive,
	"*": PrecMultiplicative, "/": PrecMultiplicative, "%": PrecMultiplicative,
}

// RustPrecedence ranks bitwise operators above comparisons
var RustPrecedence = PrecedenceTable{
	"||": PrecLogicalOr,
	"&&": PrecLogicalAnd,
	"==": PrecBitOr, "!=": PrecBitOr, "<": PrecBitOr, ">": PrecBitOr, "<=": PrecBitOr, ">=": PrecBitOr,
	"|":  PrecBitXor,
	"^":  PrecBitAnd,
	"&":  PrecEquality,
	"<<": PrecShift, ">>": PrecShift,
	"+": PrecAdditive, "-": PrecAdditive,
	"*": PrecMultiplicative, "/": PrecMultiplicative, "%": PrecMultiplicative,
}

// Rendered is the text of an expression plus what its consumer needs to compose it
type Rendered struct {
	Text string
	Mode AutoCastMode
	// Prec is the precedence of the outermost operator in Text
	Prec int
}

// Primary is an atom that never needs parentheses
func Primary(text string) Rendered {
	return Rendered{Text: text, Prec: PrecPrimary}
}

// Compound is an operator expression of precedence prec
func Compound(text string, prec int) Rendered {
	return Rendered{Text: text, Mode: AutoCastAddParenthesis, Prec: prec}
}

// Operand returns the text of r, parenthesized when it binds looser than min
func (r Rendered) Operand(min int) string {
	if r.Prec < min {
		return "(" + r.Text + ")"
	}
	return r.Text
}

// CastKind is the shape of an implicit conversion wrapper
type CastKind int

const (
	CastNone CastKind = iota
	CastBox
	CastNumeric
	CastUpcast
)

func (k CastKind) String() string {
	switch k {
	case CastBox:
		return "box"
	case CastNumeric:
		return "numeric"
	case CastUpcast:
		return "upcast"
	}
	return "none"
}

// DecideCast chooses the conversion wrapper a value of type static needs where
// converted is expected. The decision is the same for every backend.
func DecideCast(static, converted *Type) CastKind {
	if static == nil || converted == nil || static.Equal(converted) {
		return CastNone
	}
	switch {
	case converted.IsUntyped() && (static.Kind == TypePrimitive || static.Kind == TypeString):
		return CastBox
	case static.IsNumeric() && converted.IsNumeric():
		if isWidening(static.Primitive, converted.Primitive) {
			return CastNumeric
		}
		return CastNone
	case converted.IsEnumerable() && static.IsReferenceType():
		return CastNone
	case static.IsReferenceType() && static.Kind != TypeArray && !static.IsUntyped() && converted.IsReferenceType():
		return CastUpcast
	}
	return CastNone
}

// isWidening reports a conversion that never loses range
func isWidening(from, to PrimitiveKind) bool {
	switch {
	case from == to:
		return false
	case from.IsIntegral() && to.IsFloating():
		return true
	case from == PrimFloat32 && to == PrimFloat64:
		return true
	case from.IsIntegral() && to.IsIntegral():
		if to.bits() <= from.bits() {
			return false
		}
		return !to.isUnsigned() || from.isUnsigned()
	}
	return false
}

// CastForm is a backend's spelling of one conversion wrapper. Format may contain
// {expr}, {type} (the target at value kind) and {owned} (the target at declaration
// kind). An empty Format is the identity.
type CastForm struct {
	Format string
	// OperandPrec is the precedence the wrapped expression must have
	OperandPrec int
	// ResultPrec is the precedence of the produced text
	ResultPrec int
}

// CastSyntax is the per-backend table of conversion wrappers
type CastSyntax struct {
	Box     CastForm
	Numeric CastForm
	Upcast  CastForm
	// Explicit spells a source-level cast expression
	Explicit CastForm
	// Rejects names an implicit conversion the target cannot express, empty when
	// the conversion is supported
	Rejects func(kind CastKind, static, converted *Type) string
}

// Form returns the wrapper for a cast kind
func (s *CastSyntax) Form(k CastKind) CastForm {
	switch k {
	case CastBox:
		return s.Box
	case CastNumeric:
		return s.Numeric
	case CastUpcast:
		return s.Upcast
	}
	return CastForm{}
}

// AutoCaster applies cast decisions with one backend's syntax
type AutoCaster struct {
	syntax *CastSyntax
	types  *TypeResolver
}

// NewAutoCaster binds a cast syntax to a type resolver
func NewAutoCaster(syntax *CastSyntax, types *TypeResolver) *AutoCaster {
	return &AutoCaster{syntax: syntax, types: types}
}

// Apply wraps r so that it has type converted. With mode AutoCastSkip, or when
// static equals converted, r is returned unchanged.
func (c *AutoCaster) Apply(mode AutoCastMode, converted, static *Type, r Rendered) Rendered {
	if mode == AutoCastSkip {
		return r
	}
	kind := DecideCast(static, converted)
	if kind == CastNone {
		return r
	}
	return c.Wrap(c.syntax.Form(kind), converted, r)
}

// Rejected describes the implicit conversion Apply would perform when the backend
// cannot express it; the result is empty otherwise
func (c *AutoCaster) Rejected(mode AutoCastMode, converted, static *Type) string {
	if mode == AutoCastSkip || c.syntax.Rejects == nil {
		return ""
	}
	kind := DecideCast(static, converted)
	if kind == CastNone {
		return ""
	}
	return c.syntax.Rejects(kind, static, converted)
}

// Wrap applies a cast form targeting t
func (c *AutoCaster) Wrap(form CastForm, t *Type, r Rendered) Rendered {
	if form.Format == "" {
		return r
	}
	replacer := strings.NewReplacer(
		"{expr}", r.Operand(form.OperandPrec),
		"{type}", c.types.TypeName(t, OwnershipValue, TypeNameOptions{}),
		"{owned}", c.types.TypeName(t, c.types.declarationKind(t), TypeNameOptions{}),
	)
	return Rendered{Text: replacer.Replace(form.Format), Mode: AutoCastSkip, Prec: form.ResultPrec}
}

// Explicit renders a source-level cast of r to t
func (c *AutoCaster) Explicit(t *Type, r Rendered) Rendered {
	return c.Wrap(c.syntax.Explicit, t, r)
}
