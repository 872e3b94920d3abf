package compiler

import "fmt"

// SymbolKind classifies a bound symbol
type SymbolKind int

const (
	SymbolUnknown SymbolKind = iota
	SymbolType
	SymbolMethod
	SymbolConstructor
	SymbolField
	SymbolProperty
	SymbolEvent
	SymbolOperator
	SymbolParameter
	SymbolLocal
	SymbolEnumValue
)

// Accessibility of a declaration
type Accessibility int

const (
	AccessPrivate Accessibility = iota
	AccessProtected
	AccessInternal
	AccessPublic
)

func (a Accessibility) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	case AccessInternal:
		return "internal"
	}
	return "private"
}

// RefKind is the by-reference passing mode of a parameter or argument
type RefKind int

const (
	RefNone RefKind = iota
	RefRef
	RefOut
	RefIn
)

// CallerInfo marks optional parameters filled from the calling context
type CallerInfo int

const (
	CallerInfoNone CallerInfo = iota
	CallerMemberName
	CallerFilePath
	CallerLineNumber
)

// Parameter is a formal parameter of a method, constructor or delegate
type Parameter struct {
	Name            string
	Type            *Type
	RefKind         RefKind
	IsParams        bool
	IsOptional      bool
	IsThis          bool      // receiver of an extension method
	Default         *Node     // default value expression from the declaration
	DefaultConstant *Constant // statically known literal default
	CallerInfo      CallerInfo
}

// Symbol is a declared entity the oracle binds nodes to
type Symbol struct {
	ID             string // unique identity, e.g. "System.String.Length"
	Kind           SymbolKind
	Name           string
	Container      *Type // declaring type
	Type           *Type // field/property/local type, method return type, type symbol's type
	Parameters     []*Parameter
	TypeParameters []string
	Accessibility  Accessibility
	IsStatic       bool
	IsExtension    bool
	IsVirtual      bool
	IsAbstract     bool
	IsOverride     bool
	IsWeak         bool // field holds a non-owning back reference
	IsReadOnly     bool
	Rename         string // explicit target-language name
}

// TargetName is the rename if set, else the source name
func (s *Symbol) TargetName() string {
	if s.Rename != "" {
		return s.Rename
	}
	return s.Name
}

// ParamsParameter returns the trailing variadic parameter, if any
func (s *Symbol) ParamsParameter() *Parameter {
	if len(s.Parameters) == 0 {
		return nil
	}
	last := s.Parameters[len(s.Parameters)-1]
	if last.IsParams {
		return last
	}
	return nil
}

// OperatorToken maps an operator method name to its source token
func (s *Symbol) OperatorToken() string {
	return operatorTokens[s.Name]
}

var operatorTokens = map[string]string{
	"op_Addition":           "+",
	"op_Subtraction":        "-",
	"op_Multiply":           "*",
	"op_Division":           "/",
	"op_Modulus":            "%",
	"op_Equality":           "==",
	"op_Inequality":         "!=",
	"op_LessThan":           "<",
	"op_GreaterThan":        ">",
	"op_LessThanOrEqual":    "<=",
	"op_GreaterThanOrEqual": ">=",
	"op_UnaryNegation":      "-",
	"op_LogicalNot":         "!",
	"op_BitwiseAnd":         "&",
	"op_BitwiseOr":          "|",
	"op_ExclusiveOr":        "^",
}

// ConstantKind classifies a folded literal
type ConstantKind int

const (
	ConstNull ConstantKind = iota
	ConstBool
	ConstInt
	ConstFloat
	ConstString
	ConstChar
)

// Constant is a compile-time value as folded by the oracle
type Constant struct {
	Kind ConstantKind
	Text string // source spelling of the value, unquoted for strings and chars
}

// Position is a source location
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File == "" && p.Line == 0 {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}
