package compiler

// NodeKind is the discriminator of the typed-node union
type NodeKind int

const (
	NodeInvalid NodeKind = iota

	// Expressions
	NodeLiteral
	NodeIdentifier
	NodeMemberAccess
	NodeInvocation
	NodeObjectCreation
	NodeArrayCreation
	NodeBinary
	NodeUnary
	NodeAssignment
	NodeCast
	NodeConditional
	NodeParenthesized
	NodeThis
	NodeBase
	NodeElementAccess
	NodeLambda
	NodeIs
	NodeAs
	NodeDefault
	NodeAnonymousObject
	NodeTypeOf
	NodeInitializer // collection initializer element with several values, e.g. {k, v}

	// Statements
	NodeBlock
	NodeExpressionStatement
	NodeLocalDeclaration
	NodeReturn
	NodeIf
	NodeWhile
	NodeFor
	NodeForeach
	NodeBreak
	NodeContinue
	NodeThrow
	NodeTry
	NodeYield
)

var nodeKindNames = map[NodeKind]string{
	NodeInvalid:             "invalid",
	NodeLiteral:             "literal",
	NodeIdentifier:          "identifier",
	NodeMemberAccess:        "member",
	NodeInvocation:          "invocation",
	NodeObjectCreation:      "new",
	NodeArrayCreation:       "newarray",
	NodeBinary:              "binary",
	NodeUnary:               "unary",
	NodeAssignment:          "assign",
	NodeCast:                "cast",
	NodeConditional:         "conditional",
	NodeParenthesized:       "paren",
	NodeThis:                "this",
	NodeBase:                "base",
	NodeElementAccess:       "index",
	NodeLambda:              "lambda",
	NodeIs:                  "is",
	NodeAs:                  "as",
	NodeDefault:             "default",
	NodeAnonymousObject:     "anonymous",
	NodeTypeOf:              "typeof",
	NodeInitializer:         "initializer",
	NodeBlock:               "block",
	NodeExpressionStatement: "expr",
	NodeLocalDeclaration:    "local",
	NodeReturn:              "return",
	NodeIf:                  "if",
	NodeWhile:               "while",
	NodeFor:                 "for",
	NodeForeach:             "foreach",
	NodeBreak:               "break",
	NodeContinue:            "continue",
	NodeThrow:               "throw",
	NodeTry:                 "try",
	NodeYield:               "yield",
}

func (k NodeKind) String() string {
	if s, ok := nodeKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// NodeKindByName resolves the spelling used in compilation documents
func NodeKindByName(name string) (NodeKind, bool) {
	for k, s := range nodeKindNames {
		if s == name && k != NodeInvalid {
			return k, true
		}
	}
	return NodeInvalid, false
}

// IsStatement reports whether nodes of kind k are statements
func (k NodeKind) IsStatement() bool {
	return k >= NodeBlock
}

// Node is an immutable source-tree node. Semantic information (bound symbol, static and
// converted type, folded constant) is not stored here; it is queried from the
// SemanticOracle by node.
type Node struct {
	ID   int
	Kind NodeKind
	Pos  Position

	Name     string    // identifier, member name, declared local name, lambda-free label
	Operator string    // binary, unary and compound assignment operator tokens
	Postfix  bool      // unary operator written after its operand
	Literal  *Constant // literal value

	Target      *Node       // receiver, callee, operand, indexed collection
	Left        *Node       // binary/assignment left operand
	Right       *Node       // binary/assignment right operand
	Args        []*Argument // call, creation and element access arguments
	TypeRef     *Type       // cast, is/as, default, creation, local and foreach variable type
	TypeArgs    []*Type     // explicit generic method arguments
	Initializer []*Node     // object/collection initializer or array elements

	Cond       *Node // conditional expression, if, while, for
	Then       *Node // conditional expression true branch, if body
	Else       *Node // conditional expression false branch, else body
	Init       []*Node
	Post       []*Node
	Body       *Node   // loop, lambda and try bodies
	Statements []*Node // block contents
	Value      *Node   // return/throw/yield value, local initializer, expression statement, foreach collection

	Parameters []*Parameter // lambda parameters
	Catches    []*CatchClause
	Finally    *Node
}

// Argument is an actual argument at a call site
type Argument struct {
	Name    string // named argument, empty when positional
	Value   *Node
	RefKind RefKind
}

// CatchClause is one handler of a try statement
type CatchClause struct {
	Type *Type
	Name string
	Body *Node
}

// Children returns the direct child nodes in source order
func (n *Node) Children() []*Node {
	var out []*Node
	add := func(c ...*Node) {
		for _, x := range c {
			if x != nil {
				out = append(out, x)
			}
		}
	}
	add(n.Target, n.Left, n.Right)
	for _, a := range n.Args {
		add(a.Value)
	}
	add(n.Initializer...)
	add(n.Init...)
	add(n.Cond)
	add(n.Post...)
	add(n.Then, n.Else)
	add(n.Statements...)
	add(n.Value, n.Body)
	for _, c := range n.Catches {
		add(c.Body)
	}
	add(n.Finally)
	return out
}

// Walk visits n and its descendants depth-first; returning false skips children
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, visit)
	}
}

// MemberKind classifies a member declaration
type MemberKind int

const (
	MemberField MemberKind = iota
	MemberProperty
	MemberMethod
	MemberConstructor
	MemberEvent
	MemberOperator
)

// MemberDecl is a member of a type declaration
type MemberDecl struct {
	Kind        MemberKind
	Symbol      *Symbol
	Pos         Position
	Body        *Node // method, constructor and operator body; nil for abstract/interface members
	Getter      *Node // property get body; nil with Setter nil means an auto property
	Setter      *Node
	Initializer *Node // field and auto-property initial value
	Chain       *Node // constructor initializer, an invocation of a base or sibling constructor
}

// IsAutoProperty reports whether a property has compiler-provided storage
func (m *MemberDecl) IsAutoProperty() bool {
	return m.Kind == MemberProperty && m.Getter == nil && m.Setter == nil
}

// EnumMember is one named value of an enum declaration
type EnumMember struct {
	Name  string
	Value *Constant
}

// TypeDecl is a type declaration; one output unit is produced per TypeDecl
type TypeDecl struct {
	Type        *Type   // the definition type; Kind selects class/struct/interface/enum/delegate
	Symbol      *Symbol // type symbol, carries accessibility and rename
	Pos         Position
	Members     []*MemberDecl
	EnumMembers []EnumMember
	Invoke      *Symbol // delegate signature
}

// IsGeneric reports whether the declaration has type parameters
func (d *TypeDecl) IsGeneric() bool {
	return d.Type.Arity > 0
}

// TypeParameters returns the declared type parameter names
func (d *TypeDecl) TypeParameters() []string {
	names := make([]string, 0, len(d.Type.TypeArgs))
	for _, a := range d.Type.TypeArgs {
		names = append(names, a.Name)
	}
	return names
}
