package compiler

import (
	"strconv"
	"strings"
)

var rustPrimitives = map[PrimitiveKind]string{
	PrimBool:    "bool",
	PrimChar:    "u16", // UTF-16 code unit, not a Rust char
	PrimInt8:    "i8",
	PrimUInt8:   "u8",
	PrimInt16:   "i16",
	PrimUInt16:  "u16",
	PrimInt32:   "i32",
	PrimUInt32:  "u32",
	PrimInt64:   "i64",
	PrimUInt64:  "u64",
	PrimFloat32: "f32",
	PrimFloat64: "f64",
}

var rustExternalTypes = map[string]string{
	"System.Exception":                        "phase::Exception",
	"System.ArgumentException":                "phase::Exception",
	"System.InvalidOperationException":        "phase::Exception",
	"System.Collections.Generic.List`1":       "Vec",
	"System.Collections.Generic.Dictionary`2": "std::collections::HashMap",
	"System.Collections.Generic.HashSet`1":    "std::collections::HashSet",
}

var rustKeywords = keywordSet(`as break const continue crate else enum extern false fn for if impl in let
	loop match mod move mut pub ref return static struct super trait true type unsafe use where while
	async await dyn abstract become box do final macro override priv typeof unsized virtual yield try`)

// RustEmitter renders one module per type. Objects live in Rc<RefCell<T>>; methods
// take &mut self and are reached through borrow_mut.
type RustEmitter struct {
	BaseEmitter
}

// NewRustEmitter creates the Rust backend
func NewRustEmitter() *RustEmitter {
	return &RustEmitter{BaseEmitter{dialect: &Dialect{
		Name:              "rust",
		This:              "self",
		Base:              "self",
		Null:              "None",
		InstanceSeparator: ".",
		StaticSeparator:   "::",
		FloatSuffix:       "_f32",
		Types: &TypeSyntax{
			Indent:             "    ",
			Primitives:         rustPrimitives,
			String:             "String",
			Object:             "dyn std::any::Any",
			Dynamic:            "Rc<RefCell<dyn std::any::Any>>",
			Void:               "()",
			NamespaceSeparator: "::",
			GenericOpen:        "<",
			GenericClose:       ">",
			ArrayFormat:        func(elem string) string { return "Vec<" + elem + ">" },
			Ownership: map[OwnershipKind]func(string) string{
				OwnershipSharedDeclaration: func(n string) string { return "Rc<RefCell<" + n + ">>" },
				OwnershipSharedUsage:       func(n string) string { return "Rc<RefCell<" + n + ">>" },
				OwnershipWeakDeclaration:   func(n string) string { return "Weak<RefCell<" + n + ">>" },
				OwnershipWeakUsage:         func(n string) string { return "Rc<RefCell<" + n + ">>" },
			},
			ExternalTypes:   rustExternalTypes,
			InterfaceFormat: func(n string) string { return "dyn " + n },
		},
		Casts: &CastSyntax{
			Box:      CastForm{Format: "phase::boxed({expr})", OperandPrec: PrecLowest, ResultPrec: PrecPostfix},
			Numeric:  CastForm{Format: "{expr} as {type}", OperandPrec: PrecUnary, ResultPrec: PrecCast},
			Upcast:   CastForm{Format: "{expr} as {owned}", OperandPrec: PrecUnary, ResultPrec: PrecCast},
			Explicit: CastForm{Format: "{expr} as {type}", OperandPrec: PrecUnary, ResultPrec: PrecCast},
			Rejects:  rustRejectsCast,
		},
		Precedence:                RustPrecedence,
		Extensions:                map[ArtifactKind]string{ArtifactSource: ".rs"},
		PathSegment:               func(s string, file bool) string { return snakeCase(s) },
		MemberName:                snakeCase,
		LocalName:                 snakeCase,
		Keywords:                  rustKeywords,
		EscapeKeyword:             func(s string) string { return "r#" + s },
		GenericCall:               func(name string, args []string) string { return name + "::<" + strings.Join(args, ", ") + ">" },
		TempPrefix:                "__",
		NonAssociativeComparisons: true,
		BareConditions:            true,
	}}}
}

func (re *RustEmitter) Artifacts(decl *TypeDecl, types *TypeResolver) []Artifact {
	return artifactsFor(re.dialect, types, decl, false)
}

// rustRejectsCast refuses upcasts between classes: only trait objects coerce
func rustRejectsCast(kind CastKind, static, converted *Type) string {
	if kind != CastUpcast || converted.Kind != TypeClass {
		return ""
	}
	if target, ok := rustExternalTypes[definitionOf(converted).DefinitionKey()]; ok && target == rustExternalTypes[definitionOf(static).DefinitionKey()] {
		return ""
	}
	return "upcast from " + static.Name + " to class " + converted.Name
}

// isCopy reports whether values of t are copied implicitly
func isCopy(t *Type) bool {
	return t != nil && (t.Kind == TypePrimitive || t.Kind == TypeEnum)
}

// turbofish turns a type name into its expression form, Vec<i32> into Vec::<i32>
func turbofish(name string) string {
	if i := strings.Index(name, "<"); i >= 0 {
		return name[:i] + "::" + name[i:]
	}
	return name
}

// place drops the clone of a value that is only borrowed
func place(text string) string {
	return strings.TrimSuffix(text, ".clone()")
}

func (re *RustEmitter) SymbolName(ctx *Context, sym *Symbol) string {
	if sym.Rename != "" {
		return sym.Rename
	}
	switch sym.Kind {
	case SymbolMethod:
		return re.dialect.Member(sym.Name) + overloadSuffix(ctx, sym)
	case SymbolConstructor:
		return "new" + overloadSuffix(ctx, sym)
	case SymbolOperator:
		return sym.Name
	}
	return re.BaseEmitter.SymbolName(ctx, sym)
}

func (re *RustEmitter) Literal(ctx *Context, c Constant, t *Type) string {
	switch c.Kind {
	case ConstString:
		return "String::from(" + strconv.Quote(c.Text) + ")"
	case ConstChar:
		return "(" + re.BaseEmitter.Literal(ctx, c, t) + " as u16)"
	}
	return re.BaseEmitter.Literal(ctx, c, t)
}

func (re *RustEmitter) EmitLiteral(ctx *Context, n *Node) (Rendered, error) {
	c, ok := ctx.Oracle.ResolveConstant(n)
	if !ok && n.Literal != nil {
		c, ok = *n.Literal, true
	}
	if ok && c.Kind == ConstNull {
		return Rendered{}, unsupported(re.dialect.Name, n, "null")
	}
	return re.BaseEmitter.EmitLiteral(ctx, n)
}

func (re *RustEmitter) DefaultValue(ctx *Context, t *Type) string {
	if t == nil {
		return "Default::default()"
	}
	switch t.Kind {
	case TypePrimitive:
		switch {
		case t.Primitive == PrimBool:
			return "false"
		case t.Primitive.IsFloating():
			return "0.0"
		}
		return "0"
	case TypeString:
		return "String::new()"
	case TypeArray:
		return "Rc::new(RefCell::new(Vec::new()))"
	}
	return "Default::default()"
}

// EmitIdentifier clones locals that are not copied implicitly
func (re *RustEmitter) EmitIdentifier(ctx *Context, n *Node) (Rendered, error) {
	r, err := re.BaseEmitter.EmitIdentifier(ctx, n)
	if err != nil {
		return r, err
	}
	sym := ctx.Symbol(n)
	if sym != nil && (sym.Kind == SymbolLocal || sym.Kind == SymbolParameter) && !ctx.Mutating && !isCopy(sym.Type) {
		return Rendered{Text: r.Text + ".clone()", Prec: PrecPostfix}, nil
	}
	return r, nil
}

func (re *RustEmitter) EmitThis(ctx *Context, n *Node) (Rendered, error) {
	return Rendered{}, unsupported(re.dialect.Name, n, "this as a value")
}

func (re *RustEmitter) EmitBase(ctx *Context, n *Node) (Rendered, error) {
	return Rendered{}, unsupported(re.dialect.Name, n, "base access")
}

// TemplateReceiver borrows the receiver instead of cloning it
func (re *RustEmitter) TemplateReceiver(ctx *Context, target *Node, r Rendered) Rendered {
	if text := place(r.Text); text != r.Text {
		return Rendered{Text: text, Mode: r.Mode, Prec: PrecPostfix}
	}
	return r
}

// Receiver borrows shared objects, mutably for calls and writes
func (re *RustEmitter) Receiver(ctx *Context, target *Node, r Rendered) string {
	if target == nil || target.Kind == NodeThis || target.Kind == NodeBase {
		return "self."
	}
	text := place(r.Operand(PrecPostfix))
	t := ctx.TypeOf(target)
	switch {
	case t != nil && (t.IsValueType() || t.Kind == TypeString):
		return text + "."
	case t == nil || ctx.receiverCall || ctx.Mutating:
		return text + ".borrow_mut()."
	}
	return text + ".borrow()."
}

func rustGetterName(prop *Symbol) string {
	return "get_" + snakeCase(prop.TargetName())
}

func rustSetterName(prop *Symbol) string {
	return "set_" + snakeCase(prop.TargetName())
}

func (re *RustEmitter) PropertyGet(ctx *Context, receiver string, prop *Symbol) Rendered {
	return accessorGet(receiver, rustGetterName(prop))
}

func (re *RustEmitter) PropertySet(ctx *Context, receiver string, prop *Symbol, op string, value Rendered) Rendered {
	return accessorSet(ctx, receiver, prop, op, value, rustGetterName(prop), rustSetterName(prop))
}

// FieldGet upgrades weak references and clones values that are not Copy
func (re *RustEmitter) FieldGet(ctx *Context, receiver string, field *Symbol) Rendered {
	text := receiver + re.SymbolName(ctx, field)
	switch {
	case ctx.Mutating:
	case field.IsWeak:
		text += ".upgrade().unwrap()"
	case !isCopy(field.Type):
		text += ".clone()"
	}
	return Rendered{Text: text, Prec: PrecPostfix}
}

func (re *RustEmitter) MethodGroup(ctx *Context, receiver string, method *Symbol) (Rendered, error) {
	if !method.IsStatic {
		return Rendered{}, unsupported(re.dialect.Name, nil, "instance method group "+method.Name)
	}
	params := make([]string, len(method.Parameters))
	for i := range method.Parameters {
		params[i] = "a" + strconv.Itoa(i)
	}
	args := strings.Join(params, ", ")
	return Rendered{
		Text: "Rc::new(|" + args + "| " + receiver + re.SymbolName(ctx, method) + "(" + args + "))",
		Prec: PrecPostfix,
	}, nil
}

func (re *RustEmitter) RefArgument(ctx *Context, kind RefKind, arg *Node, text string) (string, error) {
	return "", unsupported(re.dialect.Name, arg, "by-reference argument")
}

func (re *RustEmitter) DelegateCall(ctx *Context, callee Rendered, args []string) Rendered {
	return Rendered{Text: "(" + callee.Text + ")(" + strings.Join(args, ", ") + ")", Prec: PrecPostfix}
}

func (re *RustEmitter) OperatorCall(ctx *Context, op *Symbol, operands []Rendered) Rendered {
	return staticOperatorCall(ctx, op, operands)
}

func (re *RustEmitter) NewObject(ctx *Context, t *Type, ctor *Symbol, args []string) Rendered {
	ctx.Imports.Note(t, true)
	name := "new"
	if ctor != nil && ctor.Kind == SymbolConstructor {
		name = re.SymbolName(ctx, ctor)
	}
	typ := turbofish(ctx.Types.TypeName(t, OwnershipValue, TypeNameOptions{}))
	return Rendered{Text: typ + "::" + name + "(" + strings.Join(args, ", ") + ")", Prec: PrecPostfix}
}

func (re *RustEmitter) NewArray(ctx *Context, elem *Type, size string, items []string, literal bool) Rendered {
	ctx.Imports.Note(elem, true)
	if literal {
		return Rendered{Text: "Rc::new(RefCell::new(vec![" + strings.Join(items, ", ") + "]))", Prec: PrecPostfix}
	}
	return Rendered{
		Text: "Rc::new(RefCell::new(vec![" + re.DefaultValue(ctx, elem) + "; (" + size + ") as usize]))",
		Prec: PrecPostfix,
	}
}

// InitializeObject fills a temporary inside a block expression
func (re *RustEmitter) InitializeObject(ctx *Context, n *Node, created Rendered, t *Type) (Rendered, error) {
	if t.IsValueType() {
		return Rendered{}, unsupported(re.dialect.Name, n, "initializer of a value type")
	}
	tmp := ctx.Temp("init")
	stmts, err := re.initializerStatements(ctx, tmp, n)
	if err != nil {
		return Rendered{}, err
	}
	text, err := iife(ctx, "{", "let "+tmp+" = "+created.Text+";", stmts, tmp, "}")
	if err != nil {
		return Rendered{}, err
	}
	return Primary(text), nil
}

// concatenation flattens a chain of string concatenations into its operands
func (re *RustEmitter) concatenation(ctx *Context, n *Node) []*Node {
	if n.Kind == NodeBinary && n.Operator == "+" && userOperator(ctx, n) == nil &&
		(isString(ctx.TypeOf(n.Left)) || isString(ctx.TypeOf(n.Right))) {
		return append(re.concatenation(ctx, n.Left), re.concatenation(ctx, n.Right)...)
	}
	return []*Node{n}
}

// format renders string concatenation through format!, folding literal parts
// into the format string
func (re *RustEmitter) format(ctx *Context, n *Node) (Rendered, error) {
	var pattern strings.Builder
	var args []string
	for _, part := range re.concatenation(ctx, n) {
		if c, ok := ctx.Oracle.ResolveConstant(part); ok && c.Kind == ConstString {
			quoted := strconv.Quote(c.Text)
			text := quoted[1 : len(quoted)-1]
			text = strings.ReplaceAll(strings.ReplaceAll(text, "{", "{{"), "}", "}}")
			pattern.WriteString(text)
			continue
		}
		r, err := ctx.Expr(part)
		if err != nil {
			return Rendered{}, err
		}
		text := r.Text
		if t := ctx.TypeOf(part); t != nil && t.Kind == TypePrimitive && t.Primitive == PrimChar {
			text = "phase::char_str(" + text + ")"
		}
		pattern.WriteString("{}")
		args = append(args, text)
	}
	text := "format!(\"" + pattern.String() + "\""
	for _, a := range args {
		text += ", " + a
	}
	return Rendered{Text: text + ")", Prec: PrecPostfix}, nil
}

// isShared reports whether t is held through Rc
func isShared(t *Type) bool {
	return t != nil && (t.Kind == TypeClass || t.Kind == TypeInterface || t.Kind == TypeArray)
}

func (re *RustEmitter) EmitBinary(ctx *Context, n *Node) (Rendered, error) {
	if userOperator(ctx, n) != nil {
		return re.BaseEmitter.EmitBinary(ctx, n)
	}
	switch n.Operator {
	case "+":
		if isString(ctx.TypeOf(n.Left)) || isString(ctx.TypeOf(n.Right)) {
			return re.format(ctx, n)
		}
	case "==", "!=":
		if isShared(ctx.TypeOf(n.Left)) && isShared(ctx.TypeOf(n.Right)) {
			left, err := ctx.Expr(n.Left)
			if err != nil {
				return Rendered{}, err
			}
			right, err := ctx.Expr(n.Right)
			if err != nil {
				return Rendered{}, err
			}
			text := "Rc::ptr_eq(&" + place(left.Operand(PrecUnary)) + ", &" + place(right.Operand(PrecUnary)) + ")"
			if n.Operator == "!=" {
				return Compound("!"+text, PrecUnary), nil
			}
			return Rendered{Text: text, Prec: PrecPostfix}, nil
		}
	}
	return re.BaseEmitter.EmitBinary(ctx, n)
}

// EmitUnary lowers increments, which only exist as statements
func (re *RustEmitter) EmitUnary(ctx *Context, n *Node) (Rendered, error) {
	if userOperator(ctx, n) != nil {
		return re.BaseEmitter.EmitUnary(ctx, n)
	}
	switch n.Operator {
	case "++", "--":
		if ctx.statementExpr != n {
			return Rendered{}, unsupported(re.dialect.Name, n, "increment inside an expression")
		}
		ctx.Mutating = true
		target, err := ctx.Expr(n.Target)
		ctx.Mutating = false
		if err != nil {
			return Rendered{}, err
		}
		return Compound(target.Text+" "+n.Operator[:1]+"= 1", PrecAssignment), nil
	case "~":
		operand, err := ctx.Expr(n.Target)
		if err != nil {
			return Rendered{}, err
		}
		return Compound("!"+operand.Operand(PrecUnary), PrecUnary), nil
	}
	return re.BaseEmitter.EmitUnary(ctx, n)
}

func (re *RustEmitter) EmitAssignment(ctx *Context, n *Node) (Rendered, error) {
	sym := ctx.Symbol(n.Left)
	op := n.Operator
	if op == "" {
		op = "="
	}
	weak := sym != nil && sym.Kind == SymbolField && sym.IsWeak && op == "="
	push := op == "+=" && isString(ctx.TypeOf(n.Left)) && (sym == nil || sym.Kind != SymbolProperty)
	if !weak && !push {
		return re.BaseEmitter.EmitAssignment(ctx, n)
	}
	value, err := ctx.Expr(n.Right)
	if err != nil {
		return Rendered{}, err
	}
	ctx.Mutating = true
	target, err := ctx.Expr(n.Left)
	ctx.Mutating = false
	if err != nil {
		return Rendered{}, err
	}
	if weak {
		return Compound(target.Text+" = Rc::downgrade(&"+place(value.Operand(PrecUnary))+")", PrecAssignment), nil
	}
	return Rendered{Text: target.Operand(PrecPostfix) + ".push_str(&" + value.Operand(PrecUnary) + ")", Prec: PrecPostfix, Mode: AutoCastSkip}, nil
}

func (re *RustEmitter) EmitCast(ctx *Context, n *Node) (Rendered, error) {
	operand, err := ctx.Expr(n.Target)
	if err != nil {
		return Rendered{}, err
	}
	t := n.TypeRef
	from := ctx.TypeOf(n.Target)
	ctx.Imports.Note(t, true)
	switch {
	case from != nil && from.IsUntyped() && !t.IsUntyped():
		name := ctx.Types.TypeName(t, ctx.Ownership(t, true, false), TypeNameOptions{})
		return Rendered{Text: "phase::unboxed::<" + name + ">(&" + place(operand.Text) + ")", Prec: PrecPostfix, Mode: AutoCastSkip}, nil
	case t.Kind == TypeEnum && from != nil && from.Kind == TypePrimitive:
		return Rendered{}, unsupported(re.dialect.Name, n, "integer to enum conversion")
	case t.Kind == TypeString || t.Kind == TypeDelegate:
		return operand, nil
	case t.IsReferenceType():
		if from == nil || !from.AssignableTo(t) {
			return Rendered{}, unsupported(re.dialect.Name, n, "downcast to "+t.Name)
		}
		if what := rustRejectsCast(CastUpcast, from, t); what != "" && !from.Equal(t) {
			return Rendered{}, unsupported(re.dialect.Name, n, what)
		}
		return ctx.Casts.Wrap(re.dialect.Casts.Upcast, t, operand), nil
	}
	return ctx.Casts.Explicit(t, operand), nil
}

func (re *RustEmitter) EmitConditional(ctx *Context, n *Node) (Rendered, error) {
	cond, err := ctx.Expr(n.Cond)
	if err != nil {
		return Rendered{}, err
	}
	then, err := ctx.Expr(n.Then)
	if err != nil {
		return Rendered{}, err
	}
	els, err := ctx.Expr(n.Else)
	if err != nil {
		return Rendered{}, err
	}
	return Compound("if "+cond.Text+" { "+then.Text+" } else { "+els.Text+" }", PrecAssignment), nil
}

func (re *RustEmitter) EmitElementAccess(ctx *Context, n *Node) (Rendered, error) {
	t := ctx.TypeOf(n.Target)
	if t == nil || (t.Kind != TypeArray && t.Kind != TypeString) || len(n.Args) != 1 {
		return re.BaseEmitter.EmitElementAccess(ctx, n)
	}
	mutating := ctx.Mutating
	ctx.Mutating = false
	index, err := ctx.Expr(n.Args[0].Value)
	ctx.Mutating = mutating
	if err != nil {
		return Rendered{}, err
	}
	target, err := ctx.Expr(n.Target)
	if err != nil {
		return Rendered{}, err
	}
	at := index.Operand(PrecUnary) + " as usize"
	recv := place(target.Operand(PrecPostfix))
	if t.Kind == TypeString {
		return Rendered{Text: recv + ".encode_utf16().nth(" + at + ").unwrap()", Prec: PrecPostfix}, nil
	}
	borrow := ".borrow()"
	if mutating {
		borrow = ".borrow_mut()"
	}
	text := recv + borrow + "[" + at + "]"
	if !mutating && !isCopy(t.Elem) {
		text += ".clone()"
	}
	return Rendered{Text: text, Prec: PrecPostfix}, nil
}

func (re *RustEmitter) EmitLambda(ctx *Context, n *Node) (Rendered, error) {
	params := re.lambdaParameters(ctx, n, func(typ, name string) string {
		if typ == "" {
			return name
		}
		return name + ": " + typ
	})
	body, _, err := re.lambdaBody(ctx, n)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Text: "Rc::new(move |" + strings.Join(params, ", ") + "| " + body + ")", Prec: PrecPostfix, Mode: AutoCastSkip}, nil
}

func (re *RustEmitter) EmitIs(ctx *Context, n *Node) (Rendered, error) {
	return Rendered{}, unsupported(re.dialect.Name, n, "type test")
}

func (re *RustEmitter) EmitAs(ctx *Context, n *Node) (Rendered, error) {
	return Rendered{}, unsupported(re.dialect.Name, n, "as conversion")
}

func (re *RustEmitter) EmitLocalDeclaration(ctx *Context, n *Node) error {
	name, t := re.localDeclaration(ctx, n)
	text := "let mut " + name
	if t != nil {
		text += ": " + ctx.TypeName(t, ctx.Ownership(t, true, false))
	}
	if n.Value != nil {
		v, err := ctx.Expr(n.Value)
		if err != nil {
			return err
		}
		text += " = " + v.Text
	}
	ctx.Writer.Write(text + ";")
	return nil
}

// statement emits a for-loop clause, which may be a bare expression
func (re *RustEmitter) statement(ctx *Context, n *Node) error {
	if n.Kind.IsStatement() {
		return ctx.Stmt(n)
	}
	return ctx.Stmt(&Node{Kind: NodeExpressionStatement, Pos: n.Pos, Value: n})
}

// EmitFor lowers the loop to a while loop inside its own scope
func (re *RustEmitter) EmitFor(ctx *Context, n *Node) error {
	if containsContinue(n.Body) {
		return unsupported(re.dialect.Name, n, "continue inside a for loop")
	}
	openBlock(ctx, "")
	for _, s := range n.Init {
		if err := re.statement(ctx, s); err != nil {
			return err
		}
	}
	cond := "true"
	if n.Cond != nil {
		var err error
		if cond, err = condition(ctx, n.Cond); err != nil {
			return err
		}
	}
	openBlock(ctx, "while "+cond)
	if err := body(ctx, n.Body); err != nil {
		return err
	}
	for _, s := range n.Post {
		if err := re.statement(ctx, s); err != nil {
			return err
		}
	}
	closeBlock(ctx)
	ctx.Writer.EndLine()
	closeBlock(ctx)
	return nil
}

func (re *RustEmitter) EmitForeach(ctx *Context, n *Node) error {
	name, _ := re.localDeclaration(ctx, n)
	coll, err := ctx.Expr(n.Value)
	if err != nil {
		return err
	}
	recv := place(coll.Operand(PrecPostfix))
	iter := recv + ".borrow().iter().cloned()"
	if isString(ctx.TypeOf(n.Value)) {
		iter = recv + ".encode_utf16()"
	}
	openBlock(ctx, "for "+name+" in "+iter)
	if err := body(ctx, n.Body); err != nil {
		return err
	}
	closeBlock(ctx)
	return nil
}

// EmitThrow unwinds with the exception through the runtime's throw
func (re *RustEmitter) EmitThrow(ctx *Context, n *Node) error {
	if n.Value == nil {
		return unsupported(re.dialect.Name, n, "rethrow")
	}
	v, err := ctx.Expr(n.Value)
	if err != nil {
		return err
	}
	ctx.Writer.Write("phase::throw(" + v.Text + ");")
	return nil
}

func (re *RustEmitter) EmitTry(ctx *Context, n *Node) error {
	return unsupported(re.dialect.Name, n, "try statement")
}

func (re *RustEmitter) EmitArtifact(ctx *Context) error {
	decl := ctx.Decl
	w := ctx.Writer
	return writeUnit(ctx, func() error {
		return re.declareType(ctx, decl)
	}, func() error {
		w.WriteLine("#![allow(non_snake_case, unused_imports, unused_mut, dead_code)]")
		w.BlankLine()
		w.WriteLine("use std::cell::RefCell;")
		w.WriteLine("use std::rc::{Rc, Weak};")
		var uses []string
		for _, e := range ctx.Imports.Entries() {
			if _, external := rustExternalTypes[e.Type.DefinitionKey()]; external {
				continue
			}
			module := strings.TrimSuffix(re.dialect.ArtifactPath(ctx.Types, e.Type, ArtifactSource), ".rs")
			uses = append(uses, "use crate::"+strings.ReplaceAll(module, "/", "::")+"::"+ctx.Types.DeclaredName(e.Type)+";")
		}
		uses = append(uses, ctx.Requirements()...)
		if len(uses) > 0 {
			w.BlankLine()
		}
		for _, u := range uses {
			w.WriteLine(u)
		}
		w.BlankLine()
		return nil
	})
}

// genericBounds renders the impl parameter list of a generic declaration
func genericBounds(decl *TypeDecl) string {
	if !decl.IsGeneric() {
		return ""
	}
	params := decl.TypeParameters()
	for i, p := range params {
		params[i] = p + ": Clone + Default + 'static"
	}
	return "<" + strings.Join(params, ", ") + ">"
}

func (re *RustEmitter) visibility(sym *Symbol) string {
	if sym == nil || sym.Accessibility == AccessPublic || sym.Accessibility == AccessInternal {
		return "pub "
	}
	return ""
}

func (re *RustEmitter) parameters(ctx *Context, sym *Symbol, receiver bool) (string, error) {
	params, err := formalParameters(ctx, sym.Parameters, func(p *Parameter, typ, name string) (string, error) {
		if p.RefKind != RefNone {
			return "", unsupported(re.dialect.Name, nil, "by-reference parameter "+p.Name+" of "+sym.Name)
		}
		return "mut " + name + ": " + typ, nil
	})
	if err != nil || !receiver {
		return params, err
	}
	if params == "" {
		return "&mut self", nil
	}
	return "&mut self, " + params, nil
}

// signature renders the fn head of a method-like symbol
func (re *RustEmitter) signature(ctx *Context, sym *Symbol, name string, pub bool) (string, error) {
	params, err := re.parameters(ctx, sym, !sym.IsStatic && sym.Kind != SymbolOperator)
	if err != nil {
		return "", err
	}
	head := "fn " + name
	if len(sym.TypeParameters) > 0 {
		bounds := make([]string, len(sym.TypeParameters))
		for i, p := range sym.TypeParameters {
			bounds[i] = p + ": Clone + Default + 'static"
		}
		head += "<" + strings.Join(bounds, ", ") + ">"
	}
	head += "(" + params + ")"
	if sym.Type != nil && sym.Type.Kind != TypeVoid {
		head += " -> " + returnType(ctx, sym)
	}
	if pub {
		head = re.visibility(sym) + head
	}
	return head, nil
}

func (re *RustEmitter) declareType(ctx *Context, decl *TypeDecl) error {
	w := ctx.Writer
	name := ctx.Types.DeclaredName(decl.Type)
	params := typeParameterList(ctx, decl)
	vis := re.visibility(decl.Symbol)

	switch decl.Type.Kind {
	case TypeEnum:
		w.WriteLine("#[derive(Clone, Copy, PartialEq, Eq, Debug, Default)]")
		openBlock(ctx, vis+"enum "+name)
		next := 0
		for i, m := range decl.EnumMembers {
			value := enumValue(m.Value, next)
			next = parseIntOr(value, next) + 1
			if i == 0 {
				w.WriteLine("#[default]")
			}
			w.WriteLine(m.Name + " = " + value + ",")
		}
		closeBlock(ctx)
		w.EndLine()
		return nil
	case TypeDelegate:
		inv := decl.Invoke
		types := make([]string, len(inv.Parameters))
		for i, p := range inv.Parameters {
			types[i] = ctx.TypeName(p.Type, ctx.Ownership(p.Type, false, false))
		}
		fn := "dyn Fn(" + strings.Join(types, ", ") + ")"
		if inv.Type != nil && inv.Type.Kind != TypeVoid {
			fn += " -> " + returnType(ctx, inv)
		}
		w.WriteLine(vis + "type " + name + params + " = Rc<" + fn + ">;")
		return nil
	case TypeInterface:
		return re.declareTrait(ctx, decl, vis+"trait "+name+params)
	}

	if base, _ := supertypes(decl); base != nil {
		return unsupported(re.dialect.Name, &Node{Pos: decl.Pos}, "class inheritance")
	}
	if what, ok := re.unsupportedMember(decl); ok {
		return unsupported(re.dialect.Name, &Node{Pos: decl.Pos}, what)
	}

	derive := "#[derive(Default)]"
	if decl.Type.Kind == TypeStruct {
		derive = "#[derive(Clone, Default)]"
	}
	w.WriteLine(derive)
	openBlock(ctx, vis+"struct "+name+params)
	for _, m := range decl.Members {
		var line string
		switch {
		case m.Kind == MemberField:
			sym := m.Symbol
			line = re.visibility(sym) + re.SymbolName(ctx, sym) + ": " + ctx.TypeName(sym.Type, ctx.Ownership(sym.Type, true, sym.IsWeak))
		case m.IsAutoProperty():
			line = backingField(m.Symbol) + ": " + ctx.TypeName(m.Symbol.Type, ctx.Ownership(m.Symbol.Type, true, false))
		default:
			continue
		}
		w.WriteLine(line + ",")
	}
	closeBlock(ctx)
	w.EndLine()
	w.BlankLine()

	ifaceMembers := re.interfaceMembers(ctx, decl)
	openBlock(ctx, "impl"+genericBounds(decl)+" "+name+params)
	first := true
	sep := func() {
		if !first {
			w.BlankLine()
		}
		first = false
	}
	ctors := membersOfKind(decl, MemberConstructor)
	if len(ctors) == 0 {
		sep()
		if err := re.declareConstructor(ctx, decl, nil); err != nil {
			return err
		}
	}
	for _, m := range decl.Members {
		if m.Kind == MemberField || ifaceMembers[m.Symbol.Name] {
			continue
		}
		sep()
		if err := withMember(ctx, m, func() error { return re.declareMember(ctx, decl, m, true) }); err != nil {
			return err
		}
	}
	closeBlock(ctx)
	w.EndLine()

	_, ifaces := supertypes(decl)
	for _, it := range ifaces {
		ctx.Imports.Note(it, true)
		w.BlankLine()
		openBlock(ctx, "impl"+genericBounds(decl)+" "+ctx.Types.TypeName(it, OwnershipValue, TypeNameOptions{})+" for "+name+params)
		first = true
		for _, m := range decl.Members {
			if m.Kind == MemberField || !re.implements(ctx, it, m.Symbol) {
				continue
			}
			sep()
			if err := withMember(ctx, m, func() error { return re.declareMember(ctx, decl, m, false) }); err != nil {
				return err
			}
		}
		closeBlock(ctx)
		w.EndLine()
	}
	return nil
}

// unsupportedMember names the first member without a Rust rendering
func (re *RustEmitter) unsupportedMember(decl *TypeDecl) (string, bool) {
	for _, m := range decl.Members {
		switch {
		case m.Kind == MemberEvent:
			return "event " + m.Symbol.Name, true
		case m.Kind == MemberField && m.Symbol.IsStatic:
			return "static field " + m.Symbol.Name, true
		case m.Kind == MemberProperty && m.Symbol.IsStatic:
			return "static property " + m.Symbol.Name, true
		case m.Kind == MemberProperty && len(m.Symbol.Parameters) > 0:
			return "indexer declaration", true
		case m.Kind == MemberConstructor && m.Symbol.IsStatic:
			return "static constructor", true
		}
	}
	return "", false
}

// implements reports whether sym is a member of the interface it
func (re *RustEmitter) implements(ctx *Context, it *Type, sym *Symbol) bool {
	if sym.IsStatic {
		return false
	}
	for _, m := range ctx.Compilation.MembersOf(it) {
		if m.Name == sym.Name && m.Kind == sym.Kind {
			return true
		}
	}
	return false
}

// interfaceMembers collects the member names decl declares for its interfaces
func (re *RustEmitter) interfaceMembers(ctx *Context, decl *TypeDecl) map[string]bool {
	out := map[string]bool{}
	_, ifaces := supertypes(decl)
	for _, m := range decl.Members {
		for _, it := range ifaces {
			if re.implements(ctx, it, m.Symbol) {
				out[m.Symbol.Name] = true
			}
		}
	}
	return out
}

func (re *RustEmitter) declareTrait(ctx *Context, decl *TypeDecl, head string) error {
	w := ctx.Writer
	_, ifaces := supertypes(decl)
	if len(ifaces) > 0 {
		names := make([]string, len(ifaces))
		for i, it := range ifaces {
			ctx.Imports.Note(it, true)
			names[i] = ctx.Types.TypeName(it, OwnershipValue, TypeNameOptions{})
		}
		head += ": " + strings.Join(names, " + ")
	}
	openBlock(ctx, head)
	for _, m := range decl.Members {
		sym := m.Symbol
		err := withMember(ctx, m, func() error {
			switch m.Kind {
			case MemberMethod:
				sig, err := re.signature(ctx, sym, re.SymbolName(ctx, sym), false)
				if err != nil {
					return err
				}
				w.WriteLine(sig + ";")
			case MemberProperty:
				typ := ctx.TypeName(sym.Type, ctx.Ownership(sym.Type, true, false))
				w.WriteLine("fn " + rustGetterName(sym) + "(&mut self) -> " + typ + ";")
				if !sym.IsReadOnly {
					w.WriteLine("fn " + rustSetterName(sym) + "(&mut self, value: " + typ + ");")
				}
			default:
				return unsupported(re.dialect.Name, &Node{Pos: m.Pos}, "interface member "+sym.Name)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	closeBlock(ctx)
	w.EndLine()
	return nil
}

// declareConstructor writes new, which allocates the object with its field
// initializers and runs the constructor body as init. m is nil for the implicit
// constructor.
func (re *RustEmitter) declareConstructor(ctx *Context, decl *TypeDecl, m *MemberDecl) error {
	w := ctx.Writer
	name := ctx.Types.DeclaredName(decl.Type)
	value := decl.Type.Kind == TypeStruct
	sym := &Symbol{Kind: SymbolConstructor, Name: ".ctor", Container: decl.Type, Accessibility: AccessPublic}
	if m != nil {
		sym = m.Symbol
	}
	suffix := overloadSuffix(ctx, sym)
	params, err := re.parameters(ctx, sym, false)
	if err != nil {
		return err
	}
	args := make([]string, len(sym.Parameters))
	for i, p := range sym.Parameters {
		args[i] = re.dialect.Identifier(snakeCase(p.Name))
	}

	result := "Rc<RefCell<Self>>"
	if value {
		result = "Self"
	}
	openBlock(ctx, re.visibility(sym)+"fn new"+suffix+"("+params+") -> "+result)
	literal, err := ctx.CaptureInline(func() error {
		openBlock(ctx, name)
		for _, f := range decl.Members {
			var field string
			switch {
			case f.Kind == MemberField:
				field = re.SymbolName(ctx, f.Symbol)
			case f.IsAutoProperty():
				field = backingField(f.Symbol)
			default:
				continue
			}
			v := "Default::default()"
			if !f.Symbol.IsWeak {
				if v, err = initialValue(ctx, f); err != nil {
					return err
				}
			}
			w.WriteLine(field + ": " + v + ",")
		}
		closeBlock(ctx)
		return nil
	})
	if err != nil {
		return err
	}
	if value {
		w.WriteLine("let mut this = " + literal + ";")
	} else {
		w.WriteLine("let this = Rc::new(RefCell::new(" + literal + "));")
	}
	if m != nil {
		call := "this.init" + suffix + "(" + strings.Join(args, ", ") + ");"
		if !value {
			call = "this.borrow_mut().init" + suffix + "(" + strings.Join(args, ", ") + ");"
		}
		w.WriteLine(call)
	}
	w.WriteLine("this")
	closeBlock(ctx)
	w.EndLine()
	if m == nil {
		return nil
	}

	w.BlankLine()
	var prelude []string
	if m.Chain != nil {
		toBase, chainArgs, err := re.constructorChain(ctx, m)
		if err != nil {
			return err
		}
		if !toBase {
			target := ctx.Symbol(m.Chain)
			if target == nil {
				return unsupported(re.dialect.Name, m.Chain, "unresolved constructor chain")
			}
			prelude = append(prelude, "self.init"+overloadSuffix(ctx, target)+"("+strings.Join(chainArgs, ", ")+");")
		}
	}
	initParams, err := re.parameters(ctx, sym, true)
	if err != nil {
		return err
	}
	return writeBody(ctx, "fn init"+suffix+"("+initParams+")", m.Body, prelude...)
}

func (re *RustEmitter) declareMember(ctx *Context, decl *TypeDecl, m *MemberDecl, inherent bool) error {
	w := ctx.Writer
	sym := m.Symbol
	switch m.Kind {
	case MemberConstructor:
		return re.declareConstructor(ctx, decl, m)
	case MemberProperty:
		typ := ctx.TypeName(sym.Type, ctx.Ownership(sym.Type, true, false))
		vis := ""
		if inherent {
			vis = re.visibility(sym)
		}
		getter := vis + "fn " + rustGetterName(sym) + "(&mut self) -> " + typ
		setter := vis + "fn " + rustSetterName(sym) + "(&mut self, mut value: " + typ + ")"
		if m.IsAutoProperty() {
			field := "self." + backingField(sym)
			read := field
			if !isCopy(sym.Type) {
				read += ".clone()"
			}
			w.WriteLine(getter + " {")
			w.Indent()
			w.WriteLine(read)
			w.Outdent()
			w.WriteLine("}")
			if !sym.IsReadOnly || !inherent {
				w.BlankLine()
				w.WriteLine(setter + " {")
				w.Indent()
				w.WriteLine(field + " = value;")
				w.Outdent()
				w.WriteLine("}")
			}
			return nil
		}
		if m.Getter != nil {
			if err := writeBody(ctx, getter, m.Getter); err != nil {
				return err
			}
		}
		if m.Setter != nil {
			if m.Getter != nil {
				w.BlankLine()
			}
			return writeBody(ctx, setter, m.Setter)
		}
	case MemberMethod, MemberOperator:
		if m.Body == nil {
			return unsupported(re.dialect.Name, &Node{Pos: m.Pos}, "abstract method "+sym.Name)
		}
		sig, err := re.signature(ctx, sym, re.SymbolName(ctx, sym), inherent)
		if err != nil {
			return err
		}
		return writeBody(ctx, sig, m.Body)
	}
	return nil
}
