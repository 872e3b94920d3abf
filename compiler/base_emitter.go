package compiler

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coderline/phase/errors"
)

// BaseEmitter implements the C-family spelling shared by every backend. Backends
// embed it and override the constructs their target spells differently. Shared
// routines always dispatch through ctx.Renderer so overrides take effect.
type BaseEmitter struct {
	dialect *Dialect
}

func (be *BaseEmitter) Dialect() *Dialect {
	return be.dialect
}

func (be *BaseEmitter) Syntax() *TypeSyntax {
	return be.dialect.Types
}

func (be *BaseEmitter) CastSyntax() *CastSyntax {
	return be.dialect.Casts
}

// SymbolName spells the target name of a symbol
func (be *BaseEmitter) SymbolName(ctx *Context, sym *Symbol) string {
	d := be.dialect
	if sym.Rename != "" {
		return sym.Rename
	}
	switch sym.Kind {
	case SymbolLocal, SymbolParameter:
		return d.Identifier(d.localName(sym.Name))
	case SymbolConstructor:
		return ctx.Types.DeclaredName(sym.Container)
	case SymbolType:
		return ctx.Types.DeclaredName(sym.Type)
	case SymbolEnumValue:
		return d.Identifier(sym.Name)
	}
	return d.Member(sym.Name)
}

func (d *Dialect) localName(name string) string {
	if d.LocalName != nil {
		return d.LocalName(name)
	}
	return name
}

// TypeReference spells a type used as the target of a static access
func (be *BaseEmitter) TypeReference(ctx *Context, t *Type) string {
	ctx.NoteType(t)
	return ctx.Types.TypeName(t, OwnershipValue, TypeNameOptions{NoTypeArguments: true})
}

// Literal spells a folded constant
func (be *BaseEmitter) Literal(ctx *Context, c Constant, t *Type) string {
	d := be.dialect
	switch c.Kind {
	case ConstNull:
		return d.Null
	case ConstBool:
		return c.Text
	case ConstInt:
		if t != nil && (t.Primitive == PrimInt64 || t.Primitive == PrimUInt64) {
			return c.Text + d.LongSuffix
		}
		return c.Text
	case ConstFloat:
		text := floatText(c.Text)
		if t != nil && t.Primitive == PrimFloat32 {
			return text + d.FloatSuffix
		}
		return text
	case ConstString:
		return strconv.Quote(c.Text)
	case ConstChar:
		r, _ := utf8.DecodeRuneInString(c.Text)
		return strconv.QuoteRune(r)
	}
	return c.Text
}

// floatText makes sure a floating literal is not read as an integer
func floatText(s string) string {
	s = strings.TrimRight(s, "fFdDmM")
	if strings.ContainsAny(s, ".eE") || strings.Contains(s, "Inf") || strings.Contains(s, "NaN") {
		return s
	}
	return s + ".0"
}

// DefaultValue spells the zero value of t
func (be *BaseEmitter) DefaultValue(ctx *Context, t *Type) string {
	if t == nil {
		return be.dialect.Null
	}
	switch t.Kind {
	case TypePrimitive:
		switch {
		case t.Primitive == PrimBool:
			return "false"
		case t.Primitive == PrimChar:
			return "'\\0'"
		case t.Primitive.IsFloating():
			return be.Literal(ctx, Constant{Kind: ConstFloat, Text: "0"}, t)
		}
		return be.Literal(ctx, Constant{Kind: ConstInt, Text: "0"}, t)
	}
	return be.dialect.Null
}

func (be *BaseEmitter) EmitLiteral(ctx *Context, n *Node) (Rendered, error) {
	c, ok := ctx.Oracle.ResolveConstant(n)
	if !ok {
		if n.Literal == nil {
			return Rendered{}, unsupported(be.dialect.Name, n, "literal without value")
		}
		c = *n.Literal
	}
	r := Primary(ctx.Renderer.Literal(ctx, c, ctx.TypeOf(n)))
	if strings.HasPrefix(r.Text, "-") {
		r.Prec = PrecUnary
	}
	return r, nil
}

func (be *BaseEmitter) EmitIdentifier(ctx *Context, n *Node) (Rendered, error) {
	sym := ctx.Symbol(n)
	if sym == nil {
		ctx.Fallback(n)
		return Primary(be.dialect.Identifier(n.Name)), nil
	}
	switch sym.Kind {
	case SymbolLocal, SymbolParameter:
		return Primary(ctx.Renderer.SymbolName(ctx, sym)), nil
	case SymbolType:
		return Primary(ctx.Renderer.TypeReference(ctx, sym.Type)), nil
	}
	return be.member(ctx, n, nil, sym)
}

func (be *BaseEmitter) EmitMemberAccess(ctx *Context, n *Node) (Rendered, error) {
	sym := ctx.Symbol(n)
	if sym == nil {
		ctx.Fallback(n)
		target, err := ctx.Expr(n.Target)
		if err != nil {
			return Rendered{}, err
		}
		return Rendered{Text: target.Operand(PrecPostfix) + be.dialect.InstanceSeparator + n.Name, Prec: PrecPostfix}, nil
	}
	if sym.Kind == SymbolType {
		return Primary(ctx.Renderer.TypeReference(ctx, sym.Type)), nil
	}
	return be.member(ctx, n, n.Target, sym)
}

// member renders a read of a field, property, enum value or method group of an
// explicit receiver, or of the current instance when target is nil
func (be *BaseEmitter) member(ctx *Context, n *Node, target *Node, sym *Symbol) (Rendered, error) {
	d := be.dialect
	if tmpl := ctx.Templates.Lookup(ctx.SymbolKey(sym), d.Name); tmpl != nil {
		return be.expandTemplate(ctx, tmpl, n, sym, target, nil)
	}
	if sym.Kind == SymbolEnumValue {
		return Rendered{
			Text: ctx.Renderer.TypeReference(ctx, sym.Container) + d.StaticSeparator + ctx.Renderer.SymbolName(ctx, sym),
			Prec: PrecPostfix,
		}, nil
	}
	recv, err := be.receiverPrefix(ctx, target, sym)
	if err != nil {
		return Rendered{}, err
	}
	switch sym.Kind {
	case SymbolProperty:
		return ctx.Renderer.PropertyGet(ctx, recv, sym), nil
	case SymbolField, SymbolEvent:
		return ctx.Renderer.FieldGet(ctx, recv, sym), nil
	case SymbolMethod:
		return ctx.Renderer.MethodGroup(ctx, recv, sym)
	}
	return Rendered{Text: recv + ctx.Renderer.SymbolName(ctx, sym), Prec: PrecPostfix}, nil
}

// receiverPrefix renders the receiver of a member access including the separator
func (be *BaseEmitter) receiverPrefix(ctx *Context, target *Node, sym *Symbol) (string, error) {
	if sym.IsStatic || sym.Kind == SymbolEnumValue {
		return ctx.Renderer.TypeReference(ctx, sym.Container) + be.dialect.StaticSeparator, nil
	}
	var r Rendered
	if target != nil && target.Kind != NodeThis && target.Kind != NodeBase {
		var err error
		if r, err = ctx.Expr(target); err != nil {
			return "", err
		}
	}
	ctx.receiverCall = sym.Kind == SymbolMethod || sym.Kind == SymbolProperty
	defer func() { ctx.receiverCall = false }()
	return ctx.Renderer.Receiver(ctx, target, r), nil
}

// Receiver spells a receiver followed by the instance separator. A nil target is
// the implicit current instance.
func (be *BaseEmitter) Receiver(ctx *Context, target *Node, r Rendered) string {
	d := be.dialect
	switch {
	case target == nil || target.Kind == NodeThis:
		return d.This + d.InstanceSeparator
	case target.Kind == NodeBase:
		return d.Base + d.InstanceSeparator
	}
	return r.Operand(PrecPostfix) + d.InstanceSeparator
}

// TemplateReceiver is the value bound to {this} in a code template
func (be *BaseEmitter) TemplateReceiver(ctx *Context, target *Node, r Rendered) Rendered {
	return r
}

// PropertyGet reads a native property
func (be *BaseEmitter) PropertyGet(ctx *Context, receiver string, prop *Symbol) Rendered {
	return Rendered{Text: receiver + ctx.Renderer.SymbolName(ctx, prop), Prec: PrecPostfix}
}

// PropertySet writes a native property
func (be *BaseEmitter) PropertySet(ctx *Context, receiver string, prop *Symbol, op string, value Rendered) Rendered {
	return Compound(receiver+ctx.Renderer.SymbolName(ctx, prop)+" "+op+" "+value.Operand(PrecAssignment), PrecAssignment)
}

// FieldGet reads a field
func (be *BaseEmitter) FieldGet(ctx *Context, receiver string, field *Symbol) Rendered {
	return Rendered{Text: receiver + ctx.Renderer.SymbolName(ctx, field), Prec: PrecPostfix}
}

// MethodGroup references a method as a delegate value
func (be *BaseEmitter) MethodGroup(ctx *Context, receiver string, method *Symbol) (Rendered, error) {
	return Rendered{Text: receiver + ctx.Renderer.SymbolName(ctx, method), Prec: PrecPostfix}, nil
}

// accessorGet lowers a property read to a getter call
func accessorGet(receiver, getter string) Rendered {
	return Rendered{Text: receiver + getter + "()", Prec: PrecPostfix}
}

// accessorSet lowers a property write, compound operators included, to a setter call
func accessorSet(ctx *Context, receiver string, prop *Symbol, op string, value Rendered, getter, setter string) Rendered {
	if op != "=" {
		binop := strings.TrimSuffix(op, "=")
		p := ctx.Renderer.Dialect().Precedence.Of(binop)
		current := accessorGet(receiver, getter)
		value = Compound(current.Operand(p)+" "+binop+" "+value.Operand(p+1), p)
	}
	return Rendered{Text: receiver + setter + "(" + value.Text + ")", Prec: PrecPostfix, Mode: AutoCastSkip}
}

// RefArgument passes a by-reference argument with the source-language markers
func (be *BaseEmitter) RefArgument(ctx *Context, kind RefKind, arg *Node, text string) (string, error) {
	switch kind {
	case RefRef:
		return "ref " + text, nil
	case RefOut:
		return "out " + text, nil
	case RefIn:
		return "in " + text, nil
	}
	return text, nil
}

// DelegateCall invokes a delegate value
func (be *BaseEmitter) DelegateCall(ctx *Context, callee Rendered, args []string) Rendered {
	return Rendered{Text: callee.Operand(PrecPostfix) + "(" + strings.Join(args, ", ") + ")", Prec: PrecPostfix}
}

// OperatorCall uses the target's native operator
func (be *BaseEmitter) OperatorCall(ctx *Context, op *Symbol, operands []Rendered) Rendered {
	token := op.OperatorToken()
	if len(operands) == 1 {
		return Compound(token+operands[0].Operand(PrecUnary), PrecUnary)
	}
	p := be.dialect.Precedence.Of(token)
	return Compound(operands[0].Operand(p)+" "+token+" "+operands[1].Operand(p+1), p)
}

// staticOperatorCall invokes a user-defined operator as a static method
func staticOperatorCall(ctx *Context, op *Symbol, operands []Rendered) Rendered {
	args := make([]string, len(operands))
	for i, o := range operands {
		args[i] = o.Text
	}
	d := ctx.Renderer.Dialect()
	return Rendered{
		Text: ctx.Renderer.TypeReference(ctx, op.Container) + d.StaticSeparator + op.Name + "(" + strings.Join(args, ", ") + ")",
		Prec: PrecPostfix,
	}
}

// NewObject constructs a reference with the new operator
func (be *BaseEmitter) NewObject(ctx *Context, t *Type, ctor *Symbol, args []string) Rendered {
	ctx.Imports.Note(t, true)
	name := ctx.Types.TypeName(t, OwnershipValue, TypeNameOptions{})
	return Rendered{Text: "new " + name + "(" + strings.Join(args, ", ") + ")", Prec: PrecPostfix}
}

// braceList spells items as a braced, comma separated list
func braceList(items []string) string {
	if len(items) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(items, ", ") + " }"
}

// NewArray creates an array from a size or from elements
func (be *BaseEmitter) NewArray(ctx *Context, elem *Type, size string, items []string, literal bool) Rendered {
	ctx.NoteType(elem)
	name := ctx.Types.TypeName(elem, ctx.Types.declarationKind(elem), TypeNameOptions{})
	if !literal {
		return Rendered{Text: "new " + name + "[" + size + "]", Prec: PrecPostfix}
	}
	return Rendered{Text: "new " + name + "[] " + braceList(items), Prec: PrecPostfix}
}

// PackParams collects params arguments through the array constructor
func (be *BaseEmitter) PackParams(ctx *Context, elem *Type, items []string) string {
	return ctx.Renderer.NewArray(ctx, elem, "", items, true).Text
}

// InitializeObject lowers an initializer to a temporary filled by statements inside
// an immediately invoked function
func (be *BaseEmitter) InitializeObject(ctx *Context, n *Node, created Rendered, t *Type) (Rendered, error) {
	return Rendered{}, unsupported(be.dialect.Name, n, "object initializer")
}

// initializerStatements renders one statement per initializer element applied to
// the temporary tmp
func (be *BaseEmitter) initializerStatements(ctx *Context, tmp string, n *Node) ([]string, error) {
	d := ctx.Renderer.Dialect()
	recv := ctx.Renderer.Receiver(ctx, &Node{Kind: NodeIdentifier, Name: tmp}, Primary(tmp))
	var out []string
	for _, el := range n.Initializer {
		switch el.Kind {
		case NodeAssignment:
			sym := ctx.Symbol(el.Left)
			value, err := ctx.Expr(el.Right)
			if err != nil {
				return nil, err
			}
			if sym == nil {
				ctx.Fallback(el.Left)
				out = append(out, recv+d.Identifier(el.Left.Name)+" = "+value.Text+";")
				continue
			}
			if sym.Kind == SymbolProperty {
				out = append(out, ctx.Renderer.PropertySet(ctx, recv, sym, "=", value).Text+";")
				continue
			}
			out = append(out, recv+ctx.Renderer.SymbolName(ctx, sym)+" = "+value.Text+";")
		default:
			values := []*Node{el}
			if el.Kind == NodeInitializer {
				values = el.Initializer
			}
			call, err := be.addCall(ctx, el, tmp, recv, values)
			if err != nil {
				return nil, err
			}
			out = append(out, call+";")
		}
	}
	return out, nil
}

// addCall renders a collection initializer element as a call of its Add method
func (be *BaseEmitter) addCall(ctx *Context, el *Node, tmp, recv string, values []*Node) (string, error) {
	add := ctx.Symbol(el)
	args := make([]*Argument, len(values))
	for i, v := range values {
		args[i] = &Argument{Value: v}
	}
	if add == nil {
		ctx.Fallback(el)
		texts, err := be.plainArguments(ctx, args)
		if err != nil {
			return "", err
		}
		return recv + be.dialect.Member("Add") + "(" + strings.Join(texts, ", ") + ")", nil
	}
	receiver := &Node{Kind: NodeIdentifier, Name: tmp, Pos: el.Pos}
	if tmpl := ctx.Templates.Lookup(ctx.SymbolKey(add), be.dialect.Name); tmpl != nil {
		r, err := be.expandTemplateWith(ctx, tmpl, el, add, receiver, Primary(tmp), args, nil)
		return r.Text, err
	}
	binding, err := ctx.Binder.Bind(add, receiver, args, be.callSite(ctx, el))
	if err != nil {
		return "", err
	}
	texts, err := be.arguments(ctx, binding)
	if err != nil {
		return "", err
	}
	return recv + ctx.Renderer.SymbolName(ctx, add) + "(" + strings.Join(texts, ", ") + ")", nil
}

// iife formats a temporary-filling statement list as an immediately invoked block
func iife(ctx *Context, open, declare string, stmts []string, result, close string) (string, error) {
	return ctx.CaptureInline(func() error {
		w := ctx.Writer
		w.WriteLine(open)
		w.Indent()
		w.WriteLine(declare)
		for _, s := range stmts {
			w.WriteLine(s)
		}
		w.WriteLine(result)
		w.Outdent()
		w.Write(close)
		return nil
	})
}

func (be *BaseEmitter) callSite(ctx *Context, n *Node) CallSite {
	site := CallSite{Node: n}
	if ctx.Member != nil && ctx.Member.Symbol != nil {
		site.Member = ctx.Member.Symbol.Name
	}
	return site
}

// plainArguments renders positional arguments without a binding
func (be *BaseEmitter) plainArguments(ctx *Context, args []*Argument) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		r, err := ctx.Expr(a.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, r.Text)
	}
	return out, nil
}

// arguments renders the actual argument list of a binding
func (be *BaseEmitter) arguments(ctx *Context, binding *InvocationBinding) ([]string, error) {
	var out []string
	for _, e := range binding.Entries {
		text, err := be.argument(ctx, e, false)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}

// argument renders the value of one bound parameter; raw suppresses params packing
// and prefers folded constants
func (be *BaseEmitter) argument(ctx *Context, e *BoundParameter, raw bool) (string, error) {
	switch e.Source {
	case SourceCallerInfo, SourceConstant:
		return ctx.Renderer.Literal(ctx, *e.Constant, e.Type), nil
	case SourceSentinel:
		return ctx.Renderer.DefaultValue(ctx, e.Type), nil
	}
	render := func(n *Node) (string, error) {
		if raw {
			if c, ok := ctx.Oracle.ResolveConstant(n); ok {
				return ctx.Renderer.Literal(ctx, c, ctx.TypeOf(n)), nil
			}
		}
		r, err := ctx.Expr(n)
		if err != nil {
			return "", err
		}
		return r.Text, nil
	}
	if e.Parameter.IsParams {
		items := make([]string, 0, len(e.Args))
		for _, a := range e.Args {
			s, err := render(a)
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
		if !e.NeedsPacking || raw {
			return strings.Join(items, ", "), nil
		}
		return ctx.Renderer.PackParams(ctx, e.ElementType(), items), nil
	}
	if len(e.Args) != 1 {
		return "", errors.AssertionFailedf("parameter %s bound to %d arguments", e.Parameter.Name, len(e.Args))
	}
	text, err := render(e.Args[0])
	if err != nil {
		return "", err
	}
	if e.RefKind != RefNone {
		return ctx.Renderer.RefArgument(ctx, e.RefKind, e.Args[0], text)
	}
	return text, nil
}

// genericCall appends explicit type arguments to a callee name
func (be *BaseEmitter) genericCall(ctx *Context, name string, typeArgs []*Type) string {
	if len(typeArgs) == 0 {
		return name
	}
	args := make([]string, len(typeArgs))
	for i, t := range typeArgs {
		ctx.Imports.Note(t, true)
		args[i] = ctx.Types.genericArgument(t)
	}
	if f := be.dialect.GenericCall; f != nil {
		return f(name, args)
	}
	return name + "<" + strings.Join(args, ", ") + ">"
}

func (be *BaseEmitter) EmitInvocation(ctx *Context, n *Node) (Rendered, error) {
	sym := ctx.Symbol(n)
	if sym == nil || (sym.Kind != SymbolMethod && sym.Kind != SymbolOperator) {
		if sym == nil {
			ctx.Fallback(n)
		}
		callee, err := ctx.Expr(n.Target)
		if err != nil {
			return Rendered{}, err
		}
		args, err := be.plainArguments(ctx, n.Args)
		if err != nil {
			return Rendered{}, err
		}
		return ctx.Renderer.DelegateCall(ctx, callee, args), nil
	}

	var receiver *Node
	if n.Target != nil && n.Target.Kind == NodeMemberAccess {
		receiver = n.Target.Target
		if rs := ctx.Symbol(receiver); rs != nil && rs.Kind == SymbolType {
			receiver = nil
		}
	}
	if tmpl := ctx.Templates.Lookup(ctx.SymbolKey(sym), be.dialect.Name); tmpl != nil {
		return be.expandTemplate(ctx, tmpl, n, sym, receiver, n.Args)
	}

	binding, err := ctx.Binder.Bind(sym, receiver, n.Args, be.callSite(ctx, n))
	if err != nil {
		return Rendered{}, err
	}
	args, err := be.arguments(ctx, binding)
	if err != nil {
		return Rendered{}, err
	}

	var callee string
	name := be.genericCall(ctx, ctx.Renderer.SymbolName(ctx, sym), n.TypeArgs)
	switch {
	case sym.IsExtension || sym.IsStatic:
		callee = ctx.Renderer.TypeReference(ctx, sym.Container) + be.dialect.StaticSeparator + name
	default:
		prefix, err := be.receiverPrefix(ctx, receiver, sym)
		if err != nil {
			return Rendered{}, err
		}
		callee = prefix + name
	}
	return Rendered{Text: callee + "(" + strings.Join(args, ", ") + ")", Prec: PrecPostfix}, nil
}

// expandTemplate renders a redirected API use at node n
func (be *BaseEmitter) expandTemplate(ctx *Context, tmpl *Template, n *Node, sym *Symbol, receiver *Node, args []*Argument) (Rendered, error) {
	var recv Rendered
	if receiver != nil && tmpl.Uses("this") {
		r, err := ctx.Expr(receiver)
		if err != nil {
			return Rendered{}, err
		}
		recv = ctx.Renderer.TemplateReceiver(ctx, receiver, r)
	}
	return be.expandTemplateWith(ctx, tmpl, n, sym, receiver, recv, args, nil)
}

// expandTemplateWith binds this, then the parameters in declaration order, then the
// type parameters, and renders the template. extra holds values bound up front.
func (be *BaseEmitter) expandTemplateWith(ctx *Context, tmpl *Template, n *Node, sym *Symbol, receiver *Node, recv Rendered, args []*Argument, extra map[string]string) (Rendered, error) {
	binding := tmpl.Bind()
	vars := tmpl.Variables()
	for _, v := range vars {
		if value, ok := extra[v.Name]; ok {
			binding.Set(v, value)
		}
	}
	set := func(name string, value func(v Variable) (string, error)) error {
		for _, v := range vars {
			if v.Name != name {
				continue
			}
			s, err := value(v)
			if err != nil {
				return err
			}
			binding.Set(v, s)
		}
		return nil
	}

	if tmpl.Uses("this") {
		this := recv.Operand(PrecPostfix)
		if receiver == nil && !sym.IsStatic {
			this = strings.TrimSuffix(ctx.Renderer.Receiver(ctx, nil, Rendered{}), be.dialect.InstanceSeparator)
		}
		if receiver != nil || !sym.IsStatic {
			if err := set("this", func(Variable) (string, error) { return this, nil }); err != nil {
				return Rendered{}, err
			}
		}
	}

	if len(sym.Parameters) > 0 {
		inv, err := ctx.Binder.Bind(sym, receiver, args, be.callSite(ctx, n))
		if err != nil {
			return Rendered{}, err
		}
		for _, e := range inv.Entries {
			if err := set(e.Parameter.Name, func(v Variable) (string, error) {
				return be.argument(ctx, e, v.Modifier == ModifierRaw)
			}); err != nil {
				return Rendered{}, err
			}
		}
	}

	typeArgs := map[string]*Type{}
	if receiver != nil {
		for k, v := range typeEnv(ctx.TypeOf(receiver)) {
			typeArgs[k] = v
		}
	}
	if sym.Kind == SymbolConstructor && n != nil {
		created := n.TypeRef
		if created == nil {
			created = ctx.TypeOf(n)
		}
		for k, v := range typeEnv(created) {
			typeArgs[k] = v
		}
	}
	if n != nil {
		for i, name := range sym.TypeParameters {
			if i < len(n.TypeArgs) {
				typeArgs[name] = n.TypeArgs[i]
			}
		}
	}
	for name, t := range typeArgs {
		t := t
		if err := set(name, func(Variable) (string, error) {
			ctx.Imports.Note(t, true)
			return ctx.Types.genericArgument(t), nil
		}); err != nil {
			return Rendered{}, err
		}
	}

	text, err := binding.Render()
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Text: text, Prec: templatePrecedence(text)}, nil
}

// templatePrecedence classifies rendered template text: a call or access chain is a
// postfix expression, anything with top-level operators is treated as lowest
func templatePrecedence(text string) int {
	depth := 0
	var quote rune
	for i, r := range text {
		switch {
		case quote != 0:
			if r == quote && (i == 0 || text[i-1] != '\\') {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			depth--
		case depth == 0 && (unicode.IsSpace(r) || strings.ContainsRune("+-*/%<>=!&|?:,^~", r)):
			if r == ':' && i+1 < len(text) && text[i+1] == ':' {
				continue
			}
			if r == ':' && i > 0 && text[i-1] == ':' {
				continue
			}
			if r == '-' && i+1 < len(text) && text[i+1] == '>' {
				continue
			}
			if r == '>' && i > 0 && text[i-1] == '-' {
				continue
			}
			return PrecLowest
		}
	}
	return PrecPostfix
}
