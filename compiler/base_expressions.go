package compiler

import (
	"strings"
)

func (be *BaseEmitter) EmitObjectCreation(ctx *Context, n *Node) (Rendered, error) {
	t := n.TypeRef
	if t == nil {
		t = ctx.TypeOf(n)
	}
	sym := ctx.Symbol(n)
	if sym != nil {
		if tmpl := ctx.Templates.Lookup(ctx.SymbolKey(sym), be.dialect.Name); tmpl != nil {
			r, err := be.expandTemplate(ctx, tmpl, n, sym, nil, n.Args)
			if err != nil || len(n.Initializer) == 0 {
				return r, err
			}
			return ctx.Renderer.InitializeObject(ctx, n, r, t)
		}
	}

	var args []string
	var err error
	if sym == nil {
		ctx.Fallback(n)
		args, err = be.plainArguments(ctx, n.Args)
	} else {
		var binding *InvocationBinding
		binding, err = ctx.Binder.Bind(sym, nil, n.Args, be.callSite(ctx, n))
		if err == nil {
			args, err = be.arguments(ctx, binding)
		}
	}
	if err != nil {
		return Rendered{}, err
	}
	created := ctx.Renderer.NewObject(ctx, t, sym, args)
	if len(n.Initializer) == 0 {
		return created, nil
	}
	return ctx.Renderer.InitializeObject(ctx, n, created, t)
}

func (be *BaseEmitter) EmitArrayCreation(ctx *Context, n *Node) (Rendered, error) {
	t := n.TypeRef
	if t == nil {
		t = ctx.TypeOf(n)
	}
	elem := t
	if t != nil && t.Kind == TypeArray {
		elem = t.Elem
	}
	if len(n.Args) > 0 && len(n.Initializer) == 0 {
		size, err := ctx.Expr(n.Args[0].Value)
		if err != nil {
			return Rendered{}, err
		}
		return ctx.Renderer.NewArray(ctx, elem, size.Text, nil, false), nil
	}
	items := make([]string, 0, len(n.Initializer))
	for _, el := range n.Initializer {
		r, err := ctx.Expr(el)
		if err != nil {
			return Rendered{}, err
		}
		items = append(items, r.Text)
	}
	return ctx.Renderer.NewArray(ctx, elem, "", items, true), nil
}

// userOperator returns the user-defined operator bound to n, if any
func userOperator(ctx *Context, n *Node) *Symbol {
	if sym := ctx.Symbol(n); sym != nil && sym.Kind == SymbolOperator {
		return sym
	}
	return nil
}

func (be *BaseEmitter) EmitBinary(ctx *Context, n *Node) (Rendered, error) {
	d := be.dialect
	left, err := ctx.Expr(n.Left)
	if err != nil {
		return Rendered{}, err
	}
	right, err := ctx.Expr(n.Right)
	if err != nil {
		return Rendered{}, err
	}
	if op := userOperator(ctx, n); op != nil {
		if tmpl := ctx.Templates.Lookup(ctx.SymbolKey(op), d.Name); tmpl != nil {
			return be.expandTemplate(ctx, tmpl, n, op, nil, []*Argument{{Value: n.Left}, {Value: n.Right}})
		}
		return ctx.Renderer.OperatorCall(ctx, op, []Rendered{left, right}), nil
	}
	if n.Operator == "??" && !d.NullCoalescing {
		return Rendered{}, unsupported(d.Name, n, "null-coalescing operator")
	}
	return be.binary(n.Operator, left, right), nil
}

// binary composes a binary operator expression with the dialect's precedence
func (be *BaseEmitter) binary(op string, left, right Rendered) Rendered {
	d := be.dialect
	p := d.Precedence.Of(op)
	leftMin := p
	if d.NonAssociativeComparisons && isComparison(op) {
		leftMin = p + 1
	}
	return Compound(left.Operand(leftMin)+" "+d.Operator(op)+" "+right.Operand(p+1), p)
}

func isComparison(op string) bool {
	switch op {
	case "==", "!=", "<", ">", "<=", ">=":
		return true
	}
	return false
}

func (be *BaseEmitter) EmitUnary(ctx *Context, n *Node) (Rendered, error) {
	operand, err := ctx.Expr(n.Target)
	if err != nil {
		return Rendered{}, err
	}
	if op := userOperator(ctx, n); op != nil {
		return ctx.Renderer.OperatorCall(ctx, op, []Rendered{operand}), nil
	}
	return be.unary(n, operand), nil
}

func (be *BaseEmitter) unary(n *Node, operand Rendered) Rendered {
	if n.Postfix {
		return Rendered{Text: operand.Operand(PrecPostfix) + n.Operator, Prec: PrecPostfix, Mode: AutoCastAddParenthesis}
	}
	text := operand.Operand(PrecUnary)
	// keep - -x and + +x from fusing into a decrement or increment
	if (n.Operator == "-" || n.Operator == "+") && strings.HasPrefix(text, n.Operator) {
		text = "(" + text + ")"
	}
	return Compound(n.Operator+text, PrecUnary)
}

func (be *BaseEmitter) EmitAssignment(ctx *Context, n *Node) (Rendered, error) {
	d := be.dialect
	value, err := ctx.Expr(n.Right)
	if err != nil {
		return Rendered{}, err
	}
	op := n.Operator
	if op == "" {
		op = "="
	}

	sym := ctx.Symbol(n.Left)
	if sym != nil && sym.Kind == SymbolEvent && op != "=" && !d.NativeEvents {
		return Rendered{}, unsupported(d.Name, n, "event subscription")
	}
	if sym != nil && sym.Kind == SymbolProperty {
		return be.assignProperty(ctx, n, sym, op, value)
	}

	ctx.Mutating = true
	target, err := ctx.Expr(n.Left)
	ctx.Mutating = false
	if err != nil {
		return Rendered{}, err
	}
	return Compound(target.Operand(PrecUnary)+" "+op+" "+value.Operand(PrecAssignment), PrecAssignment), nil
}

// assignProperty writes a property through its setter template or the backend's
// accessor spelling
func (be *BaseEmitter) assignProperty(ctx *Context, n *Node, sym *Symbol, op string, value Rendered) (Rendered, error) {
	left := n.Left
	var target *Node
	var args []*Argument
	switch left.Kind {
	case NodeMemberAccess:
		target = left.Target
	case NodeElementAccess:
		target = left.Target
		args = left.Args
	}

	if tmpl := ctx.Templates.Lookup(ctx.SymbolKey(sym)+".set", be.dialect.Name); tmpl != nil {
		if op != "=" {
			current, err := ctx.Expr(left)
			if err != nil {
				return Rendered{}, err
			}
			value = be.binary(strings.TrimSuffix(op, "="), current, value)
		}
		return be.expandSetter(ctx, tmpl, n, sym, target, args, value)
	}
	if left.Kind == NodeElementAccess && !be.dialect.NativeIndexers {
		return Rendered{}, unsupported(be.dialect.Name, n, "indexer assignment")
	}
	if left.Kind == NodeElementAccess {
		ctx.Mutating = true
		current, err := ctx.Expr(left)
		ctx.Mutating = false
		if err != nil {
			return Rendered{}, err
		}
		return Compound(current.Text+" "+op+" "+value.Operand(PrecAssignment), PrecAssignment), nil
	}

	ctx.Mutating = true
	recv, err := be.receiverPrefix(ctx, target, sym)
	ctx.Mutating = false
	if err != nil {
		return Rendered{}, err
	}
	return ctx.Renderer.PropertySet(ctx, recv, sym, op, value), nil
}

// expandSetter renders a setter template; {value} is the assigned value
func (be *BaseEmitter) expandSetter(ctx *Context, tmpl *Template, n *Node, sym *Symbol, target *Node, args []*Argument, value Rendered) (Rendered, error) {
	var recv Rendered
	if target != nil && tmpl.Uses("this") {
		r, err := ctx.Expr(target)
		if err != nil {
			return Rendered{}, err
		}
		recv = ctx.Renderer.TemplateReceiver(ctx, target, r)
	}
	r, err := be.expandTemplateWith(ctx, tmpl, n, sym, target, recv, args, map[string]string{
		"value": value.Operand(PrecAssignment),
	})
	if err != nil {
		return Rendered{}, err
	}
	r.Mode = AutoCastSkip
	return r, nil
}

func (be *BaseEmitter) EmitCast(ctx *Context, n *Node) (Rendered, error) {
	operand, err := ctx.Expr(n.Target)
	if err != nil {
		return Rendered{}, err
	}
	ctx.NoteType(n.TypeRef)
	return ctx.Casts.Explicit(n.TypeRef, operand), nil
}

func (be *BaseEmitter) EmitConditional(ctx *Context, n *Node) (Rendered, error) {
	cond, err := ctx.Operand(n.Cond, PrecCoalesce)
	if err != nil {
		return Rendered{}, err
	}
	then, err := ctx.Operand(n.Then, PrecAssignment)
	if err != nil {
		return Rendered{}, err
	}
	els, err := ctx.Operand(n.Else, PrecConditional)
	if err != nil {
		return Rendered{}, err
	}
	return Compound(cond+" ? "+then+" : "+els, PrecConditional), nil
}

func (be *BaseEmitter) EmitParenthesized(ctx *Context, n *Node) (Rendered, error) {
	inner, err := ctx.Expr(n.Target)
	if err != nil {
		return Rendered{}, err
	}
	if inner.Prec >= PrecPrimary {
		return inner, nil
	}
	return Rendered{Text: "(" + inner.Text + ")", Prec: PrecPrimary}, nil
}

func (be *BaseEmitter) EmitThis(ctx *Context, n *Node) (Rendered, error) {
	return Primary(be.dialect.This), nil
}

func (be *BaseEmitter) EmitBase(ctx *Context, n *Node) (Rendered, error) {
	return Primary(be.dialect.Base), nil
}

func (be *BaseEmitter) EmitElementAccess(ctx *Context, n *Node) (Rendered, error) {
	sym := ctx.Symbol(n)
	if sym != nil && sym.Kind == SymbolProperty {
		if tmpl := ctx.Templates.Lookup(ctx.SymbolKey(sym), be.dialect.Name); tmpl != nil {
			return be.expandTemplate(ctx, tmpl, n, sym, n.Target, n.Args)
		}
		if !be.dialect.NativeIndexers {
			return Rendered{}, unsupported(be.dialect.Name, n, "user-defined indexer")
		}
	}
	target, err := ctx.Expr(n.Target)
	if err != nil {
		return Rendered{}, err
	}
	index, err := be.plainArguments(ctx, n.Args)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Text: target.Operand(PrecPostfix) + "[" + strings.Join(index, ", ") + "]", Prec: PrecPostfix}, nil
}

// lambdaParameters renders the parameters of a lambda with format applied to each
// (type, name) pair
func (be *BaseEmitter) lambdaParameters(ctx *Context, n *Node, format func(typ, name string) string) []string {
	out := make([]string, len(n.Parameters))
	for i, p := range n.Parameters {
		name := be.dialect.Identifier(be.dialect.localName(p.Name))
		typ := ""
		if p.Type != nil {
			typ = ctx.TypeName(p.Type, ctx.Ownership(p.Type, false, false))
		}
		out[i] = format(typ, name)
	}
	return out
}

// lambdaBody renders an expression body as is and a block body as an inline block
func (be *BaseEmitter) lambdaBody(ctx *Context, n *Node) (string, bool, error) {
	if n.Body == nil {
		return "{}", true, nil
	}
	if n.Body.Kind != NodeBlock {
		r, err := ctx.Expr(n.Body)
		if err != nil {
			return "", false, err
		}
		return r.Operand(PrecAssignment), false, nil
	}
	text, err := ctx.CaptureInline(func() error {
		return ctx.Renderer.EmitBlock(ctx, n.Body)
	})
	return strings.TrimRight(text, "\n"), true, err
}

func (be *BaseEmitter) EmitLambda(ctx *Context, n *Node) (Rendered, error) {
	params := be.lambdaParameters(ctx, n, func(typ, name string) string {
		if typ == "" {
			return name
		}
		return typ + " " + name
	})
	body, _, err := be.lambdaBody(ctx, n)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Text: "(" + strings.Join(params, ", ") + ") => " + body, Prec: PrecAssignment, Mode: AutoCastSkip}, nil
}

func (be *BaseEmitter) EmitIs(ctx *Context, n *Node) (Rendered, error) {
	operand, err := ctx.Operand(n.Target, PrecRelational)
	if err != nil {
		return Rendered{}, err
	}
	text := operand + " is " + ctx.TypeName(n.TypeRef, OwnershipValue)
	if n.Name != "" {
		text += " " + be.dialect.Identifier(be.dialect.localName(n.Name))
	}
	return Compound(text, PrecRelational), nil
}

func (be *BaseEmitter) EmitAs(ctx *Context, n *Node) (Rendered, error) {
	operand, err := ctx.Operand(n.Target, PrecRelational)
	if err != nil {
		return Rendered{}, err
	}
	return Compound(operand+" as "+ctx.TypeName(n.TypeRef, OwnershipValue), PrecRelational), nil
}

// simpleOperand reports whether evaluating n twice has no observable effect
func simpleOperand(n *Node) bool {
	switch n.Kind {
	case NodeIdentifier, NodeThis, NodeLiteral:
		return true
	case NodeMemberAccess:
		return n.Target != nil && simpleOperand(n.Target)
	case NodeParenthesized:
		return simpleOperand(n.Target)
	}
	return false
}

func (be *BaseEmitter) EmitDefault(ctx *Context, n *Node) (Rendered, error) {
	t := n.TypeRef
	if t == nil {
		t = ctx.ConvertedTypeOf(n)
	}
	ctx.NoteType(t)
	return Rendered{Text: ctx.Renderer.DefaultValue(ctx, t), Prec: PrecPrimary, Mode: AutoCastSkip}, nil
}

func (be *BaseEmitter) EmitAnonymousObject(ctx *Context, n *Node) (Rendered, error) {
	return Rendered{}, unsupported(be.dialect.Name, n, "anonymous object")
}

// anonymousMembers renders the (name, value) pairs of an anonymous object
func (be *BaseEmitter) anonymousMembers(ctx *Context, n *Node) ([][2]string, error) {
	out := make([][2]string, 0, len(n.Initializer))
	for _, el := range n.Initializer {
		if el.Kind != NodeAssignment || el.Left == nil {
			return nil, unsupported(be.dialect.Name, el, "anonymous object member")
		}
		v, err := ctx.Expr(el.Right)
		if err != nil {
			return nil, err
		}
		out = append(out, [2]string{el.Left.Name, v.Operand(PrecAssignment)})
	}
	return out, nil
}

func (be *BaseEmitter) EmitTypeOf(ctx *Context, n *Node) (Rendered, error) {
	return Rendered{}, unsupported(be.dialect.Name, n, "typeof")
}
