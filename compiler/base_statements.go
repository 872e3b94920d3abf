package compiler

import (
	"strings"
)

// openBlock writes head followed by an opening brace and indents
func openBlock(ctx *Context, head string) {
	w := ctx.Writer
	if ctx.Renderer.Dialect().BraceOnNewLine && head != "" {
		w.WriteLine(head)
		w.WriteLine("{")
	} else if head == "" {
		w.WriteLine("{")
	} else {
		w.WriteLine(head + " {")
	}
	w.Indent()
}

// closeBlock outdents and writes the closing brace without ending the line, so a
// following else or catch can continue it
func closeBlock(ctx *Context) {
	ctx.Writer.Outdent()
	ctx.Writer.Write("}")
}

// continueBlock chains a clause (else, catch, finally) after a closing brace
func continueBlock(ctx *Context, head string) {
	w := ctx.Writer
	if ctx.Renderer.Dialect().BraceOnNewLine {
		w.EndLine()
		openBlock(ctx, head)
		return
	}
	w.WriteLine(" " + head + " {")
	w.Indent()
}

// body writes the statements of a block or a single embedded statement
func body(ctx *Context, n *Node) error {
	if n == nil {
		return nil
	}
	if n.Kind == NodeBlock {
		return ctx.Statements(n.Statements)
	}
	return ctx.Stmt(n)
}

// condition renders an if or while condition with the dialect's parentheses
func condition(ctx *Context, n *Node) (string, error) {
	r, err := ctx.Expr(n)
	if err != nil {
		return "", err
	}
	if ctx.Renderer.Dialect().BareConditions {
		return r.Text, nil
	}
	return "(" + r.Text + ")", nil
}

func (be *BaseEmitter) EmitBlock(ctx *Context, n *Node) error {
	openBlock(ctx, "")
	if err := ctx.Statements(n.Statements); err != nil {
		return err
	}
	closeBlock(ctx)
	return nil
}

func (be *BaseEmitter) EmitExpressionStatement(ctx *Context, n *Node) error {
	ctx.statementExpr = n.Value
	r, err := ctx.Expr(n.Value)
	ctx.statementExpr = nil
	if err != nil {
		return err
	}
	ctx.Writer.Write(r.Text + ";")
	return nil
}

// localDeclaration resolves the name and type of a declared local
func (be *BaseEmitter) localDeclaration(ctx *Context, n *Node) (name string, t *Type) {
	t = n.TypeRef
	if sym := ctx.Oracle.ResolveDeclaredSymbol(n); sym != nil {
		name = ctx.Renderer.SymbolName(ctx, sym)
		if t == nil {
			t = sym.Type
		}
	} else {
		name = be.dialect.Identifier(be.dialect.localName(n.Name))
	}
	return name, t
}

func (be *BaseEmitter) EmitLocalDeclaration(ctx *Context, n *Node) error {
	name, t := be.localDeclaration(ctx, n)
	text := ctx.TypeName(t, ctx.Ownership(t, true, false)) + " " + name
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

func (be *BaseEmitter) EmitReturn(ctx *Context, n *Node) error {
	if n.Value == nil {
		ctx.Writer.Write("return;")
		return nil
	}
	v, err := ctx.Expr(n.Value)
	if err != nil {
		return err
	}
	ctx.Writer.Write("return " + v.Text + ";")
	return nil
}

func (be *BaseEmitter) EmitIf(ctx *Context, n *Node) error {
	cond, err := condition(ctx, n.Cond)
	if err != nil {
		return err
	}
	openBlock(ctx, "if "+cond)
	if err := body(ctx, n.Then); err != nil {
		return err
	}
	closeBlock(ctx)
	for els := n.Else; els != nil; {
		if els.Kind == NodeIf {
			cond, err := condition(ctx, els.Cond)
			if err != nil {
				return err
			}
			continueBlock(ctx, "else if "+cond)
			if err := body(ctx, els.Then); err != nil {
				return err
			}
			closeBlock(ctx)
			els = els.Else
			continue
		}
		continueBlock(ctx, "else")
		if err := body(ctx, els); err != nil {
			return err
		}
		closeBlock(ctx)
		break
	}
	return nil
}

func (be *BaseEmitter) EmitWhile(ctx *Context, n *Node) error {
	cond, err := condition(ctx, n.Cond)
	if err != nil {
		return err
	}
	openBlock(ctx, "while "+cond)
	if err := body(ctx, n.Body); err != nil {
		return err
	}
	closeBlock(ctx)
	return nil
}

// inlineStatement renders a statement as a single line without its terminator
func inlineStatement(ctx *Context, n *Node) (string, error) {
	if !n.Kind.IsStatement() {
		r, err := ctx.Expr(n)
		return r.Text, err
	}
	text, err := ctx.CaptureInline(func() error { return ctx.Stmt(n) })
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSpace(text), ";"), nil
}

func inlineStatements(ctx *Context, nodes []*Node) (string, error) {
	parts := make([]string, 0, len(nodes))
	for _, s := range nodes {
		if s.Kind == NodeExpressionStatement {
			s = s.Value
		}
		text, err := inlineStatement(ctx, s)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, ", "), nil
}

func (be *BaseEmitter) EmitFor(ctx *Context, n *Node) error {
	init, err := inlineStatements(ctx, n.Init)
	if err != nil {
		return err
	}
	cond := ""
	if n.Cond != nil {
		r, err := ctx.Expr(n.Cond)
		if err != nil {
			return err
		}
		cond = " " + r.Text
	}
	post, err := inlineStatements(ctx, n.Post)
	if err != nil {
		return err
	}
	if post != "" {
		post = " " + post
	}
	openBlock(ctx, "for ("+init+";"+cond+";"+post+")")
	if err := body(ctx, n.Body); err != nil {
		return err
	}
	closeBlock(ctx)
	return nil
}

func (be *BaseEmitter) EmitForeach(ctx *Context, n *Node) error {
	name, t := be.localDeclaration(ctx, n)
	coll, err := ctx.Expr(n.Value)
	if err != nil {
		return err
	}
	typ := ""
	if t != nil {
		typ = ctx.TypeName(t, ctx.Ownership(t, true, false))
	}
	head := be.dialect.ForeachHead
	if head == nil {
		return unsupported(be.dialect.Name, n, "foreach")
	}
	openBlock(ctx, head(typ, name, coll.Operand(PrecPostfix)))
	if err := body(ctx, n.Body); err != nil {
		return err
	}
	closeBlock(ctx)
	return nil
}

func (be *BaseEmitter) EmitBreak(ctx *Context, n *Node) error {
	ctx.Writer.Write("break;")
	return nil
}

func (be *BaseEmitter) EmitContinue(ctx *Context, n *Node) error {
	ctx.Writer.Write("continue;")
	return nil
}

func (be *BaseEmitter) EmitThrow(ctx *Context, n *Node) error {
	if n.Value == nil {
		switch {
		case be.dialect.Rethrow != "":
			ctx.Writer.Write(be.dialect.Rethrow)
		case len(ctx.catchNames) > 0:
			ctx.Writer.Write("throw " + ctx.catchNames[len(ctx.catchNames)-1] + ";")
		default:
			return unsupported(be.dialect.Name, n, "rethrow outside of a catch clause")
		}
		return nil
	}
	v, err := ctx.Expr(n.Value)
	if err != nil {
		return err
	}
	ctx.Writer.Write("throw " + v.Text + ";")
	return nil
}

// catchName names the exception variable of a clause, minting one when the source
// left it anonymous
func catchName(ctx *Context, c *CatchClause) string {
	if c.Name != "" {
		d := ctx.Renderer.Dialect()
		return d.Identifier(d.localName(c.Name))
	}
	return ctx.Temp("e")
}

// catchBody writes a handler body with its variable visible to rethrows
func catchBody(ctx *Context, name string, n *Node) error {
	ctx.catchNames = append(ctx.catchNames, name)
	defer func() { ctx.catchNames = ctx.catchNames[:len(ctx.catchNames)-1] }()
	return body(ctx, n)
}

func (be *BaseEmitter) EmitTry(ctx *Context, n *Node) error {
	openBlock(ctx, "try")
	if err := body(ctx, n.Body); err != nil {
		return err
	}
	closeBlock(ctx)
	for _, c := range n.Catches {
		name := catchName(ctx, c)
		t := c.Type
		if t == nil {
			t = exceptionType
		}
		continueBlock(ctx, "catch ("+ctx.TypeName(t, OwnershipValue)+" "+name+")")
		if err := catchBody(ctx, name, c.Body); err != nil {
			return err
		}
		closeBlock(ctx)
	}
	if n.Finally != nil {
		continueBlock(ctx, "finally")
		if err := body(ctx, n.Finally); err != nil {
			return err
		}
		closeBlock(ctx)
	}
	return nil
}

// exceptionType is the root exception caught by untyped catch clauses
var exceptionType = &Type{Kind: TypeClass, Namespace: "System", Name: "Exception", Base: ObjectType}

func (be *BaseEmitter) EmitYield(ctx *Context, n *Node) error {
	return unsupported(be.dialect.Name, n, "yield")
}

// containsContinue reports whether a loop body continues its own loop
func containsContinue(n *Node) bool {
	found := false
	Walk(n, func(c *Node) bool {
		switch c.Kind {
		case NodeContinue:
			found = true
		case NodeWhile, NodeFor, NodeForeach, NodeLambda:
			return c == n
		}
		return !found
	})
	return found
}
