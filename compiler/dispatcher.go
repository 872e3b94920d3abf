package compiler

import (
	"github.com/coderline/phase/errors"
	"github.com/coderline/phase/logger"
)

// Emit writes the text of n into the current buffer and reports whether the caller
// still owes a conversion wrapper. Statements always report AutoCastSkip.
func Emit(ctx *Context, n *Node) (AutoCastMode, error) {
	if n == nil {
		return AutoCastSkip, nil
	}
	if n.Kind.IsStatement() {
		return AutoCastSkip, ctx.Stmt(n)
	}
	r, err := dispatchExpression(ctx, n)
	if err != nil {
		return AutoCastDefault, err
	}
	ctx.Writer.Write(r.Text)
	return r.Mode, nil
}

func dispatchExpression(ctx *Context, n *Node) (Rendered, error) {
	r := ctx.Renderer
	switch n.Kind {
	case NodeLiteral:
		return r.EmitLiteral(ctx, n)
	case NodeIdentifier:
		return r.EmitIdentifier(ctx, n)
	case NodeMemberAccess:
		return r.EmitMemberAccess(ctx, n)
	case NodeInvocation:
		return r.EmitInvocation(ctx, n)
	case NodeObjectCreation:
		return r.EmitObjectCreation(ctx, n)
	case NodeArrayCreation:
		return r.EmitArrayCreation(ctx, n)
	case NodeBinary:
		return r.EmitBinary(ctx, n)
	case NodeUnary:
		return r.EmitUnary(ctx, n)
	case NodeAssignment:
		return r.EmitAssignment(ctx, n)
	case NodeCast:
		return r.EmitCast(ctx, n)
	case NodeConditional:
		return r.EmitConditional(ctx, n)
	case NodeParenthesized:
		return r.EmitParenthesized(ctx, n)
	case NodeThis:
		return r.EmitThis(ctx, n)
	case NodeBase:
		return r.EmitBase(ctx, n)
	case NodeElementAccess:
		return r.EmitElementAccess(ctx, n)
	case NodeLambda:
		return r.EmitLambda(ctx, n)
	case NodeIs:
		return r.EmitIs(ctx, n)
	case NodeAs:
		return r.EmitAs(ctx, n)
	case NodeDefault:
		return r.EmitDefault(ctx, n)
	case NodeAnonymousObject:
		return r.EmitAnonymousObject(ctx, n)
	case NodeTypeOf:
		return r.EmitTypeOf(ctx, n)
	case NodeInitializer:
		return Rendered{}, errors.AssertionFailedf("%s: initializer element outside of an object creation", n.Pos)
	}
	return Rendered{}, errors.AssertionFailedf("%s: %s is not an expression", n.Pos, n.Kind)
}

// Expr renders n as a value and applies the conversion its context expects
func (ctx *Context) Expr(n *Node) (Rendered, error) {
	r, err := ctx.RawExpr(n)
	if err != nil {
		return Rendered{}, err
	}
	static, converted := ctx.Oracle.ResolveType(n)
	if what := ctx.Casts.Rejected(r.Mode, converted, static); what != "" {
		return Rendered{}, unsupported(ctx.Renderer.Dialect().Name, n, what)
	}
	return ctx.Casts.Apply(r.Mode, converted, static, r), nil
}

// RawExpr renders n without an implicit conversion
func (ctx *Context) RawExpr(n *Node) (Rendered, error) {
	if n == nil {
		return Rendered{}, errors.AssertionFailedf("missing expression")
	}
	if n.Kind.IsStatement() {
		return Rendered{}, errors.AssertionFailedf("%s: %s used as an expression", n.Pos, n.Kind)
	}
	return dispatchExpression(ctx, n)
}

// Operand renders n and parenthesizes it when it binds looser than min
func (ctx *Context) Operand(n *Node, min int) (string, error) {
	r, err := ctx.Expr(n)
	if err != nil {
		return "", err
	}
	return r.Operand(min), nil
}

// Stmt writes the statement n, terminating its last line
func (ctx *Context) Stmt(n *Node) error {
	if n == nil {
		return nil
	}
	r := ctx.Renderer
	var err error
	switch n.Kind {
	case NodeBlock:
		err = r.EmitBlock(ctx, n)
	case NodeExpressionStatement:
		err = r.EmitExpressionStatement(ctx, n)
	case NodeLocalDeclaration:
		err = r.EmitLocalDeclaration(ctx, n)
	case NodeReturn:
		err = r.EmitReturn(ctx, n)
	case NodeIf:
		err = r.EmitIf(ctx, n)
	case NodeWhile:
		err = r.EmitWhile(ctx, n)
	case NodeFor:
		err = r.EmitFor(ctx, n)
	case NodeForeach:
		err = r.EmitForeach(ctx, n)
	case NodeBreak:
		err = r.EmitBreak(ctx, n)
	case NodeContinue:
		err = r.EmitContinue(ctx, n)
	case NodeThrow:
		err = r.EmitThrow(ctx, n)
	case NodeTry:
		err = r.EmitTry(ctx, n)
	case NodeYield:
		err = r.EmitYield(ctx, n)
	default:
		return errors.AssertionFailedf("%s: %s is not a statement", n.Pos, n.Kind)
	}
	if err != nil {
		return err
	}
	ctx.Writer.EndLine()
	if logger.Logger != nil && ctx.Trace {
		logger.Debugw("statement", "backend", r.Dialect().Name, "kind", n.Kind.String(), "pos", n.Pos.String())
	}
	return nil
}

// Statements writes a statement list
func (ctx *Context) Statements(stmts []*Node) error {
	for _, s := range stmts {
		if err := ctx.Stmt(s); err != nil {
			return err
		}
	}
	return nil
}
