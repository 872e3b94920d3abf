package compiler

import (
	"strings"
)

// resolver builds the nodes of one member's trees and records their symbols and
// types in the loader's oracle. Names that do not resolve are left unannotated;
// emission falls back to their source spelling.
type resolver struct {
	l          *loader
	self       *Type
	typeParams map[string]*Type
	namespace  string
	returns    *Type
	// scopes holds the locals of the enclosing blocks, innermost last
	scopes []map[string]*Symbol
}

func (l *loader) resolveBodies(d *typeDoc) error {
	t := d.typ
	scope := l.typeParamScope(d.TypeParameters)
	for i, md := range d.Members {
		m := d.decl.Members[i]
		typeParams := scope
		if len(md.TypeParameters) > 0 {
			typeParams = l.typeParamScope(d.TypeParameters, md.TypeParameters)
		}
		r := &resolver{l: l, self: t, typeParams: typeParams, namespace: t.Namespace}
		if err := r.resolveMember(m, md); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) push() {
	r.scopes = append(r.scopes, map[string]*Symbol{})
}

func (r *resolver) pop() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *resolver) declare(sym *Symbol) {
	if len(r.scopes) == 0 {
		r.push()
	}
	r.scopes[len(r.scopes)-1][sym.Name] = sym
}

func (r *resolver) local(name string) *Symbol {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if s, ok := r.scopes[i][name]; ok {
			return s
		}
	}
	return nil
}

func (r *resolver) declareParameters(params []*Parameter) {
	for _, p := range params {
		r.declare(&Symbol{Kind: SymbolParameter, Name: p.Name, Type: p.Type})
	}
}

func (r *resolver) resolveMember(m *MemberDecl, md *memberDoc) error {
	sym := m.Symbol
	r.push()
	defer r.pop()
	r.declareParameters(sym.Parameters)

	var err error
	switch m.Kind {
	case MemberField, MemberEvent:
		if md.Initializer != nil {
			m.Initializer, err = r.expr(md.Initializer, sym.Type)
		}
	case MemberProperty:
		if md.Initializer != nil {
			if m.Initializer, err = r.expr(md.Initializer, sym.Type); err != nil {
				return err
			}
		}
		if md.Get != nil {
			r.returns = sym.Type
			if m.Getter, err = r.block(md.Get); err != nil {
				return err
			}
		}
		if md.Set != nil {
			r.push()
			r.declare(&Symbol{Kind: SymbolParameter, Name: "value", Type: sym.Type})
			r.returns = VoidType
			m.Setter, err = r.block(md.Set)
			r.pop()
		}
	case MemberConstructor:
		r.returns = VoidType
		if md.Chain != nil {
			if m.Chain, err = r.chain(md.Chain, md.Line); err != nil {
				return err
			}
		}
		if md.Body != nil {
			m.Body, err = r.block(md.Body)
		}
	default:
		r.returns = sym.Type
		if md.Body != nil {
			m.Body, err = r.block(md.Body)
		}
	}
	return err
}

func (r *resolver) chain(cd *chainDoc, line int) (*Node, error) {
	target := &Node{Kind: NodeBase, ID: r.l.id(), Pos: r.l.pos(line, 0)}
	owner := r.self.Base
	switch cd.Kind {
	case "this":
		target.Kind = NodeThis
		owner = r.self
	case "", "base":
	default:
		return nil, r.l.errorf(line, "unknown constructor chain %q", cd.Kind)
	}
	n := &Node{Kind: NodeInvocation, ID: r.l.id(), Pos: r.l.pos(line, 0), Target: target}
	args, lambdas, err := r.arguments(cd.Args)
	if err != nil {
		return nil, err
	}
	n.Args = args
	if owner == nil {
		return n, nil
	}
	ctor := r.overload(r.candidates(owner, ".ctor", SymbolConstructor), nil, n)
	if ctor != nil {
		r.l.oracle.SetSymbol(n, ctor)
		if err := r.bindArguments(ctor, nil, n, typeEnv(owner), lambdas); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (l *loader) id() int {
	l.nextID++
	return l.nextID
}

func (r *resolver) node(kind NodeKind, d *nodeDoc) *Node {
	return &Node{ID: r.l.id(), Kind: kind, Pos: r.l.pos(d.Line, d.Column), Name: d.Name, Operator: d.Op, Postfix: d.Postfix}
}

func (r *resolver) parseType(s string, line int) (*Type, error) {
	return r.l.parseType(s, r.typeParams, r.namespace, line)
}

func (r *resolver) typeList(names []string, line int) ([]*Type, error) {
	var out []*Type
	for _, s := range names {
		t, err := r.parseType(s, line)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// annotate records the static type of n and the type its context expects
func (r *resolver) annotate(n *Node, static, expected *Type) *Node {
	if static == nil && expected == nil {
		return n
	}
	if expected == nil || expected.Kind == TypeVoid {
		expected = static
	}
	r.l.oracle.SetType(n, static, expected)
	return n
}

// block resolves a statement or a list of statements as a block
func (r *resolver) block(d *nodeDoc) (*Node, error) {
	if d.Kind != "block" {
		d = &nodeDoc{Kind: "block", Statements: []*nodeDoc{d}, Line: d.Line, Column: d.Column}
	}
	return r.stmt(d)
}

func (r *resolver) stmts(docs []*nodeDoc) ([]*Node, error) {
	out := make([]*Node, 0, len(docs))
	for _, d := range docs {
		n, err := r.stmt(d)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *resolver) optionalStmt(d *nodeDoc) (*Node, error) {
	if d == nil {
		return nil, nil
	}
	r.push()
	defer r.pop()
	return r.stmt(d)
}

func (r *resolver) stmt(d *nodeDoc) (*Node, error) {
	kind, ok := NodeKindByName(d.Kind)
	if !ok || !kind.IsStatement() {
		// a bare expression in statement position
		e, err := r.expr(d, nil)
		if err != nil {
			return nil, err
		}
		return &Node{ID: r.l.id(), Kind: NodeExpressionStatement, Pos: e.Pos, Value: e}, nil
	}
	n := r.node(kind, d)
	var err error
	switch kind {
	case NodeBlock:
		r.push()
		n.Statements, err = r.stmts(d.Statements)
		r.pop()
	case NodeExpressionStatement:
		n.Value, err = r.expr(d.Value, nil)
	case NodeLocalDeclaration:
		err = r.localDeclaration(n, d)
	case NodeReturn:
		if d.Value != nil {
			n.Value, err = r.expr(d.Value, r.returns)
		}
	case NodeIf:
		if n.Cond, err = r.expr(d.Cond, BoolType); err != nil {
			return nil, err
		}
		if n.Then, err = r.optionalStmt(d.Then); err != nil {
			return nil, err
		}
		n.Else, err = r.optionalStmt(d.Else)
	case NodeWhile:
		if n.Cond, err = r.expr(d.Cond, BoolType); err != nil {
			return nil, err
		}
		n.Body, err = r.optionalStmt(d.Body)
	case NodeFor:
		r.push()
		defer r.pop()
		if n.Init, err = r.stmts(d.Init); err != nil {
			return nil, err
		}
		if d.Cond != nil {
			if n.Cond, err = r.expr(d.Cond, BoolType); err != nil {
				return nil, err
			}
		}
		for _, p := range d.Post {
			e, err := r.expr(p, nil)
			if err != nil {
				return nil, err
			}
			n.Post = append(n.Post, e)
		}
		n.Body, err = r.optionalStmt(d.Body)
	case NodeForeach:
		err = r.foreach(n, d)
	case NodeThrow:
		if d.Value != nil {
			n.Value, err = r.expr(d.Value, nil)
		}
	case NodeTry:
		err = r.try(n, d)
	case NodeYield:
		if d.Value != nil {
			n.Value, err = r.expr(d.Value, nil)
		}
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *resolver) localDeclaration(n *Node, d *nodeDoc) error {
	var declared *Type
	if d.Type != "" && d.Type != "var" {
		t, err := r.parseType(d.Type, d.Line)
		if err != nil {
			return err
		}
		declared = t
		n.TypeRef = t
	}
	if d.Value != nil {
		v, err := r.expr(d.Value, declared)
		if err != nil {
			return err
		}
		n.Value = v
		if declared == nil {
			declared, _ = r.l.oracle.ResolveType(v)
		}
	}
	if declared == nil {
		return r.l.errorf(d.Line, "cannot infer the type of local %s", d.Name)
	}
	sym := &Symbol{Kind: SymbolLocal, Name: d.Name, Type: declared}
	r.declare(sym)
	r.l.oracle.SetDeclared(n, sym)
	return nil
}

// elementType is the type a foreach over t yields
func (r *resolver) elementType(t *Type) *Type {
	switch {
	case t == nil:
		return nil
	case t.Kind == TypeArray:
		return t.Elem
	case t.Kind == TypeString:
		return CharType
	}
	for _, s := range append([]*Type{t}, t.Supertypes()...) {
		if s.IsEnumerable() && len(s.TypeArgs) == 1 && s.TypeArgs[0].Kind != TypeParameter {
			return s.TypeArgs[0]
		}
	}
	return ObjectType
}

func (r *resolver) foreach(n *Node, d *nodeDoc) error {
	coll, err := r.expr(d.Value, nil)
	if err != nil {
		return err
	}
	n.Value = coll
	static, _ := r.l.oracle.ResolveType(coll)
	elem := r.elementType(static)
	if d.Type != "" && d.Type != "var" {
		if elem, err = r.parseType(d.Type, d.Line); err != nil {
			return err
		}
		n.TypeRef = elem
	}
	if elem == nil {
		elem = ObjectType
	}
	r.push()
	defer r.pop()
	sym := &Symbol{Kind: SymbolLocal, Name: d.Name, Type: elem}
	r.declare(sym)
	r.l.oracle.SetDeclared(n, sym)
	n.Body, err = r.optionalStmt(d.Body)
	return err
}

func (r *resolver) try(n *Node, d *nodeDoc) error {
	var err error
	if n.Body, err = r.optionalStmt(d.Body); err != nil {
		return err
	}
	for _, cd := range d.Catches {
		c := &CatchClause{Name: cd.Name}
		if cd.Type != "" {
			if c.Type, err = r.parseType(cd.Type, d.Line); err != nil {
				return err
			}
		}
		r.push()
		if cd.Name != "" {
			t := c.Type
			if t == nil {
				t = ObjectType
			}
			r.declare(&Symbol{Kind: SymbolLocal, Name: cd.Name, Type: t})
		}
		c.Body, err = r.optionalStmt(cd.Body)
		r.pop()
		if err != nil {
			return err
		}
		n.Catches = append(n.Catches, c)
	}
	n.Finally, err = r.optionalStmt(d.Finally)
	return err
}

// typeOf returns the recorded static type of n
func (r *resolver) typeOf(n *Node) *Type {
	if n == nil {
		return nil
	}
	static, _ := r.l.oracle.ResolveType(n)
	return static
}

// expr builds and annotates an expression; expected is the type its context
// converts it to, or nil
func (r *resolver) expr(d *nodeDoc, expected *Type) (*Node, error) {
	if d == nil {
		return nil, nil
	}
	if d.Kind == "null" {
		d = &nodeDoc{Kind: "literal", Line: d.Line, Column: d.Column}
	}
	kind, ok := NodeKindByName(d.Kind)
	if !ok || kind.IsStatement() {
		return nil, r.l.errorf(d.Line, "%q is not an expression", d.Kind)
	}
	n := r.node(kind, d)
	var static *Type
	var err error
	switch kind {
	case NodeLiteral:
		static, err = r.literal(n, d)
	case NodeIdentifier:
		static = r.identifier(n, d.Name, expected)
	case NodeMemberAccess:
		static, err = r.memberAccess(n, d, expected)
	case NodeInvocation:
		static, err = r.invocation(n, d)
	case NodeObjectCreation:
		static, err = r.creation(n, d)
	case NodeArrayCreation:
		static, err = r.arrayCreation(n, d)
	case NodeBinary:
		static, err = r.binary(n, d)
	case NodeUnary:
		static, err = r.unary(n, d)
	case NodeAssignment:
		static, err = r.assignment(n, d)
	case NodeCast, NodeAs, NodeDefault, NodeTypeOf, NodeIs:
		static, err = r.typed(n, d, expected)
	case NodeConditional:
		static, err = r.conditional(n, d)
	case NodeParenthesized:
		if n.Target, err = r.expr(d.Target, nil); err == nil {
			static = r.typeOf(n.Target)
		}
	case NodeThis:
		static = r.self
	case NodeBase:
		static = r.self.Base
	case NodeElementAccess:
		static, err = r.elementAccess(n, d)
	case NodeLambda:
		static, err = r.lambda(n, d, expected)
	case NodeAnonymousObject:
		static, err = r.anonymous(n, d)
	case NodeInitializer:
		return nil, r.l.errorf(d.Line, "initializer element outside of a creation")
	}
	if err != nil {
		return nil, err
	}
	return r.annotate(n, static, expected), nil
}

func (r *resolver) literal(n *Node, d *nodeDoc) (*Type, error) {
	var hint *Type
	if d.Type != "" {
		t, err := r.parseType(d.Type, d.Line)
		if err != nil {
			return nil, err
		}
		hint = t
	}
	if d.Lit.Kind == 0 {
		c := Constant{Kind: ConstNull, Text: "null"}
		n.Literal = &c
		return NullType, nil
	}
	c, t, err := literal(&d.Lit, hint)
	if err != nil {
		return nil, r.l.errorf(d.Line, "%v", err)
	}
	n.Literal = &c
	return t, nil
}

// membersNamed returns the members named name visible on t
func (r *resolver) membersNamed(t *Type, name string) []*Symbol {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case TypeArray:
		t = r.l.lookupType("System.Array", 0, "")
	case TypeParameter, TypeDynamic:
		t = ObjectType
	}
	var out []*Symbol
	for _, s := range r.l.comp.MembersOf(t) {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// identifier resolves a simple name: locals, then members of the current type, then
// types
func (r *resolver) identifier(n *Node, name string, expected *Type) *Type {
	if sym := r.local(name); sym != nil {
		r.l.oracle.SetSymbol(n, sym)
		return sym.Type
	}
	if r.self != nil {
		for _, sym := range r.membersNamed(r.self, name) {
			r.l.oracle.SetSymbol(n, sym)
			return r.memberType(sym, nil, expected)
		}
	}
	if t := r.typeNamed(name); t != nil {
		r.l.oracle.SetSymbol(n, r.l.typeSymbol(t))
		return t
	}
	return nil
}

func (r *resolver) typeNamed(name string) *Type {
	if t, ok := r.typeParams[name]; ok {
		return t
	}
	if t, ok := typeAliases[name]; ok && t.Kind != TypeVoid {
		return t
	}
	return r.l.lookupType(name, 0, r.namespace)
}

// memberType is the type a read of sym yields on a receiver of type recv
func (r *resolver) memberType(sym *Symbol, recv *Type, expected *Type) *Type {
	switch sym.Kind {
	case SymbolMethod:
		// a method group takes the delegate type its context expects
		return expected
	case SymbolType:
		return sym.Type
	}
	return substitute(sym.Type, typeEnv(recv))
}

// dotted returns the qualified name an identifier or member chain spells
func dotted(d *nodeDoc) (string, bool) {
	switch d.Kind {
	case "identifier":
		return d.Name, true
	case "member":
		if d.Target == nil {
			return "", false
		}
		prefix, ok := dotted(d.Target)
		return prefix + "." + d.Name, ok
	}
	return "", false
}

// typeTarget resolves d as a type name used as a receiver, e.g. System.Math
func (r *resolver) typeTarget(d *nodeDoc) *Node {
	name, ok := dotted(d)
	if !ok {
		return nil
	}
	if head := strings.SplitN(name, ".", 2)[0]; r.local(head) != nil || len(r.membersNamed(r.self, head)) > 0 {
		return nil
	}
	var t *Type
	if strings.Contains(name, ".") {
		t = r.l.index.Lookup(name, 0)
		if t == nil {
			t = r.l.lookupType(name, 0, r.namespace)
		}
	} else {
		t = r.typeNamed(name)
	}
	if t == nil {
		return nil
	}
	kind := NodeIdentifier
	if d.Kind == "member" {
		kind = NodeMemberAccess
	}
	n := r.node(kind, d)
	r.l.oracle.SetSymbol(n, r.l.typeSymbol(t))
	r.l.oracle.SetType(n, t, t)
	return n
}

// receiver resolves the target of a member access; the second result is set when
// the target names a type
func (r *resolver) receiver(d *nodeDoc) (*Node, bool, error) {
	if d == nil {
		return nil, false, nil
	}
	if d.Kind == "identifier" || d.Kind == "member" {
		if d.Kind == "identifier" && r.local(d.Name) != nil {
			n, err := r.expr(d, nil)
			return n, false, err
		}
		if n := r.typeTarget(d); n != nil {
			return n, true, nil
		}
	}
	n, err := r.expr(d, nil)
	return n, false, err
}

func (r *resolver) memberAccess(n *Node, d *nodeDoc, expected *Type) (*Type, error) {
	target, static, err := r.receiver(d.Target)
	if err != nil {
		return nil, err
	}
	n.Target = target
	return r.lookupMember(n, r.typeOf(target), static, expected), nil
}

// lookupMember binds n to the first member named n.Name of recv; static selects
// between access through a type name and through a value
func (r *resolver) lookupMember(n *Node, recv *Type, static bool, expected *Type) *Type {
	for _, sym := range r.membersNamed(recv, n.Name) {
		if static != sym.IsStatic && sym.Kind != SymbolEnumValue {
			continue
		}
		r.l.oracle.SetSymbol(n, sym)
		if static {
			return r.memberType(sym, nil, expected)
		}
		return r.memberType(sym, recv, expected)
	}
	return nil
}

// candidates lists the members of t named name of the given kind, nearest first
func (r *resolver) candidates(t *Type, name string, kind SymbolKind) []*Symbol {
	var out []*Symbol
	for _, s := range r.membersNamed(t, name) {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// extensions lists the extension methods named name applicable to recv
func (r *resolver) extensions(recv *Type, name string) []*Symbol {
	if recv == nil {
		return nil
	}
	var out []*Symbol
	for _, members := range r.l.comp.Members {
		for _, s := range members {
			if s.IsExtension && s.Name == name && len(s.Parameters) > 0 && recv.AssignableTo(s.Parameters[0].Type) {
				out = append(out, s)
			}
		}
	}
	return out
}

// arguments resolves call arguments without a target type. Lambdas are resolved
// after overload selection, once their delegate type is known.
func (r *resolver) arguments(docs []*nodeDoc) ([]*Argument, map[*Node]*nodeDoc, error) {
	args := make([]*Argument, 0, len(docs))
	lambdas := map[*Node]*nodeDoc{}
	for _, d := range docs {
		ref, ok := refKinds[d.Ref]
		if !ok {
			return nil, nil, r.l.errorf(d.Line, "unknown argument passing %q", d.Ref)
		}
		a := &Argument{Name: d.ArgName, RefKind: ref}
		if d.Kind == "lambda" {
			a.Value = r.node(NodeLambda, d)
			lambdas[a.Value] = d
		} else {
			v, err := r.expr(d, nil)
			if err != nil {
				return nil, nil, err
			}
			a.Value = v
		}
		args = append(args, a)
	}
	return args, lambdas, nil
}

// convertible reports whether an argument of type from can be passed as to
func convertible(from, to *Type) (score int, ok bool) {
	switch {
	case from == nil || to == nil || to.Kind == TypeParameter:
		return 0, true
	case from.Equal(to):
		return 3, true
	case from.AssignableTo(to):
		return 2, true
	case DecideCast(from, to) == CastNumeric:
		return 1, true
	case from.Kind == TypeNull && to.IsReferenceType():
		return 1, true
	}
	return 0, false
}

// overload picks the best applicable candidate for the call n; ties keep
// declaration order
func (r *resolver) overload(candidates []*Symbol, receiver *Node, n *Node) *Symbol {
	var best *Symbol
	bestScore := -1
	env := typeEnv(r.typeOf(receiver))
	for _, c := range candidates {
		binding, err := r.l.binder.Bind(c, receiver, n.Args, CallSite{Node: n})
		if err != nil {
			continue
		}
		score, ok := 0, true
		for _, e := range binding.Entries {
			want := substitute(e.Type, env)
			if e.Parameter.IsParams && e.NeedsPacking {
				want = e.ElementType()
			}
			for _, a := range e.Args {
				if e.Source != SourceArgument && e.Source != SourceReceiver {
					continue
				}
				s, applicable := convertible(r.typeOf(a), want)
				if !applicable {
					ok = false
				}
				score += s
			}
		}
		if ok && score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// inferTypeArguments matches the generic parameters of method against the static
// types of the bound arguments
func (r *resolver) inferTypeArguments(method *Symbol, binding *InvocationBinding, explicit []*Type) map[string]*Type {
	env := map[string]*Type{}
	for i, name := range method.TypeParameters {
		if i < len(explicit) {
			env[name] = explicit[i]
		}
	}
	for _, e := range binding.Entries {
		if e.Type == nil || e.Type.Kind != TypeParameter || len(e.Args) != 1 {
			continue
		}
		if _, known := env[e.Type.Name]; known {
			continue
		}
		if t := r.typeOf(e.Args[0]); t != nil && t.Kind != TypeNull {
			env[e.Type.Name] = t
		}
	}
	return env
}

// bindArguments records the converted type of every argument of n and resolves
// pending lambdas against their parameter types
func (r *resolver) bindArguments(method *Symbol, receiver *Node, n *Node, env map[string]*Type, lambdas map[*Node]*nodeDoc) error {
	binding, err := r.l.binder.Bind(method, receiver, n.Args, CallSite{Node: n})
	if err != nil {
		return err
	}
	for k, v := range r.inferTypeArguments(method, binding, n.TypeArgs) {
		if env == nil {
			env = map[string]*Type{}
		}
		env[k] = v
	}
	for _, e := range binding.Entries {
		if e.Source != SourceArgument && e.Source != SourceReceiver {
			continue
		}
		want := substitute(e.Type, env)
		if e.Parameter.IsParams && e.NeedsPacking && want != nil && want.Kind == TypeArray {
			want = want.Elem
		}
		for _, a := range e.Args {
			if d, pending := lambdas[a]; pending {
				if _, err := r.lambda(a, d, want); err != nil {
					return err
				}
				r.annotate(a, want, want)
				continue
			}
			if static := r.typeOf(a); static != nil && want != nil && want.Kind != TypeParameter {
				r.l.oracle.SetConverted(a, want)
			}
		}
	}
	return nil
}

func (r *resolver) invocation(n *Node, d *nodeDoc) (*Type, error) {
	var err error
	if n.TypeArgs, err = r.typeList(d.TypeArgs, d.Line); err != nil {
		return nil, err
	}
	args, lambdas, err := r.arguments(d.Args)
	if err != nil {
		return nil, err
	}
	n.Args = args

	var receiver *Node
	var candidates []*Symbol
	var recvType *Type
	target := d.Target
	switch {
	case target == nil:
		return nil, r.l.errorf(d.Line, "invocation without target")
	case target.Kind == "identifier" && r.local(target.Name) == nil && len(r.candidates(r.self, target.Name, SymbolMethod)) > 0:
		candidates = r.candidates(r.self, target.Name, SymbolMethod)
		n.Target = r.node(NodeIdentifier, target)
	case target.Kind == "member":
		recv, static, err := r.receiver(target.Target)
		if err != nil {
			return nil, err
		}
		recvType = r.typeOf(recv)
		for _, c := range r.candidates(recvType, target.Name, SymbolMethod) {
			if c.IsStatic == static {
				candidates = append(candidates, c)
			}
		}
		if !static {
			candidates = append(candidates, r.extensions(recvType, target.Name)...)
		}
		n.Target = r.node(NodeMemberAccess, target)
		n.Target.Target = recv
		switch {
		case len(candidates) == 0:
			r.annotate(n.Target, r.lookupMember(n.Target, recvType, static, nil), nil)
		case !static:
			receiver = recv
		}
	}
	if n.Target == nil {
		if n.Target, err = r.expr(target, nil); err != nil {
			return nil, err
		}
	}

	if len(candidates) == 0 {
		return r.delegateCall(n, lambdas)
	}
	method := r.overload(candidates, receiver, n)
	if method == nil {
		// no applicable overload; emission falls back to the source spelling
		return nil, r.resolvePending(lambdas)
	}
	r.l.oracle.SetSymbol(n, method)
	r.l.oracle.SetSymbol(n.Target, method)
	env := typeEnv(recvType)
	if method.IsExtension {
		env = nil
	}
	if err := r.bindArguments(method, receiver, n, env, lambdas); err != nil {
		return nil, err
	}
	binding, _ := r.l.binder.Bind(method, receiver, n.Args, CallSite{Node: n})
	full := r.inferTypeArguments(method, binding, n.TypeArgs)
	for k, v := range env {
		full[k] = v
	}
	return substitute(method.Type, full), nil
}

// resolvePending types lambdas that never met a delegate type
func (r *resolver) resolvePending(lambdas map[*Node]*nodeDoc) error {
	for n, d := range lambdas {
		if _, err := r.lambda(n, d, nil); err != nil {
			return err
		}
	}
	return nil
}

// delegateCall types the invocation of a delegate value
func (r *resolver) delegateCall(n *Node, lambdas map[*Node]*nodeDoc) (*Type, error) {
	callee := r.typeOf(n.Target)
	if callee == nil || callee.Kind != TypeDelegate {
		return nil, r.resolvePending(lambdas)
	}
	invoke := r.l.invokes[definitionOf(callee).DefinitionKey()]
	if invoke == nil {
		return nil, r.resolvePending(lambdas)
	}
	if sym := r.l.oracle.ResolveSymbol(n.Target); sym != nil {
		r.l.oracle.SetSymbol(n, sym)
	}
	if err := r.bindArguments(invoke, nil, n, typeEnv(callee), lambdas); err != nil {
		return nil, err
	}
	return substitute(invoke.Type, typeEnv(callee)), nil
}

func (r *resolver) creation(n *Node, d *nodeDoc) (*Type, error) {
	t, err := r.parseType(d.Type, d.Line)
	if err != nil {
		return nil, err
	}
	n.TypeRef = t
	args, lambdas, err := r.arguments(d.Args)
	if err != nil {
		return nil, err
	}
	n.Args = args
	ctor := r.overload(r.candidates(t, ".ctor", SymbolConstructor), nil, n)
	if ctor != nil && definitionOf(ctor.Container).DefinitionKey() == definitionOf(t).DefinitionKey() {
		r.l.oracle.SetSymbol(n, ctor)
		if err := r.bindArguments(ctor, nil, n, typeEnv(t), lambdas); err != nil {
			return nil, err
		}
	} else if err := r.resolvePending(lambdas); err != nil {
		return nil, err
	}
	for _, ed := range d.Elements {
		el, err := r.initializerElement(t, ed)
		if err != nil {
			return nil, err
		}
		n.Initializer = append(n.Initializer, el)
	}
	return t, nil
}

// initializerElement resolves one element of an object or collection initializer.
// Member assignments bind their left side to a member of t; other elements become
// initializer nodes bound to t's Add method.
func (r *resolver) initializerElement(t *Type, d *nodeDoc) (*Node, error) {
	if d.Kind == "assign" && d.Left != nil && d.Left.Kind == "identifier" {
		n := r.node(NodeAssignment, d)
		left := r.node(NodeIdentifier, d.Left)
		var lt *Type
		for _, sym := range r.membersNamed(t, d.Left.Name) {
			r.l.oracle.SetSymbol(left, sym)
			lt = substitute(sym.Type, typeEnv(t))
			break
		}
		r.annotate(left, lt, nil)
		n.Left = left
		right, err := r.expr(d.Right, lt)
		if err != nil {
			return nil, err
		}
		n.Right = right
		return r.annotate(n, lt, nil), nil
	}
	values := []*nodeDoc{d}
	if d.Kind == "initializer" {
		values = d.Elements
	}
	el := r.node(NodeInitializer, d)
	el.Args = make([]*Argument, 0, len(values))
	for _, vd := range values {
		v, err := r.expr(vd, nil)
		if err != nil {
			return nil, err
		}
		el.Initializer = append(el.Initializer, v)
		el.Args = append(el.Args, &Argument{Value: v})
	}
	recv := &Node{ID: r.l.id(), Kind: NodeIdentifier}
	r.l.oracle.SetType(recv, t, t)
	add := r.overload(r.candidates(t, "Add", SymbolMethod), recv, el)
	if add != nil {
		r.l.oracle.SetSymbol(el, add)
		if err := r.bindArguments(add, recv, el, typeEnv(t), nil); err != nil {
			return nil, err
		}
	}
	el.Args = nil
	return el, nil
}

func (r *resolver) arrayCreation(n *Node, d *nodeDoc) (*Type, error) {
	elem, err := r.parseType(d.Type, d.Line)
	if err != nil {
		return nil, err
	}
	t := ArrayOf(elem)
	n.TypeRef = t
	for _, ad := range d.Args {
		size, err := r.expr(ad, Int32Type)
		if err != nil {
			return nil, err
		}
		n.Args = append(n.Args, &Argument{Value: size})
	}
	for _, ed := range d.Elements {
		el, err := r.expr(ed, elem)
		if err != nil {
			return nil, err
		}
		n.Initializer = append(n.Initializer, el)
	}
	return t, nil
}

// promote applies binary numeric promotion
func promote(a, b *Type) *Type {
	if a == nil || b == nil || !a.IsNumeric() || !b.IsNumeric() {
		if a != nil && a.IsNumeric() {
			return a
		}
		return b
	}
	pa, pb := a.Primitive, b.Primitive
	switch {
	case pa == PrimFloat64 || pb == PrimFloat64:
		return Float64Type
	case pa == PrimFloat32 || pb == PrimFloat32:
		return Float32Type
	case pa == PrimUInt64 || pb == PrimUInt64:
		return UInt64Type
	case pa == PrimInt64 || pb == PrimInt64:
		return Int64Type
	case pa == PrimUInt32 && pb == PrimUInt32:
		return UInt32Type
	case pa == PrimUInt32 || pb == PrimUInt32:
		return Int64Type
	}
	return Int32Type
}

// userOperator looks for an operator method named op on the operand types
func (r *resolver) userOperator(op string, n *Node, operands ...*Node) *Symbol {
	var candidates []*Symbol
	seen := map[string]bool{}
	for _, o := range operands {
		t := r.typeOf(o)
		if t == nil || (t.Kind != TypeClass && t.Kind != TypeStruct) || seen[t.Key()] {
			continue
		}
		seen[t.Key()] = true
		candidates = append(candidates, r.candidates(t, op, SymbolOperator)...)
	}
	if len(candidates) == 0 {
		return nil
	}
	args := make([]*Argument, len(operands))
	for i, o := range operands {
		args[i] = &Argument{Value: o}
	}
	call := &Node{ID: n.ID, Kind: n.Kind, Pos: n.Pos, Args: args}
	sym := r.overload(candidates, nil, call)
	if sym == nil {
		return nil
	}
	r.l.oracle.SetSymbol(n, sym)
	for i, o := range operands {
		if i < len(sym.Parameters) && r.typeOf(o) != nil {
			r.l.oracle.SetConverted(o, sym.Parameters[i].Type)
		}
	}
	return sym
}

func (r *resolver) binary(n *Node, d *nodeDoc) (*Type, error) {
	var err error
	if n.Left, err = r.expr(d.Left, nil); err != nil {
		return nil, err
	}
	if n.Right, err = r.expr(d.Right, nil); err != nil {
		return nil, err
	}
	if name := operatorName(d.Op, 2); name != d.Op {
		if op := r.userOperator(name, n, n.Left, n.Right); op != nil {
			return op.Type, nil
		}
	}
	lt, rt := r.typeOf(n.Left), r.typeOf(n.Right)
	switch d.Op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return BoolType, nil
	case "??":
		return lt, nil
	case "+":
		if (lt != nil && lt.Kind == TypeString) || (rt != nil && rt.Kind == TypeString) {
			return StringType, nil
		}
	case "<<", ">>":
		return promote(lt, Int32Type), nil
	case "&", "|", "^":
		if lt != nil && (lt.Kind == TypeEnum || (lt.Kind == TypePrimitive && lt.Primitive == PrimBool)) {
			return lt, nil
		}
	}
	return promote(lt, rt), nil
}

func (r *resolver) unary(n *Node, d *nodeDoc) (*Type, error) {
	var err error
	if n.Target, err = r.expr(d.Target, nil); err != nil {
		return nil, err
	}
	if name := operatorName(d.Op, 1); name != d.Op {
		if op := r.userOperator(name, n, n.Target); op != nil {
			return op.Type, nil
		}
	}
	t := r.typeOf(n.Target)
	switch d.Op {
	case "!":
		return BoolType, nil
	case "++", "--":
		return t, nil
	}
	return promote(t, Int32Type), nil
}

func (r *resolver) assignment(n *Node, d *nodeDoc) (*Type, error) {
	var err error
	if n.Left, err = r.expr(d.Left, nil); err != nil {
		return nil, err
	}
	lt := r.typeOf(n.Left)
	expected := lt
	if d.Op != "" && d.Op != "=" && lt != nil && lt.Kind == TypeString {
		expected = nil
	}
	if n.Right, err = r.expr(d.Right, expected); err != nil {
		return nil, err
	}
	return lt, nil
}

// typed resolves the expressions that carry a type reference
func (r *resolver) typed(n *Node, d *nodeDoc, expected *Type) (*Type, error) {
	if d.Type != "" {
		t, err := r.parseType(d.Type, d.Line)
		if err != nil {
			return nil, err
		}
		n.TypeRef = t
	}
	if d.Target != nil {
		var err error
		if n.Target, err = r.expr(d.Target, nil); err != nil {
			return nil, err
		}
	}
	switch n.Kind {
	case NodeIs:
		if d.Name != "" && n.TypeRef != nil {
			sym := &Symbol{Kind: SymbolLocal, Name: d.Name, Type: n.TypeRef}
			r.declare(sym)
			r.l.oracle.SetDeclared(n, sym)
		}
		return BoolType, nil
	case NodeTypeOf:
		return r.l.lookupType("System.Type", 0, ""), nil
	case NodeDefault:
		if n.TypeRef == nil {
			return expected, nil
		}
	}
	return n.TypeRef, nil
}

func (r *resolver) conditional(n *Node, d *nodeDoc) (*Type, error) {
	var err error
	if n.Cond, err = r.expr(d.Cond, BoolType); err != nil {
		return nil, err
	}
	if n.Then, err = r.expr(d.Then, nil); err != nil {
		return nil, err
	}
	if n.Else, err = r.expr(d.Else, nil); err != nil {
		return nil, err
	}
	t := r.typeOf(n.Then)
	if t == nil || t.Kind == TypeNull {
		t = r.typeOf(n.Else)
	} else if et := r.typeOf(n.Else); et != nil && t.IsNumeric() && et.IsNumeric() {
		t = promote(t, et)
	}
	for _, branch := range []*Node{n.Then, n.Else} {
		if r.typeOf(branch) != nil {
			r.l.oracle.SetConverted(branch, t)
		}
	}
	return t, nil
}

func (r *resolver) elementAccess(n *Node, d *nodeDoc) (*Type, error) {
	var err error
	if n.Target, err = r.expr(d.Target, nil); err != nil {
		return nil, err
	}
	args, lambdas, err := r.arguments(d.Args)
	if err != nil {
		return nil, err
	}
	n.Args = args
	if err := r.resolvePending(lambdas); err != nil {
		return nil, err
	}
	t := r.typeOf(n.Target)
	switch {
	case t == nil:
		return nil, nil
	case t.Kind == TypeArray:
		return t.Elem, nil
	case t.Kind == TypeString:
		return CharType, nil
	}
	var indexers []*Symbol
	for _, s := range r.candidates(t, "Item", SymbolProperty) {
		if len(s.Parameters) > 0 {
			indexers = append(indexers, s)
		}
	}
	item := r.overload(indexers, n.Target, n)
	if item == nil {
		return nil, nil
	}
	r.l.oracle.SetSymbol(n, item)
	if err := r.bindArguments(item, n.Target, n, typeEnv(t), nil); err != nil {
		return nil, err
	}
	return substitute(item.Type, typeEnv(t)), nil
}

func (r *resolver) lambda(n *Node, d *nodeDoc, expected *Type) (*Type, error) {
	var invoke *Symbol
	if expected != nil && expected.Kind == TypeDelegate {
		invoke = r.l.invokes[definitionOf(expected).DefinitionKey()]
	}
	env := typeEnv(expected)
	r.push()
	defer r.pop()
	n.Parameters = nil
	for i, pd := range d.Parameters {
		p := &Parameter{Name: pd.Name}
		switch {
		case pd.Type != "":
			t, err := r.parseType(pd.Type, d.Line)
			if err != nil {
				return nil, err
			}
			p.Type = t
		case invoke != nil && i < len(invoke.Parameters):
			p.Type = substitute(invoke.Parameters[i].Type, env)
		}
		n.Parameters = append(n.Parameters, p)
		r.declare(&Symbol{Kind: SymbolParameter, Name: p.Name, Type: p.Type})
	}
	returns := r.returns
	defer func() { r.returns = returns }()
	r.returns = nil
	if invoke != nil {
		r.returns = substitute(invoke.Type, env)
	}
	var err error
	if d.Body != nil && d.Body.Kind == "block" {
		n.Body, err = r.block(d.Body)
	} else {
		n.Body, err = r.expr(d.Body, r.returns)
	}
	if err != nil {
		return nil, err
	}
	return expected, nil
}

func (r *resolver) anonymous(n *Node, d *nodeDoc) (*Type, error) {
	for _, ed := range d.Elements {
		if ed.Kind != "assign" || ed.Left == nil {
			return nil, r.l.errorf(ed.Line, "anonymous object members must be assignments")
		}
		el := r.node(NodeAssignment, ed)
		el.Left = r.node(NodeIdentifier, ed.Left)
		right, err := r.expr(ed.Right, nil)
		if err != nil {
			return nil, err
		}
		el.Right = right
		n.Initializer = append(n.Initializer, el)
	}
	return DynamicType, nil
}
