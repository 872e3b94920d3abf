package compiler

import (
	"strconv"
	"strings"
	"unicode"
)

// writeUnit emits the declaration into a captured buffer first, so the import
// tracker is complete when prologue runs, then appends the captured text
func writeUnit(ctx *Context, declare func() error, prologue func() error) error {
	text, err := ctx.Capture(declare)
	if err != nil {
		return err
	}
	if err := prologue(); err != nil {
		return err
	}
	ctx.Writer.WriteRaw(text)
	return nil
}

// withMember runs fn with m as the member being emitted
func withMember(ctx *Context, m *MemberDecl, fn func() error) error {
	prev, prevCtor := ctx.Member, ctx.inConstructor
	ctx.Member = m
	ctx.inConstructor = m != nil && m.Kind == MemberConstructor
	defer func() {
		ctx.Member, ctx.inConstructor = prev, prevCtor
	}()
	return fn()
}

// writeBody writes head and a braced body, ending the line
func writeBody(ctx *Context, head string, n *Node, prelude ...string) error {
	openBlock(ctx, head)
	for _, line := range prelude {
		ctx.Writer.WriteLine(line)
	}
	if err := body(ctx, n); err != nil {
		return err
	}
	closeBlock(ctx)
	ctx.Writer.EndLine()
	return nil
}

// membersOfKind filters the members of decl, keeping declaration order
func membersOfKind(decl *TypeDecl, kinds ...MemberKind) []*MemberDecl {
	var out []*MemberDecl
	for _, m := range decl.Members {
		for _, k := range kinds {
			if m.Kind == k {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// formalParameters renders a parameter list with format applied to each parameter
func formalParameters(ctx *Context, params []*Parameter, format func(p *Parameter, typ, name string) (string, error)) (string, error) {
	d := ctx.Renderer.Dialect()
	out := make([]string, 0, len(params))
	for _, p := range params {
		name := d.Identifier(d.localName(p.Name))
		typ := ctx.TypeName(p.Type, ctx.Ownership(p.Type, false, false))
		s, err := format(p, typ, name)
		if err != nil {
			return "", err
		}
		out = append(out, s)
	}
	return strings.Join(out, ", "), nil
}

// returnType renders the return type of a method symbol
func returnType(ctx *Context, sym *Symbol) string {
	t := sym.Type
	if t == nil {
		t = VoidType
	}
	return ctx.TypeName(t, ctx.Ownership(t, true, false))
}

// supertypes splits the direct supertypes of decl into its base class and the
// implemented interfaces; the object root is dropped
func supertypes(decl *TypeDecl) (base *Type, interfaces []*Type) {
	if b := decl.Type.Base; b != nil && b.Kind == TypeClass {
		base = b
	}
	return base, decl.Type.Interfaces
}

// typeParameterList renders <T, U> for a generic declaration
func typeParameterList(ctx *Context, decl *TypeDecl) string {
	if !decl.IsGeneric() {
		return ""
	}
	s := ctx.Types.Syntax()
	return s.GenericOpen + strings.Join(decl.TypeParameters(), ", ") + s.GenericClose
}

// constructorChain renders the arguments of a constructor initializer and reports
// whether it calls the base class
func (be *BaseEmitter) constructorChain(ctx *Context, m *MemberDecl) (toBase bool, args []string, err error) {
	chain := m.Chain
	if chain == nil {
		return false, nil, nil
	}
	toBase = chain.Target == nil || chain.Target.Kind == NodeBase
	sym := ctx.Symbol(chain)
	if sym == nil {
		ctx.Fallback(chain)
		args, err = be.plainArguments(ctx, chain.Args)
		return toBase, args, err
	}
	binding, err := ctx.Binder.Bind(sym, nil, chain.Args, be.callSite(ctx, chain))
	if err != nil {
		return toBase, nil, err
	}
	args, err = be.arguments(ctx, binding)
	return toBase, args, err
}

// initialValue renders the declared initializer of a field or auto property, or the
// type's default value
func initialValue(ctx *Context, m *MemberDecl) (string, error) {
	if m.Initializer == nil {
		return ctx.Renderer.DefaultValue(ctx, m.Symbol.Type), nil
	}
	var text string
	err := withMember(ctx, m, func() error {
		r, err := ctx.Expr(m.Initializer)
		text = r.Text
		return err
	})
	return text, err
}

// overloadSuffix distinguishes the overloads of a method or constructor for targets
// without overloading: the first declaration keeps its name, later ones get an index
func overloadSuffix(ctx *Context, sym *Symbol) string {
	if ctx.Compilation == nil || sym.Container == nil {
		return ""
	}
	key := ctx.SymbolKey(sym)
	i := 0
	for _, m := range ctx.Compilation.Members[definitionOf(sym.Container).DefinitionKey()] {
		if m == sym || ctx.SymbolKey(m) == key {
			if i == 0 {
				return ""
			}
			return "_" + strconv.Itoa(i)
		}
		if m.Kind == sym.Kind && m.Name == sym.Name {
			i++
		}
	}
	return ""
}

// hasOverloads reports whether decl declares two methods of the same name or more
// than one constructor
func hasOverloads(decl *TypeDecl) (string, bool) {
	seen := map[string]bool{}
	for _, m := range decl.Members {
		key := ""
		switch m.Kind {
		case MemberMethod:
			key = m.Symbol.Name
		case MemberConstructor:
			key = ".ctor"
		default:
			continue
		}
		if seen[key] {
			return key, true
		}
		seen[key] = true
	}
	return "", false
}

// enumValue is the explicit value of an enum member or the implicit next one
func enumValue(c *Constant, next int) string {
	if c != nil {
		return c.Text
	}
	return strconv.Itoa(next)
}

// parseIntOr parses an integer enum value, falling back for non-decimal spellings
func parseIntOr(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

// lowerFirst spells a member name in camelCase
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	i := 0
	for i < len(runes) && unicode.IsUpper(runes[i]) {
		// keep the last capital of an acronym followed by a word: XMLParser -> xmlParser
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
		i++
	}
	return string(runes)
}

// snakeCase spells a name in snake_case
func snakeCase(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// keywordSet builds a reserved word lookup
func keywordSet(words string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(words) {
		out[w] = true
	}
	return out
}

// namespaceOf is the namespace decl is emitted into, after renames
func namespaceOf(decl *TypeDecl) string {
	if i := strings.LastIndex(decl.Type.Rename, "."); i >= 0 {
		return decl.Type.Rename[:i]
	}
	return decl.Type.Namespace
}

// accessKeyword spells the accessibility of a symbol; internal maps to public on
// targets without assembly visibility
func accessKeyword(sym *Symbol, internal string) string {
	if sym == nil {
		return "public"
	}
	if sym.Accessibility == AccessInternal {
		return internal
	}
	return sym.Accessibility.String()
}
