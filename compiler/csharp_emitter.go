package compiler

import (
	"sort"
	"strings"
)

// C# type mapping
var csharpPrimitives = map[PrimitiveKind]string{
	PrimBool:    "bool",
	PrimChar:    "char",
	PrimInt8:    "sbyte",
	PrimUInt8:   "byte",
	PrimInt16:   "short",
	PrimUInt16:  "ushort",
	PrimInt32:   "int",
	PrimUInt32:  "uint",
	PrimInt64:   "long",
	PrimUInt64:  "ulong",
	PrimFloat32: "float",
	PrimFloat64: "double",
}

var csharpKeywords = keywordSet(`abstract as base bool break byte case catch char checked class const
	continue decimal default delegate do double else enum event explicit extern false finally fixed
	float for foreach goto if implicit in int interface internal is lock long namespace new null object
	operator out override params private protected public readonly ref return sbyte sealed short sizeof
	stackalloc static string struct switch this throw true try typeof uint ulong unchecked unsafe ushort
	using virtual void volatile while`)

// CSharpEmitter renders C# source, one file per type
type CSharpEmitter struct {
	BaseEmitter
}

// NewCSharpEmitter creates the C# backend
func NewCSharpEmitter() *CSharpEmitter {
	return &CSharpEmitter{BaseEmitter{dialect: &Dialect{
		Name:              "csharp",
		This:              "this",
		Base:              "base",
		Null:              "null",
		InstanceSeparator: ".",
		StaticSeparator:   ".",
		FloatSuffix:       "f",
		LongSuffix:        "L",
		Types: &TypeSyntax{
			Indent:             "    ",
			Primitives:         csharpPrimitives,
			String:             "string",
			Object:             "object",
			Dynamic:            "dynamic",
			Void:               "void",
			NamespaceSeparator: ".",
			GenericOpen:        "<",
			GenericClose:       ">",
			ArrayFormat:        func(elem string) string { return elem + "[]" },
			ArityOverloading:   true,
		},
		Casts: &CastSyntax{
			Numeric:  CastForm{Format: "({type}){expr}", OperandPrec: PrecPostfix, ResultPrec: PrecUnary},
			Explicit: CastForm{Format: "({type}){expr}", OperandPrec: PrecPostfix, ResultPrec: PrecUnary},
		},
		Precedence:     CFamilyPrecedence,
		Extensions:     map[ArtifactKind]string{ArtifactSource: ".cs"},
		Keywords:       csharpKeywords,
		EscapeKeyword:  func(s string) string { return "@" + s },
		TempPrefix:     "__",
		NullCoalescing: true,
		NativeEvents:   true,
		NativeIndexers: true,
		BraceOnNewLine: true,
		Rethrow:        "throw;",
		ForeachHead: func(typ, name, coll string) string {
			return "foreach (" + typ + " " + name + " in " + coll + ")"
		},
	}}}
}

func (cse *CSharpEmitter) Artifacts(decl *TypeDecl, types *TypeResolver) []Artifact {
	return artifactsFor(cse.dialect, types, decl, false)
}

func (cse *CSharpEmitter) DefaultValue(ctx *Context, t *Type) string {
	if t != nil && (t.Kind == TypeParameter || t.Kind == TypeStruct || t.Kind == TypeEnum) {
		return "default(" + ctx.TypeName(t, OwnershipValue) + ")"
	}
	return cse.BaseEmitter.DefaultValue(ctx, t)
}

// InitializeObject keeps the native initializer syntax
func (cse *CSharpEmitter) InitializeObject(ctx *Context, n *Node, created Rendered, t *Type) (Rendered, error) {
	items := make([]string, 0, len(n.Initializer))
	for _, el := range n.Initializer {
		switch el.Kind {
		case NodeAssignment:
			v, err := ctx.Expr(el.Right)
			if err != nil {
				return Rendered{}, err
			}
			name := el.Left.Name
			if sym := ctx.Symbol(el.Left); sym != nil {
				name = cse.SymbolName(ctx, sym)
			}
			items = append(items, name+" = "+v.Text)
		case NodeInitializer:
			values, err := cse.plainArguments(ctx, argumentsOf(el.Initializer))
			if err != nil {
				return Rendered{}, err
			}
			if len(values) == 1 {
				items = append(items, values[0])
				continue
			}
			items = append(items, braceList(values))
		default:
			v, err := ctx.Expr(el)
			if err != nil {
				return Rendered{}, err
			}
			items = append(items, v.Text)
		}
	}
	return Rendered{Text: created.Text + " " + braceList(items), Prec: PrecPostfix}, nil
}

func argumentsOf(nodes []*Node) []*Argument {
	out := make([]*Argument, len(nodes))
	for i, n := range nodes {
		out[i] = &Argument{Value: n}
	}
	return out
}

func (cse *CSharpEmitter) EmitAnonymousObject(ctx *Context, n *Node) (Rendered, error) {
	members, err := cse.anonymousMembers(ctx, n)
	if err != nil {
		return Rendered{}, err
	}
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = m[0] + " = " + m[1]
	}
	return Rendered{Text: "new " + braceList(parts), Prec: PrecPostfix}, nil
}

func (cse *CSharpEmitter) EmitTypeOf(ctx *Context, n *Node) (Rendered, error) {
	return Rendered{Text: "typeof(" + ctx.TypeName(n.TypeRef, OwnershipValue) + ")", Prec: PrecPostfix}, nil
}

func (cse *CSharpEmitter) EmitLocalDeclaration(ctx *Context, n *Node) error {
	name, t := cse.localDeclaration(ctx, n)
	typ := "var"
	if t != nil {
		typ = ctx.TypeName(t, OwnershipValue)
	}
	text := typ + " " + name
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

func (cse *CSharpEmitter) EmitTry(ctx *Context, n *Node) error {
	openBlock(ctx, "try")
	if err := body(ctx, n.Body); err != nil {
		return err
	}
	closeBlock(ctx)
	for _, c := range n.Catches {
		head := "catch"
		name := c.Name
		if c.Type != nil {
			head += " (" + ctx.TypeName(c.Type, OwnershipValue)
			if name != "" {
				name = cse.dialect.Identifier(name)
				head += " " + name
			}
			head += ")"
		}
		continueBlock(ctx, head)
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

func (cse *CSharpEmitter) EmitYield(ctx *Context, n *Node) error {
	if n.Value == nil {
		ctx.Writer.Write("yield break;")
		return nil
	}
	v, err := ctx.Expr(n.Value)
	if err != nil {
		return err
	}
	ctx.Writer.Write("yield return " + v.Text + ";")
	return nil
}

func (cse *CSharpEmitter) EmitArtifact(ctx *Context) error {
	decl := ctx.Decl
	w := ctx.Writer
	return writeUnit(ctx, func() error {
		return cse.declareType(ctx, decl)
	}, func() error {
		usings := map[string]bool{}
		for _, e := range ctx.Imports.Entries() {
			if ns := e.Type.Namespace; ns != "" && ns != namespaceOf(decl) && !strings.HasPrefix(namespaceOf(decl)+".", ns+".") {
				usings[ns] = true
			}
		}
		for _, r := range ctx.Requirements() {
			usings[r] = true
		}
		names := make([]string, 0, len(usings))
		for ns := range usings {
			names = append(names, ns)
		}
		sort.Strings(names)
		for _, ns := range names {
			w.WriteLine("using " + ns + ";")
		}
		if len(names) > 0 {
			w.BlankLine()
		}
		if ns := namespaceOf(decl); ns != "" {
			w.WriteLine("namespace " + ns + ";")
			w.BlankLine()
		}
		return nil
	})
}

func (cse *CSharpEmitter) modifiers(sym *Symbol, inInterface bool) string {
	var parts []string
	if !inInterface {
		parts = append(parts, accessKeyword(sym, "internal"))
	}
	switch {
	case sym.IsStatic:
		parts = append(parts, "static")
	case inInterface:
	case sym.IsAbstract:
		parts = append(parts, "abstract")
	case sym.IsOverride:
		parts = append(parts, "override")
	case sym.IsVirtual:
		parts = append(parts, "virtual")
	}
	if sym.IsReadOnly && sym.Kind == SymbolField {
		parts = append(parts, "readonly")
	}
	return strings.Join(parts, " ")
}

func (cse *CSharpEmitter) parameters(ctx *Context, params []*Parameter) (string, error) {
	return formalParameters(ctx, params, func(p *Parameter, typ, name string) (string, error) {
		prefix := ""
		switch {
		case p.IsThis:
			prefix = "this "
		case p.IsParams:
			prefix = "params "
		case p.RefKind == RefRef:
			prefix = "ref "
		case p.RefKind == RefOut:
			prefix = "out "
		case p.RefKind == RefIn:
			prefix = "in "
		}
		s := prefix + typ + " " + name
		switch {
		case p.DefaultConstant != nil:
			s += " = " + cse.Literal(ctx, *p.DefaultConstant, p.Type)
		case p.Default != nil:
			v, err := ctx.Expr(p.Default)
			if err != nil {
				return "", err
			}
			s += " = " + v.Text
		case p.IsOptional || p.CallerInfo != CallerInfoNone:
			s += " = " + cse.DefaultValue(ctx, p.Type)
		}
		return s, nil
	})
}

func (cse *CSharpEmitter) declareType(ctx *Context, decl *TypeDecl) error {
	w := ctx.Writer
	name := ctx.Types.DeclaredName(decl.Type) + typeParameterList(ctx, decl)
	access := accessKeyword(decl.Symbol, "internal")

	switch decl.Type.Kind {
	case TypeEnum:
		openBlock(ctx, access+" enum "+name)
		for _, m := range decl.EnumMembers {
			line := cse.dialect.Identifier(m.Name)
			if m.Value != nil {
				line += " = " + m.Value.Text
			}
			w.WriteLine(line + ",")
		}
		closeBlock(ctx)
		w.EndLine()
		return nil
	case TypeDelegate:
		params, err := cse.parameters(ctx, decl.Invoke.Parameters)
		if err != nil {
			return err
		}
		w.WriteLine(access + " delegate " + returnType(ctx, decl.Invoke) + " " + name + "(" + params + ");")
		return nil
	}

	keyword := "class"
	switch decl.Type.Kind {
	case TypeInterface:
		keyword = "interface"
	case TypeStruct:
		keyword = "struct"
	}
	head := access + " "
	if decl.Symbol != nil && decl.Symbol.IsAbstract && keyword == "class" {
		head += "abstract "
	}
	head += keyword + " " + name
	var supers []string
	base, ifaces := supertypes(decl)
	if base != nil {
		supers = append(supers, ctx.TypeName(base, OwnershipValue))
	}
	for _, i := range ifaces {
		supers = append(supers, ctx.TypeName(i, OwnershipValue))
	}
	if len(supers) > 0 {
		head += " : " + strings.Join(supers, ", ")
	}
	openBlock(ctx, head)
	inInterface := decl.Type.Kind == TypeInterface
	for i, m := range decl.Members {
		if i > 0 && (m.Kind != MemberField || decl.Members[i-1].Kind != MemberField) {
			w.BlankLine()
		}
		if err := withMember(ctx, m, func() error { return cse.declareMember(ctx, decl, m, inInterface) }); err != nil {
			return err
		}
	}
	closeBlock(ctx)
	w.EndLine()
	return nil
}

func (cse *CSharpEmitter) declareMember(ctx *Context, decl *TypeDecl, m *MemberDecl, inInterface bool) error {
	w := ctx.Writer
	sym := m.Symbol
	mods := cse.modifiers(sym, inInterface)
	if mods != "" {
		mods += " "
	}
	name := cse.SymbolName(ctx, sym)
	switch m.Kind {
	case MemberField:
		line := mods + ctx.TypeName(sym.Type, OwnershipValue) + " " + name
		if m.Initializer != nil {
			v, err := initialValue(ctx, m)
			if err != nil {
				return err
			}
			line += " = " + v
		}
		w.WriteLine(line + ";")
	case MemberEvent:
		w.WriteLine(mods + "event " + ctx.TypeName(sym.Type, OwnershipValue) + " " + name + ";")
	case MemberProperty:
		head := mods + ctx.TypeName(sym.Type, OwnershipValue) + " " + name
		if len(sym.Parameters) > 0 {
			params, err := cse.parameters(ctx, sym.Parameters)
			if err != nil {
				return err
			}
			head = mods + ctx.TypeName(sym.Type, OwnershipValue) + " this[" + params + "]"
		}
		if m.IsAutoProperty() {
			acc := "{ get; set; }"
			if sym.IsReadOnly {
				acc = "{ get; }"
			}
			line := head + " " + acc
			if m.Initializer != nil {
				v, err := initialValue(ctx, m)
				if err != nil {
					return err
				}
				line += " = " + v + ";"
			}
			w.WriteLine(line)
			return nil
		}
		openBlock(ctx, head)
		if m.Getter != nil {
			if err := writeBody(ctx, "get", m.Getter); err != nil {
				return err
			}
		}
		if m.Setter != nil {
			if err := writeBody(ctx, "set", m.Setter); err != nil {
				return err
			}
		}
		closeBlock(ctx)
		w.EndLine()
	case MemberConstructor:
		params, err := cse.parameters(ctx, sym.Parameters)
		if err != nil {
			return err
		}
		head := accessKeyword(sym, "internal") + " "
		if sym.IsStatic {
			head = "static "
		}
		head += ctx.Types.DeclaredName(decl.Type) + "(" + params + ")"
		if m.Chain != nil {
			toBase, args, err := cse.constructorChain(ctx, m)
			if err != nil {
				return err
			}
			target := "this"
			if toBase {
				target = "base"
			}
			head += " : " + target + "(" + strings.Join(args, ", ") + ")"
		}
		return writeBody(ctx, head, m.Body)
	case MemberMethod, MemberOperator:
		params, err := cse.parameters(ctx, sym.Parameters)
		if err != nil {
			return err
		}
		head := mods + returnType(ctx, sym) + " "
		if m.Kind == MemberOperator {
			head += "operator " + sym.OperatorToken()
		} else {
			head += name
			if len(sym.TypeParameters) > 0 {
				head += "<" + strings.Join(sym.TypeParameters, ", ") + ">"
			}
		}
		head += "(" + params + ")"
		if m.Body == nil {
			w.WriteLine(head + ";")
			return nil
		}
		return writeBody(ctx, head, m.Body)
	}
	return nil
}
