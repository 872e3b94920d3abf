package compiler

import (
	"sort"
	"strings"
)

// Java type mapping - note Java has no unsigned types
var javaPrimitives = map[PrimitiveKind]string{
	PrimBool:    "boolean",
	PrimChar:    "char",
	PrimInt8:    "byte",
	PrimUInt8:   "int",  // No unsigned in Java, use wider signed
	PrimInt16:   "short",
	PrimUInt16:  "int",  // No unsigned in Java
	PrimInt32:   "int",
	PrimUInt32:  "long", // No unsigned in Java
	PrimInt64:   "long",
	PrimUInt64:  "long", // No unsigned in Java (would need BigInteger for full range)
	PrimFloat32: "float",
	PrimFloat64: "double",
}

// javaBoxedTypes maps primitive types to their boxed versions for generics
var javaBoxedTypes = map[PrimitiveKind]string{
	PrimBool:    "Boolean",
	PrimChar:    "Character",
	PrimInt8:    "Byte",
	PrimUInt8:   "Integer",
	PrimInt16:   "Short",
	PrimUInt16:  "Integer",
	PrimInt32:   "Integer",
	PrimUInt32:  "Long",
	PrimInt64:   "Long",
	PrimUInt64:  "Long",
	PrimFloat32: "Float",
	PrimFloat64: "Double",
}

// javaExternalTypes maps library types of the source language to the JDK
var javaExternalTypes = map[string]string{
	"System.Exception":                       "java.lang.RuntimeException",
	"System.ArgumentException":               "java.lang.IllegalArgumentException",
	"System.InvalidOperationException":       "java.lang.IllegalStateException",
	"System.Collections.Generic.List`1":       "java.util.ArrayList",
	"System.Collections.Generic.Dictionary`2": "java.util.HashMap",
	"System.Collections.Generic.HashSet`1":    "java.util.HashSet",
	"System.Action":                          "java.lang.Runnable",
}

var javaKeywords = keywordSet(`abstract assert boolean break byte case catch char class const continue
	default do double else enum extends final finally float for goto if implements import instanceof
	int interface long native new package private protected public return short static strictfp super
	switch synchronized this throw throws transient try void volatile while`)

// JavaEmitter renders Java source, one file per type under lower-cased package
// directories
type JavaEmitter struct {
	BaseEmitter
}

// NewJavaEmitter creates the Java backend
func NewJavaEmitter() *JavaEmitter {
	return &JavaEmitter{BaseEmitter{dialect: &Dialect{
		Name:              "java",
		This:              "this",
		Base:              "super",
		Null:              "null",
		InstanceSeparator: ".",
		StaticSeparator:   ".",
		FloatSuffix:       "f",
		LongSuffix:        "L",
		Types: &TypeSyntax{
			Indent:             "    ",
			Primitives:         javaPrimitives,
			BoxedPrimitives:    javaBoxedTypes,
			String:             "String",
			Object:             "Object",
			Dynamic:            "Object",
			Void:               "void",
			NamespaceSeparator: ".",
			NamespaceSegment:   strings.ToLower,
			GenericOpen:        "<",
			GenericClose:       ">",
			ArrayFormat:        func(elem string) string { return elem + "[]" },
			ExternalTypes:      javaExternalTypes,
		},
		Casts: &CastSyntax{
			Numeric:  CastForm{Format: "({type}) {expr}", OperandPrec: PrecPostfix, ResultPrec: PrecUnary},
			Explicit: CastForm{Format: "({type}) {expr}", OperandPrec: PrecPostfix, ResultPrec: PrecUnary},
		},
		Precedence: CFamilyPrecedence,
		Extensions: map[ArtifactKind]string{ArtifactSource: ".java"},
		PathSegment: func(seg string, file bool) string {
			if file {
				return seg
			}
			return strings.ToLower(seg)
		},
		MemberName:    lowerFirst,
		LocalName:     lowerFirst,
		Keywords:      javaKeywords,
		EscapeKeyword: func(s string) string { return s + "_" },
		TempPrefix:    "__",
		ForeachHead: func(typ, name, coll string) string {
			return "for (" + typ + " " + name + " : " + coll + ")"
		},
	}}}
}

func (je *JavaEmitter) Artifacts(decl *TypeDecl, types *TypeResolver) []Artifact {
	return artifactsFor(je.dialect, types, decl, false)
}

func getterName(prop *Symbol) string {
	if prop.Type != nil && prop.Type.Kind == TypePrimitive && prop.Type.Primitive == PrimBool {
		return "is" + prop.TargetName()
	}
	return "get" + prop.TargetName()
}

func setterName(prop *Symbol) string {
	return "set" + prop.TargetName()
}

func (je *JavaEmitter) PropertyGet(ctx *Context, receiver string, prop *Symbol) Rendered {
	return accessorGet(receiver, getterName(prop))
}

func (je *JavaEmitter) PropertySet(ctx *Context, receiver string, prop *Symbol, op string, value Rendered) Rendered {
	return accessorSet(ctx, receiver, prop, op, value, getterName(prop), setterName(prop))
}

// MethodGroup turns a method into a method reference
func (je *JavaEmitter) MethodGroup(ctx *Context, receiver string, method *Symbol) (Rendered, error) {
	owner := strings.TrimSuffix(receiver, ".")
	return Rendered{Text: owner + "::" + je.SymbolName(ctx, method), Prec: PrecPostfix}, nil
}

func (je *JavaEmitter) DelegateCall(ctx *Context, callee Rendered, args []string) Rendered {
	return Rendered{Text: callee.Operand(PrecPostfix) + ".invoke(" + strings.Join(args, ", ") + ")", Prec: PrecPostfix}
}

func (je *JavaEmitter) OperatorCall(ctx *Context, op *Symbol, operands []Rendered) Rendered {
	return staticOperatorCall(ctx, op, operands)
}

func (je *JavaEmitter) RefArgument(ctx *Context, kind RefKind, arg *Node, text string) (string, error) {
	return "", unsupported(je.dialect.Name, arg, "by-reference argument")
}

func (je *JavaEmitter) NewArray(ctx *Context, elem *Type, size string, items []string, literal bool) Rendered {
	ctx.NoteType(elem)
	name := ctx.Types.TypeName(elem, OwnershipValue, TypeNameOptions{NoTypeArguments: true})
	if !literal {
		return Rendered{Text: "new " + name + "[" + size + "]", Prec: PrecPostfix}
	}
	return Rendered{Text: "new " + name + "[] " + braceList(items), Prec: PrecPostfix}
}

// InitializeObject fills a temporary inside a supplier lambda invoked in place
func (je *JavaEmitter) InitializeObject(ctx *Context, n *Node, created Rendered, t *Type) (Rendered, error) {
	tmp := ctx.Temp("init")
	stmts, err := je.initializerStatements(ctx, tmp, n)
	if err != nil {
		return Rendered{}, err
	}
	ctx.Require("java.util.function.Supplier")
	typ := ctx.TypeName(t, OwnershipValue)
	text, err := iife(ctx, "((Supplier<"+typ+">) () -> {", typ+" "+tmp+" = "+created.Text+";", stmts, "return "+tmp+";", "}).get()")
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Text: text, Prec: PrecPostfix}, nil
}

func (je *JavaEmitter) EmitBinary(ctx *Context, n *Node) (Rendered, error) {
	if n.Operator != "??" {
		return je.BaseEmitter.EmitBinary(ctx, n)
	}
	left, err := ctx.Expr(n.Left)
	if err != nil {
		return Rendered{}, err
	}
	right, err := ctx.Expr(n.Right)
	if err != nil {
		return Rendered{}, err
	}
	ctx.Require("java.util.Objects")
	return Rendered{Text: "Objects.requireNonNullElse(" + left.Text + ", " + right.Text + ")", Prec: PrecPostfix}, nil
}

func (je *JavaEmitter) EmitLambda(ctx *Context, n *Node) (Rendered, error) {
	params := je.lambdaParameters(ctx, n, func(typ, name string) string { return name })
	body, _, err := je.lambdaBody(ctx, n)
	if err != nil {
		return Rendered{}, err
	}
	head := "(" + strings.Join(params, ", ") + ")"
	if len(params) == 1 {
		head = params[0]
	}
	return Rendered{Text: head + " -> " + body, Prec: PrecAssignment, Mode: AutoCastSkip}, nil
}

func (je *JavaEmitter) EmitIs(ctx *Context, n *Node) (Rendered, error) {
	operand, err := ctx.Operand(n.Target, PrecRelational)
	if err != nil {
		return Rendered{}, err
	}
	text := operand + " instanceof " + ctx.TypeName(n.TypeRef, OwnershipValue)
	if n.Name != "" {
		text += " " + je.dialect.Identifier(lowerFirst(n.Name))
	}
	return Compound(text, PrecRelational), nil
}

func (je *JavaEmitter) EmitAs(ctx *Context, n *Node) (Rendered, error) {
	if !simpleOperand(n.Target) {
		return Rendered{}, unsupported(je.dialect.Name, n, "as on a compound operand")
	}
	operand, err := ctx.Operand(n.Target, PrecRelational)
	if err != nil {
		return Rendered{}, err
	}
	typ := ctx.TypeName(n.TypeRef, OwnershipValue)
	return Compound(operand+" instanceof "+typ+" ? ("+typ+") "+operand+" : null", PrecConditional), nil
}

func (je *JavaEmitter) EmitAnonymousObject(ctx *Context, n *Node) (Rendered, error) {
	members, err := je.anonymousMembers(ctx, n)
	if err != nil {
		return Rendered{}, err
	}
	parts := make([]string, 0, 2*len(members))
	for _, m := range members {
		parts = append(parts, `"`+m[0]+`"`, m[1])
	}
	ctx.Require("java.util.Map")
	return Rendered{Text: "Map.of(" + strings.Join(parts, ", ") + ")", Prec: PrecPostfix}, nil
}

func (je *JavaEmitter) EmitLocalDeclaration(ctx *Context, n *Node) error {
	name, t := je.localDeclaration(ctx, n)
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

func (je *JavaEmitter) EmitArtifact(ctx *Context) error {
	decl := ctx.Decl
	w := ctx.Writer
	return writeUnit(ctx, func() error {
		return je.declareType(ctx, decl)
	}, func() error {
		own := ctx.Types.Namespace(namespaceOf(decl))
		if own != "" {
			w.WriteLine("package " + own + ";")
			w.BlankLine()
		}
		imports := map[string]bool{}
		for _, e := range ctx.Imports.Entries() {
			qualified := ctx.Types.TypeName(e.Type, OwnershipValue, TypeNameOptions{NoTypeArguments: true})
			if target, ok := javaExternalTypes[e.Type.DefinitionKey()]; ok {
				qualified = target
			} else if e.Type.Namespace != "" {
				qualified = ctx.Types.Namespace(e.Type.Namespace) + "." + qualified
			}
			pkg := qualified[:max(strings.LastIndex(qualified, "."), 0)]
			if pkg == "" || pkg == own || pkg == "java.lang" {
				continue
			}
			imports[qualified] = true
		}
		for _, r := range ctx.Requirements() {
			imports[r] = true
		}
		names := make([]string, 0, len(imports))
		for i := range imports {
			names = append(names, i)
		}
		sort.Strings(names)
		for _, i := range names {
			w.WriteLine("import " + i + ";")
		}
		if len(names) > 0 {
			w.BlankLine()
		}
		return nil
	})
}

func (je *JavaEmitter) parameters(ctx *Context, sym *Symbol) (string, error) {
	return formalParameters(ctx, sym.Parameters, func(p *Parameter, typ, name string) (string, error) {
		if p.RefKind != RefNone {
			return "", unsupported(je.dialect.Name, nil, "by-reference parameter "+p.Name+" of "+sym.Name)
		}
		if p.IsParams && p.Type.Kind == TypeArray {
			return ctx.TypeName(p.Type.Elem, OwnershipValue) + "... " + name, nil
		}
		return typ + " " + name, nil
	})
}

func (je *JavaEmitter) declareType(ctx *Context, decl *TypeDecl) error {
	w := ctx.Writer
	name := ctx.Types.DeclaredName(decl.Type) + typeParameterList(ctx, decl)
	access := accessKeyword(decl.Symbol, "public")

	switch decl.Type.Kind {
	case TypeEnum:
		return je.declareEnum(ctx, decl, access+" enum "+name)
	case TypeDelegate:
		params, err := je.parameters(ctx, decl.Invoke)
		if err != nil {
			return err
		}
		w.WriteLine("@FunctionalInterface")
		openBlock(ctx, access+" interface "+name)
		w.WriteLine(returnType(ctx, decl.Invoke) + " invoke(" + params + ");")
		closeBlock(ctx)
		w.EndLine()
		return nil
	}

	head := access + " "
	keyword := "class"
	switch decl.Type.Kind {
	case TypeInterface:
		keyword = "interface"
	case TypeStruct:
		head += "final "
	default:
		if decl.Symbol != nil && decl.Symbol.IsAbstract {
			head += "abstract "
		}
	}
	head += keyword + " " + name
	base, ifaces := supertypes(decl)
	if base != nil {
		head += " extends " + ctx.TypeName(base, OwnershipValue)
	}
	if len(ifaces) > 0 {
		names := make([]string, len(ifaces))
		for i, it := range ifaces {
			names[i] = ctx.TypeName(it, OwnershipValue)
		}
		if keyword == "interface" {
			head += " extends " + strings.Join(names, ", ")
		} else {
			head += " implements " + strings.Join(names, ", ")
		}
	}
	openBlock(ctx, head)
	inInterface := keyword == "interface"
	for i, m := range decl.Members {
		if i > 0 && (m.Kind != MemberField || decl.Members[i-1].Kind != MemberField) {
			w.BlankLine()
		}
		if err := withMember(ctx, m, func() error { return je.declareMember(ctx, decl, m, inInterface) }); err != nil {
			return err
		}
	}
	closeBlock(ctx)
	w.EndLine()
	return nil
}

func (je *JavaEmitter) declareEnum(ctx *Context, decl *TypeDecl, head string) error {
	w := ctx.Writer
	explicit := false
	for _, m := range decl.EnumMembers {
		explicit = explicit || m.Value != nil
	}
	openBlock(ctx, head)
	next := 0
	for i, m := range decl.EnumMembers {
		line := je.dialect.Identifier(m.Name)
		if explicit {
			value := enumValue(m.Value, next)
			line += "(" + value + ")"
			next = parseIntOr(value, next) + 1
		}
		if i < len(decl.EnumMembers)-1 {
			line += ","
		} else {
			line += ";"
		}
		w.WriteLine(line)
	}
	if explicit {
		w.BlankLine()
		w.WriteLine("private final int value;")
		w.BlankLine()
		enumName := ctx.Types.DeclaredName(decl.Type)
		openBlock(ctx, enumName+"(int value)")
		w.WriteLine("this.value = value;")
		closeBlock(ctx)
		w.EndLine()
		w.BlankLine()
		openBlock(ctx, "public int getValue()")
		w.WriteLine("return value;")
		closeBlock(ctx)
		w.EndLine()
	}
	closeBlock(ctx)
	w.EndLine()
	return nil
}

func (je *JavaEmitter) modifiers(sym *Symbol, inInterface bool) string {
	var parts []string
	if !inInterface {
		parts = append(parts, accessKeyword(sym, "public"))
	}
	switch {
	case sym.IsStatic:
		parts = append(parts, "static")
	case inInterface:
	case sym.IsAbstract:
		parts = append(parts, "abstract")
	}
	if sym.IsReadOnly && sym.Kind == SymbolField {
		parts = append(parts, "final")
	}
	return strings.Join(parts, " ")
}

func (je *JavaEmitter) declareMember(ctx *Context, decl *TypeDecl, m *MemberDecl, inInterface bool) error {
	w := ctx.Writer
	sym := m.Symbol
	mods := je.modifiers(sym, inInterface)
	if mods != "" {
		mods += " "
	}
	name := je.SymbolName(ctx, sym)
	switch m.Kind {
	case MemberField, MemberEvent:
		line := mods + ctx.TypeName(sym.Type, OwnershipValue) + " " + name
		if m.Initializer != nil {
			v, err := initialValue(ctx, m)
			if err != nil {
				return err
			}
			line += " = " + v
		}
		w.WriteLine(line + ";")
	case MemberProperty:
		return je.declareProperty(ctx, m, mods, inInterface)
	case MemberConstructor:
		params, err := je.parameters(ctx, sym)
		if err != nil {
			return err
		}
		if sym.IsStatic {
			return writeBody(ctx, "static", m.Body)
		}
		head := accessKeyword(sym, "public") + " " + ctx.Types.DeclaredName(decl.Type) + "(" + params + ")"
		var prelude []string
		if m.Chain != nil {
			toBase, args, err := je.constructorChain(ctx, m)
			if err != nil {
				return err
			}
			target := "this"
			if toBase {
				target = "super"
			}
			prelude = append(prelude, target+"("+strings.Join(args, ", ")+");")
		}
		return writeBody(ctx, head, m.Body, prelude...)
	case MemberMethod, MemberOperator:
		params, err := je.parameters(ctx, sym)
		if err != nil {
			return err
		}
		if sym.IsOverride {
			w.WriteLine("@Override")
		}
		head := mods
		if len(sym.TypeParameters) > 0 {
			head += "<" + strings.Join(sym.TypeParameters, ", ") + "> "
		}
		if m.Kind == MemberOperator {
			name = sym.Name
		}
		head += returnType(ctx, sym) + " " + name + "(" + params + ")"
		if m.Body == nil {
			w.WriteLine(head + ";")
			return nil
		}
		return writeBody(ctx, head, m.Body)
	}
	return nil
}

// declareProperty lowers a property to a getter and a setter, with a backing field
// for auto properties
func (je *JavaEmitter) declareProperty(ctx *Context, m *MemberDecl, mods string, inInterface bool) error {
	w := ctx.Writer
	sym := m.Symbol
	typ := ctx.TypeName(sym.Type, OwnershipValue)
	field := lowerFirst(sym.TargetName())
	if len(sym.Parameters) > 0 {
		return unsupported(je.dialect.Name, nil, "indexer declaration "+sym.Name)
	}
	getter := mods + typ + " " + getterName(sym) + "()"
	setter := mods + "void " + setterName(sym) + "(" + typ + " value)"
	if inInterface {
		w.WriteLine(getter + ";")
		if !sym.IsReadOnly {
			w.WriteLine(setter + ";")
		}
		return nil
	}
	if m.IsAutoProperty() {
		line := "private "
		if sym.IsStatic {
			line += "static "
		}
		line += typ + " " + field
		if m.Initializer != nil {
			v, err := initialValue(ctx, m)
			if err != nil {
				return err
			}
			line += " = " + v
		}
		w.WriteLine(line + ";")
		w.BlankLine()
		openBlock(ctx, getter)
		w.WriteLine("return " + field + ";")
		closeBlock(ctx)
		w.EndLine()
		if !sym.IsReadOnly {
			w.BlankLine()
			openBlock(ctx, setter)
			owner := "this."
			if sym.IsStatic {
				owner = ctx.Types.DeclaredName(sym.Container) + "."
			}
			w.WriteLine(owner + field + " = value;")
			closeBlock(ctx)
			w.EndLine()
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
		if err := writeBody(ctx, setter, m.Setter); err != nil {
			return err
		}
	}
	return nil
}
