package compiler

import (
	"strings"
)

var cppPrimitives = map[PrimitiveKind]string{
	PrimBool:    "bool",
	PrimChar:    "char16_t", // UTF-16 code unit
	PrimInt8:    "std::int8_t",
	PrimUInt8:   "std::uint8_t",
	PrimInt16:   "std::int16_t",
	PrimUInt16:  "std::uint16_t",
	PrimInt32:   "std::int32_t",
	PrimUInt32:  "std::uint32_t",
	PrimInt64:   "std::int64_t",
	PrimUInt64:  "std::uint64_t",
	PrimFloat32: "float",
	PrimFloat64: "double",
}

// cppExternalTypes are provided by the standard library or by phase/runtime.h,
// which every generated header includes
var cppExternalTypes = map[string]string{
	"System.Exception":                        "phase::Exception",
	"System.ArgumentException":                "phase::ArgumentException",
	"System.InvalidOperationException":        "phase::InvalidOperationException",
	"System.Collections.Generic.List`1":       "std::vector",
	"System.Collections.Generic.Dictionary`2": "std::map",
	"System.Collections.Generic.HashSet`1":    "std::unordered_set",
	"System.Action":                           "std::function<void()>",
}

var cppKeywords = keywordSet(`alignas alignof and asm auto bitand bitor bool break case catch char
	char16_t char32_t class compl const constexpr const_cast continue decltype default delete do double
	dynamic_cast else enum explicit export extern false float for friend goto if inline int long mutable
	namespace new noexcept not nullptr operator or private protected public register reinterpret_cast
	return short signed sizeof static static_assert static_cast struct switch template this thread_local
	throw true try typedef typeid typename union unsigned using virtual void volatile wchar_t while xor`)

// CPPEmitter renders a header and an implementation file per type, holding
// references in std::shared_ptr
type CPPEmitter struct {
	BaseEmitter
}

// NewCPPEmitter creates the C++ backend
func NewCPPEmitter() *CPPEmitter {
	return &CPPEmitter{BaseEmitter{dialect: &Dialect{
		Name:              "cpp",
		This:              "this",
		Base:              "this",
		Null:              "nullptr",
		InstanceSeparator: "->",
		StaticSeparator:   "::",
		FloatSuffix:       "f",
		LongSuffix:        "LL",
		Types: &TypeSyntax{
			Indent:             "    ",
			Primitives:         cppPrimitives,
			String:             "std::string",
			Object:             "phase::Object",
			Dynamic:            "std::any",
			Void:               "void",
			NamespaceSeparator: "::",
			QualifyNames:       true,
			GenericOpen:        "<",
			GenericClose:       ">",
			ArrayFormat:        func(elem string) string { return "std::vector<" + elem + ">" },
			Ownership: map[OwnershipKind]func(string) string{
				OwnershipSharedDeclaration: func(n string) string { return "std::shared_ptr<" + n + ">" },
				OwnershipSharedUsage:       func(n string) string { return "const std::shared_ptr<" + n + ">&" },
				OwnershipWeakDeclaration:   func(n string) string { return "std::weak_ptr<" + n + ">" },
				OwnershipWeakUsage:         func(n string) string { return "std::shared_ptr<" + n + ">" },
			},
			ExternalTypes: cppExternalTypes,
		},
		Casts: &CastSyntax{
			Box:      CastForm{Format: "phase::box({expr})", OperandPrec: PrecLowest, ResultPrec: PrecPostfix},
			Numeric:  CastForm{Format: "static_cast<{type}>({expr})", OperandPrec: PrecLowest, ResultPrec: PrecPostfix},
			Upcast:   CastForm{Format: "std::static_pointer_cast<{type}>({expr})", OperandPrec: PrecLowest, ResultPrec: PrecPostfix},
			Explicit: CastForm{Format: "static_cast<{type}>({expr})", OperandPrec: PrecLowest, ResultPrec: PrecPostfix},
		},
		Precedence: CFamilyPrecedence,
		Extensions: map[ArtifactKind]string{
			ArtifactDeclaration: ".h",
			ArtifactDefinition:  ".cpp",
		},
		Keywords:       cppKeywords,
		EscapeKeyword:  func(s string) string { return s + "_" },
		TempPrefix:     "__",
		Rethrow:        "throw;",
		ForeachHead: func(typ, name, coll string) string {
			if typ == "" {
				typ = "auto"
			}
			return "for (" + typ + " " + name + " : *" + coll + ")"
		},
	}}}
}

func (cpe *CPPEmitter) Artifacts(decl *TypeDecl, types *TypeResolver) []Artifact {
	return artifactsFor(cpe.dialect, types, decl, true)
}

func (cpe *CPPEmitter) Literal(ctx *Context, c Constant, t *Type) string {
	switch {
	case c.Kind == ConstChar:
		return "u" + cpe.BaseEmitter.Literal(ctx, c, t)
	case c.Kind == ConstInt && t != nil && t.Primitive == PrimUInt64:
		return c.Text + "ULL"
	case c.Kind == ConstInt && t != nil && (t.Primitive == PrimUInt32 || t.Primitive == PrimUInt16 || t.Primitive == PrimUInt8):
		return c.Text + "U"
	}
	return cpe.BaseEmitter.Literal(ctx, c, t)
}

func (cpe *CPPEmitter) DefaultValue(ctx *Context, t *Type) string {
	if t == nil {
		return "nullptr"
	}
	switch t.Kind {
	case TypeStruct, TypeParameter:
		return ctx.TypeName(t, OwnershipValue) + "()"
	case TypeEnum:
		return "static_cast<" + ctx.TypeName(t, OwnershipValue) + ">(0)"
	case TypeString:
		return "std::string()"
	case TypeDynamic:
		return "std::any()"
	case TypePrimitive:
		if t.Primitive == PrimChar {
			return "u'\\0'"
		}
	}
	return cpe.BaseEmitter.DefaultValue(ctx, t)
}

// Receiver dereferences shared references and accesses values in place
func (cpe *CPPEmitter) Receiver(ctx *Context, target *Node, r Rendered) string {
	switch {
	case target == nil || target.Kind == NodeThis:
		return "this->"
	case target.Kind == NodeBase:
		if base, _ := supertypes(ctx.Decl); base != nil {
			return ctx.TypeName(base, OwnershipValue) + "::"
		}
		return "this->"
	}
	if t := ctx.TypeOf(target); t != nil && t.IsValueType() {
		return r.Operand(PrecPostfix) + "."
	}
	return r.Operand(PrecPostfix) + "->"
}

// TemplateReceiver turns string literals into std::string so member templates apply
func (cpe *CPPEmitter) TemplateReceiver(ctx *Context, target *Node, r Rendered) Rendered {
	if target.Kind == NodeLiteral && isString(ctx.TypeOf(target)) {
		return Rendered{Text: "std::string(" + r.Text + ")", Prec: PrecPostfix}
	}
	return r
}

func (cpe *CPPEmitter) EmitThis(ctx *Context, n *Node) (Rendered, error) {
	if ctx.Decl.Type.IsValueType() {
		return Primary("(*this)"), nil
	}
	name := ctx.TypeName(ctx.Decl.Type, OwnershipValue)
	return Rendered{Text: "std::dynamic_pointer_cast<" + name + ">(shared_from_this())", Prec: PrecPostfix}, nil
}

func (cpe *CPPEmitter) PropertyGet(ctx *Context, receiver string, prop *Symbol) Rendered {
	return accessorGet(receiver, "get_"+prop.TargetName())
}

func (cpe *CPPEmitter) PropertySet(ctx *Context, receiver string, prop *Symbol, op string, value Rendered) Rendered {
	return accessorSet(ctx, receiver, prop, op, value, "get_"+prop.TargetName(), "set_"+prop.TargetName())
}

// FieldGet locks weak back references for reading
func (cpe *CPPEmitter) FieldGet(ctx *Context, receiver string, field *Symbol) Rendered {
	text := receiver + cpe.SymbolName(ctx, field)
	if field.IsWeak && !ctx.Mutating {
		text += ".lock()"
	}
	return Rendered{Text: text, Prec: PrecPostfix}
}

func (cpe *CPPEmitter) MethodGroup(ctx *Context, receiver string, method *Symbol) (Rendered, error) {
	name := cpe.SymbolName(ctx, method)
	return Rendered{
		Text: "[=](auto&&... args) { return " + receiver + name + "(std::forward<decltype(args)>(args)...); }",
		Prec: PrecPostfix,
	}, nil
}

// RefArgument passes the lvalue, the parameter is declared as a reference
func (cpe *CPPEmitter) RefArgument(ctx *Context, kind RefKind, arg *Node, text string) (string, error) {
	return text, nil
}

func (cpe *CPPEmitter) NewObject(ctx *Context, t *Type, ctor *Symbol, args []string) Rendered {
	ctx.Imports.Note(t, true)
	name := ctx.Types.TypeName(t, OwnershipValue, TypeNameOptions{})
	if t.IsValueType() {
		return Rendered{Text: name + "(" + strings.Join(args, ", ") + ")", Prec: PrecPostfix}
	}
	return Rendered{Text: "std::make_shared<" + name + ">(" + strings.Join(args, ", ") + ")", Prec: PrecPostfix}
}

func (cpe *CPPEmitter) NewArray(ctx *Context, elem *Type, size string, items []string, literal bool) Rendered {
	ctx.Imports.Note(elem, true)
	vec := "std::vector<" + ctx.Types.TypeName(elem, ctx.Types.declarationKind(elem), TypeNameOptions{}) + ">"
	if !literal {
		return Rendered{Text: "std::make_shared<" + vec + ">(" + size + ")", Prec: PrecPostfix}
	}
	return Rendered{Text: "std::make_shared<" + vec + ">(" + vec + "{" + strings.Join(items, ", ") + "})", Prec: PrecPostfix}
}

// InitializeObject fills a temporary inside a lambda invoked in place
func (cpe *CPPEmitter) InitializeObject(ctx *Context, n *Node, created Rendered, t *Type) (Rendered, error) {
	if t != nil && t.IsValueType() {
		return Rendered{}, unsupported(cpe.dialect.Name, n, "object initializer of a value type")
	}
	tmp := ctx.Temp("init")
	stmts, err := cpe.initializerStatements(ctx, tmp, n)
	if err != nil {
		return Rendered{}, err
	}
	text, err := iife(ctx, "[&]() {", "auto "+tmp+" = "+created.Text+";", stmts, "return "+tmp+";", "}()")
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Text: text, Prec: PrecPostfix}, nil
}

func isString(t *Type) bool {
	return t != nil && t.Kind == TypeString
}

// stringOperand converts a concatenation operand to std::string
func (cpe *CPPEmitter) stringOperand(ctx *Context, n *Node) (Rendered, error) {
	r, err := ctx.Expr(n)
	if err != nil {
		return Rendered{}, err
	}
	t := ctx.TypeOf(n)
	switch {
	case t != nil && t.Kind == TypePrimitive:
		return Rendered{Text: "phase::to_string(" + r.Text + ")", Prec: PrecPostfix}, nil
	case n.Kind == NodeLiteral && isString(t):
		return Rendered{Text: "std::string(" + r.Text + ")", Prec: PrecPostfix}, nil
	}
	return r, nil
}

// EmitBinary concatenates strings through std::string operands
func (cpe *CPPEmitter) EmitBinary(ctx *Context, n *Node) (Rendered, error) {
	if n.Operator != "+" || userOperator(ctx, n) != nil || !(isString(ctx.TypeOf(n.Left)) || isString(ctx.TypeOf(n.Right))) {
		return cpe.BaseEmitter.EmitBinary(ctx, n)
	}
	left, err := cpe.stringOperand(ctx, n.Left)
	if err != nil {
		return Rendered{}, err
	}
	right, err := cpe.stringOperand(ctx, n.Right)
	if err != nil {
		return Rendered{}, err
	}
	return cpe.binary("+", left, right), nil
}

// EmitElementAccess dereferences the shared vector of an array
func (cpe *CPPEmitter) EmitElementAccess(ctx *Context, n *Node) (Rendered, error) {
	t := ctx.TypeOf(n.Target)
	if t == nil || t.Kind != TypeArray {
		return cpe.BaseEmitter.EmitElementAccess(ctx, n)
	}
	target, err := ctx.Expr(n.Target)
	if err != nil {
		return Rendered{}, err
	}
	index, err := cpe.plainArguments(ctx, n.Args)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Text: "(*" + target.Operand(PrecUnary) + ")[" + strings.Join(index, ", ") + "]", Prec: PrecPostfix}, nil
}

func (cpe *CPPEmitter) EmitCast(ctx *Context, n *Node) (Rendered, error) {
	operand, err := ctx.Expr(n.Target)
	if err != nil {
		return Rendered{}, err
	}
	t := n.TypeRef
	from := ctx.TypeOf(n.Target)
	ctx.Imports.Note(t, true)
	name := ctx.Types.TypeName(t, OwnershipValue, TypeNameOptions{})
	switch {
	case from != nil && from.IsUntyped() && (t.Kind == TypePrimitive || t.Kind == TypeString || t.Kind == TypeStruct):
		return Rendered{Text: "phase::unbox<" + name + ">(" + operand.Text + ")", Prec: PrecPostfix, Mode: AutoCastSkip}, nil
	case t.IsReferenceType() && t.Kind != TypeString && t.Kind != TypeDelegate && t.Kind != TypeDynamic:
		cast := "std::dynamic_pointer_cast"
		if from != nil && from.AssignableTo(t) {
			cast = "std::static_pointer_cast"
		}
		return Rendered{Text: cast + "<" + name + ">(" + operand.Text + ")", Prec: PrecPostfix, Mode: AutoCastSkip}, nil
	}
	return ctx.Casts.Explicit(t, operand), nil
}

func (cpe *CPPEmitter) EmitIs(ctx *Context, n *Node) (Rendered, error) {
	if n.Name != "" {
		return Rendered{}, unsupported(cpe.dialect.Name, n, "declaration pattern")
	}
	operand, err := ctx.Expr(n.Target)
	if err != nil {
		return Rendered{}, err
	}
	ctx.Imports.Note(n.TypeRef, true)
	name := ctx.Types.TypeName(n.TypeRef, OwnershipValue, TypeNameOptions{})
	if boxedInObject(n.TypeRef) {
		name = "phase::Boxed<" + name + ">"
	}
	return Compound("std::dynamic_pointer_cast<"+name+">("+operand.Text+") != nullptr", PrecEquality), nil
}

// boxedInObject reports whether values of t live in an object reference as
// phase::Boxed rather than as a shared pointer to t
func boxedInObject(t *Type) bool {
	return t != nil && (t.IsValueType() || t.Kind == TypeString)
}

func (cpe *CPPEmitter) EmitAs(ctx *Context, n *Node) (Rendered, error) {
	if boxedInObject(n.TypeRef) {
		return Rendered{}, unsupported(cpe.dialect.Name, n, "as conversion to value type "+n.TypeRef.Name)
	}
	operand, err := ctx.Expr(n.Target)
	if err != nil {
		return Rendered{}, err
	}
	ctx.Imports.Note(n.TypeRef, true)
	name := ctx.Types.TypeName(n.TypeRef, OwnershipValue, TypeNameOptions{})
	return Rendered{Text: "std::dynamic_pointer_cast<" + name + ">(" + operand.Text + ")", Prec: PrecPostfix, Mode: AutoCastSkip}, nil
}

func (cpe *CPPEmitter) EmitLambda(ctx *Context, n *Node) (Rendered, error) {
	params := cpe.lambdaParameters(ctx, n, func(typ, name string) string {
		if typ == "" {
			return "auto " + name
		}
		return typ + " " + name
	})
	body, block, err := cpe.lambdaBody(ctx, n)
	if err != nil {
		return Rendered{}, err
	}
	if !block {
		body = "{ return " + body + "; }"
	}
	return Rendered{Text: "[&](" + strings.Join(params, ", ") + ") " + body, Prec: PrecPostfix, Mode: AutoCastSkip}, nil
}

func (cpe *CPPEmitter) EmitTypeOf(ctx *Context, n *Node) (Rendered, error) {
	ctx.Imports.Note(n.TypeRef, true)
	return Rendered{Text: "typeid(" + ctx.Types.TypeName(n.TypeRef, OwnershipValue, TypeNameOptions{}) + ")", Prec: PrecPostfix}, nil
}

func (cpe *CPPEmitter) EmitLocalDeclaration(ctx *Context, n *Node) error {
	name, t := cpe.localDeclaration(ctx, n)
	typ := "auto"
	if t != nil {
		typ = ctx.TypeName(t, ctx.Ownership(t, true, false))
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

// EmitThrow throws every exception as a phase::Object reference so handlers can
// test the dynamic type
func (cpe *CPPEmitter) EmitThrow(ctx *Context, n *Node) error {
	if n.Value == nil {
		return cpe.BaseEmitter.EmitThrow(ctx, n)
	}
	v, err := ctx.Expr(n.Value)
	if err != nil {
		return err
	}
	ctx.Writer.Write("throw std::shared_ptr<phase::Object>(" + v.Text + ");")
	return nil
}

// EmitTry catches phase::Object references and dispatches on their dynamic type
func (cpe *CPPEmitter) EmitTry(ctx *Context, n *Node) error {
	if n.Finally != nil {
		return unsupported(cpe.dialect.Name, n, "finally clause")
	}
	w := ctx.Writer
	openBlock(ctx, "try")
	if err := body(ctx, n.Body); err != nil {
		return err
	}
	closeBlock(ctx)
	caught := ctx.Temp("e")
	continueBlock(ctx, "catch (const std::shared_ptr<phase::Object>& "+caught+")")
	catchAll := false
	for i, c := range n.Catches {
		if c.Type == nil {
			if i > 0 {
				continueBlock(ctx, "else")
			}
			if err := catchBody(ctx, caught, c.Body); err != nil {
				return err
			}
			if i > 0 {
				closeBlock(ctx)
				w.EndLine()
			}
			catchAll = true
			break
		}
		ctx.Imports.Note(c.Type, true)
		name := catchName(ctx, c)
		head := "if (auto " + name + " = std::dynamic_pointer_cast<" +
			ctx.Types.TypeName(c.Type, OwnershipValue, TypeNameOptions{}) + ">(" + caught + "))"
		if i > 0 {
			continueBlock(ctx, "else "+head)
		} else {
			openBlock(ctx, head)
		}
		if err := catchBody(ctx, name, c.Body); err != nil {
			return err
		}
		closeBlock(ctx)
	}
	if !catchAll {
		continueBlock(ctx, "else")
		w.WriteLine("throw;")
		closeBlock(ctx)
		w.EndLine()
	}
	closeBlock(ctx)
	return nil
}

func (cpe *CPPEmitter) EmitArtifact(ctx *Context) error {
	if ctx.Artifact.Kind == ArtifactDefinition {
		return cpe.emitDefinition(ctx)
	}
	return cpe.emitDeclaration(ctx)
}

// namespaceOpen writes the namespace block opening of decl, if any
func (cpe *CPPEmitter) namespaceOpen(ctx *Context) {
	if ns := namespaceOf(ctx.Decl); ns != "" {
		ctx.Writer.WriteLine("namespace " + ctx.Types.Namespace(ns) + " {")
		ctx.Writer.BlankLine()
	}
}

func (cpe *CPPEmitter) namespaceClose(ctx *Context) {
	if ns := namespaceOf(ctx.Decl); ns != "" {
		ctx.Writer.BlankLine()
		ctx.Writer.WriteLine("} // namespace " + ctx.Types.Namespace(ns))
	}
}

// forwardDeclaration spells a class declaration for a type needed by reference only
func (cpe *CPPEmitter) forwardDeclaration(ctx *Context, t *Type) (string, bool) {
	if _, external := cppExternalTypes[t.DefinitionKey()]; external {
		return "", false
	}
	switch t.Kind {
	case TypeClass, TypeInterface:
	default:
		return "", false
	}
	if t.Arity > 0 {
		return "", false
	}
	line := "class " + ctx.Types.DeclaredName(t) + ";"
	if ns := ctx.Types.DeclaredNamespace(t); ns != "" {
		line = "namespace " + ctx.Types.Namespace(ns) + " { " + line + " }"
	}
	return line, true
}

func (cpe *CPPEmitter) include(ctx *Context, t *Type) (string, bool) {
	if _, external := cppExternalTypes[t.DefinitionKey()]; external {
		return "", false
	}
	return "#include \"" + cpe.dialect.ArtifactPath(ctx.Types, t, ArtifactDeclaration) + "\"", true
}

func (cpe *CPPEmitter) emitDeclaration(ctx *Context) error {
	decl := ctx.Decl
	w := ctx.Writer
	return writeUnit(ctx, func() error {
		cpe.namespaceOpen(ctx)
		if err := cpe.declareType(ctx, decl); err != nil {
			return err
		}
		cpe.namespaceClose(ctx)
		return nil
	}, func() error {
		w.WriteLine("#pragma once")
		w.BlankLine()
		w.WriteLine("#include \"phase/runtime.h\"")
		var includes, forwards []string
		for _, e := range ctx.Imports.Entries() {
			if !e.RequiresFullDefinition {
				if line, ok := cpe.forwardDeclaration(ctx, e.Type); ok {
					forwards = append(forwards, line)
					continue
				}
			}
			if line, ok := cpe.include(ctx, e.Type); ok {
				includes = append(includes, line)
			}
		}
		includes = append(includes, ctx.Requirements()...)
		for _, l := range includes {
			w.WriteLine(l)
		}
		w.BlankLine()
		for _, l := range forwards {
			w.WriteLine(l)
		}
		if len(forwards) > 0 {
			w.BlankLine()
		}
		return nil
	})
}

func (cpe *CPPEmitter) emitDefinition(ctx *Context) error {
	decl := ctx.Decl
	w := ctx.Writer
	return writeUnit(ctx, func() error {
		cpe.namespaceOpen(ctx)
		first := true
		for _, m := range decl.Members {
			if !cpe.hasOutOfLineBody(m) {
				continue
			}
			if !first {
				w.BlankLine()
			}
			first = false
			if err := withMember(ctx, m, func() error { return cpe.defineMember(ctx, decl, m) }); err != nil {
				return err
			}
		}
		cpe.namespaceClose(ctx)
		return nil
	}, func() error {
		w.WriteLine("#include \"" + cpe.dialect.ArtifactPath(ctx.Types, decl.Type, ArtifactDeclaration) + "\"")
		var includes []string
		for _, e := range ctx.Imports.Entries() {
			if line, ok := cpe.include(ctx, e.Type); ok {
				includes = append(includes, line)
			}
		}
		includes = append(includes, ctx.Requirements()...)
		for _, l := range includes {
			w.WriteLine(l)
		}
		w.BlankLine()
		return nil
	})
}

// hasOutOfLineBody reports whether m is defined in the implementation file
func (cpe *CPPEmitter) hasOutOfLineBody(m *MemberDecl) bool {
	switch m.Kind {
	case MemberMethod, MemberConstructor, MemberOperator:
		return m.Body != nil
	case MemberProperty:
		return m.Getter != nil || m.Setter != nil
	}
	return false
}

func (cpe *CPPEmitter) parameters(ctx *Context, params []*Parameter, withDefaults bool) (string, error) {
	return formalParameters(ctx, params, func(p *Parameter, typ, name string) (string, error) {
		switch p.RefKind {
		case RefRef, RefOut:
			typ = ctx.TypeName(p.Type, ctx.Ownership(p.Type, true, false)) + "&"
		case RefIn:
			typ = "const " + ctx.TypeName(p.Type, ctx.Ownership(p.Type, true, false)) + "&"
		}
		s := typ + " " + name
		if !withDefaults {
			return s, nil
		}
		switch {
		case p.DefaultConstant != nil:
			s += " = " + cpe.Literal(ctx, *p.DefaultConstant, p.Type)
		case p.Default != nil:
			v, err := ctx.Expr(p.Default)
			if err != nil {
				return "", err
			}
			s += " = " + v.Text
		case p.IsOptional || p.CallerInfo != CallerInfoNone:
			s += " = " + cpe.DefaultValue(ctx, p.Type)
		}
		return s, nil
	})
}

// section switches the access section of a class body
func (cpe *CPPEmitter) section(ctx *Context, sym *Symbol) {
	access := "public"
	if sym != nil && (sym.Accessibility == AccessPrivate || sym.Accessibility == AccessProtected) {
		access = sym.Accessibility.String()
	}
	if ctx.PreviousSection == access {
		return
	}
	ctx.PreviousSection = access
	w := ctx.Writer
	w.Outdent()
	w.WriteLine(access + ":")
	w.Indent()
}

func (cpe *CPPEmitter) declareType(ctx *Context, decl *TypeDecl) error {
	w := ctx.Writer
	name := ctx.Types.DeclaredName(decl.Type)
	template := ""
	if decl.IsGeneric() {
		params := decl.TypeParameters()
		for i, p := range params {
			params[i] = "typename " + p
		}
		template = "template <" + strings.Join(params, ", ") + ">"
	}

	switch decl.Type.Kind {
	case TypeEnum:
		openBlock(ctx, "enum class "+name+" : std::int32_t")
		next := 0
		for _, m := range decl.EnumMembers {
			value := enumValue(m.Value, next)
			next = parseIntOr(value, next) + 1
			w.WriteLine(cpe.dialect.Identifier(m.Name) + " = " + value + ",")
		}
		closeBlock(ctx)
		w.Write(";")
		w.EndLine()
		return nil
	case TypeDelegate:
		params, err := cpe.parameters(ctx, decl.Invoke.Parameters, false)
		if err != nil {
			return err
		}
		if template != "" {
			w.WriteLine(template)
		}
		w.WriteLine("using " + name + " = std::function<" + returnType(ctx, decl.Invoke) + "(" + params + ")>;")
		return nil
	}

	keyword := "class"
	if decl.Type.Kind == TypeStruct {
		keyword = "struct"
	}
	var supers []string
	base, ifaces := supertypes(decl)
	if base != nil {
		ctx.Imports.Note(base, true)
		supers = append(supers, "public "+ctx.Types.TypeName(base, OwnershipValue, TypeNameOptions{}))
	}
	for _, it := range ifaces {
		ctx.Imports.Note(it, true)
		supers = append(supers, "public virtual "+ctx.Types.TypeName(it, OwnershipValue, TypeNameOptions{}))
	}
	if base == nil && decl.Type.Kind != TypeStruct {
		supers = append([]string{"public virtual phase::Object"}, supers...)
	}
	head := keyword + " " + name
	if len(supers) > 0 {
		head += " : " + strings.Join(supers, ", ")
	}
	if template != "" {
		w.WriteLine(template)
	}
	openBlock(ctx, head)
	ctx.PreviousSection = "private"
	if decl.Type.Kind == TypeStruct {
		ctx.PreviousSection = "public"
	}
	for i, m := range decl.Members {
		if m.Kind == MemberOperator {
			continue
		}
		if i > 0 && (m.Kind != MemberField || decl.Members[i-1].Kind != MemberField) {
			w.BlankLine()
		}
		if err := withMember(ctx, m, func() error { return cpe.declareMember(ctx, decl, m) }); err != nil {
			return err
		}
	}
	if decl.Type.Kind != TypeStruct && base == nil {
		cpe.section(ctx, nil)
		w.WriteLine("virtual ~" + name + "() = default;")
	}
	closeBlock(ctx)
	w.Write(";")
	w.EndLine()

	for _, m := range membersOfKind(decl, MemberOperator) {
		params, err := cpe.parameters(ctx, m.Symbol.Parameters, false)
		if err != nil {
			return err
		}
		head := returnType(ctx, m.Symbol) + " operator" + m.Symbol.OperatorToken() + "(" + params + ")"
		w.BlankLine()
		if decl.IsGeneric() {
			w.WriteLine(template)
			if err := withMember(ctx, m, func() error {
				return writeBody(ctx, head, m.Body)
			}); err != nil {
				return err
			}
			continue
		}
		w.WriteLine(head + ";")
	}
	return nil
}

func (cpe *CPPEmitter) modifiers(sym *Symbol, inInterface bool) string {
	switch {
	case sym.IsStatic:
		return "static "
	case inInterface || sym.IsAbstract || sym.IsVirtual || sym.IsOverride:
		return "virtual "
	}
	return ""
}

func (cpe *CPPEmitter) suffix(sym *Symbol, inInterface bool) string {
	switch {
	case sym.IsStatic:
		return ""
	case inInterface || sym.IsAbstract:
		return " = 0"
	case sym.IsOverride:
		return " override"
	}
	return ""
}

// backingField names the storage of an auto property
func backingField(sym *Symbol) string {
	return lowerFirst(sym.TargetName()) + "_"
}

func (cpe *CPPEmitter) declareMember(ctx *Context, decl *TypeDecl, m *MemberDecl) error {
	w := ctx.Writer
	sym := m.Symbol
	inInterface := decl.Type.Kind == TypeInterface
	inline := decl.IsGeneric()
	name := cpe.SymbolName(ctx, sym)
	switch m.Kind {
	case MemberField, MemberEvent:
		cpe.section(ctx, sym)
		typ := ctx.TypeName(sym.Type, ctx.Ownership(sym.Type, true, sym.IsWeak))
		line := typ + " " + name
		if sym.IsStatic {
			line = "inline static " + line
		}
		if m.Initializer != nil || sym.IsStatic || sym.Type.Kind == TypePrimitive {
			v, err := initialValue(ctx, m)
			if err != nil {
				return err
			}
			line += " = " + v
		}
		w.WriteLine(line + ";")
	case MemberProperty:
		if len(sym.Parameters) > 0 {
			return unsupported(cpe.dialect.Name, &Node{Pos: m.Pos}, "indexer declaration")
		}
		cpe.section(ctx, sym)
		typ := ctx.TypeName(sym.Type, ctx.Ownership(sym.Type, true, false))
		param := ctx.TypeName(sym.Type, ctx.Ownership(sym.Type, false, false))
		mods, suffix := cpe.modifiers(sym, inInterface), cpe.suffix(sym, inInterface)
		getter := mods + typ + " get_" + sym.TargetName() + "()"
		setter := mods + "void set_" + sym.TargetName() + "(" + param + " value)"
		if inInterface || sym.IsAbstract {
			w.WriteLine(getter + suffix + ";")
			if !sym.IsReadOnly {
				w.WriteLine(setter + suffix + ";")
			}
			return nil
		}
		if m.IsAutoProperty() {
			field := backingField(sym)
			w.WriteLine(getter + suffix + " { return " + field + "; }")
			if !sym.IsReadOnly {
				w.WriteLine(setter + suffix + " { " + field + " = value; }")
			}
			cpe.section(ctx, &Symbol{Accessibility: AccessPrivate})
			v, err := initialValue(ctx, m)
			if err != nil {
				return err
			}
			store := typ + " " + field + " = " + v + ";"
			if sym.IsStatic {
				store = "inline static " + store
			}
			w.WriteLine(store)
			return nil
		}
		if m.Getter != nil {
			if inline {
				if err := writeBody(ctx, getter+suffix, m.Getter); err != nil {
					return err
				}
			} else {
				w.WriteLine(getter + suffix + ";")
			}
		}
		if m.Setter != nil {
			if inline {
				if err := writeBody(ctx, setter+suffix, m.Setter); err != nil {
					return err
				}
			} else {
				w.WriteLine(setter + suffix + ";")
			}
		}
	case MemberConstructor:
		if sym.IsStatic {
			return unsupported(cpe.dialect.Name, &Node{Pos: m.Pos}, "static constructor")
		}
		cpe.section(ctx, sym)
		params, err := cpe.parameters(ctx, sym.Parameters, true)
		if err != nil {
			return err
		}
		head := ctx.Types.DeclaredName(decl.Type) + "(" + params + ")"
		if !inline {
			w.WriteLine(head + ";")
			return nil
		}
		init, err := cpe.constructorInitializer(ctx, decl, m)
		if err != nil {
			return err
		}
		return writeBody(ctx, head+init, m.Body)
	case MemberMethod:
		cpe.section(ctx, sym)
		params, err := cpe.parameters(ctx, sym.Parameters, true)
		if err != nil {
			return err
		}
		if len(sym.TypeParameters) > 0 {
			names := make([]string, len(sym.TypeParameters))
			for i, p := range sym.TypeParameters {
				names[i] = "typename " + p
			}
			w.WriteLine("template <" + strings.Join(names, ", ") + ">")
			inline = true
		}
		head := cpe.modifiers(sym, inInterface) + returnType(ctx, sym) + " " + name + "(" + params + ")" + cpe.suffix(sym, inInterface)
		if m.Body == nil || !inline {
			w.WriteLine(head + ";")
			return nil
		}
		return writeBody(ctx, head, m.Body)
	}
	return nil
}

// constructorInitializer renders the member initializer list of a constructor
func (cpe *CPPEmitter) constructorInitializer(ctx *Context, decl *TypeDecl, m *MemberDecl) (string, error) {
	if m.Chain == nil {
		return "", nil
	}
	toBase, args, err := cpe.constructorChain(ctx, m)
	if err != nil {
		return "", err
	}
	target := ctx.Types.DeclaredName(decl.Type)
	if toBase {
		base, _ := supertypes(decl)
		if base == nil {
			return "", nil
		}
		target = ctx.Types.TypeName(base, OwnershipValue, TypeNameOptions{})
	}
	return " : " + target + "(" + strings.Join(args, ", ") + ")", nil
}

// defineMember writes the out-of-line definition of a member in the implementation file
func (cpe *CPPEmitter) defineMember(ctx *Context, decl *TypeDecl, m *MemberDecl) error {
	sym := m.Symbol
	owner := ctx.Types.DeclaredName(decl.Type)
	switch m.Kind {
	case MemberConstructor:
		params, err := cpe.parameters(ctx, sym.Parameters, false)
		if err != nil {
			return err
		}
		init, err := cpe.constructorInitializer(ctx, decl, m)
		if err != nil {
			return err
		}
		return writeBody(ctx, owner+"::"+owner+"("+params+")"+init, m.Body)
	case MemberMethod:
		if len(sym.TypeParameters) > 0 {
			return nil
		}
		params, err := cpe.parameters(ctx, sym.Parameters, false)
		if err != nil {
			return err
		}
		return writeBody(ctx, returnType(ctx, sym)+" "+owner+"::"+cpe.SymbolName(ctx, sym)+"("+params+")", m.Body)
	case MemberOperator:
		params, err := cpe.parameters(ctx, sym.Parameters, false)
		if err != nil {
			return err
		}
		return writeBody(ctx, returnType(ctx, sym)+" operator"+sym.OperatorToken()+"("+params+")", m.Body)
	case MemberProperty:
		typ := ctx.TypeName(sym.Type, ctx.Ownership(sym.Type, true, false))
		param := ctx.TypeName(sym.Type, ctx.Ownership(sym.Type, false, false))
		if m.Getter != nil {
			if err := writeBody(ctx, typ+" "+owner+"::get_"+sym.TargetName()+"()", m.Getter); err != nil {
				return err
			}
		}
		if m.Setter != nil {
			if m.Getter != nil {
				ctx.Writer.BlankLine()
			}
			return writeBody(ctx, "void "+owner+"::set_"+sym.TargetName()+"("+param+" value)", m.Setter)
		}
	}
	return nil
}
