package compiler

import (
	"path"
	"sort"
	"strings"
)

var tsPrimitives = map[PrimitiveKind]string{
	PrimBool:    "boolean",
	PrimChar:    "string",
	PrimInt8:    "number",
	PrimUInt8:   "number",
	PrimInt16:   "number",
	PrimUInt16:  "number",
	PrimInt32:   "number",
	PrimUInt32:  "number",
	PrimInt64:   "number", // loses precision above 2^53
	PrimUInt64:  "number",
	PrimFloat32: "number",
	PrimFloat64: "number",
}

var tsExternalTypes = map[string]string{
	"System.Exception":                        "Error",
	"System.ArgumentException":                "Error",
	"System.InvalidOperationException":        "Error",
	"System.Collections.Generic.List`1":       "Array",
	"System.Collections.Generic.Dictionary`2": "Map",
	"System.Collections.Generic.HashSet`1":    "Set",
}

var tsKeywords = keywordSet(`break case catch class const continue debugger default delete do else enum
	export extends false finally for function if import in instanceof new null return super switch this
	throw true try typeof var void while with as implements interface let package private protected
	public static yield any boolean constructor declare get module require number set string symbol type
	from of`)

// TypeScriptEmitter renders TypeScript modules, one per type
type TypeScriptEmitter struct {
	BaseEmitter
}

// NewTypeScriptEmitter creates the TypeScript backend
func NewTypeScriptEmitter() *TypeScriptEmitter {
	return &TypeScriptEmitter{BaseEmitter{dialect: &Dialect{
		Name:              "typescript",
		This:              "this",
		Base:              "super",
		Null:              "null",
		InstanceSeparator: ".",
		StaticSeparator:   ".",
		Types: &TypeSyntax{
			Indent:             "  ",
			Primitives:         tsPrimitives,
			String:             "string",
			Object:             "any",
			Dynamic:            "any",
			Void:               "void",
			NamespaceSeparator: ".",
			GenericOpen:        "<",
			GenericClose:       ">",
			ArrayFormat: func(elem string) string {
				if strings.ContainsAny(elem, " |&") {
					return "Array<" + elem + ">"
				}
				return elem + "[]"
			},
			ExternalTypes: tsExternalTypes,
		},
		// numbers share one runtime type and values are never boxed, so every
		// implicit conversion is the identity
		Casts: &CastSyntax{
			Explicit: CastForm{Format: "{expr} as {type}", OperandPrec: PrecShift, ResultPrec: PrecRelational},
		},
		Precedence:     CFamilyPrecedence,
		Extensions:     map[ArtifactKind]string{ArtifactSource: ".ts"},
		MemberName:     lowerFirst,
		LocalName:      lowerFirst,
		Keywords:       tsKeywords,
		EscapeKeyword:  func(s string) string { return s + "_" },
		TempPrefix:     "__",
		OperatorTokens: map[string]string{"==": "===", "!=": "!=="},
		NullCoalescing: true,
		ForeachHead: func(typ, name, coll string) string {
			return "for (const " + name + " of " + coll + ")"
		},
	}}}
}

func (ts *TypeScriptEmitter) Artifacts(decl *TypeDecl, types *TypeResolver) []Artifact {
	return artifactsFor(ts.dialect, types, decl, false)
}

func (ts *TypeScriptEmitter) Literal(ctx *Context, c Constant, t *Type) string {
	if c.Kind == ConstChar {
		return ts.BaseEmitter.Literal(ctx, Constant{Kind: ConstString, Text: c.Text}, StringType)
	}
	return ts.BaseEmitter.Literal(ctx, c, t)
}

func (ts *TypeScriptEmitter) DefaultValue(ctx *Context, t *Type) string {
	if t != nil && t.Kind == TypePrimitive && t.Primitive == PrimChar {
		return `"\0"`
	}
	if t != nil && t.Kind == TypePrimitive && t.Primitive.IsNumeric() {
		return "0"
	}
	return ts.BaseEmitter.DefaultValue(ctx, t)
}

// TypeReference imports the class as a value, type-only imports vanish at runtime
func (ts *TypeScriptEmitter) TypeReference(ctx *Context, t *Type) string {
	ctx.Imports.Note(t, true)
	return ctx.Types.TypeName(t, OwnershipValue, TypeNameOptions{NoTypeArguments: true})
}

func (ts *TypeScriptEmitter) OperatorCall(ctx *Context, op *Symbol, operands []Rendered) Rendered {
	return staticOperatorCall(ctx, op, operands)
}

func (ts *TypeScriptEmitter) RefArgument(ctx *Context, kind RefKind, arg *Node, text string) (string, error) {
	return "", unsupported(ts.dialect.Name, arg, "by-reference argument")
}

func (ts *TypeScriptEmitter) NewArray(ctx *Context, elem *Type, size string, items []string, literal bool) Rendered {
	ctx.NoteType(elem)
	if literal {
		return Primary("[" + strings.Join(items, ", ") + "]")
	}
	name := ctx.Types.TypeName(elem, OwnershipValue, TypeNameOptions{})
	return Rendered{
		Text: "new Array<" + name + ">(" + size + ").fill(" + ts.DefaultValue(ctx, elem) + ")",
		Prec: PrecPostfix,
	}
}

// InitializeObject fills a temporary inside an arrow function invoked in place
func (ts *TypeScriptEmitter) InitializeObject(ctx *Context, n *Node, created Rendered, t *Type) (Rendered, error) {
	tmp := ctx.Temp("init")
	stmts, err := ts.initializerStatements(ctx, tmp, n)
	if err != nil {
		return Rendered{}, err
	}
	text, err := iife(ctx, "(() => {", "const "+tmp+" = "+created.Text+";", stmts, "return "+tmp+";", "})()")
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Text: text, Prec: PrecPostfix}, nil
}

func isIntegral(t *Type) bool {
	return t != nil && t.Kind == TypePrimitive && t.Primitive.IsIntegral()
}

// EmitBinary truncates the quotient of integer divisions
func (ts *TypeScriptEmitter) EmitBinary(ctx *Context, n *Node) (Rendered, error) {
	r, err := ts.BaseEmitter.EmitBinary(ctx, n)
	if err != nil || n.Operator != "/" || userOperator(ctx, n) != nil {
		return r, err
	}
	if isIntegral(ctx.TypeOf(n.Left)) && isIntegral(ctx.TypeOf(n.Right)) {
		return Rendered{Text: "Math.trunc(" + r.Text + ")", Prec: PrecPostfix}, nil
	}
	return r, nil
}

// EmitCast truncates floating values cast to an integer type
func (ts *TypeScriptEmitter) EmitCast(ctx *Context, n *Node) (Rendered, error) {
	operand, err := ctx.Expr(n.Target)
	if err != nil {
		return Rendered{}, err
	}
	from := ctx.TypeOf(n.Target)
	if isIntegral(n.TypeRef) && from != nil && from.Kind == TypePrimitive && from.Primitive.IsFloating() {
		return Rendered{Text: "Math.trunc(" + operand.Text + ")", Prec: PrecPostfix, Mode: AutoCastSkip}, nil
	}
	if n.TypeRef != nil && n.TypeRef.Kind == TypePrimitive && from != nil && from.Kind == TypePrimitive {
		return operand, nil
	}
	ctx.NoteType(n.TypeRef)
	return ctx.Casts.Explicit(n.TypeRef, operand), nil
}

func (ts *TypeScriptEmitter) EmitLambda(ctx *Context, n *Node) (Rendered, error) {
	params := ts.lambdaParameters(ctx, n, func(typ, name string) string {
		if typ == "" {
			return name
		}
		return name + ": " + typ
	})
	body, block, err := ts.lambdaBody(ctx, n)
	if err != nil {
		return Rendered{}, err
	}
	if !block && strings.HasPrefix(body, "{") {
		body = "(" + body + ")"
	}
	return Rendered{Text: "(" + strings.Join(params, ", ") + ") => " + body, Prec: PrecAssignment, Mode: AutoCastSkip}, nil
}

func (ts *TypeScriptEmitter) EmitIs(ctx *Context, n *Node) (Rendered, error) {
	if n.TypeRef != nil && n.TypeRef.Kind == TypeInterface {
		return Rendered{}, unsupported(ts.dialect.Name, n, "type test against an interface")
	}
	if n.Name != "" {
		return Rendered{}, unsupported(ts.dialect.Name, n, "declaration pattern")
	}
	if tag, ok := typeofTag(n.TypeRef); ok {
		operand, err := ctx.Operand(n.Target, PrecUnary)
		if err != nil {
			return Rendered{}, err
		}
		return Compound("typeof "+operand+" === \""+tag+"\"", PrecEquality), nil
	}
	operand, err := ctx.Operand(n.Target, PrecRelational)
	if err != nil {
		return Rendered{}, err
	}
	return Compound(operand+" instanceof "+ts.TypeReference(ctx, n.TypeRef), PrecRelational), nil
}

// typeofTag is the typeof result of values of t when instanceof cannot test them
func typeofTag(t *Type) (string, bool) {
	if t == nil {
		return "", false
	}
	switch t.Kind {
	case TypePrimitive:
		tag, ok := tsPrimitives[t.Primitive]
		return tag, ok
	case TypeString:
		return "string", true
	case TypeEnum:
		return "number", true
	}
	return "", false
}

func (ts *TypeScriptEmitter) EmitAs(ctx *Context, n *Node) (Rendered, error) {
	if !simpleOperand(n.Target) || (n.TypeRef != nil && n.TypeRef.Kind == TypeInterface) {
		return Rendered{}, unsupported(ts.dialect.Name, n, "as conversion")
	}
	if tag, ok := typeofTag(n.TypeRef); ok {
		operand, err := ctx.Operand(n.Target, PrecUnary)
		if err != nil {
			return Rendered{}, err
		}
		return Compound("typeof "+operand+" === \""+tag+"\" ? "+operand+" : null", PrecConditional), nil
	}
	operand, err := ctx.Operand(n.Target, PrecRelational)
	if err != nil {
		return Rendered{}, err
	}
	return Compound(operand+" instanceof "+ts.TypeReference(ctx, n.TypeRef)+" ? "+operand+" : null", PrecConditional), nil
}

func (ts *TypeScriptEmitter) EmitAnonymousObject(ctx *Context, n *Node) (Rendered, error) {
	members, err := ts.anonymousMembers(ctx, n)
	if err != nil {
		return Rendered{}, err
	}
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = lowerFirst(m[0]) + ": " + m[1]
	}
	return Primary(braceList(parts)), nil
}

func (ts *TypeScriptEmitter) EmitLocalDeclaration(ctx *Context, n *Node) error {
	name, t := ts.localDeclaration(ctx, n)
	text := "let " + name
	if t != nil {
		text += ": " + ctx.TypeName(t, OwnershipValue)
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

// EmitTry folds typed catch clauses into one handler testing the caught value
func (ts *TypeScriptEmitter) EmitTry(ctx *Context, n *Node) error {
	w := ctx.Writer
	openBlock(ctx, "try")
	if err := body(ctx, n.Body); err != nil {
		return err
	}
	closeBlock(ctx)
	if len(n.Catches) > 0 {
		name := ctx.Temp("e")
		if len(n.Catches) == 1 && n.Catches[0].Name != "" {
			name = catchName(ctx, n.Catches[0])
		}
		continueBlock(ctx, "catch ("+name+")")
		open := false
		for i, c := range n.Catches {
			if c.Type == nil || tsExternalTypes[c.Type.DefinitionKey()] == "Error" && c.Type.Name == "Exception" {
				if open {
					continueBlock(ctx, "else")
				}
				if err := ts.catchClause(ctx, name, c); err != nil {
					return err
				}
				if open {
					closeBlock(ctx)
					w.EndLine()
				}
				open = false
				break
			}
			head := "if (" + name + " instanceof " + ts.TypeReference(ctx, c.Type) + ")"
			if i > 0 {
				continueBlock(ctx, "else "+head)
			} else {
				openBlock(ctx, head)
			}
			if err := ts.catchClause(ctx, name, c); err != nil {
				return err
			}
			closeBlock(ctx)
			open = true
		}
		if open {
			continueBlock(ctx, "else")
			w.WriteLine("throw " + name + ";")
			closeBlock(ctx)
			w.EndLine()
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

func (ts *TypeScriptEmitter) catchClause(ctx *Context, caught string, c *CatchClause) error {
	name := caught
	if c.Name != "" {
		if declared := catchName(ctx, c); declared != caught {
			ctx.Writer.WriteLine("const " + declared + " = " + caught + ";")
			name = declared
		}
	}
	return catchBody(ctx, name, c.Body)
}

func (ts *TypeScriptEmitter) EmitArtifact(ctx *Context) error {
	decl := ctx.Decl
	w := ctx.Writer
	if what, ok := hasOverloads(decl); ok {
		return unsupported(ts.dialect.Name, &Node{Pos: decl.Pos}, "overloaded "+what+" in "+decl.Type.Name)
	}
	return writeUnit(ctx, func() error {
		return ts.declareType(ctx, decl)
	}, func() error {
		var lines []string
		for _, e := range ctx.Imports.Entries() {
			if _, external := tsExternalTypes[e.Type.DefinitionKey()]; external {
				continue
			}
			target := ts.dialect.ArtifactPath(ctx.Types, e.Type, ArtifactSource)
			spec := relativeModule(ctx.Artifact.Path, strings.TrimSuffix(target, ".ts"))
			name := ctx.Types.DeclaredName(e.Type)
			keyword := "import"
			if !e.RequiresFullDefinition {
				keyword = "import type"
			}
			lines = append(lines, keyword+" { "+name+" } from \""+spec+"\";")
		}
		lines = append(lines, ctx.Requirements()...)
		sort.Strings(lines)
		for _, l := range lines {
			w.WriteLine(l)
		}
		if len(lines) > 0 {
			w.BlankLine()
		}
		return nil
	})
}

// relativeModule spells the module specifier of target as seen from the file from
func relativeModule(from, target string) string {
	fromDir := strings.Split(path.Dir(from), "/")
	if path.Dir(from) == "." {
		fromDir = nil
	}
	parts := strings.Split(target, "/")
	common := 0
	for common < len(fromDir) && common < len(parts)-1 && fromDir[common] == parts[common] {
		common++
	}
	var sb strings.Builder
	if common == len(fromDir) {
		sb.WriteString("./")
	}
	for i := common; i < len(fromDir); i++ {
		sb.WriteString("../")
	}
	sb.WriteString(strings.Join(parts[common:], "/"))
	return sb.String()
}

func (ts *TypeScriptEmitter) parameters(ctx *Context, sym *Symbol) (string, error) {
	return formalParameters(ctx, sym.Parameters, func(p *Parameter, typ, name string) (string, error) {
		if p.RefKind != RefNone {
			return "", unsupported(ts.dialect.Name, nil, "by-reference parameter "+p.Name+" of "+sym.Name)
		}
		s := name + ": " + typ
		switch {
		case p.DefaultConstant != nil:
			s += " = " + ts.Literal(ctx, *p.DefaultConstant, p.Type)
		case p.IsOptional:
			s = name + "?: " + typ
		}
		return s, nil
	})
}

func (ts *TypeScriptEmitter) declareType(ctx *Context, decl *TypeDecl) error {
	w := ctx.Writer
	name := ctx.Types.DeclaredName(decl.Type) + typeParameterList(ctx, decl)

	switch decl.Type.Kind {
	case TypeEnum:
		openBlock(ctx, "export enum "+name)
		for _, m := range decl.EnumMembers {
			line := ts.dialect.Identifier(m.Name)
			if m.Value != nil {
				line += " = " + m.Value.Text
			}
			w.WriteLine(line + ",")
		}
		closeBlock(ctx)
		w.EndLine()
		return nil
	case TypeDelegate:
		params, err := ts.parameters(ctx, decl.Invoke)
		if err != nil {
			return err
		}
		w.WriteLine("export type " + name + " = (" + params + ") => " + returnType(ctx, decl.Invoke) + ";")
		return nil
	}

	inInterface := decl.Type.Kind == TypeInterface
	head := "export "
	if inInterface {
		head += "interface " + name
	} else {
		if decl.Symbol != nil && decl.Symbol.IsAbstract {
			head += "abstract "
		}
		head += "class " + name
	}
	base, ifaces := supertypes(decl)
	if base != nil {
		ctx.Imports.Note(base, true)
		head += " extends " + ctx.TypeName(base, OwnershipValue)
	}
	if len(ifaces) > 0 {
		names := make([]string, len(ifaces))
		for i, it := range ifaces {
			names[i] = ctx.TypeName(it, OwnershipValue)
		}
		if inInterface {
			head += " extends " + strings.Join(names, ", ")
		} else {
			head += " implements " + strings.Join(names, ", ")
		}
	}
	openBlock(ctx, head)
	for i, m := range decl.Members {
		if i > 0 && (m.Kind != MemberField || decl.Members[i-1].Kind != MemberField) {
			w.BlankLine()
		}
		if err := withMember(ctx, m, func() error { return ts.declareMember(ctx, decl, m, inInterface) }); err != nil {
			return err
		}
	}
	closeBlock(ctx)
	w.EndLine()
	return nil
}

func (ts *TypeScriptEmitter) modifiers(sym *Symbol, inInterface bool) string {
	if inInterface {
		return ""
	}
	parts := []string{accessKeyword(sym, "public")}
	if sym.IsStatic {
		parts = append(parts, "static")
	}
	if sym.IsAbstract {
		parts = append(parts, "abstract")
	}
	if sym.IsReadOnly && (sym.Kind == SymbolField || sym.Kind == SymbolProperty) {
		parts = append(parts, "readonly")
	}
	return strings.Join(parts, " ") + " "
}

func (ts *TypeScriptEmitter) declareMember(ctx *Context, decl *TypeDecl, m *MemberDecl, inInterface bool) error {
	w := ctx.Writer
	sym := m.Symbol
	mods := ts.modifiers(sym, inInterface)
	name := ts.SymbolName(ctx, sym)
	switch m.Kind {
	case MemberField, MemberEvent:
		line := mods + name + ": " + ctx.TypeName(sym.Type, OwnershipValue)
		if !inInterface {
			v, err := initialValue(ctx, m)
			if err != nil {
				return err
			}
			line += " = " + v
		}
		w.WriteLine(line + ";")
	case MemberProperty:
		typ := ctx.TypeName(sym.Type, OwnershipValue)
		if len(sym.Parameters) > 0 {
			return unsupported(ts.dialect.Name, &Node{Pos: m.Pos}, "indexer declaration")
		}
		if inInterface || m.IsAutoProperty() {
			line := mods + name + ": " + typ
			if !inInterface {
				v, err := initialValue(ctx, m)
				if err != nil {
					return err
				}
				line += " = " + v
			}
			w.WriteLine(line + ";")
			return nil
		}
		access := strings.TrimSuffix(strings.TrimSuffix(mods, " "), " readonly") + " "
		if m.Getter != nil {
			if err := writeBody(ctx, access+"get "+name+"(): "+typ, m.Getter); err != nil {
				return err
			}
		}
		if m.Setter != nil {
			if err := writeBody(ctx, access+"set "+name+"(value: "+typ+")", m.Setter); err != nil {
				return err
			}
		}
	case MemberConstructor:
		if sym.IsStatic {
			return writeBody(ctx, "static", m.Body)
		}
		params, err := ts.parameters(ctx, sym)
		if err != nil {
			return err
		}
		var prelude []string
		base, _ := supertypes(decl)
		switch {
		case m.Chain != nil:
			toBase, args, err := ts.constructorChain(ctx, m)
			if err != nil {
				return err
			}
			if !toBase {
				return unsupported(ts.dialect.Name, m.Chain, "constructor chaining to a sibling constructor")
			}
			prelude = append(prelude, "super("+strings.Join(args, ", ")+");")
		case base != nil:
			prelude = append(prelude, "super();")
		}
		return writeBody(ctx, "constructor("+params+")", m.Body, prelude...)
	case MemberMethod, MemberOperator:
		params, err := ts.parameters(ctx, sym)
		if err != nil {
			return err
		}
		if m.Kind == MemberOperator {
			name = sym.Name
		}
		head := mods + name
		if len(sym.TypeParameters) > 0 {
			head += "<" + strings.Join(sym.TypeParameters, ", ") + ">"
		}
		head += "(" + params + "): " + returnType(ctx, sym)
		if m.Body == nil {
			w.WriteLine(head + ";")
			return nil
		}
		return writeBody(ctx, head, m.Body)
	}
	return nil
}
