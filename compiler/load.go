package compiler

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/coderline/phase/errors"
)

// Compilation documents describe the declarations to translate as YAML. Types are
// declared under "types" and emitted; types under "externals" are only referenced.
// Bodies are trees of nodes whose "kind" uses the node kind spellings ("binary",
// "member", "local", ...). A sequence where a node is expected is a block and a
// scalar is a literal.

//go:embed prelude.yaml
var preludeYAML []byte

type compilationDoc struct {
	Usings    []string   `yaml:"usings"`
	Types     []*typeDoc `yaml:"types"`
	Externals []*typeDoc `yaml:"externals"`
}

type typeDoc struct {
	Kind           string         `yaml:"kind"`
	Name           string         `yaml:"name"`
	TypeParameters []string       `yaml:"typeParameters"`
	Base           string         `yaml:"base"`
	Interfaces     []string       `yaml:"interfaces"`
	Access         string         `yaml:"access"`
	Rename         string         `yaml:"rename"`
	Values         []enumValueDoc `yaml:"values"`
	Invoke         *memberDoc     `yaml:"invoke"`
	Members        []*memberDoc   `yaml:"members"`
	Line           int            `yaml:"-"`

	external bool
	builtin  bool
	decl     *TypeDecl
	typ      *Type
	symbols  map[int]*Symbol
}

func (d *typeDoc) UnmarshalYAML(value *yaml.Node) error {
	type plain typeDoc
	if err := value.Decode((*plain)(d)); err != nil {
		return err
	}
	d.Line = value.Line
	return nil
}

type enumValueDoc struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type memberDoc struct {
	Kind           string      `yaml:"kind"`
	ID             string      `yaml:"id"`
	Name           string      `yaml:"name"`
	Type           string      `yaml:"type"`
	Returns        string      `yaml:"returns"`
	Access         string      `yaml:"access"`
	Rename         string      `yaml:"rename"`
	Static         bool        `yaml:"static"`
	Virtual        bool        `yaml:"virtual"`
	Abstract       bool        `yaml:"abstract"`
	Override       bool        `yaml:"override"`
	Weak           bool        `yaml:"weak"`
	ReadOnly       bool        `yaml:"readonly"`
	Extension      bool        `yaml:"extension"`
	TypeParameters []string    `yaml:"typeParameters"`
	Parameters     []*paramDoc `yaml:"parameters"`
	Initializer    *nodeDoc    `yaml:"initializer"`
	Body           *nodeDoc    `yaml:"body"`
	Get            *nodeDoc    `yaml:"get"`
	Set            *nodeDoc    `yaml:"set"`
	Chain          *chainDoc   `yaml:"chain"`
	Line           int         `yaml:"-"`
}

func (d *memberDoc) UnmarshalYAML(value *yaml.Node) error {
	type plain memberDoc
	if err := value.Decode((*plain)(d)); err != nil {
		return err
	}
	d.Line = value.Line
	return nil
}

type paramDoc struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Ref        string   `yaml:"ref"`
	Params     bool     `yaml:"params"`
	Optional   bool     `yaml:"optional"`
	This       bool     `yaml:"this"`
	Default    *nodeDoc `yaml:"default"`
	CallerInfo string   `yaml:"callerInfo"`
}

type chainDoc struct {
	Kind string     `yaml:"kind"` // base or this
	Args []*nodeDoc `yaml:"args"`
}

type catchDoc struct {
	Type string   `yaml:"type"`
	Name string   `yaml:"name"`
	Body *nodeDoc `yaml:"body"`
}

type nodeDoc struct {
	Kind       string      `yaml:"kind"`
	Name       string      `yaml:"name"`
	Op         string      `yaml:"op"`
	Postfix    bool        `yaml:"postfix"`
	Lit        yaml.Node   `yaml:"lit"`
	Type       string      `yaml:"type"`
	TypeArgs   []string    `yaml:"typeArgs"`
	Target     *nodeDoc    `yaml:"target"`
	Left       *nodeDoc    `yaml:"left"`
	Right      *nodeDoc    `yaml:"right"`
	Args       []*nodeDoc  `yaml:"args"`
	ArgName    string      `yaml:"argName"`
	Ref        string      `yaml:"ref"`
	Elements   []*nodeDoc  `yaml:"elements"`
	Cond       *nodeDoc    `yaml:"cond"`
	Then       *nodeDoc    `yaml:"then"`
	Else       *nodeDoc    `yaml:"else"`
	Init       []*nodeDoc  `yaml:"init"`
	Post       []*nodeDoc  `yaml:"post"`
	Body       *nodeDoc    `yaml:"body"`
	Statements []*nodeDoc  `yaml:"statements"`
	Value      *nodeDoc    `yaml:"value"`
	Parameters []*paramDoc `yaml:"parameters"`
	Catches    []*catchDoc `yaml:"catches"`
	Finally    *nodeDoc    `yaml:"finally"`
	Line       int         `yaml:"line"`
	Column     int         `yaml:"column"`
}

func (d *nodeDoc) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var stmts []*nodeDoc
		if err := value.Decode(&stmts); err != nil {
			return err
		}
		*d = nodeDoc{Kind: "block", Statements: stmts, Line: value.Line, Column: value.Column}
		return nil
	case yaml.ScalarNode:
		*d = nodeDoc{Kind: "literal", Lit: *value, Line: value.Line, Column: value.Column}
		return nil
	}
	type plain nodeDoc
	if err := value.Decode((*plain)(d)); err != nil {
		return err
	}
	if d.Line == 0 {
		d.Line, d.Column = value.Line, value.Column
	}
	return nil
}

// LoadCompilation reads and resolves the compilation document at path
func LoadCompilation(path string) (*Compilation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read compilation %s", path)
	}
	return ParseCompilation(data, path)
}

// ParseCompilation resolves a compilation document. file is used in positions.
func ParseCompilation(data []byte, file string) (*Compilation, error) {
	var prelude, doc compilationDoc
	if err := yaml.Unmarshal(preludeYAML, &prelude); err != nil {
		return nil, errors.NewAssertionErrorWithWrappedErrf(err, "prelude")
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "failed to parse compilation %s", file)
	}

	l := newLoader(file)
	l.usings = append([]string{"System", "System.Collections.Generic"}, doc.Usings...)
	var all []*typeDoc
	for _, d := range append(prelude.Externals, doc.Externals...) {
		d.external = true
		all = append(all, d)
	}
	all = append(all, doc.Types...)

	for _, d := range all {
		if err := l.declareType(d); err != nil {
			return nil, err
		}
	}
	for _, d := range all {
		if err := l.resolveSupertypes(d); err != nil {
			return nil, err
		}
	}
	for _, d := range all {
		if err := l.declareMembers(d); err != nil {
			return nil, err
		}
	}
	for _, d := range doc.Types {
		if err := l.resolveBodies(d); err != nil {
			return nil, err
		}
	}
	l.oracle.Freeze()

	for _, d := range doc.Types {
		l.comp.Types = append(l.comp.Types, d.decl)
	}
	return l.comp, nil
}

// loader builds a Compilation from documents in three passes: types, members,
// then bodies
type loader struct {
	file    string
	usings  []string
	comp    *Compilation
	oracle  *MemoryOracle
	index   *TypeIndex
	binder  *Binder
	invokes map[string]*Symbol
	typeSym map[string]*Symbol
	nextID  int
}

func newLoader(file string) *loader {
	oracle := NewMemoryOracle()
	index := NewTypeIndex()
	return &loader{
		file:    file,
		oracle:  oracle,
		index:   index,
		binder:  NewBinder(oracle),
		invokes: map[string]*Symbol{},
		typeSym: map[string]*Symbol{},
		comp: &Compilation{
			Index:   index,
			Oracle:  oracle,
			Members: map[string][]*Symbol{},
		},
	}
}

func (l *loader) pos(line, column int) Position {
	return Position{File: l.file, Line: line, Column: column}
}

func (l *loader) errorf(line int, format string, args ...interface{}) error {
	return errors.Newf("%s: "+format, append([]interface{}{l.pos(line, 0)}, args...)...)
}

var typeKinds = map[string]TypeKind{
	"class":     TypeClass,
	"struct":    TypeStruct,
	"interface": TypeInterface,
	"enum":      TypeEnum,
	"delegate":  TypeDelegate,
}

func splitQualified(name string) (namespace, simple string) {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func (l *loader) declareType(d *typeDoc) error {
	kind, ok := typeKinds[d.Kind]
	if !ok {
		return l.errorf(d.Line, "unknown type kind %q of %s", d.Kind, d.Name)
	}
	if d.Name == "" {
		return l.errorf(d.Line, "type without name")
	}
	arity := len(d.TypeParameters)
	if t := l.index.Lookup(d.Name, arity); t != nil {
		if !d.external {
			return l.errorf(d.Line, "type %s declared twice", d.Name)
		}
		// externals may add members to builtins
		d.typ = t
		_, d.builtin = builtinTypes[t.DefinitionKey()]
		return nil
	}
	ns, simple := splitQualified(d.Name)
	t := NamedType(kind, ns, simple)
	t.Arity = arity
	t.Rename = d.Rename
	for _, p := range d.TypeParameters {
		t.TypeArgs = append(t.TypeArgs, TypeParam(p))
	}
	d.typ = t
	l.index.Add(t)
	return nil
}

func (l *loader) typeParamScope(names ...[]string) map[string]*Type {
	scope := map[string]*Type{}
	for _, list := range names {
		for _, n := range list {
			scope[n] = TypeParam(n)
		}
	}
	return scope
}

func (l *loader) resolveSupertypes(d *typeDoc) error {
	t := d.typ
	if d.builtin {
		return nil
	}
	scope := l.typeParamScope(d.TypeParameters)
	if d.Base != "" {
		base, err := l.parseType(d.Base, scope, t.Namespace, d.Line)
		if err != nil {
			return err
		}
		if base.Kind == TypeInterface {
			t.Interfaces = append(t.Interfaces, base)
		} else {
			t.Base = base
		}
	}
	for _, name := range d.Interfaces {
		it, err := l.parseType(name, scope, t.Namespace, d.Line)
		if err != nil {
			return err
		}
		t.Interfaces = append(t.Interfaces, it)
	}
	return nil
}

var accessibilities = map[string]Accessibility{
	"":          AccessPrivate,
	"private":   AccessPrivate,
	"protected": AccessProtected,
	"internal":  AccessInternal,
	"public":    AccessPublic,
}

var refKinds = map[string]RefKind{"": RefNone, "ref": RefRef, "out": RefOut, "in": RefIn}

var callerInfos = map[string]CallerInfo{
	"":           CallerInfoNone,
	"memberName": CallerMemberName,
	"filePath":   CallerFilePath,
	"lineNumber": CallerLineNumber,
}

var memberKinds = map[string]MemberKind{
	"field":       MemberField,
	"property":    MemberProperty,
	"method":      MemberMethod,
	"constructor": MemberConstructor,
	"event":       MemberEvent,
	"operator":    MemberOperator,
}

var memberSymbolKinds = map[MemberKind]SymbolKind{
	MemberField:       SymbolField,
	MemberProperty:    SymbolProperty,
	MemberMethod:      SymbolMethod,
	MemberConstructor: SymbolConstructor,
	MemberEvent:       SymbolEvent,
	MemberOperator:    SymbolOperator,
}

// operatorName maps a token to its operator method name; arity picks between the
// unary and binary minus
func operatorName(name string, arity int) string {
	if strings.HasPrefix(name, "op_") {
		return name
	}
	if arity == 1 {
		switch name {
		case "-":
			return "op_UnaryNegation"
		case "!":
			return "op_LogicalNot"
		}
	}
	for method, tok := range operatorTokens {
		if tok == name && method != "op_UnaryNegation" && method != "op_LogicalNot" {
			return method
		}
	}
	return name
}

func (l *loader) declareMembers(d *typeDoc) error {
	t := d.typ
	key := t.DefinitionKey()
	typeAccess := AccessPublic
	if d.Access != "" {
		typeAccess = accessibilities[d.Access]
	}
	decl := &TypeDecl{
		Type:   t,
		Symbol: &Symbol{Kind: SymbolType, Name: t.Name, Type: t, Accessibility: typeAccess, Rename: d.Rename},
		Pos:    l.pos(d.Line, 0),
	}
	d.decl = decl
	d.symbols = map[int]*Symbol{}
	l.typeSym[key] = decl.Symbol

	next := 0
	for _, v := range d.Values {
		sym := &Symbol{Kind: SymbolEnumValue, Name: v.Name, Container: t, Type: t, Accessibility: AccessPublic, IsStatic: true}
		l.comp.Members[key] = append(l.comp.Members[key], sym)
		m := EnumMember{Name: v.Name}
		if v.Value != "" {
			m.Value = &Constant{Kind: ConstInt, Text: v.Value}
			next = parseIntOr(v.Value, next)
		}
		next++
		decl.EnumMembers = append(decl.EnumMembers, m)
	}

	scope := l.typeParamScope(d.TypeParameters)
	if d.Invoke != nil {
		inv, err := l.memberSymbol(t, &memberDoc{Kind: "method", Name: "Invoke", Returns: d.Invoke.Returns,
			Parameters: d.Invoke.Parameters, Access: "public", Line: d.Invoke.Line}, scope)
		if err != nil {
			return err
		}
		decl.Invoke = inv
		l.invokes[key] = inv
	}

	hasCtor := false
	for i, md := range d.Members {
		kind, ok := memberKinds[md.Kind]
		if !ok {
			return l.errorf(md.Line, "unknown member kind %q in %s", md.Kind, d.Name)
		}
		sym, err := l.memberSymbol(t, md, scope)
		if err != nil {
			return err
		}
		d.symbols[i] = sym
		l.comp.Members[key] = append(l.comp.Members[key], sym)
		decl.Members = append(decl.Members, &MemberDecl{Kind: kind, Symbol: sym, Pos: l.pos(md.Line, 0)})
		hasCtor = hasCtor || kind == MemberConstructor && !sym.IsStatic
	}
	if !hasCtor && !d.external && (t.Kind == TypeClass || t.Kind == TypeStruct) {
		ctor := &Symbol{Kind: SymbolConstructor, Name: ".ctor", Container: t, Accessibility: AccessPublic}
		l.comp.Members[key] = append(l.comp.Members[key], ctor)
	}
	return nil
}

func (l *loader) memberSymbol(t *Type, md *memberDoc, scope map[string]*Type) (*Symbol, error) {
	kind := memberSymbolKinds[memberKinds[md.Kind]]
	if t.Kind == TypeInterface && md.Access == "" {
		md.Access = "public"
	}
	sym := &Symbol{
		ID:             md.ID,
		Kind:           kind,
		Name:           md.Name,
		Container:      t,
		TypeParameters: md.TypeParameters,
		Accessibility:  accessibilities[md.Access],
		IsStatic:       md.Static || kind == SymbolOperator,
		IsExtension:    md.Extension,
		IsVirtual:      md.Virtual,
		IsAbstract:     md.Abstract || t.Kind == TypeInterface,
		IsOverride:     md.Override,
		IsWeak:         md.Weak,
		IsReadOnly:     md.ReadOnly,
		Rename:         md.Rename,
	}
	switch kind {
	case SymbolConstructor:
		sym.Name = ".ctor"
	case SymbolOperator:
		sym.Name = operatorName(md.Name, len(md.Parameters))
	}
	if sym.Name == "" {
		return nil, l.errorf(md.Line, "%s member without name in %s", md.Kind, t.Key())
	}

	local := scope
	if len(md.TypeParameters) > 0 {
		local = l.typeParamScope(md.TypeParameters)
		for k, v := range scope {
			local[k] = v
		}
	}
	typeName := md.Type
	if md.Returns != "" {
		typeName = md.Returns
	}
	switch {
	case typeName != "":
		typ, err := l.parseType(typeName, local, t.Namespace, md.Line)
		if err != nil {
			return nil, err
		}
		sym.Type = typ
	case kind == SymbolMethod || kind == SymbolConstructor:
		sym.Type = VoidType
	default:
		return nil, l.errorf(md.Line, "member %s of %s has no type", md.Name, t.Key())
	}

	for _, pd := range md.Parameters {
		p, err := l.parameter(pd, local, t.Namespace, md.Line)
		if err != nil {
			return nil, err
		}
		sym.Parameters = append(sym.Parameters, p)
	}
	return sym, nil
}

func (l *loader) parameter(pd *paramDoc, scope map[string]*Type, ns string, line int) (*Parameter, error) {
	typ, err := l.parseType(pd.Type, scope, ns, line)
	if err != nil {
		return nil, err
	}
	ref, ok := refKinds[pd.Ref]
	if !ok {
		return nil, l.errorf(line, "unknown parameter passing %q", pd.Ref)
	}
	info, ok := callerInfos[pd.CallerInfo]
	if !ok {
		return nil, l.errorf(line, "unknown caller info %q", pd.CallerInfo)
	}
	if pd.Params && typ.Kind != TypeArray {
		return nil, l.errorf(line, "params parameter %s must be an array", pd.Name)
	}
	p := &Parameter{
		Name:       pd.Name,
		Type:       typ,
		RefKind:    ref,
		IsParams:   pd.Params,
		IsOptional: pd.Optional || pd.Default != nil || info != CallerInfoNone,
		IsThis:     pd.This,
		CallerInfo: info,
	}
	if pd.Default != nil {
		// defaults are resolved outside any member
		r := &resolver{l: l, typeParams: scope, namespace: ns}
		n, err := r.expr(pd.Default, typ)
		if err != nil {
			return nil, err
		}
		if n.Kind == NodeLiteral && n.Literal != nil {
			p.DefaultConstant = n.Literal
		} else {
			p.Default = n
		}
	}
	return p, nil
}

// typeExpr is a parsed type reference: a name with type arguments and array ranks
type typeExpr struct {
	name   string
	args   []*typeExpr
	arrays int
}

func parseTypeExpr(s string) (*typeExpr, error) {
	p := &typeExprParser{s: s}
	e, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, errors.Newf("unexpected %q in type %q", p.s[p.pos:], s)
	}
	return e, nil
}

type typeExprParser struct {
	s   string
	pos int
}

func (p *typeExprParser) skipSpace() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeExprParser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.s[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeExprParser) parse() (*typeExpr, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) {
		r := rune(p.s[p.pos])
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.') {
			break
		}
		p.pos++
	}
	if start == p.pos {
		return nil, errors.Newf("expected a type name in %q", p.s)
	}
	e := &typeExpr{name: p.s[start:p.pos]}
	if p.accept("<") {
		for {
			arg, err := p.parse()
			if err != nil {
				return nil, err
			}
			e.args = append(e.args, arg)
			if p.accept(">") {
				break
			}
			if !p.accept(",") {
				return nil, errors.Newf("expected , or > in %q", p.s)
			}
		}
	}
	for p.accept("[]") {
		e.arrays++
	}
	return e, nil
}

var typeAliases = map[string]*Type{
	"void":    VoidType,
	"object":  ObjectType,
	"dynamic": DynamicType,
	"string":  StringType,
	"bool":    BoolType,
	"char":    CharType,
	"sbyte":   Int8Type,
	"byte":    UInt8Type,
	"short":   Int16Type,
	"ushort":  UInt16Type,
	"int":     Int32Type,
	"uint":    UInt32Type,
	"long":    Int64Type,
	"ulong":   UInt64Type,
	"float":   Float32Type,
	"double":  Float64Type,
}

// parseType resolves a type reference written in source syntax, e.g.
// List<int>[] or Geometry.Shape
func (l *loader) parseType(s string, scope map[string]*Type, ns string, line int) (*Type, error) {
	e, err := parseTypeExpr(s)
	if err != nil {
		return nil, l.errorf(line, "%v", err)
	}
	t, err := l.resolveTypeExpr(e, scope, ns)
	if err != nil {
		return nil, l.errorf(line, "%v", err)
	}
	return t, nil
}

func (l *loader) resolveTypeExpr(e *typeExpr, scope map[string]*Type, ns string) (*Type, error) {
	var t *Type
	switch {
	case len(e.args) == 0 && scope[e.name] != nil:
		t = scope[e.name]
	case len(e.args) == 0 && typeAliases[e.name] != nil:
		t = typeAliases[e.name]
	default:
		def := l.lookupType(e.name, len(e.args), ns)
		if def == nil {
			return nil, errors.Newf("unknown type %s", e.name)
		}
		t = def
		if len(e.args) > 0 {
			args := make([]*Type, len(e.args))
			for i, a := range e.args {
				at, err := l.resolveTypeExpr(a, scope, ns)
				if err != nil {
					return nil, err
				}
				args[i] = at
			}
			t = def.Instantiate(args...)
		}
	}
	for i := 0; i < e.arrays; i++ {
		t = ArrayOf(t)
	}
	return t, nil
}

// lookupType finds a definition relative to ns and its parents, then the usings,
// then the global namespace
func (l *loader) lookupType(name string, arity int, ns string) *Type {
	var prefixes []string
	for ns != "" {
		prefixes = append(prefixes, ns)
		ns, _ = splitQualified(ns)
	}
	prefixes = append(prefixes, l.usings...)
	for _, p := range prefixes {
		if t := l.index.Lookup(p+"."+name, arity); t != nil {
			return t
		}
	}
	return l.index.Lookup(name, arity)
}

// typeSymbol returns the symbol naming t as an expression
func (l *loader) typeSymbol(t *Type) *Symbol {
	key := definitionOf(t).DefinitionKey()
	if s, ok := l.typeSym[key]; ok && t.Definition == nil {
		return s
	}
	s := &Symbol{Kind: SymbolType, Name: t.Name, Type: t, Accessibility: AccessPublic}
	if t.Definition == nil {
		l.typeSym[key] = s
	}
	return s
}

// literal folds a scalar into a constant and its type. hint is the declared literal
// type, if any.
func literal(value *yaml.Node, hint *Type) (Constant, *Type, error) {
	switch value.ShortTag() {
	case "!!null":
		return Constant{Kind: ConstNull, Text: "null"}, NullType, nil
	case "!!bool":
		return Constant{Kind: ConstBool, Text: value.Value}, BoolType, nil
	case "!!int":
		t := Int32Type
		if hint != nil && hint.IsNumeric() {
			t = hint
		} else if v, err := strconv.ParseInt(value.Value, 0, 64); err == nil && (v > 1<<31-1 || v < -1<<31) {
			t = Int64Type
		}
		if t.Primitive.IsFloating() {
			return Constant{Kind: ConstFloat, Text: value.Value}, t, nil
		}
		return Constant{Kind: ConstInt, Text: value.Value}, t, nil
	case "!!float":
		t := Float64Type
		if hint != nil && hint.Kind == TypePrimitive && hint.Primitive == PrimFloat32 {
			t = hint
		}
		return Constant{Kind: ConstFloat, Text: value.Value}, t, nil
	case "!!str":
		if hint != nil && hint.Kind == TypePrimitive && hint.Primitive == PrimChar {
			if len([]rune(value.Value)) != 1 {
				return Constant{}, nil, errors.Newf("char literal %q must be a single character", value.Value)
			}
			return Constant{Kind: ConstChar, Text: value.Value}, CharType, nil
		}
		return Constant{Kind: ConstString, Text: value.Value}, StringType, nil
	}
	return Constant{}, nil, errors.Newf("unsupported literal %q", value.Value)
}
