package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderline/phase/errors"
)

func typedNode(o *MemoryOracle, t *Type) *Node {
	n := &Node{Kind: NodeIdentifier, Name: "v"}
	o.SetType(n, t, nil)
	return n
}

func positional(nodes ...*Node) []*Argument {
	args := make([]*Argument, len(nodes))
	for i, n := range nodes {
		args[i] = &Argument{Value: n}
	}
	return args
}

func formatMethod() *Symbol {
	return &Symbol{Kind: SymbolMethod, Name: "Format", IsStatic: true, Parameters: []*Parameter{
		{Name: "format", Type: StringType},
		{Name: "args", Type: ArrayOf(ObjectType), IsParams: true},
	}}
}

func TestBindParamsPacking(t *testing.T) {
	o := NewMemoryOracle()
	format := typedNode(o, StringType)
	one, two := typedNode(o, Int32Type), typedNode(o, Int32Type)
	array := typedNode(o, ArrayOf(ObjectType))
	b := NewBinder(o)

	tests := []struct {
		name    string
		args    []*Node
		count   int
		packing bool
	}{
		{"several values", []*Node{format, one, two}, 2, true},
		{"no values", []*Node{format}, 0, true},
		{"single value", []*Node{format, one}, 1, true},
		{"container passed through", []*Node{format, array}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binding, err := b.Bind(formatMethod(), nil, positional(tt.args...), CallSite{})
			require.NoError(t, err)
			require.Len(t, binding.Entries, 2)
			assert.Equal(t, []*Node{format}, binding.Entries[0].Args)
			params := binding.Lookup("args")
			assert.Len(t, params.Args, tt.count)
			assert.Equal(t, tt.packing, params.NeedsPacking)
			assert.Equal(t, ObjectType, params.ElementType())
		})
	}
}

func TestBindNamedAndDefaults(t *testing.T) {
	o := NewMemoryOracle()
	defaultExpr := &Node{Kind: NodeLiteral, Literal: &Constant{Kind: ConstInt, Text: "2"}}
	method := &Symbol{Kind: SymbolMethod, Name: "Draw", Parameters: []*Parameter{
		{Name: "x", Type: Int32Type},
		{Name: "scale", Type: Int32Type, Default: defaultExpr},
		{Name: "color", Type: StringType, DefaultConstant: &Constant{Kind: ConstString, Text: "red"}},
		{Name: "tag", Type: ObjectType, IsOptional: true},
		{Name: "caller", Type: StringType, CallerInfo: CallerMemberName},
		{Name: "line", Type: Int32Type, CallerInfo: CallerLineNumber},
		{Name: "y", Type: Int32Type},
	}}
	x, y := typedNode(o, Int32Type), typedNode(o, Int32Type)
	call := &Node{Kind: NodeInvocation, Pos: Position{File: "shapes.yaml", Line: 12}}

	binding, err := NewBinder(o).Bind(method, nil,
		[]*Argument{{Value: x}, {Name: "y", Value: y}}, CallSite{Node: call, Member: "Render"})
	require.NoError(t, err)

	sources := map[string]ArgumentSource{}
	for _, e := range binding.Entries {
		sources[e.Parameter.Name] = e.Source
	}
	assert.Equal(t, map[string]ArgumentSource{
		"x": SourceArgument, "scale": SourceDefault, "color": SourceConstant, "tag": SourceSentinel,
		"caller": SourceCallerInfo, "line": SourceCallerInfo, "y": SourceArgument,
	}, sources)
	assert.Equal(t, []*Node{y}, binding.Lookup("y").Args)
	assert.Equal(t, []*Node{defaultExpr}, binding.Lookup("scale").Args)
	assert.Equal(t, "red", binding.Lookup("color").Constant.Text)
	assert.Equal(t, "Render", binding.Lookup("caller").Constant.Text)
	assert.Equal(t, "12", binding.Lookup("line").Constant.Text)
}

func TestBindErrors(t *testing.T) {
	o := NewMemoryOracle()
	method := &Symbol{Kind: SymbolMethod, Name: "Move", Parameters: []*Parameter{{Name: "dx", Type: Int32Type}}}
	v := typedNode(o, Int32Type)
	b := NewBinder(o)

	tests := []struct {
		name string
		args []*Argument
	}{
		{"missing argument", nil},
		{"too many arguments", positional(v, v)},
		{"unknown name", []*Argument{{Name: "dy", Value: v}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Bind(method, nil, tt.args, CallSite{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvocationBinding))
		})
	}
}

func TestBindExtensionReceiver(t *testing.T) {
	o := NewMemoryOracle()
	method := &Symbol{Kind: SymbolMethod, Name: "Twice", IsStatic: true, IsExtension: true, Parameters: []*Parameter{
		{Name: "value", Type: Int32Type, IsThis: true},
	}}
	recv := typedNode(o, Int32Type)
	binding, err := NewBinder(o).Bind(method, recv, nil, CallSite{})
	require.NoError(t, err)
	assert.Equal(t, SourceReceiver, binding.Entries[0].Source)
	assert.Equal(t, []*Node{recv}, binding.Entries[0].Args)
}

func TestBindSubstitutesReceiverTypeArguments(t *testing.T) {
	o := NewMemoryOracle()
	list := genericList()
	add := &Symbol{Kind: SymbolMethod, Name: "Add", Container: list, Parameters: []*Parameter{
		{Name: "item", Type: TypeParam("T")},
	}}
	recv := typedNode(o, list.Instantiate(StringType))
	binding, err := NewBinder(o).Bind(add, recv, positional(typedNode(o, StringType)), CallSite{})
	require.NoError(t, err)
	assert.Equal(t, StringType, binding.Entries[0].Type)
}
