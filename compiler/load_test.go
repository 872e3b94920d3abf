package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pointDoc = `
types:
  - kind: class
    name: Geometry.Point
    members:
      - {kind: field, name: X, type: int, access: public}
      - {kind: field, name: Y, type: double, access: public}
      - kind: method
        name: Sum
        returns: double
        access: public
        body:
          - kind: local
            name: total
            type: var
            value: {kind: binary, op: "+", left: {kind: identifier, name: X}, right: {kind: identifier, name: Y}}
          - {kind: return, value: {kind: identifier, name: total}}
      - kind: method
        name: Describe
        returns: string
        access: public
        body:
          - {kind: return, value: {kind: identifier, name: missing}}
`

func TestParseCompilationBindsSymbols(t *testing.T) {
	comp, err := ParseCompilation([]byte(pointDoc), "point.yaml")
	require.NoError(t, err)
	require.Len(t, comp.Types, 1)

	decl := comp.Types[0]
	assert.Equal(t, "Geometry.Point", decl.Type.Key())
	assert.Equal(t, "point.yaml", decl.Pos.File)
	require.Len(t, decl.Members, 4)
	assert.Equal(t, MemberField, decl.Members[0].Kind)

	body := decl.Members[2].Body
	require.NotNil(t, body)
	require.Len(t, body.Statements, 2)

	local := body.Statements[0]
	assert.Equal(t, NodeLocalDeclaration, local.Kind)
	declared := comp.Oracle.ResolveDeclaredSymbol(local)
	require.NotNil(t, declared)
	assert.Equal(t, Float64Type, declared.Type, "var takes the promoted type of its initializer")

	sum := local.Value
	x := comp.Oracle.ResolveSymbol(sum.Left)
	require.NotNil(t, x)
	assert.Equal(t, SymbolField, x.Kind)
	assert.Equal(t, "X", x.Name)

	ret := body.Statements[1]
	assert.Equal(t, declared, comp.Oracle.ResolveSymbol(ret.Value))
	static, converted := comp.Oracle.ResolveType(ret.Value)
	assert.Equal(t, Float64Type, static)
	assert.Equal(t, Float64Type, converted)

	unresolved := decl.Members[3].Body.Statements[0].Value
	assert.Nil(t, comp.Oracle.ResolveSymbol(unresolved))
}

func TestParseCompilationPreludeMembers(t *testing.T) {
	comp, err := ParseCompilation([]byte("types: []\n"), "empty.yaml")
	require.NoError(t, err)
	assert.Empty(t, comp.Types)

	var names []string
	for _, s := range comp.MembersOf(StringType) {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "Length")
	assert.Contains(t, names, "ToString", "members of supertypes are visible")

	list := comp.Index.Lookup("System.Collections.Generic.List", 1)
	require.NotNil(t, list)
	assert.True(t, list.Instantiate(Int32Type).AssignableTo(EnumerableOfType.Instantiate(Int32Type)))
}

func TestParseCompilationErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"malformed yaml", "types: [", "failed to parse compilation"},
		{"unknown type kind", "types: [{kind: record, name: A}]", "unknown type kind"},
		{"duplicate type", "types: [{kind: class, name: A}, {kind: class, name: A}]", "declared twice"},
		{"unknown member kind", "types: [{kind: class, name: A, members: [{kind: slot, name: x}]}]", "unknown member kind"},
		{"untyped field", "types: [{kind: class, name: A, members: [{kind: field, name: x}]}]", "has no type"},
		{"params must be an array", `
types:
  - kind: class
    name: A
    members:
      - {kind: method, name: f, parameters: [{name: xs, type: int, params: true}]}`, "must be an array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCompilation([]byte(tt.doc), "bad.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseCompilationOracleIsFrozen(t *testing.T) {
	comp, err := ParseCompilation([]byte(pointDoc), "point.yaml")
	require.NoError(t, err)
	oracle, ok := comp.Oracle.(*MemoryOracle)
	require.True(t, ok)
	assert.Panics(t, func() { oracle.SetSymbol(&Node{}, nil) })
}
