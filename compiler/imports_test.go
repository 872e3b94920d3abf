package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportTrackerNeverDowngrades(t *testing.T) {
	shape := NamedType(TypeClass, "Geometry", "Shape")
	it := NewImportTracker(pointType())

	it.Note(shape, false)
	e, ok := it.Lookup(shape)
	require.True(t, ok)
	assert.False(t, e.RequiresFullDefinition)

	it.Note(shape, true)
	it.Note(shape, false)
	e, _ = it.Lookup(shape)
	assert.True(t, e.RequiresFullDefinition)
	assert.Equal(t, 1, it.Len())
}

func TestImportTrackerSkipsSelfAndBuiltins(t *testing.T) {
	it := NewImportTracker(pointType())
	for _, typ := range []*Type{pointType(), Int32Type, StringType, ObjectType, VoidType, TypeParam("T")} {
		it.Note(typ, true)
	}
	it.Note(nil, true)
	assert.Zero(t, it.Len())
}

func TestImportTrackerGenericArguments(t *testing.T) {
	shape := NamedType(TypeClass, "Geometry", "Shape")
	it := NewImportTracker(pointType())

	it.Note(genericList().Instantiate(shape), false)
	it.Note(ArrayOf(NamedType(TypeClass, "Geometry", "Circle")), false)

	entries := it.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "Geometry.Circle", entries[0].Type.DefinitionKey())
	assert.Equal(t, "Geometry.Shape", entries[1].Type.DefinitionKey())
	assert.True(t, entries[1].RequiresFullDefinition, "instantiation arguments need the full definition")
	assert.Equal(t, "System.Collections.Generic.List`1", entries[2].Type.DefinitionKey())
	assert.False(t, entries[2].RequiresFullDefinition)
}
