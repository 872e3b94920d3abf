package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pointType() *Type {
	return NamedType(TypeClass, "Geometry", "Point")
}

func genericList() *Type {
	list := NamedType(TypeClass, "System.Collections.Generic", "List")
	list.Arity = 1
	list.TypeArgs = []*Type{TypeParam("T")}
	return list
}

func TestTypeNameOwnership(t *testing.T) {
	point := pointType()
	cpp := NewTypeResolver(NewCPPEmitter().Syntax(), NewTypeIndex(point))

	tests := []struct {
		name string
		typ  *Type
		kind OwnershipKind
		want string
	}{
		{"primitive", Int32Type, OwnershipSharedDeclaration, "std::int32_t"},
		{"string", StringType, OwnershipSharedUsage, "std::string"},
		{"class value", point, OwnershipValue, "Geometry::Point"},
		{"class declaration", point, OwnershipSharedDeclaration, "std::shared_ptr<Geometry::Point>"},
		{"class usage", point, OwnershipSharedUsage, "const std::shared_ptr<Geometry::Point>&"},
		{"weak declaration", point, OwnershipWeakDeclaration, "std::weak_ptr<Geometry::Point>"},
		{"array elements are declarations", ArrayOf(point), OwnershipValue,
			"std::vector<std::shared_ptr<Geometry::Point>>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cpp.TypeName(tt.typ, tt.kind, TypeNameOptions{}))
		})
	}
}

func TestTypeNameGarbageCollectedCollapsesOwnership(t *testing.T) {
	point := pointType()
	for _, r := range []Renderer{NewCSharpEmitter(), NewJavaEmitter(), NewTypeScriptEmitter()} {
		res := NewTypeResolver(r.Syntax(), NewTypeIndex(point))
		assert.True(t, r.Syntax().IsGarbageCollected(), r.Dialect().Name)
		assert.Equal(t, OwnershipValue, res.Ownership(point, true, true), r.Dialect().Name)
		assert.Equal(t,
			res.TypeName(point, OwnershipValue, TypeNameOptions{}),
			res.TypeName(point, OwnershipSharedUsage, TypeNameOptions{}), r.Dialect().Name)
	}
}

func TestTypeNameGenericArguments(t *testing.T) {
	list := genericList()
	java := NewTypeResolver(NewJavaEmitter().Syntax(), NewTypeIndex(list))
	assert.Equal(t, "java.util.ArrayList<Integer>", java.TypeName(list.Instantiate(Int32Type), OwnershipValue, TypeNameOptions{}))
	assert.Equal(t, "ArrayList", java.TypeName(list.Instantiate(Int32Type), OwnershipValue,
		TypeNameOptions{Simple: true, NoTypeArguments: true}))
}

func TestTypeNameArityCollision(t *testing.T) {
	plain := NamedType(TypeClass, "Util", "Pair")
	generic := NamedType(TypeClass, "Util", "Pair")
	generic.Arity = 2
	generic.TypeArgs = []*Type{TypeParam("A"), TypeParam("B")}
	idx := NewTypeIndex(plain, generic)

	ts := NewTypeResolver(NewTypeScriptEmitter().Syntax(), idx)
	assert.Equal(t, "Pair", ts.DeclaredName(plain))
	assert.Equal(t, "Pair2", ts.DeclaredName(generic))

	cs := NewTypeResolver(NewCSharpEmitter().Syntax(), idx)
	assert.Equal(t, "Pair", cs.DeclaredName(generic), "C# overloads type names by arity")
}

func TestNamespaceSpelling(t *testing.T) {
	java := NewTypeResolver(NewJavaEmitter().Syntax(), nil)
	assert.Equal(t, "geometry.shapes", java.Namespace("Geometry.Shapes"))
	cpp := NewTypeResolver(NewCPPEmitter().Syntax(), nil)
	assert.Equal(t, "Geometry::Shapes", cpp.Namespace("Geometry.Shapes"))
	assert.Empty(t, cpp.Namespace(""))
}
