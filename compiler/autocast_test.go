package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderline/phase/errors"
)

func TestDecideCast(t *testing.T) {
	shape := NamedType(TypeClass, "Geometry", "Shape")
	circle := NamedType(TypeClass, "Geometry", "Circle")
	circle.Base = shape

	tests := []struct {
		name              string
		static, converted *Type
		want              CastKind
	}{
		{"identity", Int32Type, Int32Type, CastNone},
		{"unknown static", nil, Int32Type, CastNone},
		{"widening", Int32Type, Int64Type, CastNumeric},
		{"int to double", Int32Type, Float64Type, CastNumeric},
		{"narrowing is explicit", Int64Type, Int32Type, CastNone},
		{"signed to unsigned", Int32Type, UInt64Type, CastNone},
		{"box primitive", Int32Type, ObjectType, CastBox},
		{"box string", StringType, DynamicType, CastBox},
		{"upcast", circle, shape, CastUpcast},
		{"array to enumerable", ArrayOf(Int32Type), EnumerableOfType.Instantiate(Int32Type), CastNone},
		{"null", NullType, shape, CastNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideCast(tt.static, tt.converted))
		})
	}
}

// Apply never changes an expression whose static type already is the converted type.
func TestAutoCastIdentityIsNoOp(t *testing.T) {
	types := []*Type{Int32Type, Float64Type, StringType, ObjectType, pointType(), ArrayOf(CharType)}
	inputs := []Rendered{Primary("x"), Compound("a + b", PrecAdditive)}
	for _, name := range Backends() {
		r, err := NewRenderer(name)
		if !assert.NoError(t, err) {
			continue
		}
		caster := NewAutoCaster(r.CastSyntax(), NewTypeResolver(r.Syntax(), NewTypeIndex()))
		for _, typ := range types {
			for _, in := range inputs {
				assert.Equal(t, in, caster.Apply(AutoCastDefault, typ, typ, in), "%s %s", name, typ)
				assert.Equal(t, in, caster.Apply(AutoCastSkip, Int64Type, Int32Type, in), name)
			}
		}
	}
}

func TestAutoCastWrapsWithPrecedence(t *testing.T) {
	sum := Compound("a + b", PrecAdditive)
	tests := []struct {
		backend string
		want    string
	}{
		{"cpp", "static_cast<std::int64_t>(a + b)"},
		{"csharp", "(long)(a + b)"},
		{"java", "(long) (a + b)"},
		{"rust", "(a + b) as i64"},
		{"typescript", "a + b"},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			r, err := NewRenderer(tt.backend)
			assert.NoError(t, err)
			caster := NewAutoCaster(r.CastSyntax(), NewTypeResolver(r.Syntax(), NewTypeIndex()))
			got := caster.Apply(AutoCastDefault, Int64Type, Int32Type, sum)
			assert.Equal(t, tt.want, got.Text)
		})
	}
}

func TestRenderedOperand(t *testing.T) {
	sum := Compound("a + b", PrecAdditive)
	assert.Equal(t, "(a + b)", sum.Operand(PrecMultiplicative))
	assert.Equal(t, "a + b", sum.Operand(PrecAdditive))
	assert.Equal(t, "x", Primary("x").Operand(PrecPrimary))
}

func TestRejectedUpcasts(t *testing.T) {
	animal := NamedType(TypeClass, "Zoo", "Animal")
	pet := NamedType(TypeInterface, "Zoo", "Pet")
	dog := NamedType(TypeClass, "Zoo", "Dog")
	dog.Base = animal
	dog.Interfaces = []*Type{pet}

	rust := NewRustEmitter()
	caster := NewAutoCaster(rust.CastSyntax(), NewTypeResolver(rust.Syntax(), NewTypeIndex()))
	assert.Equal(t, "upcast from Dog to class Animal", caster.Rejected(AutoCastDefault, animal, dog))
	assert.Empty(t, caster.Rejected(AutoCastDefault, pet, dog), "trait objects coerce")
	assert.Empty(t, caster.Rejected(AutoCastSkip, animal, dog))

	cpp := NewCPPEmitter()
	caster = NewAutoCaster(cpp.CastSyntax(), NewTypeResolver(cpp.Syntax(), NewTypeIndex()))
	assert.Empty(t, caster.Rejected(AutoCastDefault, animal, dog))
}

const keeperDoc = `
types:
  - kind: class
    name: Zoo.Animal
  - kind: class
    name: Zoo.Dog
    base: Zoo.Animal
  - kind: class
    name: Zoo.Keeper
    members:
      - kind: method
        name: Adopt
        returns: Animal
        access: public
        body:
          - kind: return
            value: {kind: new, type: Dog}
`

func TestRustClassUpcastIsUnsupported(t *testing.T) {
	comp, err := ParseCompilation([]byte(keeperDoc), "keeper.yaml")
	require.NoError(t, err)
	var keeper *TypeDecl
	for _, decl := range comp.Types {
		if decl.Type.Name == "Keeper" {
			keeper = decl
		}
	}
	require.NotNil(t, keeper)

	_, _, err = RenderUnit(comp, NewRustEmitter(), nil, keeper, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedConstruct))
	assert.Contains(t, err.Error(), "upcast from Dog to class Animal")

	out, _, err := RenderUnit(comp, NewCPPEmitter(), nil, keeper, false)
	require.NoError(t, err)
	require.NotEmpty(t, out)
}
