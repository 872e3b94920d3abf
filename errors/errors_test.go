package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesClass(t *testing.T) {
	err := Wrapf(ErrUnsupportedConstruct, "yield statement in %s", "cpp")

	assert.Contains(t, err.Error(), "yield statement in cpp")
	assert.True(t, Is(err, ErrUnsupportedConstruct))
	assert.False(t, Is(err, ErrTemplateBinding))
	assert.True(t, IsUnsupported(err))
}

func TestWithDetailKeepsMessage(t *testing.T) {
	err := WithDetail(Wrap(ErrInvocationBinding, "missing value"), "Foo.cs:3:7")

	assert.Equal(t, "missing value: invocation binding", err.Error())
	details := GetAllDetails(err)
	require.Len(t, details, 1)
	assert.Equal(t, "Foo.cs:3:7", details[0])
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unresolved symbol", Wrap(ErrUnresolvedSymbol, "x"), false},
		{"unsupported", Wrap(ErrUnsupportedConstruct, "x"), true},
		{"template", Wrap(ErrTemplateBinding, "x"), true},
		{"plain", New("boom"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestAssertionFailure(t *testing.T) {
	err := AssertionFailedf("writer depth %d", 2)
	assert.True(t, IsAssertionFailure(err))
}
