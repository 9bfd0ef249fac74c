package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsTimeOrderedV7(t *testing.T) {
	a, b := New(), New()
	assert.Equal(t, uuid.Version(7), a.Version())
	assert.Less(t, a.String(), b.String())
}

func TestParse(t *testing.T) {
	v := New()

	got, err := Parse(v.String())
	require.NoError(t, err)
	assert.Equal(t, v, got)

	for _, bad := range []string{
		"",
		"{" + v.String() + "}",
		"urn:uuid:" + v.String(),
		"00000000-0000-0000-0000-000000000000",
		"zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz",
	} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}
