package uid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID(t *testing.T) {
	id := NewUUID().Generate()

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestSnowflake(t *testing.T) {
	gen, err := NewSnowflake()
	require.NoError(t, err)

	a, b := gen.Generate(), gen.Generate()
	assert.Positive(t, a)
	assert.Greater(t, b, a)

	_, err = NewSnowflakeNode(2048)
	assert.Error(t, err)
}
