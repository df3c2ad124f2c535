package envsecret

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/disclosure-collector/internal/errors"
)

func TestResolver(t *testing.T) {
	src := map[string]string{"api-key": "secret-1", "empty": ""}
	r := New(src)
	src["api-key"] = "mutated"

	v, err := r.Resolve(context.Background(), "api-key")
	require.NoError(t, err)
	assert.Equal(t, "secret-1", v)

	_, err = r.Resolve(context.Background(), "empty")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = r.Resolve(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("COLLECTOR_TEST_API_KEY", "from-env")

	v, err := FromEnv("api-key", "COLLECTOR_TEST_API_KEY").Resolve(context.Background(), "api-key")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	_, err = FromEnv("api-key", "COLLECTOR_TEST_UNSET_VAR").Resolve(context.Background(), "api-key")
	assert.True(t, apperrors.IsNotFound(err))
}
