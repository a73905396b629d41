package settings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Defaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	s, err := Get()
	require.NoError(t, err)
	assert.Equal(t, "development", s.Env)
	assert.Equal(t, 8000, s.Port)
	assert.Equal(t, "gemini-2.0-flash", s.LLMModel)
	assert.Equal(t, 30*time.Second, s.LLMTimeout)
	assert.Equal(t, 60, s.DefaultThreshold)
	assert.True(t, s.IsDevelopment())
	assert.False(t, s.IsProduction())
}

func TestGet_ReadsEnvironment(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	t.Setenv("REQGATE_ENV", "production")
	t.Setenv("REQGATE_PORT", "9090")
	t.Setenv("REQGATE_LLM_MODEL", "gemini-2.0-pro")

	s, err := Get()
	require.NoError(t, err)
	assert.Equal(t, "production", s.Env)
	assert.Equal(t, 9090, s.Port)
	assert.Equal(t, "gemini-2.0-pro", s.LLMModel)
	assert.True(t, s.IsProduction())
}

func TestGet_CachesUntilReset(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	s1, err := Get()
	require.NoError(t, err)

	t.Setenv("REQGATE_PORT", "7777")
	s2, err := Get()
	require.NoError(t, err)
	assert.Equal(t, s1.Port, s2.Port)

	Reset()
	s3, err := Get()
	require.NoError(t, err)
	assert.Equal(t, 7777, s3.Port)
}

func TestFallbackModelsList(t *testing.T) {
	t.Parallel()

	s := Settings{FallbackModels: "gemini-2.0-flash, gemini-1.5-pro ,,gemini-1.5-flash"}
	assert.Equal(t, []string{"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"}, s.FallbackModelsList())

	assert.Nil(t, Settings{}.FallbackModelsList())
	assert.Nil(t, Settings{FallbackModels: "   "}.FallbackModelsList())
}
