package shortener_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tinypath/tinypath/internal/shortener"
)

func TestValidateSource(t *testing.T) {
	t.Run("accepts url-safe sources", func(t *testing.T) {
		for _, source := range []string{"foo", "my-link", "docs/getting-started", "a.b_c"} {
			assert.NoError(t, shortener.ValidateSource(source), source)
		}
	})

	t.Run("rejects empty source", func(t *testing.T) {
		assert.Error(t, shortener.ValidateSource(""))
	})

	t.Run("rejects unsafe characters", func(t *testing.T) {
		for _, source := range []string{"foo bar", "foo?x=1", "foo#frag", "f%C3%B6o&"} {
			assert.Error(t, shortener.ValidateSource(source), source)
		}
	})

	t.Run("rejects the reserved prefix", func(t *testing.T) {
		assert.Error(t, shortener.ValidateSource("_app"))
		assert.Error(t, shortener.ValidateSource("_app/redirect"))
		assert.Error(t, shortener.ValidateSource("nested/_app"))
	})

	t.Run("allows the reserved string inside a segment", func(t *testing.T) {
		assert.NoError(t, shortener.ValidateSource("my_app"))
	})
}
