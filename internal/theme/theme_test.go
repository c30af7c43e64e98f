package theme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		th, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, th.Name)
	}

	_, ok := Lookup("solarized")
	assert.False(t, ok)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	assert.Equal(t, "blackTheme", Resolve("blackTheme").Name)
	assert.Equal(t, DefaultName, Resolve("solarized").Name)
	assert.Equal(t, DefaultName, Resolve("").Name)
}

func TestCSSDeclaresEveryToken(t *testing.T) {
	css := Resolve("darkNavy").CSS()

	assert.True(t, strings.HasPrefix(css, "/* Theme: darkNavy */\n:root {\n"))
	assert.Contains(t, css, "color-scheme: dark;")
	for _, token := range []string{"bg", "text", "link", "accent", "karma"} {
		assert.Contains(t, css, "--hnskin-popover-"+token+": #")
	}
	assert.Contains(t, css, "--hnskin-popover-bg: #2d3848;")
}

func TestCSSIsStable(t *testing.T) {
	th := Resolve("blackTheme")
	assert.Equal(t, th.CSS(), th.CSS())
	assert.Less(t, strings.Index(th.CSS(), "--hnskin-popover-accent"), strings.Index(th.CSS(), "--hnskin-popover-bg"))
}
