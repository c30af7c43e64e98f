// Package theme supplies the color tokens the popover stylesheet reads.
package theme

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// DefaultName is the theme used when none or an unknown one is configured
const DefaultName = "darkNavy"

// Theme is a named set of popover colors
type Theme struct {
	Name       string
	Dark       bool
	Background string
	Text       string
	Link       string
	Accent     string
	Karma      string
}

var themes = map[string]Theme{
	"darkNavy": {
		Name:       "darkNavy",
		Dark:       true,
		Background: "#2d3848",
		Text:       "#dddddd",
		Link:       "#9facbe",
		Accent:     "#bb86fc",
		Karma:      "#ededed",
	},
	"blackTheme": {
		Name:       "blackTheme",
		Dark:       true,
		Background: "#1f1f1f",
		Text:       "#e0e0e0",
		Link:       "#828282",
		Accent:     "#bb86fc",
		Karma:      "#ffffff",
	},
}

// Names lists the known themes in sorted order
func Names() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a theme by exact name
func Lookup(name string) (Theme, bool) {
	t, ok := themes[name]
	return t, ok
}

// Resolve returns the named theme, or the default with a warning
func Resolve(name string) Theme {
	if t, ok := Lookup(name); ok {
		return t
	}
	slog.Warn("unknown theme, using default", "theme", name, "default", DefaultName)
	return themes[DefaultName]
}

// Tokens returns the CSS custom properties for t
func (t Theme) Tokens() map[string]string {
	return map[string]string{
		"--hnskin-popover-bg":     t.Background,
		"--hnskin-popover-text":   t.Text,
		"--hnskin-popover-link":   t.Link,
		"--hnskin-popover-accent": t.Accent,
		"--hnskin-popover-karma":  t.Karma,
	}
}

// CSS renders the tokens as a :root block
func (t Theme) CSS() string {
	tokens := t.Tokens()
	keys := make([]string, 0, len(tokens))
	for k := range tokens {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "/* Theme: %s */\n:root {\n", t.Name)
	if t.Dark {
		sb.WriteString("  color-scheme: dark;\n")
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %s: %s;\n", k, tokens[k])
	}
	sb.WriteString("}\n")
	return sb.String()
}
