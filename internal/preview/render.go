package preview

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"hnskin/internal/types"
	"hnskin/templates"
)

// Renderer turns views into HTML fragments
type Renderer struct {
	tmpl     *template.Template
	siteBase string
}

type contentData struct {
	Profile    *types.ProfileRecord
	ProfileURL string
	About      template.HTML
}

// NewRenderer parses the popover templates. siteBase is used for the link
// to the full profile page.
func NewRenderer(siteBase string) (*Renderer, error) {
	funcMap := template.FuncMap{
		"karma": formatKarma,
	}
	tmpl, err := template.New("popover").Funcs(funcMap).Parse(templates.GetPopoverTemplates())
	if err != nil {
		return nil, fmt.Errorf("parse popover templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, siteBase: strings.TrimRight(siteBase, "/")}, nil
}

// Render executes the template for v
func (r *Renderer) Render(v View) (Frame, error) {
	var data any
	switch v := v.(type) {
	case Loading, Failure:
		data = v
	case Content:
		data = contentData{
			Profile:    v.Profile,
			ProfileURL: r.siteBase + "/user?id=" + url.QueryEscape(v.Profile.Username),
			// Sanitized when the page was parsed
			About: template.HTML(v.Profile.AboutMarkup),
		}
	default:
		return Frame{}, fmt.Errorf("unknown view %T", v)
	}

	var buf strings.Builder
	if err := r.tmpl.ExecuteTemplate(&buf, string(v.State()), data); err != nil {
		return Frame{}, fmt.Errorf("render %s: %w", v.State(), err)
	}
	return Frame{
		State:    v.State(),
		Username: v.Subject(),
		HTML:     template.HTML(buf.String()),
	}, nil
}

// formatKarma groups digits in threes: 12345 -> "12,345"
func formatKarma(n int) string {
	s := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}

	var sb strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		sb.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s[i : i+3])
	}
	return sign + sb.String()
}
