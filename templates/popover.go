package templates

// Popover templates - the three bodies a hover popover can show.
// Each entry point renders a fragment that the browser script swaps into the
// popover element as-is; the element itself is never re-created.

// GetPopoverTemplates returns the loading, content and error fragments.
// Parse with a FuncMap that provides "karma".
func GetPopoverTemplates() string {
	return popoverLoadingTemplate + popoverContentTemplate + popoverErrorTemplate
}

var popoverLoadingTemplate = `{{define "loading"}}<div class="hnskin-popover-body hnskin-popover-loading" aria-busy="true">
  <span class="hnskin-popover-spinner"></span> Loading {{.Username}}&hellip;
</div>{{end}}`

var popoverContentTemplate = `{{define "content"}}<div class="hnskin-popover-body">
  <div class="hnskin-popover-header">
    <a class="hnskin-popover-name" href="{{.ProfileURL}}">{{.Profile.Username}}</a>
    <span class="hnskin-popover-karma" title="karma">{{karma .Profile.Karma}}</span>
  </div>
  {{if .Profile.JoinDate}}<div class="hnskin-popover-joined">joined {{.Profile.JoinDate}}</div>{{end}}
  {{if .Profile.HasAbout}}<div class="hnskin-popover-about">{{.About}}</div>{{end}}
  <div class="hnskin-popover-links">
    <a href="{{.Profile.SubmissionsURL}}">submissions</a>
    <a href="{{.Profile.CommentsURL}}">comments</a>
  </div>
</div>{{end}}`

var popoverErrorTemplate = `{{define "error"}}<div class="hnskin-popover-body hnskin-popover-error" role="alert">
  Could not load profile for <strong>{{.Username}}</strong>.
</div>{{end}}`

// PopoverStylesheet styles the popover using the theme's color tokens.
// Serve it after the token block so the variables resolve.
var PopoverStylesheet = `.hnskin-popover {
  position: absolute;
  z-index: 10000;
  width: 320px;
  max-width: calc(100vw - 20px);
  padding: 10px 12px;
  border: 1px solid var(--hnskin-popover-accent);
  border-radius: 6px;
  background: var(--hnskin-popover-bg);
  color: var(--hnskin-popover-text);
  box-shadow: 0 4px 16px rgba(0, 0, 0, 0.35);
  font: 13px/1.4 Verdana, Geneva, sans-serif;
}
.hnskin-popover[hidden] { display: none; }
.hnskin-popover a { color: var(--hnskin-popover-link); }
.hnskin-popover-header { display: flex; justify-content: space-between; align-items: baseline; }
.hnskin-popover-name { font-weight: bold; }
.hnskin-popover-karma { color: var(--hnskin-popover-karma); font-weight: bold; }
.hnskin-popover-joined { margin-top: 2px; opacity: 0.8; }
.hnskin-popover-about { margin-top: 8px; max-height: 12em; overflow: auto; overflow-wrap: anywhere; }
.hnskin-popover-links { margin-top: 8px; display: flex; gap: 12px; }
.hnskin-popover-error { color: var(--hnskin-popover-text); opacity: 0.8; }
.hnskin-popover-spinner {
  display: inline-block;
  width: 10px;
  height: 10px;
  border: 2px solid var(--hnskin-popover-accent);
  border-top-color: transparent;
  border-radius: 50%;
  animation: hnskin-spin 0.8s linear infinite;
}
@keyframes hnskin-spin { to { transform: rotate(360deg); } }
`
