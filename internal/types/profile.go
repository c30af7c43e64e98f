package types

// ProfileRecord is the parsed content of a user's profile page
type ProfileRecord struct {
	Username string `json:"username"`
	JoinDate string `json:"join_date,omitempty"`
	Karma    int    `json:"karma"`

	// AboutMarkup is a sanitized HTML fragment, safe to embed as-is
	AboutMarkup string `json:"about_markup,omitempty"`

	SubmissionsURL string `json:"submissions_url"`
	CommentsURL    string `json:"comments_url"`
}

// HasAbout reports whether the profile carries any about text
func (p *ProfileRecord) HasAbout() bool {
	return p != nil && p.AboutMarkup != ""
}
