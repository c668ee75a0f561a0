package release

import "time"

// Release is a published (or draft) release on the platform.
type Release struct {
	CreatedAt  time.Time `json:"created_at"`
	TagName    string    `json:"tag_name"`
	Name       string    `json:"name"`
	Body       string    `json:"body"`
	HTMLURL    string    `json:"html_url"`
	UploadURL  string    `json:"upload_url"`
	Assets     []Asset   `json:"assets"`
	ID         int64     `json:"id"`
	Draft      bool      `json:"draft"`
	Prerelease bool      `json:"prerelease"`
}

// Asset is a file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	ContentType        string `json:"content_type"`
	BrowserDownloadURL string `json:"browser_download_url"`
	ID                 int64  `json:"id"`
	Size               int64  `json:"size"`
}

// NewRelease is the request body for creating a release.
type NewRelease struct {
	TagName              string `json:"tag_name"`
	Name                 string `json:"name"`
	Body                 string `json:"body,omitempty"`
	Draft                bool   `json:"draft"`
	Prerelease           bool   `json:"prerelease"`
	GenerateReleaseNotes bool   `json:"generate_release_notes"`
}
