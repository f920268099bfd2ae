package release

import "errors"

// Descriptor is the remote release metadata for the plugin.
type Descriptor struct {
	Name        string            `json:"name"`
	Slug        string            `json:"slug"`
	Version     string            `json:"version"`
	DownloadURL string            `json:"download_url"`
	Author      string            `json:"author,omitempty"`
	Homepage    string            `json:"homepage,omitempty"`
	Requires    string            `json:"requires,omitempty"`
	Tested      string            `json:"tested,omitempty"`
	LastUpdated string            `json:"last_updated,omitempty"`
	Sections    map[string]string `json:"sections,omitempty"`
}

var (
	errMissingVersion = errors.New("descriptor has no version")
	errMissingPackage = errors.New("descriptor has no download url")
)

// Validate performs the basic shape check: a version and a package location.
func (d *Descriptor) Validate() error {
	if d.Version == "" {
		return errMissingVersion
	}
	if d.DownloadURL == "" {
		return errMissingPackage
	}
	return nil
}
