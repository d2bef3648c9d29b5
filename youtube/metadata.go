package youtube

import "fmt"

// Valid privacy statuses accepted by the provider.
var validPrivacyStatuses = map[string]bool{
	"private":  true,
	"public":   true,
	"unlisted": true,
}

// VideoMetadataDraft carries caller-supplied metadata for a new or updated
// video. Zero-valued optional fields are omitted from requests; on update
// they leave the existing value untouched.
type VideoMetadataDraft struct {
	Title       string
	Description string
	CategoryID  string
	Tags        []string
	// PrivacyStatus must be one of private, public, unlisted
	PrivacyStatus string
	// MadeForKids is the uploader's self-declared audience designation,
	// sent as status.selfDeclaredMadeForKids.
	MadeForKids bool
	// MIMEType declares the media type of the bytes to come.
	// Empty means video/* for session setup and application/octet-stream
	// for chunk transfer.
	MIMEType string
}

// Validate checks the draft before it is allowed near the network.
func (d *VideoMetadataDraft) Validate() error {
	if d == nil {
		return &ValidationError{Field: "metadata", Reason: "must not be nil"}
	}
	if d.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !validPrivacyStatuses[d.PrivacyStatus] {
		return &ValidationError{
			Field:  "privacyStatus",
			Reason: fmt.Sprintf("%q is not one of private, public, unlisted", d.PrivacyStatus),
		}
	}
	return nil
}

// uploadSnippet is the snippet half of the session-setup body.
type uploadSnippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// uploadStatus is the status half of the session-setup body.
type uploadStatus struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

// uploadResource is the JSON document POSTed when negotiating an upload
// session.
type uploadResource struct {
	Snippet uploadSnippet `json:"snippet"`
	Status  uploadStatus  `json:"status"`
}

func (d *VideoMetadataDraft) resource() uploadResource {
	return uploadResource{
		Snippet: uploadSnippet{
			Title:       d.Title,
			Description: d.Description,
			CategoryID:  d.CategoryID,
			Tags:        d.Tags,
		},
		Status: uploadStatus{
			PrivacyStatus:           d.PrivacyStatus,
			SelfDeclaredMadeForKids: d.MadeForKids,
		},
	}
}

// declaredMIME returns the MIME type to announce for the media bytes.
func (d *VideoMetadataDraft) declaredMIME(fallback string) string {
	if d.MIMEType != "" {
		return d.MIMEType
	}
	return fallback
}
