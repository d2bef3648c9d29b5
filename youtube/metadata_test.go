package youtube

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestVideoMetadataDraftValidate(t *testing.T) {
	tests := []struct {
		name      string
		draft     *VideoMetadataDraft
		wantField string
	}{
		{"valid private", &VideoMetadataDraft{Title: "t", PrivacyStatus: "private"}, ""},
		{"valid public", &VideoMetadataDraft{Title: "t", PrivacyStatus: "public"}, ""},
		{"valid unlisted", &VideoMetadataDraft{Title: "t", PrivacyStatus: "unlisted"}, ""},
		{"nil draft", nil, "metadata"},
		{"empty title", &VideoMetadataDraft{PrivacyStatus: "private"}, "title"},
		{"empty privacy", &VideoMetadataDraft{Title: "t"}, "privacyStatus"},
		{"unknown privacy", &VideoMetadataDraft{Title: "t", PrivacyStatus: "secret"}, "privacyStatus"},
		{"case sensitive privacy", &VideoMetadataDraft{Title: "t", PrivacyStatus: "Private"}, "privacyStatus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.wantField)
			}
		})
	}
}

func TestUploadResourceShape(t *testing.T) {
	draft := &VideoMetadataDraft{
		Title:         "My upload",
		Description:   "desc",
		CategoryID:    "22",
		Tags:          []string{"a"},
		PrivacyStatus: "unlisted",
	}

	body, err := json.Marshal(draft.resource())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for _, want := range []string{
		`"title":"My upload"`,
		`"categoryId":"22"`,
		`"privacyStatus":"unlisted"`,
		`"selfDeclaredMadeForKids":false`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
}

func TestUploadResourceCarriesMadeForKids(t *testing.T) {
	tests := []struct {
		name        string
		madeForKids bool
		want        string
	}{
		{"declared for kids", true, `"selfDeclaredMadeForKids":true`},
		{"not for kids", false, `"selfDeclaredMadeForKids":false`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := &VideoMetadataDraft{
				Title:         "kids video",
				PrivacyStatus: "public",
				MadeForKids:   tt.madeForKids,
			}
			body, err := json.Marshal(draft.resource())
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if !strings.Contains(string(body), tt.want) {
				t.Errorf("body %s missing %s", body, tt.want)
			}
		})
	}
}

func TestUploadResourceOmitsEmptyOptionals(t *testing.T) {
	draft := &VideoMetadataDraft{Title: "t", PrivacyStatus: "private"}
	body, err := json.Marshal(draft.resource())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, banned := range []string{"description", "categoryId", "tags"} {
		if strings.Contains(string(body), banned) {
			t.Errorf("body %s carries empty optional %q", body, banned)
		}
	}
}

func TestDeclaredMIME(t *testing.T) {
	explicit := &VideoMetadataDraft{MIMEType: "video/mp4"}
	if got := explicit.declaredMIME("video/*"); got != "video/mp4" {
		t.Errorf("declaredMIME = %q", got)
	}
	empty := &VideoMetadataDraft{}
	if got := empty.declaredMIME("video/*"); got != "video/*" {
		t.Errorf("declaredMIME fallback = %q", got)
	}
}
