package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
)

// Uploader is the end-to-end upload facade: negotiate a session, stream the
// file, and fall back to discovery when the provider completes the upload
// without confirming the video id.
type Uploader struct {
	engine *UploadEngine
	poller *DiscoveryPoller
}

// NewUploader combines an upload engine with a discovery poller. poller may
// be nil; ambiguous completions then surface to the caller unresolved.
func NewUploader(engine *UploadEngine, poller *DiscoveryPoller) *Uploader {
	return &Uploader{engine: engine, poller: poller}
}

// Upload sends the file at path and returns the new video's id.
//
// When the final chunk response carries no id, the uploads playlist is
// polled for the freshly published video; if that also comes up empty the
// original ambiguous-completion error is returned so the caller knows the
// bytes most likely landed.
func (u *Uploader) Upload(ctx context.Context, path string, draft *VideoMetadataDraft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("youtube: read media file: %w", err)
	}

	if draft.MIMEType == "" {
		draft.MIMEType = mime.TypeByExtension(filepath.Ext(path))
	}

	uploadURL, err := u.engine.NewUploadURL(ctx, draft)
	if err != nil {
		return "", err
	}

	videoID, err := u.engine.StreamUpload(ctx, data, uploadURL, draft.declaredMIME("application/octet-stream"))
	if err == nil {
		return videoID, nil
	}

	var ambiguous *AmbiguousCompletionError
	if !errors.As(err, &ambiguous) || u.poller == nil {
		return "", err
	}

	log.Printf("youtube: upload completed without an id, polling the uploads playlist")
	videoID, pollErr := u.poller.FindRecentUpload(ctx)
	if pollErr != nil {
		return "", pollErr
	}
	if videoID == "" {
		// The bytes are very likely on the channel; hand the caller the
		// ambiguity rather than a false failure.
		return "", err
	}
	return videoID, nil
}
