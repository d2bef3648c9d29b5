package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	ythttp "ytupload/http"
)

// DefaultUploadEndpoint is the resumable upload session endpoint.
const DefaultUploadEndpoint = "https://www.googleapis.com/upload/youtube/v3/videos?uploadType=resumable&part=snippet,status"

// UploadConfig tunes the resumable upload engine.
type UploadConfig struct {
	// Endpoint for session negotiation (default: DefaultUploadEndpoint)
	Endpoint string
	// ChunkSize in bytes (default: 1 MiB)
	ChunkSize int64
	// MaxChunks bounds the number of chunk PUTs per upload (default: 10000)
	MaxChunks int
	// NegotiateTimeout for the session handshake (default: 30s)
	NegotiateTimeout time.Duration
	// ChunkTimeout per chunk PUT (default: 60s)
	ChunkTimeout time.Duration
}

// DefaultUploadConfig returns the standard engine tuning.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		Endpoint:         DefaultUploadEndpoint,
		ChunkSize:        1 << 20,
		MaxChunks:        10000,
		NegotiateTimeout: 30 * time.Second,
		ChunkTimeout:     60 * time.Second,
	}
}

// ProgressFunc observes chunk transfer progress. It is called after every
// acknowledged chunk with the byte count sent so far and the total size.
type ProgressFunc func(sent, total int64)

// UploadEngine drives the two-phase resumable upload protocol: negotiate a
// session URL, then stream the media in chunks. Neither phase is retried
// automatically; session negotiation costs real quota and chunk PUTs carry
// their own continuation semantics (308).
type UploadEngine struct {
	client   *ythttp.Client
	cfg      UploadConfig
	quota    *QuotaAuditor
	progress ProgressFunc
}

// NewUploadEngine creates an engine over the given HTTP client. quota may
// be nil to skip auditing.
func NewUploadEngine(client *ythttp.Client, cfg UploadConfig, quota *QuotaAuditor) *UploadEngine {
	def := DefaultUploadConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = def.MaxChunks
	}
	if cfg.NegotiateTimeout <= 0 {
		cfg.NegotiateTimeout = def.NegotiateTimeout
	}
	if cfg.ChunkTimeout <= 0 {
		cfg.ChunkTimeout = def.ChunkTimeout
	}
	return &UploadEngine{client: client, cfg: cfg, quota: quota}
}

// SetProgressFunc installs a progress observer for chunk transfers.
func (e *UploadEngine) SetProgressFunc(fn ProgressFunc) {
	e.progress = fn
}

// NewUploadURL negotiates a resumable upload session and returns its
// session URL. The draft is validated before any network traffic; an
// invalid draft costs nothing.
//
// A success status without a Location header is a hard failure
// (ErrMissingUploadURL): there is no session to retry against.
func (e *UploadEngine) NewUploadURL(ctx context.Context, draft *VideoMetadataDraft) (string, error) {
	if err := draft.Validate(); err != nil {
		return "", err
	}

	body, err := json.Marshal(draft.resource())
	if err != nil {
		return "", fmt.Errorf("youtube: encode upload metadata: %w", err)
	}

	headers := map[string]string{
		"Content-Type":          "application/json; charset=UTF-8",
		"X-Upload-Content-Type": draft.declaredMIME("video/*"),
	}

	resp, err := e.client.DoRaw(ctx, http.MethodPost, e.cfg.Endpoint, body, headers, e.cfg.NegotiateTimeout)
	if err != nil {
		return "", fmt.Errorf("youtube: upload session request: %w", err)
	}

	e.quota.Record("videos", "insert_resumable", QuotaCostInsertResumable)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return "", ErrMissingUploadURL
		}
		return loc, nil
	default:
		return "", providerError(resp)
	}
}

// uploadCompletion is the body of a completed upload's final response.
type uploadCompletion struct {
	ID string `json:"id"`
}

// StreamUpload transfers media to an already-negotiated session URL in
// sequential chunks and returns the new video's id.
//
// Each chunk is PUT exactly once: 308 means the server banked the bytes and
// wants the next range, a 2xx with an id body completes the upload, and a
// 2xx without a parseable id is reported as AmbiguousCompletionError so the
// caller can resolve the id out of band.
func (e *UploadEngine) StreamUpload(ctx context.Context, data []byte, uploadURL string, contentType string) (string, error) {
	total := int64(len(data))
	if total == 0 {
		return "", &ValidationError{Field: "media", Reason: "must not be empty"}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attempt := uuid.NewString()[:8]
	chunkSize := e.cfg.ChunkSize
	numChunks := int((total + chunkSize - 1) / chunkSize)
	log.Printf("youtube: upload %s: %d bytes in %d chunks of %d", attempt, total, numChunks, chunkSize)

	var sent int64
	for chunk := 0; sent < total; chunk++ {
		if chunk >= e.cfg.MaxChunks {
			return "", fmt.Errorf("%w: %d chunks sent, %d bytes unacknowledged",
				ErrChunkLimitExceeded, chunk, total-sent)
		}

		end := sent + chunkSize
		if end > total {
			end = total
		}
		piece := data[sent:end]

		headers := map[string]string{
			"Content-Type":  contentType,
			"Content-Range": fmt.Sprintf("bytes %d-%d/%d", sent, end-1, total),
		}

		resp, err := e.client.DoRaw(ctx, http.MethodPut, uploadURL, piece, headers, e.cfg.ChunkTimeout)
		if err != nil {
			return "", fmt.Errorf("youtube: chunk %d/%d: %w", chunk+1, numChunks, err)
		}

		switch {
		case resp.StatusCode == 308:
			// Resume Incomplete: the server banked this range
			sent += int64(len(piece))
			if e.progress != nil {
				e.progress(sent, total)
			}

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			sent += int64(len(piece))
			if e.progress != nil {
				e.progress(sent, total)
			}

			var done uploadCompletion
			if err := json.Unmarshal(resp.Body, &done); err != nil || done.ID == "" {
				log.Printf("youtube: upload %s: completed without a parseable video id (status %d)", attempt, resp.StatusCode)
				return "", &AmbiguousCompletionError{StatusCode: resp.StatusCode, Body: resp.Body}
			}
			log.Printf("youtube: upload %s: complete, video %s", attempt, done.ID)
			return done.ID, nil

		default:
			return "", providerError(resp)
		}
	}

	// All bytes acknowledged with 308 but the server never confirmed
	// completion.
	return "", &AmbiguousCompletionError{StatusCode: 308}
}
