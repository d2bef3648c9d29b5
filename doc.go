// Package ytupload provides resumable video uploads to YouTube with managed
// OAuth credentials.
//
// It drives the Data API's resumable upload protocol end to end: session
// negotiation, chunked transfer, and recovery of the video id when the final
// response fails to confirm one.
//
// Overview
//
// ytupload provides a high-level facade for the most common operations:
//
//   - Upload: Send a media file and get the new video's id back
//   - ListPlaylistsByPrivacy: List the channel's playlists by privacy status
//   - UpdateMetadata: Patch a video's title, description, category, or tags
//
// Quick Start
//
// Upload a video:
//
//	ctx := context.Background()
//	app, err := ytupload.New(ctx, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer app.Close()
//
//	id, err := app.Uploader.Upload(ctx, "clip.mp4", &youtube.VideoMetadataDraft{
//		Title:         "My clip",
//		PrivacyStatus: "unlisted",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("uploaded:", id)
//
// Authorize once before uploading:
//
//	fmt.Println("visit:", app.Session.AuthURL("state"))
//	// ... user pastes the code back ...
//	if _, err := app.Session.Exchange(ctx, code); err != nil {
//		log.Fatal(err)
//	}
//
// Configuration
//
// ytupload uses a configuration system that loads settings from multiple
// sources:
//
//   1. Environment variables (highest priority)
//   2. Config file (ytupload.json or ~/.config/ytupload/ytupload.json)
//   3. Default values (lowest priority)
//
// Environment variables:
//
//   - YTUPLOAD_CLIENT_ID: OAuth client id
//   - YTUPLOAD_CLIENT_SECRET: OAuth client secret
//   - YTUPLOAD_REDIRECT_URL: OAuth redirect URL
//   - YTUPLOAD_TOKEN_PATH: Where the token record is stored
//   - YTUPLOAD_TOKEN_BACKEND: Token storage backend (file or sqlite)
//   - YTUPLOAD_CHUNK_SIZE: Upload chunk size in bytes
//   - YTUPLOAD_MAX_RETRIES: Maximum retry attempts
//   - YTUPLOAD_INITIAL_BACKOFF: Initial retry backoff duration
//   - YTUPLOAD_MAX_BACKOFF: Maximum retry backoff duration
//
// Error Handling
//
// All operations return errors that implement standard Go error handling:
//
// Checking for sentinel errors:
//
//	if errors.Is(err, ytupload.ErrAuthRequired) {
//		fmt.Println("run the auth flow first")
//	}
//
// Extracting wrapped error details:
//
//	var ambiguous *ytupload.AmbiguousCompletionError
//	if errors.As(err, &ambiguous) {
//		fmt.Println("the upload very likely landed; check the channel")
//	}
//
// Advanced Usage
//
// For more control, use the sub-packages directly:
//
//   - youtube: Upload engine, discovery poller, and catalog operations
//   - oauth: Consent flow and token lifecycle
//   - storage: Persistent token storage
//   - config: Configuration management
//   - retry: Exponential backoff retry logic
//
// Example using the youtube package directly:
//
//	engine := youtube.NewUploadEngine(httpClient, youtube.DefaultUploadConfig(), quota)
//	sessionURL, err := engine.NewUploadURL(ctx, draft)
//
package ytupload
