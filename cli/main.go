package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"ytupload"
	"ytupload/youtube"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		cmdAuth(args)
	case "upload":
		cmdUpload(args)
	case "playlists":
		cmdPlaylists(args)
	case "videos":
		cmdVideos(args)
	case "check":
		cmdCheck(args)
	case "update":
		cmdUpdate(args)
	case "delete":
		cmdDelete(args)
	case "status":
		cmdStatus(args)
	case "logout":
		cmdLogout(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `ytupload - resumable YouTube uploads with managed credentials

Usage:
  ytupload auth                            Run the OAuth consent flow
  ytupload upload [flags] <file>           Upload a video file
  ytupload playlists [flags]               List playlists by privacy status
  ytupload videos [flags] <playlist-id>    List a playlist's videos by privacy status
  ytupload check <video-id>                Check whether a video exists
  ytupload update [flags] <video-id>       Update a video's metadata
  ytupload delete <video-id>               Delete a video
  ytupload status                          Show authorization status
  ytupload logout                          Forget the stored credential
  ytupload help                            Show this help message

Examples:
  ytupload auth
  ytupload upload --title "My clip" --privacy unlisted clip.mp4
  ytupload playlists --privacy unlisted
  ytupload videos --privacy unlisted PLxxxxxxxx
  ytupload update --title "New title" dQw4w9WgXcQ

For help on a specific command: ytupload <command> -h
`)
}

func newApp(ctx context.Context) *ytupload.App {
	app, err := ytupload.New(ctx, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return app
}

// fail prints the error and exits, pointing at the auth flow when the
// credential is the problem.
func fail(err error) {
	if errors.Is(err, ytupload.ErrAuthRequired) {
		fmt.Fprintf(os.Stderr, "Error: not authorized. Run: ytupload auth\n")
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func cmdAuth(args []string) {
	fs := flag.NewFlagSet("auth", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ytupload auth\n\nOpens the consent URL and exchanges the pasted code.\n")
	}
	fs.Parse(args)

	ctx := context.Background()
	app := newApp(ctx)
	defer app.Close()

	fmt.Println("Visit this URL and authorize the application:")
	fmt.Println()
	fmt.Println("  " + app.Session.AuthURL("state-token"))
	fmt.Println()
	fmt.Print("Paste the authorization code: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		fail(fmt.Errorf("read authorization code: %w", err))
	}
	code = strings.TrimSpace(code)
	if code == "" {
		fail(fmt.Errorf("empty authorization code"))
	}

	if _, err := app.Session.Exchange(ctx, code); err != nil {
		fail(err)
	}
	fmt.Println("Authorized.")
}

func cmdUpload(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	title := fs.String("title", "", "Video title (required)")
	description := fs.String("description", "", "Video description")
	category := fs.String("category", "", "Category id")
	tags := fs.String("tags", "", "Comma-separated tags")
	privacy := fs.String("privacy", "unlisted", "Privacy status: private, public, or unlisted")
	madeForKids := fs.Bool("made-for-kids", false, "Declare the video as made for kids")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ytupload upload [flags] <file>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing file\n")
		fs.Usage()
		os.Exit(1)
	}

	draft := &youtube.VideoMetadataDraft{
		Title:         *title,
		Description:   *description,
		CategoryID:    *category,
		PrivacyStatus: *privacy,
		MadeForKids:   *madeForKids,
	}
	if *tags != "" {
		for _, tag := range strings.Split(*tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				draft.Tags = append(draft.Tags, tag)
			}
		}
	}

	ctx := context.Background()
	app := newApp(ctx)
	defer app.Close()

	id, err := app.Uploader.Upload(ctx, argv[0], draft)
	if err != nil {
		var ambiguous *ytupload.AmbiguousCompletionError
		if errors.As(err, &ambiguous) {
			fmt.Fprintf(os.Stderr, "Upload finished but the video id could not be confirmed.\n")
			fmt.Fprintf(os.Stderr, "Check the channel's uploads before retrying; the video is most likely there.\n")
			os.Exit(1)
		}
		fail(err)
	}

	fmt.Printf("Uploaded: https://www.youtube.com/watch?v=%s\n", id)
	fmt.Printf("Estimated quota remaining today: %d units\n", app.Quota.EstimatedRemaining())
}

func cmdPlaylists(args []string) {
	fs := flag.NewFlagSet("playlists", flag.ExitOnError)
	privacy := fs.String("privacy", "unlisted", "Privacy status to filter by")
	pageToken := fs.String("page", "", "Page token from a previous listing")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ytupload playlists [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	ctx := context.Background()
	app := newApp(ctx)
	defer app.Close()

	page, err := app.Catalog.ListPlaylistsByPrivacy(ctx, *privacy, *pageToken)
	if err != nil {
		fail(err)
	}

	if len(page.Items) == 0 {
		fmt.Printf("No %s playlists found.\n", *privacy)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRIVACY")
	for _, pl := range page.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", pl.ID, pl.Title, pl.PrivacyStatus)
	}
	w.Flush()

	if page.NextPageToken != "" {
		fmt.Printf("\nMore results: ytupload playlists --privacy %s --page %s\n", *privacy, page.NextPageToken)
	}
}

func cmdVideos(args []string) {
	fs := flag.NewFlagSet("videos", flag.ExitOnError)
	privacy := fs.String("privacy", "unlisted", "Privacy status to filter by")
	pageToken := fs.String("page", "", "Page token from a previous listing")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ytupload videos [flags] <playlist-id>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing playlist-id\n")
		fs.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	app := newApp(ctx)
	defer app.Close()

	page, err := app.Catalog.ListPlaylistItems(ctx, argv[0], *privacy, *pageToken)
	if err != nil {
		fail(err)
	}

	if len(page.Items) == 0 {
		fmt.Printf("No %s videos in this playlist.\n", *privacy)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VIDEO ID\tTITLE\tPRIVACY")
	for _, v := range page.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.VideoID, v.Title, v.PrivacyStatus)
	}
	w.Flush()

	if page.NextPageToken != "" {
		fmt.Printf("\nMore results: ytupload videos --privacy %s --page %s %s\n", *privacy, page.NextPageToken, argv[0])
	}
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ytupload check <video-id>\n")
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing video-id\n")
		fs.Usage()
		os.Exit(1)
	}

	ctx := context.Background()
	app := newApp(ctx)
	defer app.Close()

	exists, err := app.Catalog.VideoExists(ctx, argv[0])
	if err != nil {
		fail(err)
	}
	if exists {
		fmt.Printf("Video %s exists.\n", argv[0])
	} else {
		fmt.Printf("Video %s not found.\n", argv[0])
		os.Exit(1)
	}
}

func cmdUpdate(args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	title := fs.String("title", "", "New title (empty leaves it unchanged)")
	description := fs.String("description", "", "New description (empty leaves it unchanged)")
	category := fs.String("category", "", "New category id (empty leaves it unchanged)")
	tags := fs.String("tags", "", "Comma-separated replacement tags (empty leaves them unchanged)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ytupload update [flags] <video-id>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing video-id\n")
		fs.Usage()
		os.Exit(1)
	}
	if *title == "" && *description == "" && *category == "" && *tags == "" {
		fmt.Fprintf(os.Stderr, "Error: nothing to update\n")
		fs.Usage()
		os.Exit(1)
	}

	draft := &youtube.VideoMetadataDraft{
		Title:       *title,
		Description: *description,
		CategoryID:  *category,
	}
	if *tags != "" {
		for _, tag := range strings.Split(*tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				draft.Tags = append(draft.Tags, tag)
			}
		}
	}

	ctx := context.Background()
	app := newApp(ctx)
	defer app.Close()

	if err := app.Catalog.UpdateMetadata(ctx, argv[0], draft); err != nil {
		if errors.Is(err, ytupload.ErrVideoNotFound) {
			fmt.Fprintf(os.Stderr, "Error: video %s not found\n", argv[0])
			os.Exit(1)
		}
		fail(err)
	}
	fmt.Println("Updated.")
}

func cmdDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ytupload delete [flags] <video-id>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	argv := fs.Args()
	if len(argv) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing video-id\n")
		fs.Usage()
		os.Exit(1)
	}

	if !*yes {
		fmt.Printf("Delete video %s permanently? [y/N]: ", argv[0])
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	ctx := context.Background()
	app := newApp(ctx)
	defer app.Close()

	if err := app.Catalog.DeleteVideo(ctx, argv[0]); err != nil {
		fail(err)
	}
	fmt.Println("Deleted.")
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ytupload status\n")
	}
	fs.Parse(args)

	ctx := context.Background()
	app := newApp(ctx)
	defer app.Close()

	state, err := app.Session.CurrentState(ctx)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Authorization: %s\n", state)
	fmt.Printf("Token backend: %s (%s)\n", app.Config.TokenBackend, app.Config.TokenPath)
}

func cmdLogout(args []string) {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ytupload logout\n")
	}
	fs.Parse(args)

	ctx := context.Background()
	app := newApp(ctx)
	defer app.Close()

	if err := app.Session.Logout(ctx); err != nil {
		fail(err)
	}
	fmt.Println("Logged out.")
}
