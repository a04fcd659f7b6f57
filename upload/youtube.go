package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"blind-test-pipeline/config"
)

// AuthError reports missing or invalid OAuth credentials.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("youtube auth: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// UploadError reports a failed video insert after the client's internal
// resumable-upload retries are exhausted.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("youtube upload: %v", e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

const uploadChunkSize = 8 * 1024 * 1024

// Uploader pushes rendered videos to YouTube via the Data API v3.
//
// Uploads are not idempotent: a retried run after a partial failure may
// create a duplicate remote video.
type Uploader struct {
	cfg config.UploadConfig
}

// New creates an Uploader.
func New(cfg config.UploadConfig) *Uploader {
	return &Uploader{cfg: cfg}
}

// Upload authenticates (interactively on first run, cached token after)
// and uploads the file with chunked resumable transfer. Returns the remote
// video ID.
func (u *Uploader) Upload(ctx context.Context, videoPath, title, description string) (string, error) {
	secrets, err := os.ReadFile(u.cfg.ClientSecretsFile)
	if err != nil {
		return "", &AuthError{Err: fmt.Errorf("read client secrets: %w", err)}
	}

	conf, err := google.ConfigFromJSON(secrets, youtube.YoutubeUploadScope)
	if err != nil {
		return "", &AuthError{Err: fmt.Errorf("parse client secrets: %w", err)}
	}

	tok, err := u.tokenFromFile()
	if err != nil {
		tok, err = u.authorize(ctx, conf)
		if err != nil {
			return "", &AuthError{Err: err}
		}
		if err := u.saveToken(tok); err != nil {
			log.Printf("[upload] warning: could not cache token: %v", err)
		}
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, tok)))
	if err != nil {
		return "", &AuthError{Err: err}
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			Tags:        u.cfg.Tags,
			CategoryId:  u.cfg.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: u.cfg.PrivacyStatus,
		},
	}

	f, err := os.Open(videoPath)
	if err != nil {
		return "", &UploadError{Err: fmt.Errorf("open video file: %w", err)}
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Printf("[upload] uploading %q (%.1f MB)...", title, float64(fi.Size())/1024/1024)
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(f, googleapi.ChunkSize(uploadChunkSize))

	uploaded, err := call.Do()
	if err != nil {
		return "", &UploadError{Err: err}
	}

	log.Printf("[upload] done: https://www.youtube.com/watch?v=%s", uploaded.Id)
	return uploaded.Id, nil
}

// authorize runs the interactive first-run flow: print the consent URL,
// read the code from stdin, exchange it for a token.
func (u *Uploader) authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	url := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open this URL in a browser, authorize the app, then paste the code here:\n%s\n> ", url)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func (u *Uploader) tokenFromFile() (*oauth2.Token, error) {
	data, err := os.ReadFile(u.cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (u *Uploader) saveToken(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(u.cfg.TokenFile, data, 0600)
}
