package upload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"blind-test-pipeline/config"
)

func TestTokenRoundTrip(t *testing.T) {
	u := New(config.UploadConfig{
		TokenFile: filepath.Join(t.TempDir(), "token.json"),
	})

	_, err := u.tokenFromFile()
	assert.Error(t, err, "no cached token yet")

	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour).UTC(),
	}
	require.NoError(t, u.saveToken(tok))

	got, err := u.tokenFromFile()
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)
}

func TestUploadMissingSecretsIsAuthError(t *testing.T) {
	u := New(config.UploadConfig{
		ClientSecretsFile: filepath.Join(t.TempDir(), "missing.json"),
		TokenFile:         filepath.Join(t.TempDir(), "token.json"),
	})

	_, err := u.Upload(context.Background(), "video.mp4", "title", "desc")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestUploadMalformedSecretsIsAuthError(t *testing.T) {
	dir := t.TempDir()
	secrets := filepath.Join(dir, "client_secret.json")
	require.NoError(t, os.WriteFile(secrets, []byte(`not json`), 0600))

	u := New(config.UploadConfig{
		ClientSecretsFile: secrets,
		TokenFile:         filepath.Join(dir, "token.json"),
	})

	_, err := u.Upload(context.Background(), "video.mp4", "title", "desc")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}
