package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"blind-test-pipeline/config"
	"blind-test-pipeline/types"
)

// ErrNoTracksFound is returned when the catalog cannot supply enough
// previewable tracks within the bounded number of search attempts.
var ErrNoTracksFound = errors.New("no tracks found")

// genreTerms and popularTerms mirror the search pools the pipeline draws
// random queries from. Genres are tried first; popular words pad the pool
// when genre queries come up short.
var genreTerms = []string{
	"pop", "rock", "hip-hop", "electronic", "jazz",
	"classical", "country", "reggae", "funk", "blues",
	"indie", "alternative", "dance", "r&b", "folk",
}

var popularTerms = []string{
	"love", "heart", "night", "time", "world", "life", "home",
}

// Client queries the iTunes Search API and downloads preview files.
type Client struct {
	baseURL     string
	country     string
	limit       int
	maxAttempts int
	http        *http.Client
	rng         *rand.Rand
}

// NewClient creates a catalog client. The rng drives term selection and
// track sampling so runs can be reproduced with a fixed seed.
func NewClient(cfg config.CatalogConfig, rng *rand.Rand) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		country:     cfg.Country,
		limit:       cfg.SearchLimit,
		maxAttempts: cfg.MaxAttempts,
		http:        &http.Client{Timeout: 30 * time.Second},
		rng:         rng,
	}
}

type searchResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []searchResult `json:"results"`
}

type searchResult struct {
	TrackName        string `json:"trackName"`
	ArtistName       string `json:"artistName"`
	CollectionName   string `json:"collectionName"`
	PreviewURL       string `json:"previewUrl"`
	ArtworkURL100    string `json:"artworkUrl100"`
	PrimaryGenreName string `json:"primaryGenreName"`
	TrackID          int64  `json:"trackId"`
	TrackTimeMillis  int64  `json:"trackTimeMillis"`
}

// Search runs one catalog query and returns the previewable tracks in the
// response. Results without a preview URL, title or artist are dropped.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]types.Track, error) {
	val := url.Values{}
	val.Set("term", term)
	val.Set("limit", strconv.Itoa(limit))
	val.Set("country", c.country)
	val.Set("media", "music")
	val.Set("entity", "song")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+val.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	tracks := make([]types.Track, 0, len(body.Results))
	for _, r := range body.Results {
		if r.PreviewURL == "" || r.TrackName == "" || r.ArtistName == "" {
			continue
		}
		tracks = append(tracks, types.Track{
			Title:      r.TrackName,
			Artist:     r.ArtistName,
			Album:      r.CollectionName,
			Genre:      r.PrimaryGenreName,
			PreviewURL: r.PreviewURL,
			ArtworkURL: strings.Replace(r.ArtworkURL100, "100x100", "600x600", 1),
			ID:         r.TrackID,
			Duration:   time.Duration(r.TrackTimeMillis) * time.Millisecond,
		})
	}
	return tracks, nil
}

// FetchRandomTracks accumulates n unique previewable tracks from randomized
// search terms. Uniqueness is by title+artist. It returns ErrNoTracksFound
// when the bounded attempts cannot supply n tracks.
func (c *Client) FetchRandomTracks(ctx context.Context, n int) ([]types.Track, error) {
	terms := c.shuffledTerms()
	if len(terms) > c.maxAttempts {
		terms = terms[:c.maxAttempts]
	}

	seen := make(map[string]bool)
	var pool []types.Track

	for _, term := range terms {
		tracks, err := c.Search(ctx, term, c.limit)
		if err != nil {
			log.Printf("[catalog] search %q failed: %v", term, err)
			continue
		}
		for _, tr := range tracks {
			if seen[tr.Key()] {
				continue
			}
			seen[tr.Key()] = true
			pool = append(pool, tr)
		}
		// Enough headroom for a varied random pick.
		if len(pool) >= 3*n {
			break
		}
	}

	if len(pool) < n {
		return nil, fmt.Errorf("%w: got %d previewable tracks, need %d", ErrNoTracksFound, len(pool), n)
	}

	c.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool[:n], nil
}

// Download fetches a URL to a local file. Used for both audio previews and
// answer-card artwork.
func (c *Client) Download(ctx context.Context, srcURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status %d for %s", resp.StatusCode, srcURL)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

func (c *Client) shuffledTerms() []string {
	genres := append([]string(nil), genreTerms...)
	c.rng.Shuffle(len(genres), func(i, j int) { genres[i], genres[j] = genres[j], genres[i] })

	popular := append([]string(nil), popularTerms...)
	c.rng.Shuffle(len(popular), func(i, j int) { popular[i], popular[j] = popular[j], popular[i] })

	return append(genres, popular...)
}
