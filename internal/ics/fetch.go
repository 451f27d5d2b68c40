package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	appLog "evsched/internal/log"
)

// maxBodySize bounds how much of a calendar we are willing to read.
var maxBodySize int64 = 16 << 20

// errTooLarge is returned for calendars over maxBodySize.
var errTooLarge = errors.New("calendar too large")

// Source represents a single calendar to import.
type Source struct {
	// ID is an internal identifier (e.g., config import ID).
	ID string
	// Path is a local file path or an http(s) URL.
	Path string
}

// IsRemote reports whether the source must be fetched over HTTP.
func (s Source) IsRemote() bool {
	p := strings.ToLower(s.Path)
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// FetchResult contains the outcome of loading a single source.
type FetchResult struct {
	Source Source
	Body   []byte
}

// Fetcher reads ICS payloads from disk or over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client gets a 15s timeout client.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{
			Timeout: 15 * time.Second,
		}
	}
	return &Fetcher{client: client}
}

// FetchOne loads a single source.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.Path == "" {
		return FetchResult{}, errors.New("ics: source path is empty")
	}

	var (
		body []byte
		err  error
	)
	if src.IsRemote() {
		body, err = f.fetchHTTP(ctx, src)
	} else {
		body, err = readFile(src.Path)
	}
	if err != nil {
		return FetchResult{}, fmt.Errorf("ics: load %s: %w", src.ID, err)
	}

	appLog.Debug("ics fetch success", "id", src.ID, "path", redactURL(src.Path), "bytes", len(body))
	return FetchResult{Source: src, Body: body}, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, src Source) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")

	appLog.Info("ics fetch start", "id", src.ID, "url", redactURL(src.Path))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	return readLimited(resp.Body)
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

// readLimited reads r fully, failing instead of truncating past
// maxBodySize.
func readLimited(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxBodySize {
		return nil, fmt.Errorf("%w: over %d bytes", errTooLarge, maxBodySize)
	}
	return body, nil
}

// redactURL hides sensitive parts of an ICS URL for logging purposes.
// Local paths are returned unchanged.
//
//	https://example.com/path/to/private.ics?token=abcd
//	-> https://example.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return u
	}
	i += 3

	j := strings.IndexByte(u[i:], '/')
	if j == -1 {
		return u
	}
	return u[:i+j] + redactedSuffix
}
