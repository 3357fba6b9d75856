package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultFetchTimeout  = 5 * time.Second
	DefaultMaxImageBytes = 20 << 20

	dataScheme = "data:"
)

var (
	errUnsupportedScheme = errors.New("unsupported image locator scheme")
	errUnexpectedStatus  = errors.New("unexpected response status")
	errImageTooLarge     = errors.New("image exceeds size limit")
	errInvalidDataURI    = errors.New("invalid data uri")
	errEmptyImage        = errors.New("empty image body")
)

// Fetcher retrieves the raw bytes behind an image locator.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

type FetcherOption func(*HTTPFetcher)

func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

func WithFetchTimeout(timeout time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

func WithMaxImageBytes(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher resolves http(s) URLs and inline data URIs.
type HTTPFetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:   http.DefaultClient,
		timeout:  DefaultFetchTimeout,
		maxBytes: DefaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	locator = strings.TrimSpace(locator)
	if len(locator) >= len(dataScheme) && strings.EqualFold(locator[:len(dataScheme)], dataScheme) {
		return f.decodeDataURI(locator[len(dataScheme):])
	}

	u, err := url.Parse(locator)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.get(ctx, u.String())
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedScheme, u.Scheme)
	}
}

func (f *HTTPFetcher) get(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s", errUnexpectedStatus, resp.Status)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, errImageTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}

	return f.check(data)
}

// decodeDataURI handles the part of an RFC 2397 URI after "data:".
func (f *HTTPFetcher) decodeDataURI(rest string) ([]byte, error) {
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errInvalidDataURI
	}

	if !strings.HasSuffix(strings.ToLower(meta), ";base64") {
		data, err := url.PathUnescape(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidDataURI, err)
		}

		return f.check([]byte(data))
	}

	if int64(base64.StdEncoding.DecodedLen(len(payload))) > f.maxBytes+2 {
		return nil, errImageTooLarge
	}
	payload = strings.TrimRight(payload, "=")
	data, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidDataURI, err)
	}

	return f.check(data)
}

func (f *HTTPFetcher) check(data []byte) ([]byte, error) {
	switch {
	case int64(len(data)) > f.maxBytes:
		return nil, errImageTooLarge
	case len(data) == 0:
		return nil, errEmptyImage
	default:
		return data, nil
	}
}
