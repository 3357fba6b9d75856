package inference_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/absmach/roadlens/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("image-bytes"))
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)

	fetcher := inference.NewHTTPFetcher(inference.WithMaxImageBytes(32))

	cases := []struct {
		desc    string
		locator string
		want    []byte
		wantErr bool
	}{
		{desc: "http body", locator: srv.URL + "/ok", want: []byte("image-bytes")},
		{desc: "server error", locator: srv.URL + "/fail", wantErr: true},
		{desc: "body over limit", locator: srv.URL + "/big", wantErr: true},
		{desc: "empty body", locator: srv.URL + "/empty", wantErr: true},
		{desc: "base64 data uri", locator: "data:image/png;base64,aGVsbG8=", want: []byte("hello")},
		{desc: "unpadded base64 data uri", locator: "DATA:;base64,aGVsbG8", want: []byte("hello")},
		{desc: "percent encoded data uri", locator: "data:,hello%20world", want: []byte("hello world")},
		{desc: "data uri without payload separator", locator: "data:image/png;base64", wantErr: true},
		{desc: "data uri with bad base64", locator: "data:;base64,@@@", wantErr: true},
		{desc: "data uri over limit", locator: "data:;base64," + strings.Repeat("QUFB", 20), wantErr: true},
		{desc: "file scheme", locator: "file:///etc/passwd", wantErr: true},
		{desc: "relative path", locator: "images/a.png", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			got, err := fetcher.Fetch(context.Background(), tc.locator)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
