package whisper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/extract"
)

// fakeAPI processes a job after two status calls.
type fakeAPI struct {
	t           *testing.T
	uploaded    []byte
	statusCalls int
	retrieveRaw bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, "k3y", r.Header.Get(keyHeader))

	switch r.URL.Path {
	case "/api/v2/whisper":
		assert.Equal(f.t, http.MethodPost, r.Method)
		assert.Equal(f.t, "form", r.URL.Query().Get("mode"))
		assert.Equal(f.t, "layout_preserving", r.URL.Query().Get("output_mode"))
		assert.Equal(f.t, "application/octet-stream", r.Header.Get("Content-Type"))
		f.uploaded, _ = io.ReadAll(r.Body)
		if string(f.uploaded) == "unsupported" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			_, _ = w.Write([]byte("unsupported media type"))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"whisper_hash": "h-1", "status": "processing"})
	case "/api/v2/whisper-status":
		assert.Equal(f.t, "h-1", r.URL.Query().Get("whisper_hash"))
		f.statusCalls++
		status := "processing"
		if f.statusCalls >= 3 {
			status = "processed"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	case "/api/v2/whisper-retrieve":
		assert.Equal(f.t, "true", r.URL.Query().Get("text_only"))
		if f.retrieveRaw {
			_, _ = w.Write([]byte("  raw   text \n"))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  scanned essay text \n"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, api http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	conf := &core.Config{}
	conf.OCR.BaseURL = srv.URL + "/api/v2/"
	conf.OCR.APIKey = "k3y"
	conf.OCR.Timeout = 5 * time.Second
	return NewClient(conf, core.NopLogger{})
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{t: t}
	c := newTestClient(t, api)

	hash, err := c.Upload(ctx, writeFile(t, "image bytes"))
	require.NoError(t, err)
	assert.Equal(t, "h-1", hash)
	assert.Equal(t, "image bytes", string(api.uploaded))

	for _, want := range []string{"processing", "processing", "processed"} {
		status, err := c.Status(ctx, hash)
		require.NoError(t, err)
		assert.Equal(t, want, status)
	}

	text, err := c.Retrieve(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "scanned essay text", text)

	api.retrieveRaw = true
	text, err = c.Retrieve(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "raw   text", text)
}

func TestClient_WithExtractor(t *testing.T) {
	c := newTestClient(t, &fakeAPI{t: t})
	e := extract.New(c, core.NopLogger{}, extract.Options{PollInterval: time.Millisecond, MaxPollAttempts: 10})

	assert.Equal(t, "scanned essay text", e.Extract(context.Background(), writeFile(t, "image bytes")))
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, &fakeAPI{t: t})

	_, err := c.Upload(ctx, writeFile(t, "unsupported"))
	assert.Equal(t, extract.ErrUnsupported, errors.Cause(err))

	_, err = c.Upload(ctx, filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	broken := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/whisper":
			_, _ = w.Write([]byte(`{"message":"quota exceeded"}`))
		case "/api/v2/whisper-status":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("no such job"))
		}
	}))

	_, err = broken.Upload(ctx, writeFile(t, "image"))
	assert.EqualError(t, err, `whisper upload: no whisper_hash in response: {"message":"quota exceeded"}`)

	_, err = broken.Status(ctx, "h-1")
	var herr *HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusBadGateway, herr.StatusCode)

	_, err = broken.Retrieve(ctx, "h-1")
	assert.EqualError(t, err, "whisper retrieve: http 404: no such job")
}
