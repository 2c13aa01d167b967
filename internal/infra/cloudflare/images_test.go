package cloudflare

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeArtifact(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newImagesClient(t *testing.T, baseURL string) *ImagesClient {
	t.Helper()
	return NewImagesClient(ImagesConfig{
		AccountID: "acct-1",
		APIToken:  "token-1",
		BaseURL:   baseURL,
	}, zap.NewNop())
}

func TestUploadImageSuccess(t *testing.T) {
	artifact := writeArtifact(t, "output.webp", []byte("webp-bytes"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/accounts/acct-1/images/v1", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "job-42.webp", header.Filename)
		assert.Equal(t, "image/webp", header.Header.Get("Content-Type"))

		body, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("webp-bytes"), body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"result":{"id":"img_1","variants":["https://cdn/img_1/public"]}}`))
	}))
	defer srv.Close()

	result, err := newImagesClient(t, srv.URL).UploadImage(context.Background(), artifact, "job-42")
	require.NoError(t, err)
	assert.Equal(t, "img_1", result.ID)
	assert.Equal(t, "https://cdn/img_1/public", result.URL)
}

func TestUploadImageUpstreamErrorSurfaced(t *testing.T) {
	artifact := writeArtifact(t, "output.webp", []byte("x"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success":false,"errors":[{"message":"invalid API token"}]}`))
	}))
	defer srv.Close()

	_, err := newImagesClient(t, srv.URL).UploadImage(context.Background(), artifact, "job-42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API token")
}

func TestUploadImageGenericErrorFallback(t *testing.T) {
	artifact := writeArtifact(t, "output.webp", []byte("x"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	_, err := newImagesClient(t, srv.URL).UploadImage(context.Background(), artifact, "job-42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown error")
}

func TestUploadImageMalformedResponse(t *testing.T) {
	artifact := writeArtifact(t, "output.webp", []byte("x"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"result":{"id":"","variants":[]}}`))
	}))
	defer srv.Close()

	_, err := newImagesClient(t, srv.URL).UploadImage(context.Background(), artifact, "job-42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id or variant URL")
}

func TestUploadImageMissingArtifact(t *testing.T) {
	_, err := newImagesClient(t, "http://127.0.0.1:0").UploadImage(context.Background(), "/nope/output.webp", "job-42")
	assert.Error(t, err)
}
