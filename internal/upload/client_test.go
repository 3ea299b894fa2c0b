package upload

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/files", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "fake-png-bytes", string(data))
		assert.Equal(t, "cat.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(File{
			URL:  "https://cdn.example/abc.png",
			Name: "cat.png",
			Size: int64(len(data)),
			Type: "image/png",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	file, err := c.Upload(context.Background(), "cat.png", "image/png", strings.NewReader("fake-png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example/abc.png", file.URL)
	assert.Equal(t, "cat.png", file.Name)
	assert.Equal(t, int64(14), file.Size)
	assert.Equal(t, "image/png", file.Type)
}

func TestUpload_ServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Upload(context.Background(), "cat.png", "image/png", strings.NewReader("x"))
	assert.ErrorContains(t, err, "status 500")
}

func TestDelete(t *testing.T) {
	var gotURLs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/files", r.URL.Path)

		var payload map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotURLs = payload["urls"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.Delete(context.Background(), []string{"https://cdn.example/abc.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example/abc.png"}, gotURLs)
}
