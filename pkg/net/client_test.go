package net

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPClient(t *testing.T) {
	client, err := GetHTTPClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.NotNil(t, client.Jar)
}

func TestGetOAuthClient(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := GetOAuthClient(context.Background(), "test-token")
	require.NotNil(t, client)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer test-token", auth)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, c.Jar)

	c, err = NewClient(context.Background(), "x")
	require.NoError(t, err)
	assert.Nil(t, c.Jar)
}

func TestPrintHTTPResponse_Nil(t *testing.T) {
	// should not panic
	PrintHTTPResponse(nil)
}

func TestPrintHTTPResponse_WithResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{},
		Body:       http.NoBody,
	}
	// should not panic
	PrintHTTPResponse(resp)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pool.txt":
			_, _ = w.Write([]byte("Q1\nQ2\n"))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := GetHTTPClient()
	require.NoError(t, err)
	ctx := context.Background()
	dir := t.TempDir()

	dst := filepath.Join(dir, "sub", "pool.txt")
	require.NoError(t, Download(ctx, c, srv.URL+"/pool.txt", dst))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "Q1\nQ2\n", string(b))

	err = Download(ctx, c, srv.URL+"/missing", filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, ErrorURLNotFound)

	err = Download(ctx, c, srv.URL+"/broken", filepath.Join(dir, "broken"))
	assert.Error(t, err)

	assert.Error(t, Download(ctx, nil, srv.URL, filepath.Join(dir, "x")))
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/a.csv"))
	assert.True(t, IsURL("http://localhost/a.csv"))
	assert.False(t, IsURL("/tmp/a.csv"))
	assert.False(t, IsURL("postgres://localhost/db"))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "SorularFull.csv", FileName("https://example.com/data/SorularFull.csv?v=2"))
	assert.Equal(t, "download", FileName("https://example.com/"))
}
