package net

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var ErrorURLNotFound = errors.New("URL not found")

// IsURL reports whether s is an http or https URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// FileName returns the last path element of rawURL, query excluded.
func FileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "download"
	}
	return path.Base(u.Path)
}

// Download saves the content of url to filePath.
func Download(ctx context.Context, c *http.Client, url, filePath string) (retErr error) {
	if c == nil {
		return errors.New("http client required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "error creating HTTP Get request")
	}
	req.Header.Set("User-Agent", clientAgent)

	resp, err := c.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error downloading: %s", url)
	}
	defer resp.Body.Close()
	PrintHTTPResponse(resp)

	if resp.StatusCode == http.StatusNotFound {
		return errors.Wrap(ErrorURLNotFound, url)
	}

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("error downloading file (status: %d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return errors.Wrapf(err, "error creating download dir for: %s", filePath)
	}

	out, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "error creating file: %s", filePath)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && retErr == nil {
			retErr = errors.Wrap(cerr, "closing file")
		}
	}()

	if _, err = io.Copy(out, resp.Body); err != nil {
		return errors.Wrap(err, "error saving downloaded content to file")
	}

	return nil
}
