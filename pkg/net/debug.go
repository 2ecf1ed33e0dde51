package net

import (
	"context"
	"log/slog"
	"net/http"
)

// PrintHTTPResponse logs the status and headers of resp at debug level.
func PrintHTTPResponse(resp *http.Response) {
	if resp == nil || !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{"status", resp.StatusCode}
	if resp.Request != nil && resp.Request.URL != nil {
		attrs = append(attrs, "url", resp.Request.URL.String())
	}
	for _, h := range []string{"Content-Type", "Content-Length", "Last-Modified"} {
		if v := resp.Header.Get(h); v != "" {
			attrs = append(attrs, h, v)
		}
	}
	slog.Debug("http response", attrs...)
}
