package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/nsctl/pkg/catalog"
	"github.com/mchmarny/nsctl/pkg/net"
	"github.com/pkg/errors"
)

const tokenEnvVar = "NSCTL_TOKEN"

// fetchSources downloads every http(s) source into a temporary directory and
// returns the local paths. The returned cleanup func removes the downloads.
func fetchSources(ctx context.Context, src catalog.Sources, token string) (catalog.Sources, func(), error) {
	noop := func() {}
	remote := []*string{&src.Features, &src.Performance, &src.Questions, &src.FinalPool}

	var urls []*string
	for _, p := range remote {
		if net.IsURL(*p) {
			urls = append(urls, p)
		}
	}
	if len(urls) == 0 {
		return src, noop, nil
	}

	client, err := net.NewClient(ctx, token)
	if err != nil {
		return src, noop, errors.Wrap(err, "error creating HTTP client")
	}

	dir, err := os.MkdirTemp("", "nsctl-")
	if err != nil {
		return src, noop, errors.Wrap(err, "error creating download dir")
	}
	cleanup := func() { os.RemoveAll(dir) }

	for i, p := range urls {
		// index prefix keeps same-named remote files apart
		dst := filepath.Join(dir, fmt.Sprintf("%d-%s", i, net.FileName(*p)))
		if err := net.Download(ctx, client, *p, dst); err != nil {
			if errors.Is(err, net.ErrorURLNotFound) && p == &src.FinalPool {
				slog.Warn("final question pool not found", "url", *p)
				*p = filepath.Join(dir, "missing-final-pool")
				continue
			}
			cleanup()
			return src, noop, err
		}
		slog.Debug("source downloaded", "url", *p, "path", dst)
		*p = dst
	}
	return src, cleanup, nil
}
