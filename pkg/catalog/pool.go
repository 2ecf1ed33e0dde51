package catalog

import (
	"bufio"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// LoadFinalPool reads one question id per line. A missing file yields an
// empty pool: the disorder classifiers then get zero-length vectors and are
// skipped at scoring time.
func LoadFinalPool(path string) ([]string, error) {
	if path == "" {
		slog.Warn("final question pool not configured, using empty pool")
		return []string{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("final question pool not found, using empty pool", "path", path)
			return []string{}, nil
		}
		return nil, errors.Wrapf(err, "error opening final question pool: %s", path)
	}
	defer f.Close()

	pool := []string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			pool = append(pool, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "error reading final question pool: %s", path)
	}
	return pool, nil
}
