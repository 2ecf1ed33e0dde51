package model

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/mchmarny/nsctl/pkg/score"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var modelExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
}

// Entry is a named classifier loaded from disk.
type Entry struct {
	Name       string
	Classifier score.Classifier
}

// Build turns a document into a classifier.
func Build(d *Document) (score.Classifier, error) {
	if d == nil {
		return nil, errors.New("model document required")
	}
	switch d.Kind {
	case KindLogistic:
		if d.Features > 0 && d.Features != len(d.Coefficients) {
			return nil, errors.Errorf("n_features %d does not match %d coefficients", d.Features, len(d.Coefficients))
		}
		return NewLogistic(d.Intercept, d.Coefficients), nil
	case KindForest:
		return NewForest(d.Features, d.Trees)
	default:
		return nil, errors.Errorf("unsupported model kind: %q", d.Kind)
	}
}

// Decode parses a JSON or YAML model document.
func Decode(b []byte, ext string) (*Document, error) {
	var d Document
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&d); err != nil {
			return nil, errors.Wrap(err, "error decoding JSON model")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &d); err != nil {
			return nil, errors.Wrap(err, "error decoding YAML model")
		}
	default:
		return nil, errors.Errorf("unsupported model file extension: %s", ext)
	}
	return &d, nil
}

// LoadFile reads one model file. The model is named after the document's
// name field, or the file name without extension when that is empty.
func LoadFile(path string) (*Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading model file: %s", path)
	}
	ext := filepath.Ext(path)
	d, err := Decode(b, ext)
	if err != nil {
		return nil, errors.Wrapf(err, "model file: %s", path)
	}
	c, err := Build(d)
	if err != nil {
		return nil, errors.Wrapf(err, "model file: %s", path)
	}
	name := d.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ext)
	}
	return &Entry{Name: name, Classifier: c}, nil
}

// LoadDir loads every model file in dir concurrently.
func LoadDir(ctx context.Context, dir string) (map[string]score.Classifier, error) {
	if dir == "" {
		return nil, errors.New("models directory required")
	}
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading models directory: %s", dir)
	}

	var mu sync.Mutex
	models := make(map[string]score.Classifier, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, item := range items {
		if item.IsDir() || !modelExtensions[strings.ToLower(filepath.Ext(item.Name()))] {
			continue
		}
		path := filepath.Join(dir, item.Name())
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e, err := LoadFile(path)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if _, exists := models[e.Name]; exists {
				return errors.Errorf("duplicate model name %q in %s", e.Name, dir)
			}
			models[e.Name] = e.Classifier
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("models loaded", "dir", dir, "count", len(models))
	return models, nil
}
