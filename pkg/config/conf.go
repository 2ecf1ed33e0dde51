package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/nsctl/pkg/catalog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600

	DefaultModelsDir  = "models"
	DefaultServerPort = 8080
)

// Config represents app config object. Relative paths resolve against the
// app home directory.
type Config struct {
	ModelsDir       string `yaml:"models_dir"`
	FeaturesFile    string `yaml:"features_file"`
	PerformanceFile string `yaml:"performance_file"`
	QuestionsFile   string `yaml:"questions_file"`
	FinalPoolFile   string `yaml:"final_pool_file"`
	DBPath          string `yaml:"db_path,omitempty"`
	Server          Server `yaml:"server"`
}

// Server holds the local API settings.
type Server struct {
	Port int `yaml:"port"`
}

func getDefaultConfig() *Config {
	return &Config{
		ModelsDir:       DefaultModelsDir,
		FeaturesFile:    catalog.FeaturesFileName,
		PerformanceFile: catalog.PerformanceFileName,
		QuestionsFile:   catalog.QuestionsFileName,
		FinalPoolFile:   catalog.FinalPoolFileName,
		Server:          Server{Port: DefaultServerPort},
	}
}

// Resolve returns path anchored at dir unless it is empty or absolute.
func Resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) || strings.Contains(path, "://") {
		return path
	}
	return filepath.Join(dir, path)
}

// Sources returns the catalog file locations resolved against dir.
func (c *Config) Sources(dir string) catalog.Sources {
	return catalog.Sources{
		Features:    Resolve(dir, c.FeaturesFile),
		Performance: Resolve(dir, c.PerformanceFile),
		Questions:   Resolve(dir, c.QuestionsFile),
		FinalPool:   Resolve(dir, c.FinalPoolFile),
	}
}

// applyDefaults fills fields missing from older config files.
func (c *Config) applyDefaults() {
	d := getDefaultConfig()
	if c.ModelsDir == "" {
		c.ModelsDir = d.ModelsDir
	}
	if c.FeaturesFile == "" {
		c.FeaturesFile = d.FeaturesFile
	}
	if c.PerformanceFile == "" {
		c.PerformanceFile = d.PerformanceFile
	}
	if c.QuestionsFile == "" {
		c.QuestionsFile = d.QuestionsFile
	}
	if c.FinalPoolFile == "" {
		c.FinalPoolFile = d.FinalPoolFile
	}
	if c.Server.Port <= 0 {
		c.Server.Port = d.Server.Port
	}
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", configFileName)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if err := os.MkdirAll(dirPath, dirMode); err != nil {
		return nil, errors.Wrapf(err, "failed to create dir: %s", dirPath)
	}

	path := filepath.Join(dirPath, configFileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, getDefaultConfig()); err != nil {
			return nil, errors.Wrap(err, "failed to create default config")
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file: %s", path)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling config file: %s", path)
	}
	c.applyDefaults()
	return &c, nil
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get user home dir")
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		err := os.Mkdir(dir, dirMode)
		if err != nil {
			return "", false, errors.Wrapf(err, "failed to create dir: %s", dir)
		}
		created = true
	}
	return dir, created, nil
}
