package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	uber_config "go.uber.org/config"
	"go.uber.org/fx"
)

// ConfigModule provides the config.Provider.
var ConfigModule = fx.Options(
	fx.Provide(NewConfig),
)

const _envConfigDir = "BUILDWORKER_CONFIG_DIR"

// _defaultConfig is used when no config directory can be found, as the worker is usually launched
// by the controller from an arbitrary working directory.
const _defaultConfig = `
service:
  name: buildworker
logging:
  level: info
  development: false
  encoding: console
  outputPaths:
    - stderr
transport:
  dialTimeoutMs: 10000
  keepAliveSeconds: 30
workerPool:
  size: 4
engine:
  parallelism: 4
  commandTimeoutMinutes: 30
storage:
  lockTimeoutMs: 1000
stats:
  reportIntervalSeconds: 1
`

type Config struct {
	provider uber_config.Provider
}

func (c Config) Get(path string) uber_config.Value {
	return c.provider.Get(path)
}

func (c Config) Name() string {
	return "config"
}

func NewConfig() (uber_config.Provider, error) {
	configDir := getConfigDir()

	metaPath := filepath.Join(configDir, "meta.yaml")
	if _, err := os.Stat(metaPath); os.IsNotExist(err) {
		return newDefaultConfig()
	}

	// First, load meta.yaml to get the list of configuration files
	metaProvider, err := uber_config.NewYAML(
		uber_config.File(metaPath),
		uber_config.Expand(os.LookupEnv),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load meta configuration: %w", err)
	}

	var configFiles []string
	if err := metaProvider.Get("files").Populate(&configFiles); err != nil {
		return nil, fmt.Errorf("failed to read files list from meta.yaml: %w", err)
	}

	var validFiles []string
	for _, file := range configFiles {
		fullPath := filepath.Join(configDir, file)
		if _, err := os.Stat(fullPath); err == nil {
			validFiles = append(validFiles, fullPath)
		}
	}

	if len(validFiles) == 0 {
		return nil, fmt.Errorf("no configuration files found in %s", configDir)
	}

	// Defaults first, so that files only need to carry overrides.
	options := []uber_config.YAMLOption{uber_config.Source(strings.NewReader(_defaultConfig))}
	for _, file := range validFiles {
		options = append(options, uber_config.File(file))
	}
	options = append(options, uber_config.Expand(os.LookupEnv))

	provider, err := uber_config.NewYAML(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return Config{provider: provider}, nil
}

func newDefaultConfig() (uber_config.Provider, error) {
	provider, err := uber_config.NewYAML(
		uber_config.Source(strings.NewReader(_defaultConfig)),
		uber_config.Expand(os.LookupEnv),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load default configuration: %w", err)
	}
	return Config{provider: provider}, nil
}

// getConfigDir returns the path to the configuration directory
func getConfigDir() string {
	if configDir := os.Getenv(_envConfigDir); configDir != "" {
		return configDir
	}

	// Relative to the repository root, where the binary is run during development.
	return "src/buildworker/config"
}
