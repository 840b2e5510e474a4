package testsupport

import (
	"path/filepath"
	"testing"

	"spyglass/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Daemon.StateDir = filepath.Join(base, "state")
	cfgVal.Daemon.LogDir = filepath.Join(base, "logs")
	cfgVal.Daemon.APIBind = "127.0.0.1:0"
	cfgVal.Store.Driver = "sqlite"
	cfgVal.Store.Path = filepath.Join(base, "state", "spyglass.db")
	cfgVal.Queue.Substrate = "local"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStoreDriver selects the persistence driver on the test config.
func WithStoreDriver(driver string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Driver = driver
	}
}

// WithStoreDSN sets the database connection string on the test config.
func WithStoreDSN(dsn string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.DSN = dsn
	}
}

// WithAnalysisAPIKey sets the analysis API key on the test config.
func WithAnalysisAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analysis.APIKey = key
	}
}

// WithAnalysisBaseURL points the analysis client at a stub server.
func WithAnalysisBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analysis.BaseURL = url
	}
}

// WithPlatform overrides or adds a platform entry on the test config.
func WithPlatform(name string, platform config.Platform) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Platforms == nil {
			b.cfg.Platforms = make(map[string]config.Platform)
		}
		b.cfg.Platforms[name] = platform
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Daemon.StateDir)
}
