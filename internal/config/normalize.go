package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeQueue()
	c.normalizeCollection()
	c.normalizeAnalysis()
	c.normalizePlatforms()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeDaemon() error {
	var err error
	if c.Daemon.StateDir, err = expandPath(c.Daemon.StateDir); err != nil {
		return fmt.Errorf("daemon.state_dir: %w", err)
	}
	if c.Daemon.LogDir, err = expandPath(c.Daemon.LogDir); err != nil {
		return fmt.Errorf("daemon.log_dir: %w", err)
	}
	c.Daemon.APIBind = strings.TrimSpace(c.Daemon.APIBind)
	if c.Daemon.APIBind == "" {
		c.Daemon.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	if c.Store.Driver == "sqlite" {
		if strings.TrimSpace(c.Store.Path) == "" {
			c.Store.Path = defaultStorePath
		}
		var err error
		if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
			return fmt.Errorf("store.path: %w", err)
		}
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv("SPYGLASS_STORE_DSN"); ok {
			c.Store.DSN = strings.TrimSpace(value)
		}
	}
	if c.Store.BusyTimeoutMS <= 0 {
		c.Store.BusyTimeoutMS = defaultBusyTimeoutMS
	}
	return nil
}

func (c *Config) normalizeQueue() {
	c.Queue.Substrate = strings.ToLower(strings.TrimSpace(c.Queue.Substrate))
	if c.Queue.Substrate == "" {
		c.Queue.Substrate = defaultSubstrate
	}
	if c.Queue.Concurrency <= 0 {
		c.Queue.Concurrency = defaultConcurrency
	}
	if c.Queue.PollInterval <= 0 {
		c.Queue.PollInterval = defaultPollInterval
	}
	if c.Queue.HeartbeatInterval <= 0 {
		c.Queue.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Queue.HeartbeatTimeout <= 0 {
		c.Queue.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	c.Queue.RedisAddr = strings.TrimSpace(c.Queue.RedisAddr)
	if c.Queue.RedisAddr == "" {
		c.Queue.RedisAddr = defaultRedisAddr
	}
	if c.Queue.RedisDB < 0 {
		c.Queue.RedisDB = 0
	}
}

func (c *Config) normalizeCollection() {
	if c.Collection.QuickTimeout <= 0 {
		c.Collection.QuickTimeout = defaultQuickTimeout
	}
	if c.Collection.DeepTimeout <= 0 {
		c.Collection.DeepTimeout = defaultDeepTimeout
	}
	if c.Collection.SectionTimeout <= 0 {
		c.Collection.SectionTimeout = defaultSectionTimeout
	}
	if c.Collection.MaxConcurrentSections <= 0 {
		c.Collection.MaxConcurrentSections = defaultMaxConcurrentSections
	}
	if c.Collection.MaxLinkedProfiles < 0 {
		c.Collection.MaxLinkedProfiles = defaultMaxLinkedProfiles
	}
	if c.Collection.MaxPosts <= 0 {
		c.Collection.MaxPosts = defaultMaxPosts
	}
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.APIKey = strings.TrimSpace(c.Analysis.APIKey)
	if c.Analysis.APIKey == "" {
		if value, ok := os.LookupEnv("SPYGLASS_API_KEY"); ok {
			c.Analysis.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.Analysis.APIKey = strings.TrimSpace(value)
		}
	}
	c.Analysis.BaseURL = strings.TrimSpace(c.Analysis.BaseURL)
	if c.Analysis.BaseURL == "" {
		c.Analysis.BaseURL = defaultAnalysisBaseURL
	}
	c.Analysis.Model = strings.TrimSpace(c.Analysis.Model)
	if c.Analysis.Model == "" {
		c.Analysis.Model = defaultAnalysisModel
	}
	c.Analysis.Title = strings.TrimSpace(c.Analysis.Title)
	if c.Analysis.Title == "" {
		c.Analysis.Title = defaultAnalysisTitle
	}
	c.Analysis.Referer = strings.TrimSpace(c.Analysis.Referer)
	if c.Analysis.TimeoutSeconds <= 0 {
		c.Analysis.TimeoutSeconds = defaultAnalysisTimeout
	}
	if c.Analysis.MaxSummaryPosts <= 0 {
		c.Analysis.MaxSummaryPosts = defaultMaxSummaryPosts
	}
}

func (c *Config) normalizePlatforms() {
	if len(c.Platforms) == 0 {
		c.Platforms = Default().Platforms
	}
	normalized := make(map[string]Platform, len(c.Platforms))
	for name, platform := range c.Platforms {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		platform.Mode = strings.ToLower(strings.TrimSpace(platform.Mode))
		platform.BaseURL = strings.TrimRight(strings.TrimSpace(platform.BaseURL), "/")
		if platform.Mode == "" {
			if platform.BaseURL != "" {
				platform.Mode = "http"
			} else {
				platform.Mode = "offline"
			}
		}
		platform.UserAgent = strings.TrimSpace(platform.UserAgent)
		if platform.UserAgent == "" {
			platform.UserAgent = defaultPlatformUserAgent
		}
		if platform.TimeoutSeconds <= 0 {
			platform.TimeoutSeconds = defaultSectionTimeout
		}
		normalized[key] = platform
	}
	c.Platforms = normalized
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
