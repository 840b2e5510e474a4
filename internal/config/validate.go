package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateCollection(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validatePlatforms(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Store.Path) == "" {
			return errors.New("store.path must be set when store.driver is sqlite")
		}
	case "postgres":
		if strings.TrimSpace(c.Store.DSN) == "" {
			return errors.New("store.dsn must be set when store.driver is postgres (or set SPYGLASS_STORE_DSN)")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be one of sqlite, postgres, memory (got %q)", c.Store.Driver)
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Substrate {
	case "local":
	case "asynq":
		if strings.TrimSpace(c.Queue.RedisAddr) == "" {
			return errors.New("queue.redis_addr must be set when queue.substrate is asynq")
		}
	default:
		return fmt.Errorf("queue.substrate must be local or asynq (got %q)", c.Queue.Substrate)
	}
	if err := ensurePositiveMap(map[string]int{
		"queue.concurrency":   c.Queue.Concurrency,
		"queue.poll_interval": c.Queue.PollInterval,
	}); err != nil {
		return err
	}
	if c.Queue.HeartbeatInterval <= 0 {
		return errors.New("queue.heartbeat_interval must be positive")
	}
	if c.Queue.HeartbeatTimeout <= c.Queue.HeartbeatInterval {
		return errors.New("queue.heartbeat_timeout must be greater than queue.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateCollection() error {
	if err := ensurePositiveMap(map[string]int{
		"collection.quick_timeout":           c.Collection.QuickTimeout,
		"collection.deep_timeout":            c.Collection.DeepTimeout,
		"collection.section_timeout":         c.Collection.SectionTimeout,
		"collection.max_concurrent_sections": c.Collection.MaxConcurrentSections,
		"collection.max_posts":               c.Collection.MaxPosts,
	}); err != nil {
		return err
	}
	if c.Collection.DeepTimeout <= c.Collection.QuickTimeout {
		return errors.New("collection.deep_timeout must be greater than collection.quick_timeout")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if strings.TrimSpace(c.Analysis.BaseURL) == "" {
		return errors.New("analysis.base_url must be set")
	}
	if _, err := url.Parse(c.Analysis.BaseURL); err != nil {
		return fmt.Errorf("analysis.base_url is not a valid URL: %w", err)
	}
	if c.Analysis.TimeoutSeconds <= 0 {
		return errors.New("analysis.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePlatforms() error {
	if len(c.Platforms) == 0 {
		return errors.New("at least one [platforms.<name>] section must be configured")
	}
	for name, platform := range c.Platforms {
		switch platform.Mode {
		case "offline":
		case "http":
			if strings.TrimSpace(platform.BaseURL) == "" {
				return fmt.Errorf("platforms.%s.base_url must be set when mode is http", name)
			}
			parsed, err := url.Parse(platform.BaseURL)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				return fmt.Errorf("platforms.%s.base_url is not a valid URL", name)
			}
		default:
			return fmt.Errorf("platforms.%s.mode must be http or offline (got %q)", name, platform.Mode)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic != "" {
		parsed, err := url.Parse(c.Notifications.NtfyTopic)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return errors.New("notifications.ntfy_topic must be a full URL (for example https://ntfy.sh/your-topic)")
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
