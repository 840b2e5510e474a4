package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"spyglass/internal/apiclient"
	"spyglass/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

// ensureConfig loads configuration once. The CLI never creates daemon
// directories; it may be pointed at a remote daemon via --api.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) apiBind() string {
	if c.apiFlag != nil {
		if bind := strings.TrimSpace(*c.apiFlag); bind != "" {
			return bind
		}
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		if bind := strings.TrimSpace(cfg.Daemon.APIBind); bind != "" {
			return bind
		}
	}
	return config.Default().Daemon.APIBind
}

func (c *commandContext) withClient(fn func(*apiclient.Client) error) error {
	client, err := apiclient.New(c.apiBind())
	if err != nil {
		return err
	}
	if err := fn(client); err != nil {
		return describeClientError(err, c.apiBind())
	}
	return nil
}

func describeClientError(err error, bind string) error {
	if apiclient.IsDaemonUnavailable(err) {
		return fmt.Errorf("cannot reach the spyglass daemon at %s; start it with `spyglassd` or pass --api", bind)
	}
	return err
}

func parseTaskID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}
