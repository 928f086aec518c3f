package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"transcriber/internal/api"
	"transcriber/internal/config"
	"transcriber/internal/logging"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// apiAddress prefers the --api flag over the configured bind address.
func (c *commandContext) apiAddress() (string, error) {
	if c.apiFlag != nil {
		if addr := strings.TrimSpace(*c.apiFlag); addr != "" {
			return addr, nil
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if cfg.Paths.APIBind == "" {
		return "", errors.New("daemon API is disabled (paths.api_bind is empty)")
	}
	return cfg.Paths.APIBind, nil
}

func (c *commandContext) apiClient() (*api.Client, error) {
	addr, err := c.apiAddress()
	if err != nil {
		return nil, err
	}
	token := ""
	if cfg := c.configValue(); cfg != nil {
		token = cfg.Paths.APIToken
	}
	return api.NewClient(addr, token), nil
}

// withClient runs fn against the daemon and rewrites connection failures
// into a hint to start it.
func (c *commandContext) withClient(fn func(*api.Client) error) error {
	client, err := c.apiClient()
	if err != nil {
		return err
	}
	if err := fn(client); err != nil {
		return wrapDaemonError(err, client.BaseURL)
	}
	return nil
}

// logger returns a console logger on stderr for in-process commands. Only
// warnings surface unless debug logging is configured.
func (c *commandContext) logger() *slog.Logger {
	level := "warn"
	if cfg := c.configValue(); cfg != nil && strings.EqualFold(cfg.Logging.Level, "debug") {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func wrapDaemonError(err error, baseURL string) error {
	var statusErr *api.StatusError
	switch {
	case errors.As(err, &statusErr):
		return statusErr
	case api.IsUnavailable(err):
		return fmt.Errorf("connect to daemon at %s: %w; start it with `transcriber start`", baseURL, err)
	default:
		return err
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
