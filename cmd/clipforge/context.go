package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

// commandContext carries the config flag and a lazily loaded config shared
// by every subcommand of one invocation.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// configPathFlag returns the raw --config flag value, "" when unset.
func (c *commandContext) configPathFlag() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureConfig loads the config once per invocation and creates its
// directories. Later callers share the first outcome, error included.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = loadAndPrepare(c.configPathFlag())
	})
	return c.config, c.configErr
}

func loadAndPrepare(path string) (*config.Config, error) {
	cfg, _, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withStore opens the job store for the duration of one command.
func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// shouldSkipConfig reports whether cmd or an ancestor opts out of config
// loading via the skipConfigLoad annotation.
func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
