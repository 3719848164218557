package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/api"
	"vigil/internal/config"
	"vigil/internal/services"
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

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
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

func (c *commandContext) apiAddress() string {
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return strings.TrimSpace(*c.apiFlag)
	}
	if c.config != nil {
		return c.config.Paths.APIBind
	}
	return ""
}

// withClient runs fn against the daemon API. The request deadline leaves room
// for a full job invocation.
func (c *commandContext) withClient(cmd *cobra.Command, fn func(context.Context, *api.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	addr := c.apiAddress()
	client, err := api.NewClient(addr, cfg.Paths.APIToken, cfg.InvocationTimeout()+30*time.Second)
	if err != nil {
		return wrapClientError(err, addr)
	}
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	if err := fn(parent, client); err != nil {
		return wrapClientError(err, addr)
	}
	return nil
}

func wrapClientError(err error, addr string) error {
	switch {
	case errors.Is(err, api.ErrAPIUnavailable):
		return errors.New("connect to daemon: no API address configured; set paths.api_bind or pass --api")
	case api.IsAPIUnavailable(err):
		return fmt.Errorf("connect to daemon: %s refused the connection; verify vigild is running", addr)
	case errors.Is(err, services.ErrConfiguration):
		return fmt.Errorf("%w (check paths.api_token or VIGIL_API_TOKEN)", err)
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
