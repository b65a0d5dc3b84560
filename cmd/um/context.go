package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"umservice/internal/config"
	"umservice/internal/ipc"
	"umservice/internal/logging"
)

type commandContext struct {
	endpointFlag *string
	configFlag   *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(endpointFlag, configFlag *string) *commandContext {
	return &commandContext{
		endpointFlag: endpointFlag,
		configFlag:   configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// endpoint resolves the IPC address: the --endpoint flag wins, then the
// platform default from config.
func (c *commandContext) endpoint() string {
	if c.endpointFlag != nil && strings.TrimSpace(*c.endpointFlag) != "" {
		return strings.TrimSpace(*c.endpointFlag)
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.Endpoint()
	}
	def := config.Default()
	return def.Endpoint()
}

func (c *commandContext) connectTimeout() time.Duration {
	if cfg := c.configValue(); cfg != nil && cfg.Client.ConnectTimeoutMillis > 0 {
		return time.Duration(cfg.Client.ConnectTimeoutMillis) * time.Millisecond
	}
	return time.Second
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	endpoint := c.endpoint()
	client, err := ipc.Dial(endpoint, c.connectTimeout())
	if err != nil {
		return nil, wrapDialError(err, endpoint)
	}
	return client, nil
}

// stderrLogger builds the logger commands hand to internal packages. It
// writes to stderr only so command output stays clean.
func (c *commandContext) stderrLogger() (*slog.Logger, error) {
	cfg := c.configValue()
	if cfg == nil {
		return logging.NewNop(), nil
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
}

// applyEndpoint writes an endpoint override back into the config so code
// that derives the address from config picks it up.
func applyEndpoint(cfg *config.Config, endpoint string) {
	if runtime.GOOS == "windows" {
		cfg.Paths.PipeName = endpoint
		return
	}
	cfg.Paths.SocketPath = endpoint
}

func wrapDialError(err error, endpoint string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to service: endpoint %s not found; start it with `um serve`", endpoint)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to service: endpoint %s refused the connection; verify the service is running", endpoint)
	default:
		return fmt.Errorf("connect to service: %w", err)
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
