package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeProcessing()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PipeName) == "" {
		c.Paths.PipeName = defaultPipeName
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if strings.TrimSpace(c.Processing.OutputDir) != "" {
		if c.Processing.OutputDir, err = expandPath(c.Processing.OutputDir); err != nil {
			return fmt.Errorf("processing.output_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeProcessing() {
	c.Processing.NamingFormat = strings.ToLower(strings.TrimSpace(c.Processing.NamingFormat))
	if c.Processing.NamingFormat == "" {
		c.Processing.NamingFormat = defaultNamingFormat
	}
}
