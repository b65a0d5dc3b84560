package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownNamingFormats = map[string]struct{}{
	"auto":         {},
	"title-artist": {},
	"artist-title": {},
	"original":     {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateClient(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		return errors.New("paths.socket_path must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateService() error {
	if c.Service.MaxSessions <= 0 {
		return errors.New("service.max_sessions must be positive")
	}
	if c.Service.MaxWorkers <= 0 {
		return errors.New("service.max_workers must be positive")
	}
	if c.Service.MaxWorkers > 64 {
		return errors.New("service.max_workers must not exceed 64")
	}
	if c.Service.SessionTimeoutMinutes < 0 {
		return errors.New("service.session_timeout_minutes must not be negative")
	}
	if c.Service.CleanupIntervalMinutes < 0 {
		return errors.New("service.cleanup_interval_minutes must not be negative")
	}
	return nil
}

func (c *Config) validateClient() error {
	if c.Client.ConnectTimeoutMillis <= 0 {
		return errors.New("client.connect_timeout_millis must be positive")
	}
	if c.Client.SpawnWaitSeconds <= 0 {
		return errors.New("client.spawn_wait_seconds must be positive")
	}
	if c.Client.PollIntervalMillis <= 0 {
		return errors.New("client.poll_interval_millis must be positive")
	}
	if c.Client.PerFileTimeoutSecs <= 0 {
		return errors.New("client.per_file_timeout_seconds must be positive")
	}
	if c.Client.SessionMinBatch < 0 {
		return errors.New("client.session_min_batch must not be negative")
	}
	if c.Client.AddFilesChunkSize <= 0 {
		return errors.New("client.add_files_chunk_size must be positive")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if _, ok := knownNamingFormats[c.Processing.NamingFormat]; !ok {
		return fmt.Errorf("processing.naming_format must be one of auto, title-artist, artist-title, original; got %q", c.Processing.NamingFormat)
	}
	return nil
}
