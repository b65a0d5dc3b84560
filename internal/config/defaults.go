package config

const (
	defaultSocketPath         = "/tmp/um_service.sock"
	defaultPipeName           = `\\.\pipe\um_service`
	defaultLogDir             = "~/.local/share/um/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultMaxSessions        = 32
	defaultMaxWorkers         = 6
	defaultSessionTimeoutMin  = 30
	defaultCleanupIntervalMin = 5
	defaultConnectTimeoutMs   = 500
	defaultSpawnWaitSeconds   = 10
	defaultPollIntervalMs     = 100
	defaultSessionMinBatch    = 3
	defaultPerFileTimeoutSecs = 60
	defaultAddFilesChunkSize  = 50
	defaultNamingFormat       = "auto"
	defaultHistoryPath        = "~/.local/share/um/history.db"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SocketPath: defaultSocketPath,
			PipeName:   defaultPipeName,
			LogDir:     defaultLogDir,
		},
		Service: Service{
			MaxSessions:            defaultMaxSessions,
			MaxWorkers:             defaultMaxWorkers,
			SessionTimeoutMinutes:  defaultSessionTimeoutMin,
			CleanupIntervalMinutes: defaultCleanupIntervalMin,
		},
		Client: Client{
			ConnectTimeoutMillis: defaultConnectTimeoutMs,
			SpawnWaitSeconds:     defaultSpawnWaitSeconds,
			PollIntervalMillis:   defaultPollIntervalMs,
			SessionMinBatch:      defaultSessionMinBatch,
			PerFileTimeoutSecs:   defaultPerFileTimeoutSecs,
			AddFilesChunkSize:    defaultAddFilesChunkSize,
		},
		Processing: Processing{
			UpdateMetadata:  true,
			OverwriteOutput: true,
			SkipNoop:        true,
			NamingFormat:    defaultNamingFormat,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
