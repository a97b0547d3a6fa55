package config

const (
	defaultAPIBaseURL            = "http://127.0.0.1:8787"
	defaultServerRequestTimeout  = 30
	defaultLogDir                = "~/.local/share/clipwatch/logs"
	defaultDataDir               = "~/.local/share/clipwatch"
	defaultKeepaliveInterval     = 30
	defaultReconnectBaseDelayMS  = 3000
	defaultMaxReconnectAttempts  = 10
	defaultFallbackInterval      = 10
	defaultStuckMinutes          = 30
	defaultTranscriptionMinutes  = 2
	defaultDownloadPollInterval  = 2
	defaultDownloadMaxAttempts   = 60
	defaultChainPollInterval     = 5
	defaultChainMaxAttempts      = 300
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			APIBaseURL:     defaultAPIBaseURL,
			RequestTimeout: defaultServerRequestTimeout,
		},
		Paths: Paths{
			LogDir:  defaultLogDir,
			DataDir: defaultDataDir,
		},
		Push: Push{
			KeepaliveInterval:    defaultKeepaliveInterval,
			ReconnectBaseDelayMS: defaultReconnectBaseDelayMS,
			MaxReconnectAttempts: defaultMaxReconnectAttempts,
		},
		Polling: Polling{
			FallbackInterval: defaultFallbackInterval,
		},
		Stuck: Stuck{
			DefaultMinutes: defaultStuckMinutes,
			StageMinutes: map[string]int{
				"transcription": defaultTranscriptionMinutes,
			},
		},
		Sequencer: Sequencer{
			DownloadPollInterval: defaultDownloadPollInterval,
			DownloadMaxAttempts:  defaultDownloadMaxAttempts,
			ChainPollInterval:    defaultChainPollInterval,
			ChainMaxAttempts:     defaultChainMaxAttempts,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Stuck:          true,
			Failures:       true,
			Saga:           true,
			Connection:     true,
		},
		Archive: Archive{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
