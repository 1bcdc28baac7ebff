package config

const (
	defaultStagingDir      = "~/.local/share/anchorcast/staging"
	defaultLogDir          = "~/.local/share/anchorcast/logs"
	defaultFeedTool        = "youtube-dl"
	defaultItemURLTemplate = "https://www.youtube.com/watch?v=%s"
	defaultMaxScanDepth    = 500
	defaultCRF             = 23
	defaultPreset          = "medium"
	defaultJPEGQuality     = 85
	defaultStoreAPIPort    = 5001
	defaultChainID         = 76
	defaultRegistryAddress = "0xbcab5026b4d79396b222abc4d1ca36db10984c73"
	defaultGasPriceWei     = 1_000_000_000
	defaultGasLimit        = 500_000
	defaultReceiptPoll     = 2
	defaultPollInterval    = 300
	defaultLogFormat       = "auto"
	defaultLogLevel        = "info"
	defaultNtfyTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Feed: Feed{
			Tool:            defaultFeedTool,
			ItemURLTemplate: defaultItemURLTemplate,
			MaxScanDepth:    defaultMaxScanDepth,
		},
		Encoder: Encoder{
			CRF:         defaultCRF,
			Preset:      defaultPreset,
			JPEGQuality: defaultJPEGQuality,
		},
		Store: Store{
			APIPort: defaultStoreAPIPort,
		},
		Ledger: Ledger{
			ChainID:            defaultChainID,
			RegistryAddress:    defaultRegistryAddress,
			GasPriceWei:        defaultGasPriceWei,
			GasLimit:           defaultGasLimit,
			ReceiptPollSeconds: defaultReceiptPoll,
		},
		Workflow: Workflow{
			PollIntervalSeconds: defaultPollInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// applyEnvironment layers the enumerated environment overrides on top of the
// file values. The recovery phrase is environment-only so seed material never
// lands in a config file.
func (c *Config) applyEnvironment(getenv func(string) string) {
	if v := getenv("FEED_SOURCE_URI"); v != "" {
		c.Feed.SourceURI = v
	}
	if v := getenv("FEED_ID"); v != "" {
		c.Ledger.FeedID = v
	}
	if v := getenv("LEDGER_IPC_PATH"); v != "" {
		c.Ledger.IPCPath = v
	}
	if v := getenv("H264_CRF"); v != "" {
		if crf, err := parsePositiveInt(v); err == nil {
			c.Encoder.CRF = crf
		}
	}
	if v := getenv("H264_PRESET"); v != "" {
		c.Encoder.Preset = v
	}
	if v := getenv("IPFS_PORT"); v != "" {
		if port, err := parsePositiveInt(v); err == nil {
			c.Store.APIPort = port
		}
	}
	c.Ledger.RecoveryPhrase = getenv("RECOVERY_PHRASE")
}
