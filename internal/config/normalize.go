package config

import (
	"fmt"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFeed()
	c.normalizeEncoder()
	c.normalizeLedger()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFeed() {
	c.Feed.SourceURI = strings.TrimSpace(c.Feed.SourceURI)
	if strings.TrimSpace(c.Feed.Tool) == "" {
		c.Feed.Tool = defaultFeedTool
	}
	if strings.TrimSpace(c.Feed.ItemURLTemplate) == "" {
		c.Feed.ItemURLTemplate = defaultItemURLTemplate
	}
	if c.Feed.MaxScanDepth <= 0 {
		c.Feed.MaxScanDepth = defaultMaxScanDepth
	}
}

func (c *Config) normalizeEncoder() {
	if c.Encoder.CRF <= 0 {
		c.Encoder.CRF = defaultCRF
	}
	if strings.TrimSpace(c.Encoder.Preset) == "" {
		c.Encoder.Preset = defaultPreset
	}
	if c.Encoder.JPEGQuality <= 0 || c.Encoder.JPEGQuality > 100 {
		c.Encoder.JPEGQuality = defaultJPEGQuality
	}
}

func (c *Config) normalizeLedger() {
	c.Ledger.IPCPath = strings.TrimSpace(c.Ledger.IPCPath)
	c.Ledger.RegistryAddress = strings.ToLower(strings.TrimSpace(c.Ledger.RegistryAddress))
	c.Ledger.ItemDagAddress = strings.ToLower(strings.TrimSpace(c.Ledger.ItemDagAddress))
	c.Ledger.ItemStoreAddress = strings.ToLower(strings.TrimSpace(c.Ledger.ItemStoreAddress))
	c.Ledger.FeedID = strings.TrimSpace(c.Ledger.FeedID)
	if c.Ledger.ChainID <= 0 {
		c.Ledger.ChainID = defaultChainID
	}
	if c.Ledger.GasPriceWei <= 0 {
		c.Ledger.GasPriceWei = defaultGasPriceWei
	}
	if c.Ledger.GasLimit == 0 {
		c.Ledger.GasLimit = defaultGasLimit
	}
	if c.Ledger.ReceiptPollSeconds <= 0 {
		c.Ledger.ReceiptPollSeconds = defaultReceiptPoll
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollIntervalSeconds <= 0 {
		c.Workflow.PollIntervalSeconds = defaultPollInterval
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func parsePositiveInt(value string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("value %d is not positive", parsed)
	}
	return parsed, nil
}
