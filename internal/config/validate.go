package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	hexAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	hexWordPattern    = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.SourceURI == "" {
		return errors.New("feed.source_uri is required (or set FEED_SOURCE_URI)")
	}
	if !strings.Contains(c.Feed.ItemURLTemplate, "%s") {
		return errors.New("feed.item_url_template must contain a %s placeholder for the item id")
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if c.Encoder.CRF < 0 || c.Encoder.CRF > 51 {
		return fmt.Errorf("encoder.crf %d outside the x264 range 0-51", c.Encoder.CRF)
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.APIPort <= 0 || c.Store.APIPort > 65535 {
		return fmt.Errorf("store.api_port %d is not a valid port", c.Store.APIPort)
	}
	return nil
}

func (c *Config) validateLedger() error {
	if c.Ledger.IPCPath == "" {
		return errors.New("ledger.ipc_path is required (or set LEDGER_IPC_PATH)")
	}
	for name, addr := range map[string]string{
		"ledger.registry_address":   c.Ledger.RegistryAddress,
		"ledger.item_dag_address":   c.Ledger.ItemDagAddress,
		"ledger.item_store_address": c.Ledger.ItemStoreAddress,
	} {
		if addr == "" {
			return fmt.Errorf("%s is required", name)
		}
		if !hexAddressPattern.MatchString(addr) {
			return fmt.Errorf("%s %q is not a 20-byte hex address", name, addr)
		}
	}
	if c.Ledger.FeedID == "" {
		return errors.New("ledger.feed_id is required (or set FEED_ID)")
	}
	if !hexWordPattern.MatchString(c.Ledger.FeedID) {
		return fmt.Errorf("ledger.feed_id %q is not a 32-byte hex value", c.Ledger.FeedID)
	}
	if strings.TrimSpace(c.Ledger.RecoveryPhrase) == "" {
		return errors.New("RECOVERY_PHRASE environment variable is required")
	}
	return nil
}
