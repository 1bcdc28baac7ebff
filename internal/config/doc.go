// Package config loads, normalizes, and validates anchorcast configuration.
//
// Configuration comes from a TOML file (default ~/.config/anchorcast/config.toml
// or ./anchorcast.toml) layered with a fixed set of environment overrides:
// FEED_SOURCE_URI, FEED_ID, LEDGER_IPC_PATH, H264_CRF, H264_PRESET, IPFS_PORT,
// and RECOVERY_PHRASE. The recovery phrase is environment-only; it is never
// read from or written to a file.
package config
