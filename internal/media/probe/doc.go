// Package probe extracts media facts from ffmpeg's human-readable
// diagnostic banner.
//
// The transcoder is the one external tool here that offers no structured
// output for a bare inspection, so this package isolates the fragile
// pattern-matching behind a single adapter whose extraction contract is
// documented next to the patterns and tested against captured sample output.
package probe
