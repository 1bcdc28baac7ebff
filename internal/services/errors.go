package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSource marks feed query and media retrieval failures.
	ErrSource = errors.New("source error")
	// ErrProbeParse marks failures to extract media facts from the probe
	// tool's diagnostic output. Usually indicates format drift in the tool.
	ErrProbeParse = errors.New("probe parse error")
	// ErrUpload marks content store failures. Uploads are idempotent per
	// content, so the next cycle retries safely.
	ErrUpload = errors.New("upload error")
	// ErrAnchor marks ledger call, signing, or broadcast failures.
	ErrAnchor = errors.New("anchor error")
	// ErrCursor marks cursor store failures other than a missing cursor.
	ErrCursor = errors.New("cursor error")

	ErrExternalTool  = errors.New("external tool error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify returns the taxonomy label for a pipeline error, used in logs and
// notifications.
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrSource):
		return "source"
	case errors.Is(err, ErrProbeParse):
		return "probe_parse"
	case errors.Is(err, ErrUpload):
		return "upload"
	case errors.Is(err, ErrAnchor):
		return "anchor"
	case errors.Is(err, ErrCursor):
		return "cursor"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "external_tool"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
