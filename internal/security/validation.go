package security

import (
	"errors"
	"fmt"
)

// Limits applied to untrusted API bodies and websocket frames.
const (
	DefaultMaxPayloadBytes = 1 << 20
	DefaultMaxJSONDepth    = 32
)

var (
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
	ErrJSONTooDeep     = errors.New("JSON nesting exceeds maximum depth")
)

// CheckPayload rejects data larger than maxBytes or nested deeper than
// maxDepth. Non-positive limits fall back to the defaults. Syntax errors
// are left to the decoder that runs afterwards.
func CheckPayload(data []byte, maxBytes, maxDepth int) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPayloadBytes
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxJSONDepth
	}
	if len(data) > maxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(data), maxBytes)
	}
	return checkDepth(data, maxDepth)
}

// checkDepth scans brackets outside string literals.
func checkDepth(data []byte, limit int) error {
	depth := 0
	inString, escaped := false, false
	for i, b := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{', '[':
			depth++
			if depth > limit {
				return fmt.Errorf("%w: depth %d at offset %d (max %d)", ErrJSONTooDeep, depth, i, limit)
			}
		case '}', ']':
			if depth > 0 {
				depth--
			}
		}
	}
	return nil
}
