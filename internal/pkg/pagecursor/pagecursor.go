// Package pagecursor encodes page positions as opaque URL-safe tokens.
package pagecursor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalid = errors.New("invalid page cursor")

func Encode(position any) (string, error) {
	payload, err := json.Marshal(position)
	if err != nil {
		return "", fmt.Errorf("marshal page cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// Decode fills position from raw. A blank raw value reports false and leaves position
// untouched.
func Decode(raw string, position any) (bool, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return false, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return false, ErrInvalid
	}
	if err := json.Unmarshal(data, position); err != nil {
		return false, ErrInvalid
	}
	return true, nil
}
