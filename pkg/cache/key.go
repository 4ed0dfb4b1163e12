package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// EmbedOptions identifies the embedding configuration a cached vector was
// produced with. It participates in key derivation, so two requests with
// different options never share a cache entry.
type EmbedOptions struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// Normalize canonicalizes text for key derivation. Requests differing only
// in surrounding whitespace or letter case map to the same entry.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Key derives the cache key for a (text, options) pair: a hash of the
// normalized text joined with a short hash of the serialized options.
func Key(text string, opts EmbedOptions) string {
	textSum := sha256.Sum256([]byte(Normalize(text)))
	optsJSON, _ := json.Marshal(opts)
	optsSum := sha256.Sum256(optsJSON)
	return hex.EncodeToString(textSum[:])[:32] + "-" + hex.EncodeToString(optsSum[:])[:8]
}
