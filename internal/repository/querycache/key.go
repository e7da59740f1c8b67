package querycache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize lowercases, trims and collapses whitespace so that trivially
// different spellings of one question share a cache entry.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Key hashes the normalized query together with the context entity.
func Key(query, entity string) string {
	h := sha256.New()
	h.Write([]byte(Normalize(query)))
	h.Write([]byte{0})
	h.Write([]byte(entity))
	return hex.EncodeToString(h.Sum(nil))
}
