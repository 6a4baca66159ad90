package id

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// Generate creates a random ID (12 characters, URL-safe)
func Generate() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return strings.ToLower(base32.StdEncoding.EncodeToString(bytes))[:12]
}

// GenerateRoomCode creates a 6-character [A-Z0-9] room code. Collisions are
// handled by the caller retrying against the room registry.
func GenerateRoomCode() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	bytes := make([]byte, 6)
	rand.Read(bytes)

	for i := 0; i < 6; i++ {
		code[i] = chars[int(bytes[i])%len(chars)]
	}

	return string(code)
}
