package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// DeriveSeed derives a player's generator seed for a season from the server
// secret. Only the server can compute it; a client gets the seeded generator
// inside the state the server sends back, and from there both sides draw the
// same values.
func DeriveSeed(serverSeed, playerID string, season uint32) int32 {
	h := hmac.New(sha256.New, []byte(serverSeed))
	message := fmt.Sprintf("%s:%d", playerID, season)
	h.Write([]byte(message))
	sum := h.Sum(nil)
	return int32(binary.BigEndian.Uint32(sum[:4]))
}

// SeedHash returns the hex SHA-256 of the server seed, safe to log or publish.
func SeedHash(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return fmt.Sprintf("%x", sum[:])
}
