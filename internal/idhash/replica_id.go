// Package idhash derives deterministic identifiers and seeds with SHA-256.
package idhash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// ComputeReplicaID computes a deterministic replica_id using SHA256.
// Formula: SHA256(run_id|replica_index|seed)
// Returns hex-encoded hash (64 characters).
func ComputeReplicaID(runID string, index int, seed uint64) string {
	data := fmt.Sprintf("%s|%d|%d", runID, index, seed)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ReplicaSeed derives the seed of replica index from the run seed.
// Formula: first 8 bytes (big endian) of SHA256(run_seed|replica_index)
func ReplicaSeed(runSeed uint64, index int) uint64 {
	data := fmt.Sprintf("%d|%d", runSeed, index)

	hash := sha256.Sum256([]byte(data))
	return binary.BigEndian.Uint64(hash[:8])
}
