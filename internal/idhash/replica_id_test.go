package idhash

import (
	"testing"
)

func TestComputeReplicaID(t *testing.T) {
	tests := []struct {
		name    string
		runID   string
		index   int
		seed    uint64
		wantLen int // hash length should be 64
	}{
		{
			name:    "first replica",
			runID:   "0b5e1c44-8f0e-4c1b-9a55-3f0d2a1e7c90",
			index:   0,
			seed:    42,
			wantLen: 64,
		},
		{
			name:    "large seed",
			runID:   "run",
			index:   127,
			seed:    1<<64 - 1,
			wantLen: 64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeReplicaID(tt.runID, tt.index, tt.seed)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeReplicaID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeReplicaID(tt.runID, tt.index, tt.seed)
			if got != got2 {
				t.Errorf("ComputeReplicaID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeReplicaID_Uniqueness(t *testing.T) {
	ids := map[string]bool{
		ComputeReplicaID("run", 0, 1): true,
		ComputeReplicaID("run", 1, 1): true,
		ComputeReplicaID("run", 0, 2): true,
		ComputeReplicaID("nur", 0, 1): true,
	}
	if len(ids) != 4 {
		t.Errorf("expected 4 distinct IDs, got %d", len(ids))
	}
}

func TestReplicaSeed(t *testing.T) {
	seen := make(map[uint64]int)
	for i := 0; i < 1000; i++ {
		s := ReplicaSeed(42, i)
		if s != ReplicaSeed(42, i) {
			t.Fatalf("ReplicaSeed(42, %d) not deterministic", i)
		}
		if prev, dup := seen[s]; dup {
			t.Fatalf("ReplicaSeed collision between %d and %d", prev, i)
		}
		seen[s] = i
	}

	if ReplicaSeed(1, 0) == ReplicaSeed(2, 0) {
		t.Error("different run seeds gave the same replica seed")
	}
}
