package replay

import (
	"errors"
	"testing"

	"ekon-lab/internal/domain"
)

func frame(round int, marketQty, heldQty, coin int64) *domain.RoundFrame {
	return &domain.RoundFrame{
		RoundSnapshot: domain.RoundSnapshot{
			Round: round,
			Agents: []domain.AgentSnapshot{
				{Name: "a", Coin: coin, Holdings: map[string]int64{"Wood": heldQty}},
			},
			Markets: map[int]map[string]domain.Listing{
				0: {"Wood": {BuyPrice: 1, SellPrice: 2, Quantity: marketQty}},
			},
		},
		Events: []domain.ActionEvent{
			{Round: round, Agent: "a", Type: domain.ActionBuy, Accepted: true},
			{Round: round, Agent: "a", Type: domain.ActionSell, Accepted: false},
			{Round: round, Agent: "a", Type: domain.ActionError},
		},
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		frames  []*domain.RoundFrame
		wantErr error
	}{
		{"conserved", []*domain.RoundFrame{frame(0, 10, 0, 5), frame(1, 7, 3, 2), frame(2, 10, 0, 9)}, nil},
		{"empty", nil, ErrEmptyRecording},
		{"leak", []*domain.RoundFrame{frame(0, 10, 0, 5), frame(1, 7, 2, 2)}, ErrConservation},
		{"gap", []*domain.RoundFrame{frame(0, 10, 0, 5), frame(2, 10, 0, 5)}, ErrInvalidOrdering},
		{"negative coin", []*domain.RoundFrame{frame(0, 10, 0, 5), frame(1, 10, 0, -1)}, ErrNegativeState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := Verify(tt.frames)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && !rep.OK() {
				t.Errorf("expected OK report, got %+v", rep)
			}
		})
	}
}

func TestVerify_Report(t *testing.T) {
	rep, err := Verify([]*domain.RoundFrame{frame(0, 10, 0, 5), frame(1, 6, 4, 1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Frames != 2 || rep.LastRound != 1 {
		t.Errorf("frames = %d last = %d", rep.Frames, rep.LastRound)
	}
	if rep.Accepted != 2 || rep.Rejected != 2 || rep.TurnFailures != 2 {
		t.Errorf("accepted=%d rejected=%d failures=%d", rep.Accepted, rep.Rejected, rep.TurnFailures)
	}
	if rep.Totals["Wood"] != 10 {
		t.Errorf("totals = %v", rep.Totals)
	}
}

func TestVerify_ReportsDivergenceDetail(t *testing.T) {
	rep, err := Verify([]*domain.RoundFrame{frame(0, 10, 0, 5), frame(1, 10, 1, 5)})
	if !errors.Is(err, ErrConservation) {
		t.Fatalf("expected ErrConservation, got %v", err)
	}
	if len(rep.Divergences) != 1 {
		t.Fatalf("divergences = %v", rep.Divergences)
	}
	d := rep.Divergences[0]
	if d.Round != 1 || d.Resource != "Wood" || d.Expected != 10 || d.Actual != 11 {
		t.Errorf("divergence = %+v", d)
	}
}

func TestVerifyConservation(t *testing.T) {
	if err := VerifyConservation([]*domain.RoundFrame{frame(0, 4, 1, 0), frame(1, 0, 5, 0)}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := VerifyConservation([]*domain.RoundFrame{frame(0, 4, 1, 0), frame(1, 0, 4, 0)}); !errors.Is(err, ErrConservation) {
		t.Errorf("expected ErrConservation, got %v", err)
	}
}
