package replay

import (
	"fmt"
	"sort"

	"ekon-lab/internal/domain"
)

// Divergence is one resource whose total differs from the first frame.
type Divergence struct {
	Round    int    `json:"round"`
	Resource string `json:"resource"`
	Expected int64  `json:"expected"`
	Actual   int64  `json:"actual"`
}

// Report summarises a verified recording.
type Report struct {
	Frames        int              `json:"frames"`
	FirstRound    int              `json:"first_round"`
	LastRound     int              `json:"last_round"`
	Totals        map[string]int64 `json:"totals"` // per-resource totals of the first frame
	Accepted      int              `json:"accepted"`
	Rejected      int              `json:"rejected"`
	TurnFailures  int              `json:"turn_failures"`
	Divergences   []Divergence     `json:"divergences,omitempty"`
	NegativeState []string         `json:"negative_state,omitempty"`
}

// OK reports whether the recording passed every check.
func (r *Report) OK() bool {
	return len(r.Divergences) == 0 && len(r.NegativeState) == 0
}

// Verify checks round order, per-resource conservation against the first
// frame and non-negativity. It returns the report and the first failed
// check as an error.
func Verify(frames []*domain.RoundFrame) (*Report, error) {
	if len(frames) == 0 {
		return nil, ErrEmptyRecording
	}

	rep := &Report{
		Frames:     len(frames),
		FirstRound: frames[0].Round,
		LastRound:  frames[len(frames)-1].Round,
		Totals:     frames[0].ResourceTotals(),
	}

	for i, f := range frames {
		if f.Round != i {
			return rep, fmt.Errorf("%w: frame %d has round %d", ErrInvalidOrdering, i, f.Round)
		}
		for _, e := range f.Events {
			switch {
			case e.Type == domain.ActionError:
				rep.TurnFailures++
			case e.Accepted:
				rep.Accepted++
			default:
				rep.Rejected++
			}
		}
		rep.Divergences = append(rep.Divergences, diverging(f.Round, rep.Totals, f.ResourceTotals())...)
		rep.NegativeState = append(rep.NegativeState, negatives(&f.RoundSnapshot)...)
	}

	if len(rep.Divergences) > 0 {
		d := rep.Divergences[0]
		return rep, fmt.Errorf("%w: round %d %s expected %d got %d", ErrConservation, d.Round, d.Resource, d.Expected, d.Actual)
	}
	if len(rep.NegativeState) > 0 {
		return rep, fmt.Errorf("%w: %s", ErrNegativeState, rep.NegativeState[0])
	}
	return rep, nil
}

// VerifyConservation checks only that per-resource totals never change.
func VerifyConservation(frames []*domain.RoundFrame) error {
	if len(frames) == 0 {
		return ErrEmptyRecording
	}
	want := frames[0].ResourceTotals()
	for _, f := range frames[1:] {
		if d := diverging(f.Round, want, f.ResourceTotals()); len(d) > 0 {
			return fmt.Errorf("%w: round %d %s expected %d got %d", ErrConservation, d[0].Round, d[0].Resource, d[0].Expected, d[0].Actual)
		}
	}
	return nil
}

func diverging(round int, want, got map[string]int64) []Divergence {
	keys := make(map[string]struct{}, len(want))
	for k := range want {
		keys[k] = struct{}{}
	}
	for k := range got {
		keys[k] = struct{}{}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	var out []Divergence
	for _, res := range names {
		if want[res] != got[res] {
			out = append(out, Divergence{Round: round, Resource: res, Expected: want[res], Actual: got[res]})
		}
	}
	return out
}

func negatives(s *domain.RoundSnapshot) []string {
	var out []string
	for _, a := range s.Agents {
		if a.Coin < 0 {
			out = append(out, fmt.Sprintf("round %d agent %s coin %d", s.Round, a.Name, a.Coin))
		}
		for res, q := range a.Holdings {
			if q < 0 {
				out = append(out, fmt.Sprintf("round %d agent %s %s %d", s.Round, a.Name, res, q))
			}
		}
	}
	for node, m := range s.Markets {
		for res, l := range m {
			if l.Quantity < 0 {
				out = append(out, fmt.Sprintf("round %d node %d %s %d", s.Round, node, res, l.Quantity))
			}
		}
	}
	sort.Strings(out)
	return out
}
