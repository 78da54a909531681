package agent

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/market"
	"ekon-lab/internal/strategy"
)

// stepClock advances by step on every Now call.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

type emptyWorld struct{}

func (emptyWorld) NodeCount() int         { return 1 }
func (emptyWorld) Neighbours(int) []int   { return nil }
func (emptyWorld) Market(int) market.View { return market.New(nil) }

func newAgent(fn func(ctx context.Context, turn *strategy.Turn, mem strategy.Memory) (*domain.ActionBundle, error)) *Agent {
	s := &strategy.Func{ID: "test", Fn: fn}
	return New(s, 100, 0, rand.New(rand.NewPCG(1, 2)))
}

func TestInvoke_Success(t *testing.T) {
	want := &domain.ActionBundle{MoveTo: domain.MoveTo(0)}
	a := newAgent(func(context.Context, *strategy.Turn, strategy.Memory) (*domain.ActionBundle, error) {
		return want, nil
	})
	clock := &stepClock{step: 5 * time.Millisecond}

	got, terr := a.Invoke(context.Background(), domain.Meta{TotalRounds: 3}, emptyWorld{}, clock)
	require.Nil(t, terr)
	assert.Same(t, want, got)
	assert.Equal(t, 5*time.Millisecond, a.DecisionTime)
	assert.Zero(t, a.Failures)
}

func TestInvoke_Failures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		fn   func(context.Context, *strategy.Turn, strategy.Memory) (*domain.ActionBundle, error)
		kind TurnErrorKind
	}{
		{
			name: "error",
			fn: func(context.Context, *strategy.Turn, strategy.Memory) (*domain.ActionBundle, error) {
				return nil, boom
			},
			kind: KindError,
		},
		{
			name: "panic",
			fn: func(context.Context, *strategy.Turn, strategy.Memory) (*domain.ActionBundle, error) {
				panic("bad strategy")
			},
			kind: KindPanic,
		},
		{
			name: "nil bundle",
			fn: func(context.Context, *strategy.Turn, strategy.Memory) (*domain.ActionBundle, error) {
				return nil, nil
			},
			kind: KindNilBundle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAgent(tt.fn)
			clock := &stepClock{step: time.Millisecond}

			got, terr := a.Invoke(context.Background(), domain.Meta{CurrentRound: 2, TotalRounds: 5}, emptyWorld{}, clock)
			assert.Nil(t, got)
			require.NotNil(t, terr)
			assert.Equal(t, tt.kind, terr.Kind)
			assert.Equal(t, "test", terr.Agent)
			assert.Equal(t, 2, terr.Round)
			assert.Equal(t, 1, a.Failures)
			assert.Equal(t, time.Millisecond, a.DecisionTime, "time is recorded for failed turns")
			assert.Equal(t, int64(100), a.Coin)
		})
	}
}

func TestInvoke_ErrorUnwraps(t *testing.T) {
	boom := errors.New("boom")
	a := newAgent(func(context.Context, *strategy.Turn, strategy.Memory) (*domain.ActionBundle, error) {
		return nil, boom
	})
	_, terr := a.Invoke(context.Background(), domain.Meta{TotalRounds: 1}, emptyWorld{}, SystemClock{})
	require.NotNil(t, terr)
	assert.ErrorIs(t, terr, boom)
	assert.Contains(t, terr.Error(), "round 0")
}

func TestInvoke_SelfIsCopy(t *testing.T) {
	a := newAgent(func(_ context.Context, turn *strategy.Turn, _ strategy.Memory) (*domain.ActionBundle, error) {
		turn.Self.Holdings["GOLD"] = 1000
		turn.Self.Coin = 1 << 40
		return domain.Stay(), nil
	})
	a.Holdings["GOLD"] = 3

	_, terr := a.Invoke(context.Background(), domain.Meta{TotalRounds: 1}, emptyWorld{}, SystemClock{})
	require.Nil(t, terr)
	assert.Equal(t, int64(3), a.Held("GOLD"))
	assert.Equal(t, int64(100), a.Coin)
}

func TestInvoke_MemoryPersists(t *testing.T) {
	a := newAgent(func(_ context.Context, _ *strategy.Turn, mem strategy.Memory) (*domain.ActionBundle, error) {
		n, _ := mem["calls"].(int)
		mem["calls"] = n + 1
		return domain.Stay(), nil
	})
	for i := 0; i < 3; i++ {
		_, terr := a.Invoke(context.Background(), domain.Meta{CurrentRound: i, TotalRounds: 3}, emptyWorld{}, SystemClock{})
		require.Nil(t, terr)
	}
	assert.Equal(t, 3, a.Memory["calls"])
}

func TestSnapshot_Copies(t *testing.T) {
	a := newAgent(nil)
	a.Holdings["CAKE"] = 2
	snap := a.Snapshot()
	snap.Holdings["CAKE"] = 9

	assert.Equal(t, "test", snap.Name)
	assert.Equal(t, int64(2), a.Held("CAKE"))
	assert.Zero(t, a.Profit())
}
