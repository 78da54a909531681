package observer

import (
	"context"
	"log/slog"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/engine"
)

// Logger writes every sub-action and round end to a slog.Logger at debug level.
type Logger struct {
	log *slog.Logger
}

var (
	_ engine.Observer     = (*Logger)(nil)
	_ engine.RoundStarter = (*Logger)(nil)
)

// NewLogger wraps l. A nil l uses slog.Default().
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{log: l}
}

// OnRoundStart logs the round number.
func (l *Logger) OnRoundStart(round, totalRounds int) {
	l.log.Debug("round start", "round", round, "total_rounds", totalRounds)
}

// OnAgentAction logs one event. Rejections carry the reason.
func (l *Logger) OnAgentAction(e domain.ActionEvent) {
	attrs := []any{
		"round", e.Round,
		"agent", e.Agent,
		"type", string(e.Type),
		"accepted", e.Accepted,
	}
	switch e.Type {
	case domain.ActionSell, domain.ActionBuy:
		attrs = append(attrs, "resource", e.Resource, "quantity", e.Quantity, "price", e.Price, "node", e.From)
	case domain.ActionMove:
		attrs = append(attrs, "from", e.From, "to", e.To)
	}
	if e.Reason != "" {
		attrs = append(attrs, "reason", e.Reason)
	}
	l.log.Debug("agent action", attrs...)
}

// OnRoundEnd logs per-agent coin and always continues.
func (l *Logger) OnRoundEnd(_ context.Context, snap *domain.RoundSnapshot) bool {
	if !l.log.Enabled(context.Background(), slog.LevelDebug) {
		return true
	}
	coins := make([]any, 0, len(snap.Agents))
	for _, a := range snap.Agents {
		coins = append(coins, slog.Int64(a.Name, a.Coin))
	}
	l.log.Debug("round end", "round", snap.Round, slog.Group("coin", coins...))
	return true
}
