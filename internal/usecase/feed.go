package usecase

import (
	"context"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/game"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/player"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/sport"
)

// ProjectionQuery selects what a feed fetch returns. Name and stat type filters are applied
// while the upstream document is normalized.
type ProjectionQuery struct {
	SportID    int64
	PlayerName string
	StatType   string
}

// FeedBatch is one normalized upstream projections document. Slices keep first-seen order.
type FeedBatch struct {
	Projections []projection.Projection
	Players     []player.Player
	Games       []game.Game
	Skipped     int
}

// ProjectionFeed is the upstream source of sports and projections.
type ProjectionFeed interface {
	FetchSports(ctx context.Context) ([]sport.Sport, error)
	FetchProjections(ctx context.Context, query ProjectionQuery) (FeedBatch, error)
}
