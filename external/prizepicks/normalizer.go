package prizepicks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/game"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/player"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/sport"
	"github.com/riskibarqy/prizepicks-feed/internal/platform/logging"
	"github.com/riskibarqy/prizepicks-feed/internal/usecase"
)

const (
	unknownPlayerName = "Unknown Player"
	unknownValue      = "Unknown"
)

type projectionRecord struct {
	ID         string  `validate:"required"`
	PlayerID   string  `validate:"required"`
	LeagueID   string  `validate:"required,numeric"`
	PlayerName string  `validate:"required"`
	StatType   string  `validate:"required"`
	LineScore  float64 `validate:"gte=0"`
}

type leagueRecord struct {
	ID   int64  `validate:"gt=0"`
	Name string `validate:"required"`
}

type NormalizerConfig struct {
	// MaxRecords caps projections kept per document after filtering. Zero keeps all.
	MaxRecords int
	Logger     *logging.Logger
}

// Normalizer flattens relational upstream documents into domain entities.
type Normalizer struct {
	maxRecords int
	logger     *logging.Logger
	validate   *validator.Validate
	now        func() time.Time
}

func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Normalizer{
		maxRecords: max(cfg.MaxRecords, 0),
		logger:     logger,
		validate:   validator.New(),
		now:        time.Now,
	}
}

// Projections converts a projections document. Records failing decoding or schema
// validation are skipped and counted; the rest of the batch is kept. A repeated
// projection id keeps its first occurrence.
func (n *Normalizer) Projections(ctx context.Context, doc Document, query usecase.ProjectionQuery) usecase.FeedBatch {
	out := usecase.FeedBatch{
		Projections: make([]projection.Projection, 0, len(doc.Data)),
	}
	for _, bad := range doc.Malformed {
		if bad.Section == "data" {
			n.skip(ctx, &out, bad.ID, bad.Err)
			continue
		}
		n.logger.WarnContext(ctx, "drop malformed included record", "resource_id", bad.ID, "error", bad.Err)
	}

	players := make(map[string]Resource)
	leagues := make(map[string]Resource)
	games := make(map[string]Resource)
	for _, item := range doc.Included {
		switch item.Type {
		case typePlayer:
			players[string(item.ID)] = item
		case typeLeague:
			leagues[string(item.ID)] = item
		case typeGame:
			games[string(item.ID)] = item
		}
	}

	nameFilter := strings.ToLower(strings.TrimSpace(query.PlayerName))
	statFilter := strings.TrimSpace(query.StatType)
	updatedAt := n.now().UTC()

	playerIndex := make(map[string]int)
	gameIndex := make(map[string]int)
	seen := make(map[string]struct{}, len(doc.Data))

	for _, item := range doc.Data {
		if item.Type != "" && item.Type != typeProjection {
			continue
		}
		if n.maxRecords > 0 && len(out.Projections) >= n.maxRecords {
			break
		}

		playerID, _ := item.relatedID("new_player")
		leagueID, _ := item.relatedID("league")
		gameID, hasGame := item.relatedID("game")

		playerRes, playerFound := players[playerID]
		playerName := unknownPlayerName
		if playerFound {
			if name, ok := playerRes.attrString("name"); ok && name != "" {
				playerName = name
			}
		}
		if nameFilter != "" && !strings.Contains(strings.ToLower(playerName), nameFilter) {
			continue
		}

		statType, ok := item.attrString("stat_type")
		if !ok || statType == "" {
			statType = unknownValue
		}
		if statFilter != "" && !strings.EqualFold(statType, statFilter) {
			continue
		}

		lineScore, numeric := item.attrFloat("line_score")
		record := projectionRecord{
			ID:         string(item.ID),
			PlayerID:   playerID,
			LeagueID:   leagueID,
			PlayerName: playerName,
			StatType:   statType,
			LineScore:  lineScore,
		}
		if !numeric {
			n.skip(ctx, &out, record.ID, fmt.Errorf("line_score is not numeric"))
			continue
		}
		if err := n.validate.Struct(record); err != nil {
			n.skip(ctx, &out, record.ID, err)
			continue
		}
		sportID, err := strconv.ParseInt(leagueID, 10, 64)
		if err != nil {
			n.skip(ctx, &out, record.ID, fmt.Errorf("parse league id: %w", err))
			continue
		}
		if query.SportID > 0 && sportID != query.SportID {
			continue
		}

		sportName := unknownValue
		if league, found := leagues[leagueID]; found {
			if name, ok := league.attrString("name"); ok && name != "" {
				sportName = name
			}
		}

		opponent := ""
		gameStatus := ""
		if hasGame {
			if gameRes, found := games[gameID]; found {
				opponent, _ = gameRes.attrString("away_team")
				gameStatus, _ = gameRes.attrString("status")
			}
		}

		description, _ := item.attrString("description")
		rawStart, _ := item.attrString("start_time")

		entity := projection.Projection{
			ID:          record.ID,
			PlayerID:    playerID,
			PlayerName:  playerName,
			SportID:     sportID,
			SportName:   sportName,
			GameID:      gameID,
			StatType:    statType,
			LineScore:   lineScore,
			Description: description,
			StartTime:   parseStartTime(rawStart),
			IsActive:    item.attrBool("is_active", true),
			Opponent:    opponent,
			UpdatedAt:   updatedAt,
		}
		if err := entity.Validate(); err != nil {
			n.skip(ctx, &out, record.ID, err)
			continue
		}
		if _, dup := seen[entity.ID]; dup {
			n.skip(ctx, &out, record.ID, fmt.Errorf("duplicate projection id"))
			continue
		}
		seen[entity.ID] = struct{}{}
		out.Projections = append(out.Projections, entity)

		summary := player.ProjectionSummary{
			ID:        entity.ID,
			StatType:  entity.StatType,
			LineScore: entity.LineScore,
			GameID:    entity.GameID,
			StartTime: entity.StartTime,
			IsActive:  entity.IsActive,
			Opponent:  entity.Opponent,
		}
		if idx, seen := playerIndex[playerID]; seen {
			out.Players[idx].Projections = append(out.Players[idx].Projections, summary)
		} else {
			p := player.Player{
				ID:          playerID,
				Name:        playerName,
				SportID:     sportID,
				SportName:   sportName,
				Projections: []player.ProjectionSummary{summary},
				UpdatedAt:   updatedAt,
			}
			if playerFound {
				p.Position, _ = playerRes.attrString("position")
				p.Team, _ = playerRes.attrString("team")
				p.ImageURL, _ = playerRes.attrString("image_url")
			}
			playerIndex[playerID] = len(out.Players)
			out.Players = append(out.Players, p)
		}

		if gameID == "" {
			continue
		}
		if idx, seen := gameIndex[gameID]; seen {
			out.Games[idx].PlayerIDs = game.MergePlayers(out.Games[idx].PlayerIDs, []string{playerID})
			continue
		}
		awayTeam := opponent
		if awayTeam == "" {
			awayTeam = game.UnknownTeam
		}
		gameIndex[gameID] = len(out.Games)
		out.Games = append(out.Games, game.Game{
			ID:        gameID,
			SportID:   sportID,
			SportName: sportName,
			HomeTeam:  game.UnknownTeam,
			AwayTeam:  awayTeam,
			StartTime: entity.StartTime,
			Status:    gameStatus,
			PlayerIDs: []string{playerID},
			UpdatedAt: updatedAt,
		})
	}

	return out
}

// Sports converts a leagues document into the sport catalog.
func (n *Normalizer) Sports(ctx context.Context, doc Document) []sport.Sport {
	for _, bad := range doc.Malformed {
		n.logger.WarnContext(ctx, "skip malformed league record", "league_id", bad.ID, "error", fmt.Errorf("%w: %v", usecase.ErrMalformedRecord, bad.Err))
	}

	out := make([]sport.Sport, 0, len(doc.Data))
	for _, item := range doc.Data {
		if item.Type != "" && item.Type != typeLeague {
			continue
		}

		id, err := strconv.ParseInt(string(item.ID), 10, 64)
		if err != nil {
			n.logger.WarnContext(ctx, "skip malformed league record", "league_id", string(item.ID), "error", fmt.Errorf("%w: parse id: %v", usecase.ErrMalformedRecord, err))
			continue
		}
		name, _ := item.attrString("name")
		if name == "" && sport.NameByID(id) != sport.UnknownName {
			name = sport.NameByID(id)
		}

		record := leagueRecord{ID: id, Name: name}
		if err := n.validate.Struct(record); err != nil {
			n.logger.WarnContext(ctx, "skip malformed league record", "league_id", string(item.ID), "error", fmt.Errorf("%w: %v", usecase.ErrMalformedRecord, err))
			continue
		}

		category, _ := item.attrString("category")
		out = append(out, sport.Sport{
			ID:       id,
			Name:     name,
			Category: category,
			Active:   item.attrBool("active", true),
		})
	}
	return out
}

func (n *Normalizer) skip(ctx context.Context, batch *usecase.FeedBatch, recordID string, cause error) {
	batch.Skipped++
	n.logger.WarnContext(ctx, "skip malformed projection record",
		"projection_id", recordID,
		"error", fmt.Errorf("%w: %v", usecase.ErrMalformedRecord, cause),
	)
}

func parseStartTime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	if strings.HasSuffix(value, "Z") {
		value = strings.TrimSuffix(value, "Z") + "+00:00"
	}

	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return &parsed
		}
	}
	return nil
}
