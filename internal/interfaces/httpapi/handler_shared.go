package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/prizepicks-feed/internal/domain/game"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/player"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/projection"
	"github.com/riskibarqy/prizepicks-feed/internal/domain/sport"
	"github.com/riskibarqy/prizepicks-feed/internal/usecase"
)

const defaultPageSize = 20

type projectionQuery struct {
	SportID    *int64 `validate:"omitempty,gt=0"`
	PlayerName string `validate:"max=100"`
	StatType   string `validate:"max=100"`
	Page       int    `validate:"omitempty,gte=1"`
	PageSize   int    `validate:"omitempty,gte=1,lte=100"`
	paginated  bool
}

// pageRequest returns nil when neither page nor page_size was supplied.
func (q projectionQuery) pageRequest() *usecase.PageRequest {
	if !q.paginated {
		return nil
	}
	req := &usecase.PageRequest{Page: q.Page, PageSize: q.PageSize}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = defaultPageSize
	}
	return req
}

type refreshRequest struct {
	DispatchID string `json:"dispatch_id" validate:"omitempty,max=200"`
}

type sportDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Active   bool   `json:"active"`
}

type projectionDTO struct {
	ID          string     `json:"id"`
	PlayerID    string     `json:"player_id"`
	PlayerName  string     `json:"player_name"`
	SportID     int64      `json:"sport_id"`
	SportName   string     `json:"sport_name"`
	GameID      string     `json:"game_id,omitempty"`
	StatType    string     `json:"stat_type"`
	LineScore   float64    `json:"line_score"`
	Description string     `json:"description,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	IsActive    bool       `json:"is_active"`
	Opponent    string     `json:"opponent,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type playerDTO struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Position    string                     `json:"position,omitempty"`
	Team        string                     `json:"team,omitempty"`
	SportID     int64                      `json:"sport_id"`
	SportName   string                     `json:"sport_name"`
	ImageURL    string                     `json:"image_url,omitempty"`
	Projections []player.ProjectionSummary `json:"projections"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

type gameDTO struct {
	ID        string         `json:"id"`
	SportID   int64          `json:"sport_id"`
	SportName string         `json:"sport_name"`
	HomeTeam  string         `json:"home_team"`
	AwayTeam  string         `json:"away_team"`
	StartTime *time.Time     `json:"start_time,omitempty"`
	Status    string         `json:"status,omitempty"`
	Score     map[string]any `json:"score,omitempty"`
	Players   []string       `json:"players"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type projectionPageDTO struct {
	Items      []projectionDTO `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
	HasNext    bool            `json:"has_next"`
	HasPrev    bool            `json:"has_prev"`
}

type sportSummaryDTO struct {
	Sport            sportDTO        `json:"sport"`
	ProjectionsCount int             `json:"projections_count"`
	PlayersCount     int             `json:"players_count"`
	GamesCount       int             `json:"games_count"`
	Projections      []projectionDTO `json:"projections"`
	Players          []playerDTO     `json:"players"`
	Games            []gameDTO       `json:"games"`
}

func parsePathID(raw, name string) (int64, error) {
	value := strings.TrimSpace(raw)
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", usecase.ErrInvalidInput, name)
	}
	return id, nil
}

func parseOptionalSportID(r *http.Request) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("sport_id"))
	if raw == "" {
		return nil, nil
	}
	id, err := parsePathID(raw, "sport_id")
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseOptionalInt(r *http.Request, key string) (int, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be an integer", usecase.ErrInvalidInput, key)
	}
	if value < 1 {
		return 0, false, fmt.Errorf("%w: %s must be >= 1", usecase.ErrInvalidInput, key)
	}
	return value, true, nil
}

func decodeProjectionQuery(r *http.Request) (projectionQuery, error) {
	sportID, err := parseOptionalSportID(r)
	if err != nil {
		return projectionQuery{}, err
	}
	page, hasPage, err := parseOptionalInt(r, "page")
	if err != nil {
		return projectionQuery{}, err
	}
	pageSize, hasPageSize, err := parseOptionalInt(r, "page_size")
	if err != nil {
		return projectionQuery{}, err
	}

	values := r.URL.Query()
	return projectionQuery{
		SportID:    sportID,
		PlayerName: strings.TrimSpace(values.Get("player_name")),
		StatType:   strings.TrimSpace(values.Get("stat_type")),
		Page:       page,
		PageSize:   pageSize,
		paginated:  hasPage || hasPageSize,
	}, nil
}

func sportToDTO(v sport.Sport) sportDTO {
	return sportDTO{
		ID:       v.ID,
		Name:     v.Name,
		Category: v.Category,
		Active:   v.Active,
	}
}

func projectionToDTO(v projection.Projection) projectionDTO {
	return projectionDTO{
		ID:          v.ID,
		PlayerID:    v.PlayerID,
		PlayerName:  v.PlayerName,
		SportID:     v.SportID,
		SportName:   v.SportName,
		GameID:      v.GameID,
		StatType:    v.StatType,
		LineScore:   v.LineScore,
		Description: v.Description,
		StartTime:   v.StartTime,
		IsActive:    v.IsActive,
		Opponent:    v.Opponent,
		UpdatedAt:   v.UpdatedAt,
	}
}

func playerToDTO(v player.Player) playerDTO {
	projections := v.Projections
	if projections == nil {
		projections = []player.ProjectionSummary{}
	}
	return playerDTO{
		ID:          v.ID,
		Name:        v.Name,
		Position:    v.Position,
		Team:        v.Team,
		SportID:     v.SportID,
		SportName:   v.SportName,
		ImageURL:    v.ImageURL,
		Projections: projections,
		UpdatedAt:   v.UpdatedAt,
	}
}

func gameToDTO(v game.Game) gameDTO {
	players := v.PlayerIDs
	if players == nil {
		players = []string{}
	}
	return gameDTO{
		ID:        v.ID,
		SportID:   v.SportID,
		SportName: v.SportName,
		HomeTeam:  v.HomeTeam,
		AwayTeam:  v.AwayTeam,
		StartTime: v.StartTime,
		Status:    v.Status,
		Score:     v.Score,
		Players:   players,
		UpdatedAt: v.UpdatedAt,
	}
}

func projectionsToDTO(items []projection.Projection) []projectionDTO {
	out := make([]projectionDTO, 0, len(items))
	for _, item := range items {
		out = append(out, projectionToDTO(item))
	}
	return out
}

func projectionPageToDTO(page usecase.Page[projection.Projection]) projectionPageDTO {
	return projectionPageDTO{
		Items:      projectionsToDTO(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		HasNext:    page.HasNext,
		HasPrev:    page.HasPrev,
	}
}

func sportSummaryToDTO(v usecase.SportSummary) sportSummaryDTO {
	players := make([]playerDTO, 0, len(v.Players))
	for _, item := range v.Players {
		players = append(players, playerToDTO(item))
	}
	games := make([]gameDTO, 0, len(v.Games))
	for _, item := range v.Games {
		games = append(games, gameToDTO(item))
	}
	return sportSummaryDTO{
		Sport:            sportToDTO(v.Sport),
		ProjectionsCount: v.ProjectionsCount,
		PlayersCount:     v.PlayersCount,
		GamesCount:       v.GamesCount,
		Projections:      projectionsToDTO(v.Projections),
		Players:          players,
		Games:            games,
	}
}
