package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"wc3stats/internal/api"
	"wc3stats/internal/constants"
	"wc3stats/internal/domain"
	"wc3stats/internal/repository"
	"wc3stats/internal/service"

	"github.com/rs/zerolog"
)

// StatsServer exposes the ingest endpoint and the read API over the derived
// aggregates. Reads never touch the event log, so ingestion or aggregation
// outages only make responses stale, never unavailable.
type StatsServer struct {
	ingestSvc   *service.IngestService
	profileSvc  *service.ProfileService
	matchRepo   *repository.MatchRepository
	ongoingRepo *repository.OngoingMatchRepository
	logger      zerolog.Logger
}

func NewStatsServer(ingestSvc *service.IngestService, profileSvc *service.ProfileService, matchRepo *repository.MatchRepository, ongoingRepo *repository.OngoingMatchRepository, logger zerolog.Logger) *StatsServer {
	return &StatsServer{
		ingestSvc:   ingestSvc,
		profileSvc:  profileSvc,
		matchRepo:   matchRepo,
		ongoingRepo: ongoingRepo,
		logger:      logger,
	}
}

func (s *StatsServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/match-events", s.handleIngest)
	mux.HandleFunc("GET /api/players/{battleTag}/profile", s.handleProfile)
	mux.HandleFunc("GET /api/players/{battleTag}/overview", s.handleOverview)
	mux.HandleFunc("GET /api/players/{battleTag}/win-loss", s.handleWinLoss)
	mux.HandleFunc("GET /api/players/{battleTag}/race-ratios", s.handleRaceRatios)
	mux.HandleFunc("GET /api/players/{battleTag}/map-ratios", s.handleMapRatios)
	mux.HandleFunc("GET /api/players/{battleTag}/game-length", s.handleGameLength)
	mux.HandleFunc("GET /api/players/{battleTag}/mmr-timeline", s.handleMmrTimeline)
	mux.HandleFunc("GET /api/players/{battleTag}/matches", s.handlePlayerMatches)
	mux.HandleFunc("GET /api/rankings", s.handleRankings)
	mux.HandleFunc("GET /api/matches", s.handleMatches)
	mux.HandleFunc("GET /api/matches/ongoing", s.handleOngoingMatches)
	return mux
}

type ingestRequest struct {
	Events []api.MatchEventDTO `json:"events"`
}

type ingestResponse struct {
	LastID int64 `json:"lastId"`
}

func (s *StatsServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	events := make([]domain.MatchEvent, 0, len(req.Events))
	for _, dto := range req.Events {
		events = append(events, dto.ToDomain())
	}

	lastID, err := s.ingestSvc.Insert(r.Context(), events)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{LastID: lastID})
}

func (s *StatsServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	battleTag := r.PathValue("battleTag")
	season := queryInt(r, "season", 0)
	gateway := domain.Gateway(queryInt(r, "gateway", int(domain.GatewayEurope)))

	profile, err := s.profileSvc.GetProfile(r.Context(), battleTag, season, gateway)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *StatsServer) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.profileSvc.GetOverview(r.Context(), r.PathValue("battleTag"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *StatsServer) handleWinLoss(w http.ResponseWriter, r *http.Request) {
	winLoss, err := s.profileSvc.GetWinLoss(r.Context(), r.PathValue("battleTag"), queryInt(r, "season", 0))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, winLoss)
}

func (s *StatsServer) handleRaceRatios(w http.ResponseWriter, r *http.Request) {
	ratios, err := s.profileSvc.GetRaceRatios(r.Context(), r.PathValue("battleTag"),
		domain.Gateway(queryInt(r, "gateway", int(domain.GatewayEurope))), queryInt(r, "season", 0))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ratios)
}

type mapRatiosResponse struct {
	ByMap        []domain.RaceOnMapRatio           `json:"byMap"`
	ByMapAndRace []domain.RaceOnMapVersusRaceRatio `json:"byMapAndRace"`
}

func (s *StatsServer) handleMapRatios(w http.ResponseWriter, r *http.Request) {
	maps, mapRaces, err := s.profileSvc.GetMapRatios(r.Context(), r.PathValue("battleTag"),
		domain.Gateway(queryInt(r, "gateway", int(domain.GatewayEurope))), queryInt(r, "season", 0))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapRatiosResponse{ByMap: maps, ByMapAndRace: mapRaces})
}

type gameLengthResponse struct {
	OpponentRace   string `json:"opponentRace"`
	Games          int64  `json:"games"`
	AverageSeconds int64  `json:"averageSeconds"`
	MinSeconds     int64  `json:"minSeconds"`
	MaxSeconds     int64  `json:"maxSeconds"`
}

func (s *StatsServer) handleGameLength(w http.ResponseWriter, r *http.Request) {
	lengths, err := s.profileSvc.GetGameLength(r.Context(), r.PathValue("battleTag"), queryInt(r, "season", 0))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := make([]gameLengthResponse, 0, len(lengths))
	for _, gl := range lengths {
		resp = append(resp, gameLengthResponse{
			OpponentRace:   gl.OpponentRace.String(),
			Games:          gl.Games,
			AverageSeconds: gl.AverageSeconds(),
			MinSeconds:     gl.MinSeconds,
			MaxSeconds:     gl.MaxSeconds,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *StatsServer) handleMmrTimeline(w http.ResponseWriter, r *http.Request) {
	entries, err := s.profileSvc.GetMmrTimeline(r.Context(), r.PathValue("battleTag"),
		domain.Race(queryInt(r, "race", int(domain.RaceRandom))),
		domain.Gateway(queryInt(r, "gateway", int(domain.GatewayEurope))),
		queryInt(r, "season", 0),
		domain.GameMode(queryInt(r, "gameMode", int(domain.GameMode1v1))))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *StatsServer) handleRankings(w http.ResponseWriter, r *http.Request) {
	sort := repository.SortByMmr
	if r.URL.Query().Get("sort") == "rp" {
		sort = repository.SortByRp
	}

	page, err := s.profileSvc.GetRankings(r.Context(),
		queryInt(r, "season", 0),
		domain.Gateway(queryInt(r, "gateway", int(domain.GatewayEurope))),
		domain.GameMode(queryInt(r, "gameMode", int(domain.GameMode1v1))),
		sort,
		queryInt(r, "offset", 0),
		queryInt(r, "limit", 0))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type matchPageResponse struct {
	Matches []domain.FinishedMatch `json:"matches"`
	Total   int64                  `json:"total"`
}

func (s *StatsServer) handleMatches(w http.ResponseWriter, r *http.Request) {
	filter := repository.MatchFilter{
		GameMode: domain.GameMode(queryInt(r, "gameMode", int(domain.GameModeUndefined))),
		Gateway:  domain.Gateway(queryInt(r, "gateway", int(domain.GatewayUndefined))),
	}
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", constants.DefaultMatchPageSize)

	matches, err := s.matchRepo.List(r.Context(), filter, offset, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	total, err := s.matchRepo.Count(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if matches == nil {
		matches = []domain.FinishedMatch{}
	}
	writeJSON(w, http.StatusOK, matchPageResponse{Matches: matches, Total: total})
}

func (s *StatsServer) handlePlayerMatches(w http.ResponseWriter, r *http.Request) {
	battleTag := r.PathValue("battleTag")
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", constants.DefaultMatchPageSize)

	matches, err := s.matchRepo.ListForPlayer(r.Context(), battleTag, offset, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	total, err := s.matchRepo.CountForPlayer(r.Context(), battleTag)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if matches == nil {
		matches = []domain.FinishedMatch{}
	}
	writeJSON(w, http.StatusOK, matchPageResponse{Matches: matches, Total: total})
}

func (s *StatsServer) handleOngoingMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.ongoingRepo.List(r.Context(), queryInt(r, "offset", 0), queryInt(r, "limit", constants.DefaultOngoingPageSize))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (s *StatsServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("storage unavailable")
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}
