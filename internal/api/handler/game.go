package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/triviagame/internal/api/apierr"
	"github.com/mcoot/triviagame/internal/api/middleware"
	"github.com/mcoot/triviagame/internal/api/request"
	"github.com/mcoot/triviagame/internal/api/response"
	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/services/advancer"
	"github.com/mcoot/triviagame/internal/services/session"
)

// GameHandler handles game-related endpoints
type GameHandler struct {
	controller *session.Controller
	advancer   *advancer.Service
}

// NewGameHandler creates a new game handler
func NewGameHandler(controller *session.Controller, advancer *advancer.Service) *GameHandler {
	return &GameHandler{
		controller: controller,
		advancer:   advancer,
	}
}

func gameID(r *http.Request) model.GameID {
	return model.GameID(mux.Vars(r)["id"])
}

// Create handles POST /api/v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.CreateGameRequest
	if err := decode(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}

	detail, err := h.controller.CreateGame(r.Context(), player.ID, model.CategoryID(req.CategoryID), req.QuestionCount)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.GameFromDetail(detail))
}

// ListMine handles GET /api/v1/games
func (h *GameHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	games, err := h.controller.ListPlayerGames(r.Context(), player.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerGamesFromModel(games))
}

// ListLive handles GET /api/v1/games/live
func (h *GameHandler) ListLive(w http.ResponseWriter, r *http.Request) {
	games, err := h.controller.ListLiveGames(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.Poll(w, response.GameListFromSummaries(games))
}

// Get handles GET /api/v1/games/{id}. Clients poll this for the current question.
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	snap, err := h.controller.CurrentQuestionView(r.Context(), gameID(r), player.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.Poll(w, response.SnapshotFromView(snap))
}

// Join handles POST /api/v1/games/{id}/join
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	p, err := h.controller.Join(r.Context(), gameID(r), player.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ParticipationFromModel(p))
}

// Begin handles POST /api/v1/games/{id}/begin
func (h *GameHandler) Begin(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	detail, err := h.controller.Begin(r.Context(), gameID(r), player.ID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromDetail(detail))
}

// Answer handles POST /api/v1/games/{id}/answers
func (h *GameHandler) Answer(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.SubmitAnswerRequest
	if err := decode(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}
	if req.Answer == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("answer is required"))
		return
	}

	answer, err := h.controller.SubmitAnswer(r.Context(), gameID(r), player.ID, req.Answer)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AnswerReceiptFromModel(answer))
}

// Advance handles POST /api/v1/games/{id}/advance. A stale position is not an
// error: the response reports a noop outcome.
func (h *GameHandler) Advance(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.AdvanceRequest
	if err := decode(w, r, &req); err != nil {
		apierr.WriteError(w, err)
		return
	}
	if req.Position == nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("position is required"))
		return
	}

	result, err := h.advancer.Advance(r.Context(), gameID(r), player.ID, *req.Position)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AdvanceResponseFromModel(result))
}
