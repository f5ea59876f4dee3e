package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/triviagame/internal/api/apierr"
	"github.com/mcoot/triviagame/internal/api/middleware"
	"github.com/mcoot/triviagame/internal/api/request"
	"github.com/mcoot/triviagame/internal/api/response"
	"github.com/mcoot/triviagame/internal/services/auth"
)

// PlayerHandler serves guest creation, registration, login and the current player
type PlayerHandler struct {
	authService *auth.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authService *auth.Service) *PlayerHandler {
	return &PlayerHandler{authService: authService}
}

// issueSession decodes a body of type T, asks start for a session and
// writes the token and player with the given status.
func issueSession[T any](status int, start func(ctx context.Context, req T) (*auth.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req T
		if err := decode(w, r, &req); err != nil {
			apierr.WriteError(w, err)
			return
		}

		session, err := start(r.Context(), req)
		if err != nil {
			apierr.WriteError(w, err)
			return
		}
		response.JSON(w, status, response.AuthResponseFromSession(session))
	}
}

// CreateGuest handles POST /api/v1/players/guest
func (h *PlayerHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	issueSession(http.StatusCreated, func(ctx context.Context, req request.CreateGuestRequest) (*auth.Session, error) {
		return h.authService.CreateGuestPlayer(ctx, req.DisplayName)
	})(w, r)
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	issueSession(http.StatusCreated, func(ctx context.Context, req request.RegisterRequest) (*auth.Session, error) {
		return h.authService.RegisterPlayer(ctx, req.Username, req.Password, req.DisplayName)
	})(w, r)
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	issueSession(http.StatusOK, func(ctx context.Context, req request.LoginRequest) (*auth.Session, error) {
		if req.Username == "" || req.Password == "" {
			return nil, apierr.NewInvalidRequestError("username and password are required")
		}
		return h.authService.Login(ctx, req.Username, req.Password)
	})(w, r)
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.PlayerFromModel(middleware.MustGetPlayer(r.Context())))
}
