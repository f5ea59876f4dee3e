package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every entity-specific not-found error
var ErrNotFound = errors.New("not found")

// Common errors used across the application
var (
	// Lookup errors
	ErrGameNotFound     = fmt.Errorf("game %w", ErrNotFound)
	ErrPlayerNotFound   = fmt.Errorf("player %w", ErrNotFound)
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)

	// Lobby errors
	ErrNotHost        = errors.New("player is not the host")
	ErrNotParticipant = errors.New("player is not in this game")
	ErrAlreadyStarted = errors.New("game has already started")
	ErrAlreadyJoined  = errors.New("player has already joined this game")
	ErrGameExists     = errors.New("game id is already taken")

	// Round errors
	ErrGameNotStarted     = errors.New("game has not started")
	ErrQuestionNotStarted = errors.New("question has not started")
	ErrQuestionClosed     = errors.New("question is closed")
	ErrRoundInProgress    = errors.New("question is still open")
	ErrInvalidAnswer      = errors.New("answer is not one of the options")
	ErrDuplicateAnswer    = errors.New("question has already been answered")

	// ErrInvalidTimingState means a question became current without its window being opened.
	// It freezes the game for every player and must never be defaulted away.
	ErrInvalidTimingState = errors.New("invalid timing state")

	// Creation errors
	ErrInvalidQuestionCount = errors.New("invalid question count")
	ErrProviderUnavailable  = errors.New("question provider unavailable")
)
