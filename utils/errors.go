package utils

import "errors"

// Validation errors returned to the submitting connection. None of these
// mutate room state and none are broadcast.
var (
	ErrIllegalMove     = errors.New("illegal move")
	ErrIllegalFormat   = errors.New("illegal format")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrAlreadyMoved    = errors.New("already moved")
	ErrNotAccepting    = errors.New("not accepting proposals")
	ErrOnlyWhiteStarts = errors.New("only white team can start")
	ErrBothTeamsNeeded = errors.New("both teams required")
	ErrGameOver        = errors.New("the game is over")
)

// Vote eligibility and lifecycle errors, surfaced to the voter only.
var (
	ErrVoteRunning    = errors.New("a vote is already running")
	ErrNoVoteRunning  = errors.New("no vote is running")
	ErrNotEligible    = errors.New("you cannot vote - joined late")
	ErrTargetNotFound = errors.New("target not found")
	ErrSelfKick       = errors.New("you cannot start a kick vote against yourself")
	ErrNoDrawOffer    = errors.New("no draw offer to accept")
	ErrUnknownVote    = errors.New("unknown vote type")
	ErrDrawPending    = errors.New("a draw offer is already pending")
)

// Session errors.
var (
	ErrEmptyName   = errors.New("empty name")
	ErrUnknownSide = errors.New("unknown side")
	ErrBlacklisted = errors.New("you have been removed from this room")
	ErrUnknownUser = errors.New("unknown user")
)

// Engine errors.
var (
	ErrEngineGone    = errors.New("engine process is gone")
	ErrEngineTimeout = errors.New("engine response timeout")
)
