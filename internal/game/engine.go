// Package game implements the "Real or AI?" guessing game: one image per
// round is drawn from a labeled pool, the player guesses, and a running
// score is kept until it is reset.
package game

import (
	"math/rand"
	"sync"
)

// Phase is where the game currently is.
type Phase string

// Game phases.
const (
	PhaseIdle            Phase = "idle"
	PhaseAwaitingGuess   Phase = "awaiting_guess"
	PhaseShowingFeedback Phase = "showing_feedback"
)

// Feedback messages.
const (
	messageCorrect      = "Correct!"
	messageWrongAI      = "Wrong! This was AI-generated"
	messageWrongRealPic = "Wrong! This was a real photo"
)

// Rand picks a uniform index in [0, n).
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.Intn(n) }

// Feedback is the verdict on the last guess.
type Feedback struct {
	Correct bool   `json:"correct"`
	Message string `json:"message"`
}

// Score counts correct guesses out of all guesses.
type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// State is a snapshot of the game for rendering.
type State struct {
	Phase       Phase     `json:"phase"`
	CurrentItem *Item     `json:"current_item"`
	Feedback    *Feedback `json:"feedback"`
	Score       Score     `json:"score"`
	Started     bool      `json:"started"`
}

// Engine runs one player's game. Images are sampled with replacement, so
// repeats across rounds are expected.
type Engine struct {
	pool *Pool
	rng  Rand

	mu       sync.Mutex
	phase    Phase
	current  *Item
	feedback *Feedback
	score    Score
}

// NewEngine creates an idle game over pool. A nil rng uses the process-wide
// source.
func NewEngine(pool *Pool, rng Rand) *Engine {
	if rng == nil {
		rng = globalRand{}
	}
	return &Engine{pool: pool, rng: rng, phase: PhaseIdle}
}

// Start begins a game from Idle. The score of a previous session carries
// over unless Reset was called.
func (e *Engine) Start() (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseIdle {
		return e.stateLocked(), ErrInvalidTransition
	}
	e.drawLocked()
	return e.stateLocked(), nil
}

// Guess scores the player's answer for the current image.
func (e *Engine) Guess(isAI bool) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseAwaitingGuess || e.current == nil {
		return e.stateLocked(), ErrInvalidTransition
	}

	correct := isAI == e.current.IsAI
	e.score.Total++
	fb := &Feedback{Correct: correct, Message: messageCorrect}
	if correct {
		e.score.Correct++
	} else if e.current.IsAI {
		fb.Message = messageWrongAI
	} else {
		fb.Message = messageWrongRealPic
	}
	e.feedback = fb
	e.phase = PhaseShowingFeedback
	return e.stateLocked(), nil
}

// Next moves on to a fresh image after feedback was shown.
func (e *Engine) Next() (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseShowingFeedback {
		return e.stateLocked(), ErrInvalidTransition
	}
	e.drawLocked()
	return e.stateLocked(), nil
}

// Reset zeroes the score. During a game it also draws a new image; when idle
// it only forgets the last session's score.
func (e *Engine) Reset() (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.score = Score{}
	if e.phase != PhaseIdle {
		e.drawLocked()
	}
	return e.stateLocked(), nil
}

// Close ends the game. The score is kept for display as the last session.
func (e *Engine) Close() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.phase = PhaseIdle
	e.current = nil
	e.feedback = nil
	return e.stateLocked()
}

// State returns the current snapshot.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) drawLocked() {
	item := e.pool.At(e.rng.IntN(e.pool.Len()))
	e.current = &item
	e.feedback = nil
	e.phase = PhaseAwaitingGuess
}

func (e *Engine) stateLocked() State {
	st := State{
		Phase:   e.phase,
		Score:   e.score,
		Started: e.phase != PhaseIdle,
	}
	if e.current != nil {
		item := *e.current
		st.CurrentItem = &item
	}
	if e.feedback != nil {
		fb := *e.feedback
		st.Feedback = &fb
	}
	return st
}
