package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle of a checkout attempt.
type State string

const (
	StateInitiated       State = "INITIATED"
	StateAwaitingReturn  State = "AWAITING_RETURN"
	StateReturnedSuccess State = "RETURNED_SUCCESS"
	StateReturnedFailure State = "RETURNED_FAILURE"
)

var ErrInvalidTransition = errors.New("invalid checkout state transition")

var transitions = map[State][]State{
	StateInitiated:      {StateAwaitingReturn},
	StateAwaitingReturn: {StateReturnedSuccess, StateReturnedFailure},
}

func (s State) Terminal() bool {
	return s == StateReturnedSuccess || s == StateReturnedFailure
}

func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Attempt is one submission to the payment provider. It lives only in memory.
type Attempt struct {
	ID          string    `json:"id"`
	State       State     `json:"state"`
	CheckoutURL string    `json:"checkoutUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newAttempt(now time.Time) *Attempt {
	return &Attempt{
		ID:        uuid.New().String(),
		State:     StateInitiated,
		CreatedAt: now,
	}
}

// Transition moves the attempt to next if the lifecycle allows it.
func (a *Attempt) Transition(next State) error {
	if !a.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.State, next)
	}
	a.State = next
	return nil
}
