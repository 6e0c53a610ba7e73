package generation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/inference"
)

const (
	MsgCancelledByUser = "Generation cancelled by user"
	MsgReplaced        = "Generation replaced by a newer request"
)

type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
	StateTooLong   State = "too_long"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further events follow s.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateTooLong, StateCancelled:
		return true
	}
	return false
}

type EventType string

const (
	EventProgress EventType = "progress"
	EventSuccess  EventType = "success"
	EventFailure  EventType = "failure"
)

type Event struct {
	Type    EventType     `json:"type"`
	State   State         `json:"state"`
	Message string        `json:"message,omitempty"`
	URL     string        `json:"url,omitempty"`
	Polls   int           `json:"polls"`
	Elapsed time.Duration `json:"elapsed"`
}

// Handler receives job events. It is called with the job's lock held and
// must not call back into the job.
type Handler func(Event)

type StatusFetcher interface {
	GetPrediction(ctx context.Context, id string) (*inference.Prediction, error)
}

type JobConfig struct {
	Kind         Kind
	PredictionID string
	Policy       Policy
	Fetcher      StatusFetcher
	Clock        Clock
}

// Job polls one prediction until it reaches a terminal state. Exactly one
// terminal event is delivered.
type Job struct {
	cfg    JobConfig
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   State
	polls   int
	handler Handler
}

// StartJob begins polling in a new goroutine. The first status fetch
// happens one interval after the start.
func StartJob(parent context.Context, cfg JobConfig, handler Handler) *Job {
	if cfg.Clock == nil {
		cfg.Clock = RealClock
	}
	if cfg.Policy.Interval <= 0 {
		cfg.Policy = PolicyFor(cfg.Kind)
	}
	ctx, cancel := context.WithCancel(parent)
	j := &Job{
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		state:   StatePolling,
		handler: handler,
	}
	go j.run()
	return j
}

func (j *Job) Kind() Kind           { return j.cfg.Kind }
func (j *Job) PredictionID() string { return j.cfg.PredictionID }

// Done is closed when the polling goroutine has exited.
func (j *Job) Done() <-chan struct{} { return j.done }

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Cancel stops the job on behalf of the user.
func (j *Job) Cancel() {
	j.CancelWith(MsgCancelledByUser)
}

// CancelWith stops polling, aborts an in-flight fetch and reports a
// Cancelled terminal carrying reason. It is a no-op on a finished job.
func (j *Job) CancelWith(reason string) {
	j.emit(Event{Type: EventFailure, State: StateCancelled, Message: reason})
	j.cancel()
}

func (j *Job) run() {
	defer close(j.done)
	defer j.cancel()

	p := j.cfg.Policy
	var bo backoff.BackOff = backoff.NewConstantBackOff(p.Interval)
	if p.MaxPolls > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(p.MaxPolls))
	}
	bo.Reset()

	start := j.cfg.Clock.Now()
	kind := j.cfg.Kind
	for {
		next := bo.NextBackOff()
		wait := next
		if next == backoff.Stop {
			wait = p.Interval
		}

		select {
		case <-j.ctx.Done():
			j.emit(Event{Type: EventFailure, State: StateCancelled, Message: MsgCancelledByUser})
			return
		case <-j.cfg.Clock.After(wait):
		}

		j.mu.Lock()
		j.polls++
		j.mu.Unlock()

		elapsed := j.cfg.Clock.Now().Sub(start)
		if p.Timeout > 0 && elapsed > p.Timeout {
			j.emit(Event{Type: EventFailure, State: StateTimedOut,
				Message: fmt.Sprintf("%s generation timed out. Please try again with a simpler prompt.", kind), Elapsed: elapsed})
			return
		}
		if next == backoff.Stop {
			j.emit(Event{Type: EventFailure, State: StateTooLong,
				Message: fmt.Sprintf("%s generation is taking too long. Please try again.", kind), Elapsed: elapsed})
			return
		}

		pred, err := j.cfg.Fetcher.GetPrediction(j.ctx, j.cfg.PredictionID)
		if j.ctx.Err() != nil {
			// Cancelled while fetching. The result is stale.
			j.emit(Event{Type: EventFailure, State: StateCancelled, Message: MsgCancelledByUser})
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("prediction_id", j.cfg.PredictionID).Msg("prediction status fetch failed")
			j.emit(Event{Type: EventProgress, State: StatePolling,
				Message: fmt.Sprintf("Error checking %s generation status: %v", kind, err), Elapsed: elapsed})
			continue
		}

		switch pred.Status {
		case inference.StatusSucceeded:
			j.finishSuccess(pred, elapsed)
			return
		case inference.StatusFailed, inference.StatusCanceled:
			reason := pred.ErrorMessage()
			if reason == "" {
				reason = "Unknown error"
			}
			j.emit(Event{Type: EventFailure, State: StateFailed,
				Message: fmt.Sprintf("%s generation failed: %s", kind, reason), Elapsed: elapsed})
			return
		default:
			j.emit(Event{Type: EventProgress, State: StatePolling,
				Message: fmt.Sprintf("%s status: %s (%ds)", kind.title(), pred.Status, int(math.Round(elapsed.Seconds()))),
				Elapsed: elapsed})
		}
	}
}

func (j *Job) finishSuccess(pred *inference.Prediction, elapsed time.Duration) {
	var (
		url string
		err error
	)
	if j.cfg.Kind == KindImage {
		url, err = ExtractImageURL(pred.Output)
	} else {
		url, err = ExtractModelURL(pred.Output)
	}
	if err != nil {
		log.Warn().Err(err).Str("prediction_id", j.cfg.PredictionID).Msg("prediction output unusable")
		j.emit(Event{Type: EventFailure, State: StateFailed, Message: err.Error(), Elapsed: elapsed})
		return
	}
	j.emit(Event{Type: EventSuccess, State: StateSucceeded, URL: url, Elapsed: elapsed})
}

// emit delivers ev unless the job already reached a terminal state.
func (j *Job) emit(ev Event) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return false
	}
	ev.Polls = j.polls
	if ev.State.Terminal() {
		j.state = ev.State
	}
	if j.handler != nil {
		j.handler(ev)
	}
	return true
}
