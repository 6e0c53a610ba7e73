package generation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Cheertaboi/coupon-studio/internal/inference"
)

// Client is the slice of the inference API a Session drives.
type Client interface {
	StatusFetcher
	CreateImagePrediction(ctx context.Context, prompt string) (*inference.Prediction, error)
	CreateModelPrediction(ctx context.Context, imageURL string) (*inference.Prediction, error)
}

// Status is the latest known state of one slot.
type Status struct {
	Kind         Kind      `json:"kind"`
	PredictionID string    `json:"predictionId,omitempty"`
	State        State     `json:"state"`
	Message      string    `json:"message,omitempty"`
	URL          string    `json:"url,omitempty"`
	Polls        int       `json:"polls"`
	StartedAt    time.Time `json:"startedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session holds at most one job per slot for a single user.
type Session struct {
	ctx      context.Context
	client   Client
	clock    Clock
	policies map[Kind]Policy

	startMu sync.Mutex // serialises Start per session

	mu      sync.Mutex
	jobs    map[Kind]*Job
	gens    map[Kind]uint64
	status  map[Kind]Status
	touched time.Time
}

func newSession(ctx context.Context, client Client, clock Clock, policies map[Kind]Policy) *Session {
	return &Session{
		ctx:      ctx,
		client:   client,
		clock:    clock,
		policies: policies,
		jobs:     make(map[Kind]*Job),
		gens:     make(map[Kind]uint64),
		status:   make(map[Kind]Status),
		touched:  clock.Now(),
	}
}

// Start creates a prediction for kind from input (a prompt for images, an
// image URL for models) and polls it. A job already running in the slot
// is cancelled first.
func (s *Session) Start(ctx context.Context, kind Kind, input string) (Status, error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	old := s.jobs[kind]
	s.mu.Unlock()
	if old != nil {
		old.CancelWith(MsgReplaced)
	}

	var (
		pred *inference.Prediction
		err  error
	)
	switch kind {
	case KindImage:
		pred, err = s.client.CreateImagePrediction(ctx, input)
	case KindModel:
		pred, err = s.client.CreateModelPrediction(ctx, input)
	default:
		err = fmt.Errorf("unknown generation kind %q", kind)
	}
	if err != nil {
		return Status{}, err
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.gens[kind]++
	gen := s.gens[kind]
	s.status[kind] = Status{
		Kind:         kind,
		PredictionID: pred.ID,
		State:        StatePolling,
		Message:      fmt.Sprintf("%s status: %s (0s)", kind.title(), pred.Status),
		StartedAt:    now,
		UpdatedAt:    now,
	}
	job := StartJob(s.ctx, JobConfig{
		Kind:         kind,
		PredictionID: pred.ID,
		Policy:       s.policies[kind],
		Fetcher:      s.client,
		Clock:        s.clock,
	}, func(ev Event) { s.record(kind, gen, ev) })
	s.jobs[kind] = job
	s.touched = now
	st := s.status[kind]
	s.mu.Unlock()

	log.Info().Str("kind", string(kind)).Str("prediction_id", pred.ID).Msg("generation started")
	return st, nil
}

func (s *Session) record(kind Kind, gen uint64, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[kind] != gen {
		return
	}
	st := s.status[kind]
	st.State = ev.State
	st.Message = ev.Message
	st.Polls = ev.Polls
	st.UpdatedAt = s.clock.Now()
	s.touched = st.UpdatedAt
	if ev.URL != "" {
		st.URL = ev.URL
	}
	s.status[kind] = st
	if ev.State.Terminal() {
		delete(s.jobs, kind)
	}
}

// Status returns the latest state of the slot. ok is false when nothing
// was ever started there.
func (s *Session) Status(kind Kind) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[kind]
	return st, ok
}

// Cancel stops the slot's running job. It reports whether one was running.
func (s *Session) Cancel(kind Kind) bool {
	s.mu.Lock()
	job := s.jobs[kind]
	s.mu.Unlock()
	if job == nil {
		return false
	}
	job.Cancel()
	return true
}

// Job returns the running job in the slot, if any.
func (s *Session) Job(kind Kind) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[kind]
}

// idle reports whether no job is running and nothing happened since cutoff.
func (s *Session) idle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs) == 0 && s.touched.Before(cutoff)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.touched = now
	s.mu.Unlock()
}

func (s *Session) cancelAll(reason string) {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()
	for _, j := range jobs {
		j.CancelWith(reason)
	}
}

// SessionIdleTTL is how long a session with no running job keeps its
// last statuses before the registry forgets it.
const SessionIdleTTL = 30 * time.Minute

// Registry keeps one Session per user. Idle sessions are pruned lazily
// from For, at most once per pruneEvery.
type Registry struct {
	ctx      context.Context
	cancel   context.CancelFunc
	client   Client
	clock    Clock
	policies map[Kind]Policy

	idleTTL    time.Duration
	pruneEvery time.Duration

	mu        sync.Mutex
	sessions  map[string]*Session
	lastPrune time.Time
}

func NewRegistry(client Client) *Registry {
	return NewRegistryWithClock(client, RealClock, nil)
}

// NewRegistryWithClock overrides the clock and, for any kind present in
// policies, the polling policy.
func NewRegistryWithClock(client Client, clock Clock, policies map[Kind]Policy) *Registry {
	merged := map[Kind]Policy{KindImage: PolicyFor(KindImage), KindModel: PolicyFor(KindModel)}
	for k, p := range policies {
		merged[k] = p
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		ctx:        ctx,
		cancel:     cancel,
		client:     client,
		clock:      clock,
		policies:   merged,
		idleTTL:    SessionIdleTTL,
		pruneEvery: time.Minute,
		sessions:   make(map[string]*Session),
		lastPrune:  clock.Now(),
	}
}

// For returns the user's session, creating it on first use.
func (r *Registry) For(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	if now.Sub(r.lastPrune) >= r.pruneEvery {
		r.pruneLocked(now)
	}
	s, ok := r.sessions[userID]
	if !ok {
		s = newSession(r.ctx, r.client, r.clock, r.policies)
		r.sessions[userID] = s
	}
	s.touch(now)
	return s
}

// Prune drops sessions idle for longer than SessionIdleTTL and returns how
// many were removed.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruneLocked(r.clock.Now())
}

func (r *Registry) pruneLocked(now time.Time) int {
	r.lastPrune = now
	cutoff := now.Add(-r.idleTTL)
	n := 0
	for id, s := range r.sessions {
		if s.idle(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	if n > 0 {
		log.Debug().Int("sessions", n).Msg("pruned idle generation sessions")
	}
	return n
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close cancels every running job.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.cancelAll("Generation stopped, server shutting down")
	}
	r.cancel()
}
