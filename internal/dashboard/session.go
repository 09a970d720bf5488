package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/skywatch/internal/geo"
	"github.com/i474232898/skywatch/internal/weather"
)

var (
	// ErrSuperseded is returned for a request that finished after a newer one
	// was started in the same session. Its result is dropped.
	ErrSuperseded = errors.New("request superseded by a newer one")

	ErrSessionNotFound = errors.New("session not found")

	errEmptyQuery = errors.New("query has no location")
)

// Query selects the location of a lookup. City takes precedence over Coords,
// which takes precedence over Sensor.
type Query struct {
	City   string
	Coords *weather.Coordinates
	Sensor geo.Sensor
	Units  weather.Units
}

// Session serialises a user's lookups. Every lookup takes a new generation
// and cancels the one in flight; only the latest generation may publish.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	last       *Result
	lastActive time.Time
	running    int
}

func newSession(now time.Time) *Session {
	return &Session{ID: uuid.NewString(), CreatedAt: now.UTC(), lastActive: now}
}

// begin starts a new generation and cancels the previous one's context.
func (s *Session) begin(ctx context.Context, now time.Time) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.generation++
	s.running++
	s.lastActive = now
	return ctx, s.generation
}

func (s *Session) finish(now time.Time) {
	s.mu.Lock()
	s.running--
	s.lastActive = now
	s.mu.Unlock()
}

// idleSince reports whether the session has no lookup running and has not
// been used since t.
func (s *Session) idleSince(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running == 0 && s.lastActive.Before(t)
}

func (s *Session) stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

// commit publishes res if gen is still current.
func (s *Session) commit(gen uint64, res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return ErrSuperseded
	}
	s.last = &res
	return nil
}

// Generation is the number of lookups started in this session.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Last returns the most recently committed result.
func (s *Session) Last() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*Session), now: time.Now}
}

// NewSession opens a session for a display client.
func (d *Dashboard) NewSession() *Session {
	s := newSession(d.sessions.now())
	d.sessions.mu.Lock()
	d.sessions.sessions[s.ID] = s
	d.sessions.mu.Unlock()
	return s
}

func (d *Dashboard) Session(id string) (*Session, error) {
	d.sessions.mu.RLock()
	defer d.sessions.mu.RUnlock()
	s, ok := d.sessions.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// CloseSession cancels any lookup in flight and forgets the session.
func (d *Dashboard) CloseSession(id string) {
	d.sessions.mu.Lock()
	s, ok := d.sessions.sessions[id]
	delete(d.sessions.sessions, id)
	d.sessions.mu.Unlock()

	if ok {
		s.stop()
	}
}

// SweepSessions closes sessions that have been idle for longer than maxIdle
// and returns how many were closed.
func (d *Dashboard) SweepSessions(maxIdle time.Duration) int {
	cutoff := d.sessions.now().Add(-maxIdle)

	d.sessions.mu.Lock()
	var expired []*Session
	for id, s := range d.sessions.sessions {
		if s.idleSince(cutoff) {
			expired = append(expired, s)
			delete(d.sessions.sessions, id)
		}
	}
	d.sessions.mu.Unlock()

	for _, s := range expired {
		s.stop()
	}
	if len(expired) > 0 {
		d.logger.Debug("closed idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// SessionCount is the number of open sessions.
func (d *Dashboard) SessionCount() int {
	d.sessions.mu.RLock()
	defer d.sessions.mu.RUnlock()
	return len(d.sessions.sessions)
}

// Lookup runs q within the session identified by id. If another lookup is
// started in the same session before this one finishes, this one returns
// ErrSuperseded.
func (d *Dashboard) Lookup(ctx context.Context, id string, q Query) (Result, error) {
	s, err := d.Session(id)
	if err != nil {
		return Result{}, err
	}

	ctx, gen := s.begin(ctx, d.sessions.now())
	res, err := d.run(ctx, q)
	s.finish(d.sessions.now())

	if err != nil {
		if ctx.Err() != nil && s.Generation() != gen {
			return Result{}, ErrSuperseded
		}
		return Result{}, err
	}
	if err := s.commit(gen, res); err != nil {
		d.logger.Debug("dropping stale result",
			zap.String("session", s.ID),
			zap.Uint64("generation", gen))
		return Result{}, err
	}
	return res, nil
}

func (d *Dashboard) run(ctx context.Context, q Query) (Result, error) {
	switch {
	case q.City != "":
		return d.WeatherByCityName(ctx, q.City, q.Units)
	case q.Coords != nil:
		return d.WeatherByCoordinates(ctx, q.Coords.Lat, q.Coords.Lon, q.Units)
	case q.Sensor != nil:
		return d.WeatherForSensor(ctx, q.Sensor, q.Units)
	default:
		return Result{}, errEmptyQuery
	}
}
