// Package orchestrator runs the end-to-end postcard pipeline for one browser
// session: location acquisition, reverse geocoding, weather fetch, prompt
// composition, job submission, and status polling. All transient state is
// owned by a Controller instance; collaborators only ever see copies.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/providers/image"
	"server/internal/providers/prompt"
)

const defaultPollInterval = 5 * time.Second

var (
	// ErrNotReady is returned by ReRoll before a run has resolved location
	// and weather.
	ErrNotReady = errors.New("orchestrator: no resolved location and weather yet")
	// ErrNoPollableJob is returned by CheckNow when there is nothing to poll.
	ErrNoPollableJob = errors.New("orchestrator: no pollable job")
)

// Geocoder resolves a coordinate to a place name.
type Geocoder interface {
	Reverse(ctx context.Context, coord domain.Coordinate) (domain.Place, error)
}

// WeatherService returns current conditions for a coordinate.
type WeatherService interface {
	Current(ctx context.Context, coord domain.Coordinate) (domain.WeatherSnapshot, error)
}

// Composer renders the deterministic base prompt.
type Composer interface {
	Compose(loc domain.ResolvedLocation, weather domain.WeatherSnapshot, subject domain.SubjectCategory, custom string) string
}

// JobBackend submits generation jobs and polls their status.
type JobBackend interface {
	Submit(ctx context.Context, prompt string) (domain.GenerationJob, error)
	Status(ctx context.Context, id string) (image.StatusResult, error)
}

// Options wires a Controller's collaborators.
type Options struct {
	Logger       zerolog.Logger
	Geocoder     Geocoder
	Weather      WeatherService
	Composer     Composer
	Enhancer     prompt.Enhancer
	Jobs         JobBackend
	PollInterval time.Duration
}

// StartRequest carries the user's "Generate" action. A nil Coordinate means
// device geolocation was denied or unsupported.
type StartRequest struct {
	Coordinate    *domain.Coordinate
	Subject       domain.SubjectCategory
	CustomSubject string
}

// ReRollRequest re-runs prompt composition onward with the already-resolved
// location and weather. An empty Subject keeps the current one.
type ReRollRequest struct {
	Subject       domain.SubjectCategory
	CustomSubject string
}

// Snapshot is a read-only copy of the orchestration state handed to the UI.
type Snapshot struct {
	Stage          domain.RunStage          `json:"stage"`
	StatusMessage  string                   `json:"status_message"`
	ErrorFlag      bool                     `json:"error"`
	Loading        bool                     `json:"loading"`
	RetryAvailable bool                     `json:"retry_available"`
	Location       *domain.ResolvedLocation `json:"location,omitempty"`
	Weather        *domain.WeatherSnapshot  `json:"weather,omitempty"`
	Subject        domain.SubjectCategory   `json:"subject"`
	Prompt         string                   `json:"prompt,omitempty"`
	Job            *domain.GenerationJob    `json:"job,omitempty"`
	ResultURL      string                   `json:"result_url,omitempty"`
}

// Controller owns the state machine for one session. All mutation is
// serialized through its mutex; every asynchronous result is tagged with the
// run sequence number it belongs to and discarded when stale.
type Controller struct {
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	seq            uint64
	stage          domain.RunStage
	statusMessage  string
	errorFlag      bool
	loading        bool
	retryAvailable bool
	location       *domain.ResolvedLocation
	weather        *domain.WeatherSnapshot
	subject        domain.SubjectCategory
	customSubject  string
	prompt         string
	job            *domain.GenerationJob
	resultURL      string

	pollCancel  context.CancelFunc
	activePolls int32

	subs map[chan Snapshot]struct{}
}

// NewController builds an idle Controller.
func NewController(opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		stage:   domain.StageIdle,
		subject: domain.SubjectPortrait,
		subs:    make(map[chan Snapshot]struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Stage:          c.stage,
		StatusMessage:  c.statusMessage,
		ErrorFlag:      c.errorFlag,
		Loading:        c.loading,
		RetryAvailable: c.retryAvailable,
		Subject:        c.subject,
		Prompt:         c.prompt,
		ResultURL:      c.resultURL,
	}
	if c.location != nil {
		loc := *c.location
		snap.Location = &loc
	}
	if c.weather != nil {
		w := *c.weather
		snap.Weather = &w
	}
	if c.job != nil {
		j := *c.job
		snap.Job = &j
	}
	return snap
}

// Subscribe registers a listener for state transitions. The returned cancel
// function must be called when the listener goes away.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subs[ch]; ok {
			delete(c.subs, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) notifyLocked() {
	snap := c.snapshotLocked()
	for ch := range c.subs {
		select {
		case ch <- snap:
		default:
			// Slow listener: drop the update, the next one supersedes it.
		}
	}
}

// StartRun begins a fresh run. Prior result state (job id, result URL, error)
// is cleared synchronously before any asynchronous call starts, so a stale
// result can never be displayed during a new run.
func (c *Controller) StartRun(req StartRequest) Snapshot {
	c.mu.Lock()

	c.seq++
	seq := c.seq
	c.stopPollingLocked()

	c.job = nil
	c.resultURL = ""
	c.prompt = ""
	c.errorFlag = false
	c.retryAvailable = false
	c.loading = true
	if req.Subject.Valid() {
		c.subject = req.Subject
	}
	c.customSubject = req.CustomSubject
	c.setStageLocked(domain.StageAcquiringLocation, "Acquiring location")

	var loc domain.ResolvedLocation
	switch {
	case c.location != nil && c.location.ManuallySet:
		// A manually-dragged position wins over device geolocation.
		loc = *c.location
	case req.Coordinate != nil:
		loc = domain.ResolvedLocation{Coordinate: *req.Coordinate}
		c.location = &loc
	default:
		// The only stage whose failure aborts the run outright: without a
		// coordinate there is no meaningful fallback location.
		c.failLocked("Location unavailable: allow location access or place the map marker")
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()

	go c.pipeline(seq, loc)
	return snap
}

// ReRoll re-enters prompt composition with the existing resolved location and
// weather, skipping re-acquisition.
func (c *Controller) ReRoll(req ReRollRequest) (Snapshot, error) {
	c.mu.Lock()
	if c.location == nil || c.weather == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrNotReady
	}

	c.seq++
	seq := c.seq
	c.stopPollingLocked()

	c.job = nil
	c.resultURL = ""
	c.prompt = ""
	c.errorFlag = false
	c.retryAvailable = false
	c.loading = true
	if req.Subject.Valid() {
		c.subject = req.Subject
	}
	if req.Subject == domain.SubjectCustom {
		c.customSubject = req.CustomSubject
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	go c.composeAndSubmit(seq)
	return snap, nil
}

// SetManualLocation records a map-dragged position. Name resolution is
// best-effort; the provenance flag makes future runs skip device geolocation.
func (c *Controller) SetManualLocation(ctx context.Context, coord domain.Coordinate) Snapshot {
	loc := domain.ResolvedLocation{Coordinate: coord, ManuallySet: true}
	place, err := c.opts.Geocoder.Reverse(ctx, coord)
	if err != nil {
		c.opts.Logger.Warn().Err(err).Msg("manual location: reverse geocode failed")
	} else {
		loc.Name = place.Name
		loc.Country = place.Country
	}

	c.mu.Lock()
	c.location = &loc
	c.notifyLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	return snap
}

// CheckNow performs one out-of-band poll, sharing the timer's status-handling
// logic.
func (c *Controller) CheckNow(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.job == nil || c.job.Status.Terminal() || !c.retryAvailable {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrNoPollableJob
	}
	seq := c.seq
	jobID := c.job.ID
	c.mu.Unlock()

	c.pollOnce(ctx, seq, jobID)
	return c.Snapshot(), nil
}

// ActivePollers reports how many poll timers are currently live. At most one
// may exist at any time.
func (c *Controller) ActivePollers() int {
	return int(atomic.LoadInt32(&c.activePolls))
}

// Close tears the controller down, canceling any in-flight work and poller.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopPollingLocked()
	for ch := range c.subs {
		delete(c.subs, ch)
		close(ch)
	}
	c.mu.Unlock()
	c.cancel()
}

func (c *Controller) setStageLocked(stage domain.RunStage, msg string) {
	c.stage = stage
	c.statusMessage = msg
	c.notifyLocked()
}

func (c *Controller) failLocked(msg string) {
	c.stopPollingLocked()
	c.stage = domain.StageFailed
	c.statusMessage = msg
	c.errorFlag = true
	c.loading = false
	c.retryAvailable = false
	c.notifyLocked()
}

// apply runs fn under the lock only when seq still identifies the current
// run; stale results from abandoned runs are discarded.
func (c *Controller) apply(seq uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return false
	}
	fn()
	c.notifyLocked()
	return true
}

// advance moves the state machine forward when the run is still current.
func (c *Controller) advance(seq uint64, stage domain.RunStage, msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return false
	}
	c.setStageLocked(stage, msg)
	return true
}

// fail marks the run as terminally failed when it is still current.
func (c *Controller) fail(seq uint64, msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return false
	}
	c.failLocked(msg)
	return true
}
