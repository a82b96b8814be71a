// Package session runs one dashboard per connected browser.
//
// A Session is a single goroutine that consumes input events, folds them
// into an immutable State with the reducers in this package, and drives the
// tier resolver, viewport controller, position engine and camera follower.
// Outputs are fanned out to subscribers without blocking the loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/pavemap/backend/internal/association"
	"github.com/pavemap/backend/internal/domain"
	"github.com/pavemap/backend/internal/log"
	"github.com/pavemap/backend/internal/metrics"
	"github.com/pavemap/backend/internal/playback"
	"github.com/pavemap/backend/internal/render"
	"github.com/pavemap/backend/internal/tier"
	"github.com/pavemap/backend/internal/viewport"
)

var (
	// ErrNotFound is returned for an unknown session id
	ErrNotFound = errors.New("session: not found")
	// ErrClosed is returned when the session loop has stopped
	ErrClosed = errors.New("session: closed")
)

// DatasetSource supplies the network for a year
type DatasetSource interface {
	Dataset(ctx context.Context, year int) (*domain.YearDataset, error)
}

// Config holds the per-session tuning
type Config struct {
	TierMode      tier.Mode
	FrameInterval time.Duration
	Follow        playback.FollowConfig
	AutoFit       bool
	LoadTimeout   time.Duration
	InboxSize     int
}

func (c Config) withDefaults() Config {
	if c.FrameInterval <= 0 {
		c.FrameInterval = 16 * time.Millisecond
	}
	if c.Follow.FrameInterval <= 0 {
		c.Follow.FrameInterval = c.FrameInterval
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = 5 * time.Second
	}
	if c.InboxSize <= 0 {
		c.InboxSize = 64
	}
	return c
}

type request struct {
	ev    Event
	reply chan State
}

// pathKey identifies the inputs of the last path build
type pathKey struct {
	year     int
	sections bool
}

// followStep is one camera follow frame computed by the follower goroutine
type followStep struct {
	center domain.Coordinate
	gen    uint64
}

// view is what HTTP goroutines may read while the loop runs
type view struct {
	ds         *domain.YearDataset
	layers     domain.VisibleLayers
	conditions map[string]float64
}

// Session is one dashboard event loop
type Session struct {
	id     string
	cfg    Config
	source DatasetSource

	inbox  chan request
	steps  chan followStep
	done   chan struct{}
	cancel context.CancelFunc
	runCtx context.Context

	// owned by the loop goroutine
	state      State
	ds         *domain.YearDataset
	tierLayers domain.VisibleLayers
	conditions map[string]float64
	path       pathKey
	hasPath    bool
	frames     []func()
	frameC     <-chan time.Time

	resolver   *tier.Resolver
	controller *viewport.Controller
	model      *viewport.Model
	engine     *playback.Engine
	follower   *playback.Follower
	assoc      association.Cache

	mu       sync.RWMutex
	snapshot State
	view     view

	subMu   sync.Mutex
	subs    map[int]chan Output
	nextSub int
	closed  bool

	lastSeen atomic.Int64
}

// New creates a session. It does nothing until Start.
func New(id string, cfg Config, source DatasetSource) *Session {
	s := &Session{
		id:     id,
		cfg:    cfg.withDefaults(),
		source: source,
		state:  InitialState(),
		steps:  make(chan followStep, 1),
		done:   make(chan struct{}),
		subs:   make(map[int]chan Output),
	}
	s.inbox = make(chan request, s.cfg.InboxSize)

	s.resolver = tier.NewResolver(s.cfg.TierMode, s.onLayers, s.onTier)
	s.model = viewport.NewModel(s.state.Viewport, s.cfg.AutoFit, s.onCamera)
	s.controller = viewport.NewController(s.model, s)
	s.engine = playback.NewEngine(s.onPosition)
	s.follower = playback.NewFollower(s.cfg.Follow, s.postStep)
	s.touch()
	return s
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// Start loads the initial dataset and runs the loop until ctx is done or
// Close is called
func (s *Session) Start(ctx context.Context) error {
	loadCtx, cancelLoad := context.WithTimeout(ctx, s.cfg.LoadTimeout)
	ds, err := s.source.Dataset(loadCtx, s.state.Year)
	cancelLoad()
	if err != nil {
		return fmt.Errorf("session: failed to load dataset %d: %w", s.state.Year, err)
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.follower.Start(s.runCtx)

	s.controller.Swap(ds.Year, func() { s.commit(ds) })
	s.adoptViewport()
	s.resolver.Observe(s.state.Zoom)
	s.publishSnapshot()

	go s.loop(s.runCtx)
	return nil
}

// Close stops the loop and closes every subscriber channel
func (s *Session) Close() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Done is closed once the loop has exited
func (s *Session) Done() <-chan struct{} { return s.done }

// Dispatch hands an event to the loop and waits for the resulting state
func (s *Session) Dispatch(ctx context.Context, ev Event) (State, error) {
	s.touch()
	req := request{ev: ev, reply: make(chan State, 1)}

	select {
	case s.inbox <- req:
	case <-s.done:
		return State{}, ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}

	select {
	case st := <-req.reply:
		return st, nil
	case <-s.done:
		return State{}, ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Snapshot returns the state after the last handled event
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Geometry renders the currently visible layers
func (s *Session) Geometry() *geojson.FeatureCollection {
	s.mu.RLock()
	v := s.view
	s.mu.RUnlock()
	return render.Layers(v.ds, v.layers, v.conditions)
}

// Subscribe registers an output stream. Outputs are dropped when the buffer
// is full. The returned function unsubscribes.
func (s *Session) Subscribe(buffer int) (<-chan Output, func()) {
	ch := make(chan Output, buffer)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.touch()
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
		})
	}
}

// IdleFor returns how long ago the session last received a request. A
// session with an open output stream is never idle.
func (s *Session) IdleFor(now time.Time) time.Duration {
	s.subMu.Lock()
	streaming := len(s.subs) > 0
	s.subMu.Unlock()
	if streaming {
		return 0
	}
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// AfterFrame implements viewport.Scheduler. Callbacks run inside the loop
// on the next frame.
func (s *Session) AfterFrame(fn func()) {
	s.frames = append(s.frames, fn)
	if s.frameC == nil {
		s.frameC = time.After(s.cfg.FrameInterval)
	}
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.done)
	defer s.closeSubscribers()
	defer s.follower.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.inbox:
			s.handle(req.ev)
			s.publishSnapshot()
			req.reply <- s.state
		case st := <-s.steps:
			s.applyStep(st)
			s.publishSnapshot()
		case <-s.frameC:
			s.runFrame()
			s.publishSnapshot()
		}
	}
}

// applyStep moves the camera one follow frame. Steps from before the last
// follower sync are stale and dropped.
func (s *Session) applyStep(st followStep) {
	if st.gen != s.follower.Generation() {
		return
	}
	s.model.Apply(domain.CameraTarget{Center: st.center, Animate: true})
}

func (s *Session) runFrame() {
	fns := s.frames
	s.frames, s.frameC = nil, nil
	for _, fn := range fns {
		fn()
	}
}

func (s *Session) handle(ev Event) {
	metrics.EventsTotal.WithLabelValues(eventName(ev)).Inc()

	next, effects := Reduce(s.state, ev)
	s.state = next
	for _, eff := range effects {
		s.apply(eff)
	}
}

func (s *Session) apply(eff Effect) {
	switch e := eff.(type) {
	case observeZoom:
		s.model.Report(s.state.Viewport)
		s.resolver.Observe(e.zoom)
	case swapDataset:
		s.swap(e.year)
	case refreshLayers:
		s.refresh()
	case announceToggles:
		s.publish(Output{Kind: OutputToggles, Data: s.state.Toggles})
	case trackProgress:
		s.track(e.percent)
	case issueSeek:
		s.publish(Output{Kind: OutputSeek, Data: SeekCommand{Seconds: e.seconds, Play: true}})
	case syncCamera:
		if s.controller.Echo(e.viewport) {
			s.state = s.state.withViewport(s.model.Viewport())
			return
		}
		s.model.Report(e.viewport)
		s.follower.Sync(e.viewport.Center)
	}
}

func (s *Session) swap(year int) {
	ctx, cancel := context.WithTimeout(s.runCtx, s.cfg.LoadTimeout)
	ds, err := s.source.Dataset(ctx, year)
	cancel()
	if err != nil {
		log.Errorw("dataset swap failed", "session", s.id, "year", year, "error", err)
		if s.ds != nil {
			s.state.Year = s.ds.Year
		}
		return
	}

	if s.controller.Swap(year, func() { s.commit(ds) }) {
		metrics.DatasetSwapsTotal.WithLabelValues(strconv.Itoa(year)).Inc()
		log.Debugw("dataset swapped", "session", s.id, "year", year)
	}
}

// commit hands a new dataset to the renderer
func (s *Session) commit(ds *domain.YearDataset) {
	s.ds = ds
	s.assoc.Invalidate()
	s.model.Commit(ds)
	s.refresh()
}

// adoptViewport takes the viewport of the map mirror as the session viewport,
// including any auto-fit done on the first commit
func (s *Session) adoptViewport() {
	vp := s.model.Viewport()
	s.state = s.state.withViewport(vp)
	s.state.Zoom = float64(vp.Zoom)
	s.follower.Sync(vp.Center)
}

// refresh recomputes what depends on the visible layers: the published layer
// set, the playback path and the distress association
func (s *Session) refresh() {
	layers := effectiveLayers(s.tierLayers, s.state.Toggles)
	if layers != s.state.Layers {
		s.state = s.state.withLayers(layers)
		s.publish(layersOutput(layers))
	}
	if s.ds == nil {
		return
	}

	key := pathKey{year: s.ds.Year, sections: layers.Sections}
	if !s.hasPath || key != s.path {
		s.path, s.hasPath = key, true
		s.engine.SetPath(playback.BuildPath(s.ds, layers))
		s.syncTracked()
	}

	s.conditions = s.assoc.Conditions(s.ds, layers.Distress)
	if layers.Distress {
		metrics.AssociationMisses.Set(float64(s.assoc.Misses()))
	}
}

// track applies playback progress and follows the marker with the camera
func (s *Session) track(percent float64) {
	before, had := s.engine.Position()
	s.engine.SetProgress(percent)
	after, has := s.engine.Position()
	s.syncTracked()
	if !has || (had && before == after) {
		return
	}
	if _, active := s.follower.Target(); active {
		metrics.FollowCoalescedTotal.Inc()
	}
	s.follower.Follow(after)
}

func (s *Session) syncTracked() {
	if pos, ok := s.engine.Position(); ok {
		s.state = s.state.withTracked(&pos, s.engine.PathLen())
	} else {
		s.state = s.state.withTracked(nil, s.engine.PathLen())
	}
}

func (s *Session) onLayers(l domain.VisibleLayers) {
	s.tierLayers = l
	s.refresh()
}

func (s *Session) onTier(t int) {
	s.state = s.state.withTier(domain.Tier(t))
	metrics.TierTransitionsTotal.WithLabelValues(domain.Tier(t).String()).Inc()
	s.publish(tierOutput(domain.Tier(t)))
}

func (s *Session) onPosition(c domain.Coordinate) {
	metrics.PositionUpdatesTotal.Inc()
	s.publish(positionOutput(c))
}

func (s *Session) onCamera(t domain.CameraTarget) {
	s.state = s.state.withViewport(s.model.Viewport())
	if !t.Animate {
		s.follower.Sync(t.Center)
	}
	if s.controller.Restoring() {
		log.Debugw("viewport restored", "session", s.id, "center", t.Center)
	}
	s.publish(cameraOutput(t))
}

// postStep runs on the follower goroutine. Only the newest step is kept.
func (s *Session) postStep(c domain.Coordinate, gen uint64) {
	st := followStep{center: c, gen: gen}
	for {
		select {
		case s.steps <- st:
			return
		default:
		}
		select {
		case <-s.steps:
		default:
		}
	}
}

func (s *Session) publishSnapshot() {
	s.mu.Lock()
	s.snapshot = s.state
	s.view = view{ds: s.ds, layers: s.state.Layers, conditions: s.conditions}
	s.mu.Unlock()
}

func (s *Session) publish(out Output) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- out:
		default:
			metrics.OutputsDroppedTotal.Inc()
		}
	}
}

func (s *Session) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

func eventName(ev Event) string {
	switch ev.(type) {
	case ZoomChanged:
		return "zoom"
	case YearSelected:
		return "year"
	case DistressToggled:
		return "distress"
	case VideoToggled:
		return "video"
	case ImagesToggled:
		return "images"
	case PlaybackProgress:
		return "progress"
	case SeekRequested:
		return "seek"
	case PlaybackMeta:
		return "playback"
	case ViewportMoved:
		return "viewport"
	default:
		return "unknown"
	}
}
