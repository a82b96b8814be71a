package playback

import (
	"context"
	"sync"
	"time"

	"github.com/pavemap/backend/internal/domain"
	"github.com/pavemap/backend/pkg/utils"
)

// FollowConfig tunes the camera follow animation
type FollowConfig struct {
	FrameInterval time.Duration // animation step, default 16ms
	Duration      time.Duration // ease length per target, default 500ms
}

func (c FollowConfig) withDefaults() FollowConfig {
	if c.FrameInterval <= 0 {
		c.FrameInterval = 16 * time.Millisecond
	}
	if c.Duration <= 0 {
		c.Duration = 500 * time.Millisecond
	}
	return c
}

// Follower eases the map center toward the tracked position.
//
// Only the latest target is kept: a new Follow supersedes the target of an
// animation still in flight, and each animation step reads whatever target
// is current. Zoom is never changed. Every step carries the generation it was
// computed in; Sync starts a new generation, so a consumer can drop steps
// that were already in flight when the camera was moved elsewhere.
type Follower struct {
	cfg FollowConfig

	mu         sync.Mutex
	center     domain.Coordinate
	hasCenter  bool
	from       domain.Coordinate
	target     domain.Coordinate
	started    time.Time
	active     bool
	superseded int
	gen        uint64

	wake   chan struct{}
	step   func(center domain.Coordinate, gen uint64)
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFollower creates a follower publishing camera steps to step
func NewFollower(cfg FollowConfig, step func(center domain.Coordinate, gen uint64)) *Follower {
	return &Follower{
		cfg:  cfg.withDefaults(),
		wake: make(chan struct{}, 1),
		step: step,
	}
}

// Start runs the animation loop until ctx is done or Stop is called
func (f *Follower) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	go f.run(ctx)
}

// Stop cancels the animation loop and waits for it to exit
func (f *Follower) Stop() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
}

// Sync tells the follower where the camera currently is, e.g. after the
// user panned or a viewport restore
func (f *Follower) Sync(center domain.Coordinate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.center, f.hasCenter = center, true
	f.active = false
	f.gen++
}

// Generation returns the current step generation
func (f *Follower) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen
}

// Follow requests the camera to move to target. It never blocks.
func (f *Follower) Follow(target domain.Coordinate) {
	f.mu.Lock()
	if f.active {
		f.superseded++
	}
	if !f.hasCenter {
		f.center, f.hasCenter = target, true
	}
	f.from = f.center
	f.target = target
	f.started = time.Now()
	f.active = true
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Superseded returns how many in-flight animations were replaced by a newer target
func (f *Follower) Superseded() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.superseded
}

// Target returns the latest requested target and whether an animation is running
func (f *Follower) Target() (domain.Coordinate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.target, f.active
}

func (f *Follower) run(ctx context.Context) {
	defer close(f.done)
	ticker := time.NewTicker(f.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
			f.advance(time.Now())
		case now := <-ticker.C:
			f.advance(now)
		}
	}
}

// advance performs one animation step toward the latest target
func (f *Follower) advance(now time.Time) {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return
	}
	t := float64(now.Sub(f.started)) / float64(f.cfg.Duration)
	k := utils.EaseOutCubic(t)
	f.center = domain.Coordinate{
		Lat: utils.Lerp(f.from.Lat, f.target.Lat, k),
		Lng: utils.Lerp(f.from.Lng, f.target.Lng, k),
	}
	if t >= 1 {
		f.center = f.target
		f.active = false
	}
	center, gen := f.center, f.gen
	f.mu.Unlock()

	if f.step != nil {
		f.step(center, gen)
	}
}
