// Package viewport keeps the map camera still while the active year dataset is swapped.
package viewport

import (
	"github.com/pavemap/backend/internal/domain"
)

// Surface is the map the controller reads from and writes to
type Surface interface {
	Viewport() domain.ViewportState
	Apply(target domain.CameraTarget)
}

// Scheduler defers work until after the next rendering frame
type Scheduler interface {
	AfterFrame(fn func())
}

// Controller brackets dataset swaps with a viewport capture and restore.
//
// The restore runs one frame after the new geometry is committed so that
// any auto-fit the surface performs on commit is overridden. While the
// restore is applied Restoring reports true. The browser echoes the restored
// viewport back once it has moved; Echo recognizes that report so the owner
// does not treat it as a user move.
type Controller struct {
	surface   Surface
	scheduler Scheduler

	key       int
	hasKey    bool
	restoring bool
	pending   int

	echo    domain.ViewportState
	hasEcho bool
}

// NewController creates a controller for one map surface
func NewController(surface Surface, scheduler Scheduler) *Controller {
	return &Controller{surface: surface, scheduler: scheduler}
}

// Key returns the last seen dataset identity
func (c *Controller) Key() (int, bool) {
	return c.key, c.hasKey
}

// Restoring reports whether a programmatic restore is being applied
func (c *Controller) Restoring() bool {
	return c.restoring
}

// Echo reports whether v is the browser acknowledging the last restore. Only
// the first report after a restore is checked.
func (c *Controller) Echo(v domain.ViewportState) bool {
	if !c.hasEcho {
		return false
	}
	c.hasEcho = false
	return v == c.echo
}

// Pending returns the number of scheduled restores that have not run yet
func (c *Controller) Pending() int {
	return c.pending
}

// Swap switches to the dataset identified by key, calling commit to hand the
// new geometry to the renderer. It reports whether a swap happened; an
// unchanged key is a no-op. The first key seen is only recorded.
func (c *Controller) Swap(key int, commit func()) bool {
	if c.hasKey && key == c.key {
		return false
	}
	if !c.hasKey {
		c.key, c.hasKey = key, true
		if commit != nil {
			commit()
		}
		return true
	}

	saved := c.surface.Viewport()
	if commit != nil {
		commit()
	}

	c.pending++
	c.scheduler.AfterFrame(func() {
		c.pending--
		c.restoring = true
		defer func() { c.restoring = false }()

		zoom := saved.Zoom
		c.surface.Apply(domain.CameraTarget{Center: saved.Center, Zoom: &zoom, Animate: false})
		c.echo, c.hasEcho = saved, true
	})

	c.key = key
	return true
}
