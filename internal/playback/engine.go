package playback

import (
	"github.com/pavemap/backend/internal/domain"
	"github.com/pavemap/backend/pkg/utils"
)

// Engine turns playback progress into a tracked position on the current path.
// Not safe for concurrent use.
type Engine struct {
	path     []domain.Coordinate
	progress float64

	pos    domain.Coordinate
	hasPos bool

	onPosition func(domain.Coordinate)
}

// NewEngine creates an engine reporting position changes to onPosition
func NewEngine(onPosition func(domain.Coordinate)) *Engine {
	return &Engine{onPosition: onPosition}
}

// SetPath replaces the path. An empty path withholds output. The first
// non-empty path after an empty one emits its first coordinate.
func (e *Engine) SetPath(path []domain.Coordinate) {
	wasEmpty := len(e.path) == 0
	e.path = path
	if len(path) == 0 {
		e.hasPos = false
		return
	}
	if wasEmpty {
		e.emit(path[0])
		return
	}
	e.track()
}

// SetProgress moves the tracked position to the given playback percentage
func (e *Engine) SetProgress(percent float64) {
	e.progress = utils.Clamp(percent, 0, 100)
	e.track()
}

// Progress returns the last accepted progress in percent
func (e *Engine) Progress() float64 { return e.progress }

// PathLen returns the number of points on the current path
func (e *Engine) PathLen() int { return len(e.path) }

// Position returns the tracked position, if any
func (e *Engine) Position() (domain.Coordinate, bool) {
	return e.pos, e.hasPos
}

func (e *Engine) track() {
	idx := IndexFor(e.progress, len(e.path))
	if idx < 0 {
		return
	}
	e.emit(e.path[idx])
}

func (e *Engine) emit(c domain.Coordinate) {
	if e.hasPos && c == e.pos {
		return
	}
	e.pos, e.hasPos = c, true
	if e.onPosition != nil {
		e.onPosition(c)
	}
}
