package session

import (
	"math"

	"github.com/pavemap/backend/internal/domain"
	"github.com/pavemap/backend/pkg/utils"
)

// Event is an input from a collaborator (map, drawer, media element)
type Event interface{ event() }

type (
	ZoomChanged      struct{ Zoom float64 }
	YearSelected     struct{ Year int }
	DistressToggled  struct{ Enabled bool }
	VideoToggled     struct{ Enabled bool }
	ImagesToggled    struct{ Enabled bool }
	PlaybackProgress struct{ Percent float64 }
	SeekRequested    struct{ Seconds float64 }
	PlaybackMeta     struct{ DurationSeconds float64 }
	ViewportMoved    struct{ Viewport domain.ViewportState }
)

func (ZoomChanged) event()      {}
func (YearSelected) event()     {}
func (DistressToggled) event()  {}
func (VideoToggled) event()     {}
func (ImagesToggled) event()    {}
func (PlaybackProgress) event() {}
func (SeekRequested) event()    {}
func (PlaybackMeta) event()     {}
func (ViewportMoved) event()    {}

// Effect is work a reducer asks the session loop to carry out
type Effect interface{ effect() }

type (
	observeZoom     struct{ zoom float64 }
	swapDataset     struct{ year int }
	refreshLayers   struct{}
	announceToggles struct{}
	trackProgress   struct{ percent float64 }
	issueSeek       struct{ seconds float64 }
	syncCamera      struct{ viewport domain.ViewportState }
)

func (observeZoom) effect()     {}
func (swapDataset) effect()     {}
func (refreshLayers) effect()   {}
func (announceToggles) effect() {}
func (trackProgress) effect()   {}
func (issueSeek) effect()       {}
func (syncCamera) effect()      {}

// Reduce dispatches an event to its reducer
func Reduce(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case ZoomChanged:
		return ReduceZoom(s, e)
	case YearSelected:
		return ReduceYear(s, e)
	case DistressToggled:
		return ReduceDistressToggle(s, e)
	case VideoToggled:
		return ReduceVideoToggle(s, e)
	case ImagesToggled:
		return ReduceImagesToggle(s, e)
	case PlaybackProgress:
		return ReduceProgress(s, e)
	case SeekRequested:
		return ReduceSeek(s, e)
	case PlaybackMeta:
		return ReducePlaybackMeta(s, e)
	case ViewportMoved:
		return ReduceViewport(s, e)
	default:
		return s, nil
	}
}

// ReduceZoom records a zoom notification from the map
func ReduceZoom(s State, e ZoomChanged) (State, []Effect) {
	s.Zoom = e.Zoom
	if !math.IsNaN(e.Zoom) && !math.IsInf(e.Zoom, 0) {
		s.Viewport.Zoom = int(math.Round(e.Zoom))
	}
	return s, []Effect{observeZoom{zoom: e.Zoom}}
}

// ReduceYear switches the active dataset. Unknown or unchanged years are ignored.
func ReduceYear(s State, e YearSelected) (State, []Effect) {
	if !domain.KnownYear(e.Year) || e.Year == s.Year {
		return s, nil
	}
	s.Year = e.Year
	return s, []Effect{swapDataset{year: e.Year}}
}

// ReduceDistressToggle shows or hides distress points. The video and image
// overlays depend on it and are switched off with it.
func ReduceDistressToggle(s State, e DistressToggled) (State, []Effect) {
	if s.Toggles.Distress == e.Enabled {
		return s, nil
	}
	s.Toggles.Distress = e.Enabled
	if !e.Enabled {
		s.Toggles.Video = false
		s.Toggles.Images = false
	}
	return s, []Effect{refreshLayers{}, announceToggles{}}
}

// ReduceVideoToggle shows or hides the video overlay
func ReduceVideoToggle(s State, e VideoToggled) (State, []Effect) {
	if s.Toggles.Video == e.Enabled || (e.Enabled && !s.Toggles.Distress) {
		return s, nil
	}
	s.Toggles.Video = e.Enabled
	if !e.Enabled {
		s.Playback.Playing = false
	}
	return s, []Effect{announceToggles{}}
}

// ReduceImagesToggle shows or hides the section image overlay
func ReduceImagesToggle(s State, e ImagesToggled) (State, []Effect) {
	if s.Toggles.Images == e.Enabled || (e.Enabled && !s.Toggles.Distress) {
		return s, nil
	}
	s.Toggles.Images = e.Enabled
	return s, []Effect{announceToggles{}}
}

// ReduceProgress moves playback to a percentage of the clip
func ReduceProgress(s State, e PlaybackProgress) (State, []Effect) {
	p := utils.Clamp(e.Percent, 0, 100)
	s.Playback.Progress = p
	return s, []Effect{trackProgress{percent: p}}
}

// ReducePlaybackMeta records the clip duration once the media has loaded
func ReducePlaybackMeta(s State, e PlaybackMeta) (State, []Effect) {
	if e.DurationSeconds <= 0 || math.IsInf(e.DurationSeconds, 0) || math.IsNaN(e.DurationSeconds) {
		return s, nil
	}
	s.Playback.Duration = e.DurationSeconds
	return s, nil
}

// ReduceSeek jumps playback to a time and resumes it. With a known duration
// the tracked position moves immediately.
func ReduceSeek(s State, e SeekRequested) (State, []Effect) {
	sec := e.Seconds
	if math.IsNaN(sec) || sec < 0 {
		sec = 0
	}
	s.Playback.Playing = true

	if s.Playback.Duration <= 0 {
		return s, []Effect{issueSeek{seconds: sec}}
	}
	sec = math.Min(sec, s.Playback.Duration)
	p := sec / s.Playback.Duration * 100
	s.Playback.Progress = p
	return s, []Effect{issueSeek{seconds: sec}, trackProgress{percent: p}}
}

// ReduceViewport records a pan or zoom the user made in the browser
func ReduceViewport(s State, e ViewportMoved) (State, []Effect) {
	effects := []Effect{syncCamera{viewport: e.Viewport}}
	if float64(e.Viewport.Zoom) != s.Zoom {
		s.Zoom = float64(e.Viewport.Zoom)
		effects = append(effects, observeZoom{zoom: s.Zoom})
	}
	s.Viewport = e.Viewport
	return s, effects
}
