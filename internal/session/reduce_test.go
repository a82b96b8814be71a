package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/pavemap/backend/internal/domain"
)

func TestReducersDoNotMutateInput(t *testing.T) {
	pos := domain.Coordinate{Lat: 51.5, Lng: -0.1}
	base := InitialState().withTracked(&pos, 3)
	base.Playback.Duration = 120

	events := []Event{
		ZoomChanged{Zoom: 16},
		YearSelected{Year: 2023},
		DistressToggled{Enabled: false},
		VideoToggled{Enabled: true},
		ImagesToggled{Enabled: true},
		PlaybackProgress{Percent: 40},
		SeekRequested{Seconds: 30},
		PlaybackMeta{DurationSeconds: 90},
		ViewportMoved{Viewport: domain.ViewportState{Center: pos, Zoom: 9}},
	}

	for _, ev := range events {
		before := base
		trackedBefore := *base.Tracked
		next, _ := Reduce(base, ev)

		if diff := cmp.Diff(before, base); diff != "" {
			t.Fatalf("%T mutated its input (-before +after):\n%s", ev, diff)
		}
		assert.Equal(t, trackedBefore, *base.Tracked)
		assert.NotEqual(t, base, next, "%T should change state", ev)
	}
}

func TestReduceZoom(t *testing.T) {
	s, effects := ReduceZoom(InitialState(), ZoomChanged{Zoom: 14.6})
	assert.Equal(t, 14.6, s.Zoom)
	assert.Equal(t, 15, s.Viewport.Zoom)
	assert.Equal(t, []Effect{observeZoom{zoom: 14.6}}, effects)
}

func TestReduceYear(t *testing.T) {
	s := InitialState()

	next, effects := ReduceYear(s, YearSelected{Year: 2024})
	assert.Equal(t, 2024, next.Year)
	assert.Equal(t, []Effect{swapDataset{year: 2024}}, effects)

	same, effects := ReduceYear(s, YearSelected{Year: domain.LatestYear})
	assert.Equal(t, s, same)
	assert.Empty(t, effects)

	unknown, effects := ReduceYear(s, YearSelected{Year: 2019})
	assert.Equal(t, s, unknown)
	assert.Empty(t, effects)
}

func TestOverlaysRequireDistress(t *testing.T) {
	s := InitialState()
	s, _ = ReduceVideoToggle(s, VideoToggled{Enabled: true})
	s, _ = ReduceImagesToggle(s, ImagesToggled{Enabled: true})
	assert.Equal(t, Toggles{Distress: true, Video: true, Images: true}, s.Toggles)

	s, effects := ReduceDistressToggle(s, DistressToggled{Enabled: false})
	assert.Equal(t, Toggles{}, s.Toggles)
	assert.Equal(t, []Effect{refreshLayers{}, announceToggles{}}, effects)

	s, effects = ReduceVideoToggle(s, VideoToggled{Enabled: true})
	assert.False(t, s.Toggles.Video)
	assert.Empty(t, effects)

	_, effects = ReduceImagesToggle(s, ImagesToggled{Enabled: true})
	assert.Empty(t, effects)
}

func TestReduceProgressClamps(t *testing.T) {
	s, effects := ReduceProgress(InitialState(), PlaybackProgress{Percent: 140})
	assert.Equal(t, 100.0, s.Playback.Progress)
	assert.Equal(t, []Effect{trackProgress{percent: 100}}, effects)
}

func TestReduceSeek(t *testing.T) {
	t.Run("unknown duration only seeks", func(t *testing.T) {
		s, effects := ReduceSeek(InitialState(), SeekRequested{Seconds: 12})
		assert.True(t, s.Playback.Playing)
		assert.Equal(t, 0.0, s.Playback.Progress)
		assert.Equal(t, []Effect{issueSeek{seconds: 12}}, effects)
	})

	t.Run("known duration moves progress", func(t *testing.T) {
		s, _ := ReducePlaybackMeta(InitialState(), PlaybackMeta{DurationSeconds: 60})
		s, effects := ReduceSeek(s, SeekRequested{Seconds: 15})
		assert.Equal(t, 25.0, s.Playback.Progress)
		assert.Equal(t, []Effect{issueSeek{seconds: 15}, trackProgress{percent: 25}}, effects)
	})

	t.Run("seek past the end is clamped", func(t *testing.T) {
		s, _ := ReducePlaybackMeta(InitialState(), PlaybackMeta{DurationSeconds: 60})
		s, effects := ReduceSeek(s, SeekRequested{Seconds: 600})
		assert.Equal(t, 100.0, s.Playback.Progress)
		assert.Equal(t, issueSeek{seconds: 60}, effects[0])
	})

	t.Run("restart", func(t *testing.T) {
		s, _ := ReducePlaybackMeta(InitialState(), PlaybackMeta{DurationSeconds: 60})
		s.Playback.Progress = 80
		s, _ = ReduceSeek(s, SeekRequested{Seconds: -3})
		assert.Equal(t, 0.0, s.Playback.Progress)
	})
}

func TestReducePlaybackMetaIgnoresInvalid(t *testing.T) {
	s, _ := ReducePlaybackMeta(InitialState(), PlaybackMeta{DurationSeconds: 0})
	assert.Equal(t, 0.0, s.Playback.Duration)
}

func TestReduceViewport(t *testing.T) {
	v := domain.ViewportState{Center: domain.Coordinate{Lat: 51.6, Lng: 0.1}, Zoom: 15}
	s, effects := ReduceViewport(InitialState(), ViewportMoved{Viewport: v})
	assert.Equal(t, v, s.Viewport)
	assert.Equal(t, 15.0, s.Zoom)
	assert.Equal(t, []Effect{syncCamera{viewport: v}, observeZoom{zoom: 15}}, effects)

	_, effects = ReduceViewport(s, ViewportMoved{Viewport: v})
	assert.Equal(t, []Effect{syncCamera{viewport: v}}, effects)
}
