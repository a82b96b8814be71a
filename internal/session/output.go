package session

import (
	"github.com/pavemap/backend/internal/domain"
)

// OutputKind names an output stream of the core
type OutputKind string

const (
	OutputLayers   OutputKind = "layers"
	OutputTier     OutputKind = "tier"
	OutputPosition OutputKind = "position"
	OutputCamera   OutputKind = "camera"
	OutputSeek     OutputKind = "seek"
	OutputToggles  OutputKind = "toggles"
)

// Output is one message for the browser
type Output struct {
	Kind OutputKind `json:"type"`
	Data any        `json:"data"`
}

// SeekCommand asks the media element to jump to a time and resume
type SeekCommand struct {
	Seconds float64 `json:"seconds"`
	Play    bool    `json:"play"`
}

// TierChange reports a new tier
type TierChange struct {
	Tier int    `json:"tier"`
	Name string `json:"name"`
}

func layersOutput(l domain.VisibleLayers) Output {
	return Output{Kind: OutputLayers, Data: l}
}

func tierOutput(t domain.Tier) Output {
	return Output{Kind: OutputTier, Data: TierChange{Tier: int(t), Name: t.String()}}
}

func positionOutput(c domain.Coordinate) Output {
	return Output{Kind: OutputPosition, Data: c}
}

func cameraOutput(t domain.CameraTarget) Output {
	return Output{Kind: OutputCamera, Data: t}
}
