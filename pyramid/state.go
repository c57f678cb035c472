package pyramid

import "fmt"

// State is the phase of a generation run.
type State int32

const (
	StateIdle State = iota
	StateBuildingBaseLevel
	StateAggregatingLevel
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuildingBaseLevel:
		return "building base level"
	case StateAggregatingLevel:
		return "aggregating level"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Step is a stage of building a tiled dataset. The generator reports
// StepBuildPyramid; the other steps are reported by the caller through
// Handle.Step so that all progress reaches the same listeners.
type Step int

const (
	StepLoadSource Step = iota
	StepBuildPyramid
	StepPackPlate
	StepThumbnail
	StepManifest
)

func (s Step) String() string {
	switch s {
	case StepLoadSource:
		return "load source"
	case StepBuildPyramid:
		return "build pyramid"
	case StepPackPlate:
		return "pack plate"
	case StepThumbnail:
		return "thumbnail"
	case StepManifest:
		return "manifest"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

type Status int

const (
	StatusStarted Status = iota
	StatusCompleted
)

func (s Status) String() string {
	if s == StatusStarted {
		return "started"
	}
	return "completed"
}

// ProgressFunc receives step transitions in the order they happen.
type ProgressFunc func(step Step, status Status)
