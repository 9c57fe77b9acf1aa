package pipeline

import (
	"fmt"
	"time"
)

// Stage identifies a step of a run.
type Stage int

const (
	StageFetching Stage = iota
	StageExtracting
	StageScaling
	StageBuildingList
	StageMatching
	StageWriting
)

var stageNames = [...]string{
	StageFetching:     "fetch",
	StageExtracting:   "extract",
	StageScaling:      "scale",
	StageBuildingList: "shopping list",
	StageMatching:     "product match",
	StageWriting:      "write",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// StageError reports the stage a run failed in. errors.As on it reaches the
// stage's own error type (*fetcher.FetchError, *assistant.ExtractionError...).
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Event describes a stage transition. Done is false when the stage starts;
// when it ends Duration and Err are set.
type Event struct {
	Stage    Stage
	Done     bool
	Duration time.Duration
	Err      error
}

// Observer receives stage transitions, e.g. for progress output.
type Observer func(Event)
