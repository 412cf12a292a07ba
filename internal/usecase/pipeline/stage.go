package pipeline

import "fmt"

// Stage is a state of a draft or review run.
type Stage string

// Stages in execution order.
const (
	StageInit           Stage = "init"
	StageEmbedding      Stage = "embedding"
	StageRetrieving     Stage = "retrieving"
	StagePromptBuilding Stage = "prompt_building"
	StageGenerating     Stage = "generating"
	StageDone           Stage = "done"
	StageFailed         Stage = "failed"
)

// ErrorMarker prefixes the text returned by GenerateDraft and ReviewNote on failure.
const ErrorMarker = "[ERROR]"

// StageError reports the stage a run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Marked renders err as a user-facing "[ERROR] <stage>: <message>" line.
func Marked(err error) string {
	return ErrorMarker + " " + err.Error()
}
