package domain

// RunStage is the orchestrator's linear state machine position for the
// current generation run.
type RunStage string

const (
	StageIdle              RunStage = "idle"
	StageAcquiringLocation RunStage = "acquiring_location"
	StageResolvingName     RunStage = "resolving_name"
	StageFetchingWeather   RunStage = "fetching_weather"
	StageComposingPrompt   RunStage = "composing_prompt"
	StageSubmittingJob     RunStage = "submitting_job"
	StagePolling           RunStage = "polling"
	StageSucceeded         RunStage = "succeeded"
	StageFailed            RunStage = "failed"
)

// Terminal reports whether the run has reached a final stage.
func (s RunStage) Terminal() bool {
	return s == StageSucceeded || s == StageFailed
}
