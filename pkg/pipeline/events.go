package pipeline

type (
	// Sent when the number of stages in the run is known.
	EventSetStageTotal int

	// Sent when a stage begins running.
	EventStageStarted string

	// Sent when a stage finishes, successfully or not. Skipped stages
	// emit this without a preceding [EventStageStarted].
	EventStageFinished struct {
		Err    error
		Stage  string
		Status Status
	}

	// Sent when all work has completed.
	EventDone struct {
		Err error
	}
)
