package analysis

// Status is the session lifecycle state. Transitions are validated against
// the table below on every write; illegal transitions are rejected rather
// than silently applied.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var statusTransitions = map[Status][]Status{
	StatusDraft:      {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from -> to is a legal move in the session
// state machine.
func CanTransition(from, to Status) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Pipeline stage names, recorded on the session when a stage escalates a
// failure.
const (
	StageClassify   = "classification"
	StagePrompt     = "prompt"
	StageAnalyze    = "analysis"
	StageSynthesize = "synthesis"
	StagePersist    = "persist"
)
