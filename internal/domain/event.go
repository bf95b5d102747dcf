package domain

const (
	EventNameAssignmentCompleted = "assignment.completed"
	EventNameSubmissionFailed    = "submission.failed"
)

// Trigger tells a manual submission apart from a countdown expiry.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerAuto   Trigger = "auto"
)

type EventAssignmentCompleted struct {
	Assignment Assignment
	Trigger    Trigger
}

func (EventAssignmentCompleted) Name() string { return EventNameAssignmentCompleted }

type EventSubmissionFailed struct {
	AssignmentID string
	StudentID    string
	Trigger      Trigger
	Err          error
}

func (EventSubmissionFailed) Name() string { return EventNameSubmissionFailed }
