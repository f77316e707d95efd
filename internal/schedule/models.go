package schedule

import (
	"errors"
	"time"
)

var (
	ErrSlotNotFound = errors.New("time slot not found")

	// ErrNoCapacity means the team's scheduling horizon holds no occurrence at
	// all; anything short of that queues instead of failing.
	ErrNoCapacity = errors.New("scheduling horizon exhausted")
)

// Frequency is the recurrence step unit.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// RecurrencePattern turns a slot into a template that expands into concrete
// occurrences. EndDate is inclusive by calendar day.
type RecurrencePattern struct {
	Frequency Frequency  `json:"frequency" bson:"frequency"`
	Interval  int        `json:"interval" bson:"interval"`
	EndDate   *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
}

// TimeSlot is either a concrete publication window or, when Recurrence is set,
// a template. Concrete occurrences carry TemplateID back to their template.
type TimeSlot struct {
	ID          string             `json:"id" bson:"id"`
	TeamID      string             `json:"teamId" bson:"teamId"`
	StartTime   time.Time          `json:"startTime" bson:"startTime"`
	EndTime     time.Time          `json:"endTime" bson:"endTime"`
	IsAvailable bool               `json:"isAvailable" bson:"isAvailable"`
	IsRecurring bool               `json:"isRecurring" bson:"isRecurring"`
	Recurrence  *RecurrencePattern `json:"recurrencePattern,omitempty" bson:"recurrencePattern,omitempty"`
	TemplateID  string             `json:"templateId,omitempty" bson:"templateId,omitempty"`

	// DraftID is set while a draft holds the reservation.
	DraftID string `json:"draftId,omitempty" bson:"draftId,omitempty"`
}

// Overlaps reports whether the [StartTime, EndTime) intervals intersect.
func (s *TimeSlot) Overlaps(o *TimeSlot) bool {
	return s.StartTime.Before(o.EndTime) && o.StartTime.Before(s.EndTime)
}

// Priority orders the waiting queue: urgent ahead of high ahead of normal.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) rank() int {
	switch p {
	case PriorityUrgent:
		return 2
	case PriorityHigh:
		return 1
	}
	return 0
}

// Before reports queue precedence by priority rank.
func (p Priority) Before(o Priority) bool { return p.rank() > o.rank() }

// QueueSlot is a draft waiting for a concrete TimeSlot. Positions are a
// contiguous 1..n sequence per team at every observation point.
type QueueSlot struct {
	ID            string    `json:"id" bson:"id"`
	TeamID        string    `json:"teamId" bson:"teamId"`
	DraftID       string    `json:"draftId" bson:"draftId"`
	Position      int       `json:"position" bson:"position"`
	EstimatedTime time.Time `json:"estimatedTime" bson:"estimatedTime"`
	Priority      Priority  `json:"priority" bson:"priority"`
	EnqueuedAt    time.Time `json:"enqueuedAt" bson:"enqueuedAt"`
}

// Window narrows a reservation search; a zero bound means unbounded on that
// side.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (w Window) contains(slot *TimeSlot) bool {
	if !w.From.IsZero() && slot.StartTime.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !slot.StartTime.Before(w.To) {
		return false
	}
	return true
}
