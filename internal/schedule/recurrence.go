package schedule

import (
	"time"

	"github.com/draftdeck/draftdeck/internal/draft"
)

// ExpandRecurrence generates the template's concrete occurrences inside
// [rangeStart, rangeEnd], stepping Interval units of Frequency from the
// template's StartTime. Expansion stops at the pattern's EndDate (inclusive by
// calendar day) or rangeEnd, whichever comes first. Occurrences inherit the
// template duration and are emitted available and non-recurring.
func ExpandRecurrence(tpl *TimeSlot, rangeStart, rangeEnd time.Time) ([]*TimeSlot, error) {
	if tpl.Recurrence == nil {
		return nil, &draft.ValidationError{Msg: "slot has no recurrence pattern"}
	}
	p := tpl.Recurrence
	if p.Interval < 1 {
		return nil, &draft.ValidationError{Msg: "recurrence interval must be >= 1"}
	}
	switch p.Frequency {
	case Daily, Weekly, Monthly:
	default:
		return nil, &draft.ValidationError{Msg: "unknown recurrence frequency: " + string(p.Frequency)}
	}

	duration := tpl.EndTime.Sub(tpl.StartTime)
	out := []*TimeSlot{}
	for start := tpl.StartTime; !start.After(rangeEnd); start = step(start, p) {
		if p.EndDate != nil && !onOrBeforeDay(start, *p.EndDate) {
			break
		}
		if start.Before(rangeStart) {
			continue
		}
		out = append(out, &TimeSlot{
			ID:          occurrenceID(tpl.ID, start),
			TeamID:      tpl.TeamID,
			StartTime:   start,
			EndTime:     start.Add(duration),
			IsAvailable: true,
			TemplateID:  tpl.ID,
		})
	}
	return out, nil
}

func step(t time.Time, p *RecurrencePattern) time.Time {
	switch p.Frequency {
	case Daily:
		return t.AddDate(0, 0, p.Interval)
	case Weekly:
		return t.AddDate(0, 0, 7*p.Interval)
	default:
		return t.AddDate(0, p.Interval, 0)
	}
}

// onOrBeforeDay compares by calendar day so an end date without a time of day
// still admits occurrences later that day.
func onOrBeforeDay(t, end time.Time) bool {
	ty, tm, td := t.In(end.Location()).Date()
	ey, em, ed := end.Date()
	if ty != ey {
		return ty < ey
	}
	if tm != em {
		return tm < em
	}
	return td <= ed
}

// occurrenceID is deterministic per (template, start) so repeated
// materialization passes cannot duplicate a slot.
func occurrenceID(templateID string, start time.Time) string {
	return templateID + "@" + start.UTC().Format(time.RFC3339)
}
