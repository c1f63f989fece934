package models

import (
	"slices"
	"time"

	id "examsite/pkg/domain"
)

// QueuePosition is a pending schedule's place in its venue/date queue.
type QueuePosition struct {
	ScheduleID      id.ScheduleID
	VenueID         id.VenueID
	Position        int
	TotalInQueue    int
	AverageDuration time.Duration
	EstimatedWait   time.Duration
}

// SortQueue orders schedules by start time, breaking ties by id.
func SortQueue(schedules []*Schedule) {
	slices.SortFunc(schedules, func(a, b *Schedule) int {
		if c := a.StartAt.Compare(b.StartAt); c != 0 {
			return c
		}
		return a.ID.Compare(b.ID)
	})
}

// PendingQueue returns the pending schedules of day in queue order.
func PendingQueue(day []*Schedule) []*Schedule {
	pending := make([]*Schedule, 0, len(day))
	for _, s := range day {
		if s.Status == StatusPending {
			pending = append(pending, s)
		}
	}
	SortQueue(pending)
	return pending
}

// AverageDuration is the mean slot length of the live schedules in day.
// Cancelled slots are ignored. Returns zero when nothing is live.
func AverageDuration(day []*Schedule) time.Duration {
	var total time.Duration
	n := 0
	for _, s := range day {
		if s.Status == StatusCancelled {
			continue
		}
		total += s.Duration()
		n++
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

// ComputeQueuePosition locates target among the schedules of its venue and
// date. ok is false when target is not pending.
func ComputeQueuePosition(target id.ScheduleID, day []*Schedule) (QueuePosition, bool) {
	pending := PendingQueue(day)
	for i, s := range pending {
		if s.ID != target {
			continue
		}
		avg := AverageDuration(day)
		return QueuePosition{
			ScheduleID:      s.ID,
			VenueID:         s.VenueID,
			Position:        i + 1,
			TotalInQueue:    len(pending),
			AverageDuration: avg,
			EstimatedWait:   time.Duration(i) * avg,
		}, true
	}
	return QueuePosition{}, false
}

// LatestEnd returns the end of the last live schedule in day, or the zero time.
func LatestEnd(day []*Schedule) time.Time {
	var latest time.Time
	for _, s := range day {
		if s.Status != StatusCancelled && s.EndAt.After(latest) {
			latest = s.EndAt
		}
	}
	return latest
}

// CountLive counts schedules in day that are not cancelled.
func CountLive(day []*Schedule) int {
	n := 0
	for _, s := range day {
		if s.Status != StatusCancelled {
			n++
		}
	}
	return n
}

// MaskName keeps the first rune of name and replaces the rest with one '*'.
func MaskName(name string) string {
	for _, r := range name {
		return string(r) + "*"
	}
	return ""
}
