package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by the booking endpoint.
const DateLayout = "2006-01-02"

// PollJob describes one recurring or one-shot availability poll.
type PollJob struct {
	Name      string
	From      string
	To        string
	StartDate time.Time
	DaySpan   int
	BothWays  bool
	// Interval is the polling cadence. Zero means the job fires once.
	Interval time.Duration
	// Cron, when set, is a cron expression or descriptor ("@every 5m")
	// that takes precedence over Interval.
	Cron     string
	Priority bool
}

// OneShot reports whether the job fires exactly once.
func (j PollJob) OneShot() bool {
	return j.Interval <= 0 && j.Cron == ""
}

// Days returns the number of consecutive dates covered by the job.
func (j PollJob) Days() int {
	if j.DaySpan < 1 {
		return 1
	}
	return j.DaySpan
}

// SheetKey derives the workbook sheet that collects this job's rows.
func (j PollJob) SheetKey() string {
	return SheetKey(j.StartDate, j.From, j.To)
}

// SheetKey formats "<DD>.<MM> <from>-<to>".
func SheetKey(start time.Time, from, to string) string {
	return fmt.Sprintf("%02d.%02d %s-%s", start.Day(), int(start.Month()), from, to)
}

// Query is a single (origin, destination, date) lookup.
type Query struct {
	From string
	To   string
	Date time.Time
}

func (q Query) String() string {
	return fmt.Sprintf("%s->%s %s", q.From, q.To, q.Date.Format(DateLayout))
}
