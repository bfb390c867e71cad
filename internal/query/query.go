// Package query expands poll jobs into the individual lookups sent to the
// booking endpoint.
package query

import (
	"net/url"

	"seatwatch.app/internal/models"
)

// DepartureTime is the earliest departure sent with every lookup; the
// endpoint returns every train of the day from that point on.
const DepartureTime = "00:00"

// BuildQueries returns one query per covered date, plus the reverse
// direction when the job runs both ways. Dates come first; within a date the
// forward direction precedes the reverse one.
func BuildQueries(job models.PollJob) []models.Query {
	days := job.Days()
	size := days
	if job.BothWays {
		size *= 2
	}

	queries := make([]models.Query, 0, size)
	for i := 0; i < days; i++ {
		date := job.StartDate.AddDate(0, 0, i)
		queries = append(queries, models.Query{From: job.From, To: job.To, Date: date})
		if job.BothWays {
			queries = append(queries, models.Query{From: job.To, To: job.From, Date: date})
		}
	}
	return queries
}

// Form encodes a query as the endpoint's form payload.
func Form(q models.Query) url.Values {
	params := url.Values{}
	params.Set("from", q.From)
	params.Set("to", q.To)
	params.Set("time", DepartureTime)
	params.Set("date", q.Date.Format(models.DateLayout))
	return params
}
