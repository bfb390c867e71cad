package models

import (
	"bytes"
	"encoding/json"
)

// DisplayName is a station name as rendered by the booking endpoint. The
// endpoint sends either a plain string or an array whose first element is the
// name.
type DisplayName string

func (d *DisplayName) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	if data[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return err
		}
		if len(names) == 0 {
			*d = ""
			return nil
		}
		*d = DisplayName(names[0])
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*d = DisplayName(name)
	return nil
}

// TrainEndpoint is one end of a train's run as seen by the query.
type TrainEndpoint struct {
	Code         string      `json:"code"`
	Station      DisplayName `json:"station"`
	StationTrain DisplayName `json:"stationTrain"`
	Time         string      `json:"time"`
	SourceDate   string      `json:"srcDate"`
}

// SeatClass is the number of free places in one carriage class.
type SeatClass struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Letter string `json:"letter"`
	Places int    `json:"places"`
}

// Train is one train returned for a query together with its free seats.
type Train struct {
	Number      string        `json:"num"`
	From        TrainEndpoint `json:"from"`
	To          TrainEndpoint `json:"to"`
	SeatClasses []SeatClass   `json:"types"`
}

// Seats sums free places over every seat class.
func (t Train) Seats() int {
	total := 0
	for _, c := range t.SeatClasses {
		total += c.Places
	}
	return total
}

// RouteResult is the outcome of one query. A non-nil Err marks the result as
// unusable (no service, bad date, transport failure).
type RouteResult struct {
	Query  Query
	Trains []Train
	Err    error
}

// OK reports whether the result carries train data.
func (r RouteResult) OK() bool {
	return r.Err == nil
}
