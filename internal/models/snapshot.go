package models

// TimeColumn is the first column of every sheet.
const TimeColumn = "Time"

// NoneAvailable replaces a zero seat count in snapshot rows.
const NoneAvailable = "none available"

// SeatCount is the summed number of free seats for one route-date title.
type SeatCount int

// Display returns the cell value written to the workbook.
func (c SeatCount) Display() any {
	if c == 0 {
		return NoneAvailable
	}
	return int(c)
}

// SnapshotRow is the aggregated output of one poll cycle.
type SnapshotRow struct {
	Time   string
	Titles []string
	Seats  map[string]SeatCount
}

// NewSnapshotRow returns an empty row stamped with the given time of day.
func NewSnapshotRow(clock string) SnapshotRow {
	return SnapshotRow{
		Time:  clock,
		Seats: make(map[string]SeatCount),
	}
}

// Add records a title. Titles keep first-seen order; repeated titles
// accumulate.
func (r *SnapshotRow) Add(title string, seats SeatCount) {
	if r.Seats == nil {
		r.Seats = make(map[string]SeatCount)
	}
	if _, ok := r.Seats[title]; !ok {
		r.Titles = append(r.Titles, title)
	}
	r.Seats[title] += seats
}

// Columns lists the row's column names, Time first.
func (r SnapshotRow) Columns() []string {
	columns := make([]string, 0, len(r.Titles)+1)
	columns = append(columns, TimeColumn)
	return append(columns, r.Titles...)
}

// Cell returns the display value for a column and whether the row has it.
func (r SnapshotRow) Cell(column string) (any, bool) {
	if column == TimeColumn {
		return r.Time, true
	}
	seats, ok := r.Seats[column]
	if !ok {
		return nil, false
	}
	return seats.Display(), true
}
