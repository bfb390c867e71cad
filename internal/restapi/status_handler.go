package restapi

import (
	"net/http"
	"time"

	"seatwatch.app/internal/models"
	"seatwatch.app/internal/schedule"
	"seatwatch.app/internal/workbook"
)

type statusEntry struct {
	StartedAt            time.Time            `json:"startedAt"`
	UptimeSeconds        int64                `json:"uptimeSeconds"`
	NotificationsEnabled bool                 `json:"notificationsEnabled"`
	Jobs                 []schedule.JobStatus `json:"jobs"`
	Workbook             workbook.Stats       `json:"workbook"`
}

func (api *RestAPI) statusHandler(w http.ResponseWriter, r *http.Request) {
	entry := statusEntry{
		StartedAt:     api.StartedAt,
		UptimeSeconds: int64(time.Since(api.StartedAt).Seconds()),
		Jobs:          []schedule.JobStatus{},
	}
	if api.Gate != nil {
		entry.NotificationsEnabled = api.Gate.Enabled()
	}
	if api.Scheduler != nil {
		entry.Jobs = api.Scheduler.Jobs()
	}
	if api.Workbook != nil {
		entry.Workbook = api.Workbook.Stats()
	}

	api.sendResponse(w, r, models.NewEntryResponse(entry))
}
