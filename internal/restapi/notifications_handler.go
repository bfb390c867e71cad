package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"seatwatch.app/internal/logging"
	"seatwatch.app/internal/models"
)

const maxBodyBytes = 1 << 10

type notificationsRequest struct {
	Enabled *bool `json:"enabled"`
}

type notificationsEntry struct {
	Enabled bool `json:"enabled"`
}

func (api *RestAPI) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	var body notificationsRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{
			"body": {"must be a JSON object like {\"enabled\": true}"},
		})
		return
	}
	if body.Enabled == nil {
		api.validationErrorResponse(w, r, map[string][]string{
			"enabled": {"is required"},
		})
		return
	}

	api.Gate.SetEnabled(*body.Enabled)
	logging.LogOperation(logging.FromContext(r.Context()), "notifications_toggled",
		slog.Bool("enabled", *body.Enabled),
		slog.String("source", "http"))

	api.sendResponse(w, r, models.NewEntryResponse(notificationsEntry{Enabled: api.Gate.Enabled()}))
}
