package restapi

import (
	"net/http"

	"seatwatch.app/internal/models"
	"seatwatch.app/internal/utils"
)

type sheetSummary struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

type sheetEntry struct {
	Name   string   `json:"name"`
	Header []string `json:"header"`
	Rows   [][]any  `json:"rows"`
}

func (api *RestAPI) sheetsHandler(w http.ResponseWriter, r *http.Request) {
	sheets := api.Workbook.Snapshot()
	list := make([]sheetSummary, 0, len(sheets))
	for _, sheet := range sheets {
		columns := sheet.Header
		if columns == nil {
			columns = []string{}
		}
		list = append(list, sheetSummary{Name: sheet.Name, Columns: columns, Rows: len(sheet.Rows)})
	}

	api.sendResponse(w, r, models.NewListResponse(list))
}

func (api *RestAPI) sheetHandler(w http.ResponseWriter, r *http.Request) {
	key := utils.ExtractParam(r, "key")
	if err := utils.ValidateSheetKey(key); err != nil {
		api.validationErrorResponse(w, r, map[string][]string{"key": {err.Error()}})
		return
	}

	sheet, ok := api.Workbook.Sheet(key)
	if !ok {
		api.sendNotFound(w, r)
		return
	}

	entry := sheetEntry{Name: sheet.Name, Header: sheet.Header, Rows: sheet.Rows}
	if entry.Header == nil {
		entry.Header = []string{}
	}
	if entry.Rows == nil {
		entry.Rows = [][]any{}
	}
	api.sendResponse(w, r, models.NewEntryResponse(entry))
}
