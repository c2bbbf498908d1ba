package httpapi

import (
	"net/http"

	"github.com/CalHacks12USF/fregister-backend/mlconnector"
)

type latestEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Cached  bool `json:"cached"`
}

func (s *Server) saveInventory(w http.ResponseWriter, r *http.Request) {
	var payload mlconnector.Payload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, s.logger, err)
		return
	}

	snapshot, err := s.services.Ingestion.SaveInventoryData(r.Context(), payload)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Data:    snapshot,
		Message: "Inventory data saved successfully",
	})
}

func (s *Server) latestInventory(w http.ResponseWriter, r *http.Request) {
	latest, err := s.services.Inventory.GetLatest(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, latestEnvelope{Success: true, Data: latest.Data, Cached: latest.Cached})
}

func (s *Server) inventoryHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, DefaultInventoryLimit, MaxInventoryLimit)
	page, err := s.services.Inventory.GetHistory(r.Context(), limit, offset)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedEnvelope{
		Success: true,
		Data:    page.Data,
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
}
