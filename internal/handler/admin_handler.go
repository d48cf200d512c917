package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nandakv/regio/internal/export"
	"github.com/nandakv/regio/internal/service"
)

type AdminHandler struct {
	svc      *service.AdminService
	composer *export.Composer
}

func NewAdminHandler(svc *service.AdminService, composer *export.Composer) *AdminHandler {
	return &AdminHandler{svc: svc, composer: composer}
}

func parseFilter(r *http.Request) service.Filter {
	q := r.URL.Query()
	minAge, _ := strconv.Atoi(q.Get("minAge"))
	maxAge, _ := strconv.Atoi(q.Get("maxAge"))
	return service.Filter{
		Name:     q.Get("name"),
		Mandalam: q.Get("mandalam"),
		Mekhala:  q.Get("mekhala"),
		Unit:     q.Get("unit"),
		MinAge:   minAge,
		MaxAge:   maxAge,
	}
}

// List returns all registrants passing the query-string filter, newest
// submission first.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(parseFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"registrants": recs,
		"total":       len(recs),
	})
}

// ExportCSV streams the filtered listing as CSV.
func (h *AdminHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(parseFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	data, err := export.CSV(recs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="filtered_registrants.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// ExportPDF streams the filtered listing as a tabular PDF.
func (h *AdminHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(parseFilter(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	data, err := h.composer.Table(recs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="registrants_%d.pdf"`, len(recs)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	total, byMandalam, err := h.svc.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":      total,
		"byMandalam": byMandalam,
	})
}
