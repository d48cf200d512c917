package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nandakv/regio/internal/export"
	"github.com/nandakv/regio/internal/flow"
	"github.com/nandakv/regio/internal/middleware"
	"github.com/nandakv/regio/internal/models"
	"github.com/nandakv/regio/internal/service"
	"github.com/nandakv/regio/internal/validate"
)

type RegistrationHandler struct {
	flow     *flow.Controller
	store    service.RegistrantStore
	composer *export.Composer
	baseURL  string
}

func NewRegistrationHandler(fc *flow.Controller, store service.RegistrantStore, composer *export.Composer, baseURL string) *RegistrationHandler {
	return &RegistrationHandler{flow: fc, store: store, composer: composer, baseURL: baseURL}
}

// Create accepts a registration submission as multipart form data or as
// JSON with a base64 photo. A confirmed submission answers 201; an
// optimistic one answers 202 with the provisional snapshot and the
// client polls Get for the outcome.
func (h *RegistrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	draft, accepted, err := readDraft(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !accepted {
		middleware.SubmissionsTotal.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": "validation failed",
			"violations": validate.Violations{
				{Field: "acceptedDeclaration", Message: "declaration must be accepted"},
			},
		})
		return
	}

	snap, err := h.flow.Submit(draft)
	if err != nil {
		h.writeSubmissionError(w, snap, err)
		return
	}

	if snap.State == flow.StateProvisional {
		writeJSON(w, http.StatusAccepted, snap)
		return
	}
	middleware.SubmissionsTotal.WithLabelValues("confirmed").Inc()
	writeJSON(w, http.StatusCreated, snap)
}

func (h *RegistrationHandler) writeSubmissionError(w http.ResponseWriter, snap flow.Snapshot, err error) {
	var violations validate.Violations
	if errors.As(err, &violations) {
		middleware.SubmissionsTotal.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      "validation failed",
			"violations": violations,
		})
		return
	}

	middleware.SubmissionsTotal.WithLabelValues("failed").Inc()
	status := http.StatusInternalServerError
	var identityErr *service.IdentityError
	var uploadErr *service.UploadError
	switch {
	case errors.As(err, &identityErr):
		status = http.StatusServiceUnavailable
	case errors.As(err, &uploadErr):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]any{"error": err.Error(), "flow": snap})
}

// Get reports the submission flow snapshot for an identity. A flow the
// controller no longer tracks but whose record reached the store is
// reported as confirmed.
func (h *RegistrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "id")
	if snap, ok := h.flow.Get(uid); ok {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	rec, err := h.store.FindByID(uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "registration not found")
		return
	}
	writeJSON(w, http.StatusOK, flow.Snapshot{State: flow.StateConfirmed, Record: rec})
}

// NewEntry discards a settled flow so the client can start over under a
// fresh identity.
func (h *RegistrationHandler) NewEntry(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "id")
	if err := h.flow.NewEntry(uid); err != nil {
		var terr *flow.TransitionError
		if errors.As(err, &terr) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, flow.Snapshot{State: flow.StateEmpty})
}

// Photo serves the stored registrant photo.
func (h *RegistrationHandler) Photo(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "id")
	data, contentType, err := h.store.GetPhoto(service.PhotoKey(uid))
	if err != nil {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// Pdf renders the registrant's profile document.
func (h *RegistrationHandler) Pdf(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "id")
	rec, err := h.lookup(uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "registration not found")
		return
	}

	var photo []byte
	if rec.PhotoURL != "" {
		photo, _, _ = h.store.GetPhoto(service.PhotoKey(uid))
	}

	data, err := h.composer.Profile(rec, photo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, profileFileName(rec.Name)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// Share returns the plain-text share payload alongside the PDF download
// URL, so a client whose share sheet is unavailable still gets the data.
func (h *RegistrationHandler) Share(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "id")
	rec, err := h.lookup(uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "registration not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"text":        export.ShareText(rec),
		"downloadUrl": h.baseURL + "/api/v1/registrations/" + uid + "/pdf",
	})
}

func (h *RegistrationHandler) lookup(uid string) (*models.Registrant, error) {
	if snap, ok := h.flow.Get(uid); ok && snap.Record != nil && snap.State != flow.StateSubmitting {
		return snap.Record, nil
	}
	return h.store.FindByID(uid)
}

func profileFileName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		s = "registrant"
	}
	return s + "_profile.pdf"
}

// readDraft decodes a submission from multipart form data or JSON.
// The returned bool reports whether the declaration was accepted.
func readDraft(r *http.Request) (models.Draft, bool, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		return readMultipartDraft(r)
	}

	var req struct {
		Name                string `json:"name"`
		Phone               string `json:"phone"`
		Age                 string `json:"age"`
		Mandalam            string `json:"mandalam"`
		Mekhala             string `json:"mekhala"`
		Unit                string `json:"unit"`
		Photo               string `json:"photo"`
		AcceptedDeclaration bool   `json:"acceptedDeclaration"`
	}
	if err := readJSON(r, &req); err != nil {
		return models.Draft{}, false, errors.New("invalid request body")
	}

	var photo []byte
	if req.Photo != "" {
		decoded, err := decodePhoto(req.Photo)
		if err != nil {
			return models.Draft{}, false, err
		}
		photo = decoded
	}

	return models.Draft{
		Name:     req.Name,
		Phone:    req.Phone,
		Age:      req.Age,
		Mandalam: req.Mandalam,
		Mekhala:  req.Mekhala,
		Unit:     req.Unit,
		Photo:    photo,
	}, req.AcceptedDeclaration, nil
}

func readMultipartDraft(r *http.Request) (models.Draft, bool, error) {
	// Max 12MB
	if err := r.ParseMultipartForm(12 << 20); err != nil {
		return models.Draft{}, false, errors.New("invalid multipart body")
	}

	var photo []byte
	if file, _, err := r.FormFile("photo"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return models.Draft{}, false, errors.New("failed to read photo")
		}
		photo = data
	}

	accepted := r.FormValue("acceptedDeclaration") == "true"
	return models.Draft{
		Name:     r.FormValue("name"),
		Phone:    r.FormValue("phone"),
		Age:      r.FormValue("age"),
		Mandalam: r.FormValue("mandalam"),
		Mekhala:  r.FormValue("mekhala"),
		Unit:     r.FormValue("unit"),
		Photo:    photo,
	}, accepted, nil
}

// decodePhoto accepts raw base64 or a data URL.
func decodePhoto(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")
		if idx < 0 {
			return nil, errors.New("invalid photo data URL")
		}
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New("invalid photo encoding")
	}
	return data, nil
}
