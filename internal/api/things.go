package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emberhome/ember-core/internal/manager"
	"github.com/emberhome/ember-core/internal/thing"
)

// handleListThings returns every registered thing.
func (s *Server) handleListThings(w http.ResponseWriter, _ *http.Request) {
	things := s.manager.Things()
	writeJSON(w, http.StatusOK, map[string]any{
		"things": things,
		"count":  len(things),
	})
}

// handleGetThing returns a single thing by ID.
func (s *Server) handleGetThing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	th, ok := s.manager.Thing(id)
	if !ok {
		writeNotFound(w, "thing not found")
		return
	}
	writeJSON(w, http.StatusOK, th)
}

// handleListProperties returns all property values of a thing as a flat
// name-to-value object, the same shape property reads and writes use.
func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	th, ok := s.manager.Thing(id)
	if !ok {
		writeNotFound(w, "thing not found")
		return
	}

	values := make(map[string]any, len(th.Properties))
	for name, p := range th.Properties {
		values[name] = p.Value
	}
	writeJSON(w, http.StatusOK, values)
}

// handleGetProperty returns one property value in the single-key form:
//
//	{"on": true}
func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	p, err := s.manager.Property(id, name)
	if err != nil {
		writePropertyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{name: p.Value})
}

// handleSetProperty dispatches a property write. The body uses the same
// single-key form as reads:
//
//	PUT /things/plug-7/properties/on
//	{"on": true}
//
// A 200 response means the command was accepted by the adapter; the
// authoritative value arrives via the event stream once the device
// confirms. The response echoes the requested value.
func (s *Server) handleSetProperty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	value, ok := body[name]
	if !ok {
		writeBadRequest(w, "body must contain the property name as its key")
		return
	}

	if err := s.manager.SetProperty(r.Context(), id, name, value); err != nil {
		writePropertyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{name: value})
}

// writePropertyError maps manager and thing errors onto HTTP responses.
func writePropertyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, manager.ErrDeviceNotFound):
		writeNotFound(w, "thing not found")
	case errors.Is(err, thing.ErrPropertyNotFound):
		writeNotFound(w, "property not found")
	case errors.Is(err, thing.ErrPropertyReadOnly):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "property is read-only")
	case errors.Is(err, thing.ErrInvalidPropertyValue):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "value does not match property type")
	case errors.Is(err, manager.ErrAdapterUnavailable):
		writeError(w, http.StatusBadGateway, ErrCodeInternal, "owning adapter unavailable")
	default:
		writeInternalError(w, "property operation failed")
	}
}
