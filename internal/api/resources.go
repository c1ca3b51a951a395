package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Masterjii/CodesForTomorrow/internal/resource"
)

// resourceRoomPrefix names the per-resource WebSocket room; clients join
// "resource_<id>" to receive updates for that resource only.
const resourceRoomPrefix = "resource_"

// createResourceRequest is the request body for POST /createResources.
type createResourceRequest struct {
	Name        string `json:"name"        validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"max=1024"`
}

// updateResourceRequest is the request body for PUT /updateResources/{id}.
// A nil Description leaves the stored description unchanged.
type updateResourceRequest struct {
	Name        string  `json:"name"        validate:"required,min=1,max=128"`
	Description *string `json:"description" validate:"omitempty,max=1024"`
}

// handleCreateResource creates a new resource.
func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var req createResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	res := &resource.Resource{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.resources.Create(r.Context(), res); err != nil {
		s.logger.Error("resource creation failed", "error", err)
		writeInternalError(w, "failed to create resource")
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// handleListResources returns all resources.
func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := s.resources.List(r.Context())
	if err != nil {
		s.logger.Error("resource listing failed", "error", err)
		writeInternalError(w, "failed to list resources")
		return
	}
	writeJSON(w, http.StatusOK, resources)
}

// handleUpdateResource updates a resource and notifies subscribers.
//
// After a successful write the updated resource is broadcast as a
// resourceUpdated event to members of the "resource_<id>" room. When
// the MQTT bridge is connected the event is also published there,
// best-effort.
func (s *Server) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	res, err := s.resources.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, resource.ErrResourceNotFound) {
			writeNotFound(w, "resource not found")
			return
		}
		s.logger.Error("resource lookup failed", "id", id, "error", err)
		writeInternalError(w, "failed to update resource")
		return
	}

	res.Name = req.Name
	if req.Description != nil {
		res.Description = *req.Description
	}

	if err := s.resources.Update(r.Context(), res); err != nil {
		if errors.Is(err, resource.ErrResourceNotFound) {
			writeNotFound(w, "resource not found")
			return
		}
		s.logger.Error("resource update failed", "id", id, "error", err)
		writeInternalError(w, "failed to update resource")
		return
	}

	s.notifyResourceUpdated(res)

	writeJSON(w, http.StatusOK, res)
}

// notifyResourceUpdated fans a resourceUpdated event out to WebSocket
// subscribers and, when configured, the MQTT bridge. Delivery failures
// never affect the HTTP response.
func (s *Server) notifyResourceUpdated(res *resource.Resource) {
	if s.hub != nil {
		s.hub.BroadcastToRoom(resourceRoomPrefix+res.ID, WSEventResourceUpdated, res)
	}

	if s.mqtt != nil && s.mqtt.IsConnected() {
		if err := s.mqtt.PublishEvent("resource/"+res.ID, WSEventResourceUpdated, res); err != nil {
			s.logger.Warn("mqtt publish failed", "resource_id", res.ID, "error", err)
		}
	}
}
