package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"desyn-backend/internal/models"
	"desyn-backend/internal/services"
)

type FramesHandler struct {
	svc *services.ProjectService
	hub *services.SessionHub
}

// NewFramesHandler takes the session hub so that deleted frames are dropped
// from pending autosaves. hub may be nil.
func NewFramesHandler(svc *services.ProjectService, hub *services.SessionHub) *FramesHandler {
	return &FramesHandler{svc: svc, hub: hub}
}

// ListFrames godoc
// @Summary     List frames
// @Tags        frames
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.FrameListResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/frames [get]
func (h *FramesHandler) ListFrames(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.svc.ListFrames(c.Request.Context(), c.Param("project_id"), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewFrameListResponse(list))
}

// AddFrame godoc
// @Summary     Append a blank frame
// @Tags        frames
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Success     201 {object} models.FrameResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/frames [post]
func (h *FramesHandler) AddFrame(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	f, err := h.svc.AddFrame(c.Request.Context(), c.Param("project_id"), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.NewFrameResponse(*f))
}

// SaveFrame godoc
// @Summary     Save a frame
// @Description Stores the image of an existing frame. Unchanged content is not rewritten. frame_number, when sent, must match the frame's current position.
// @Tags        frames
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Param       frame_id path string true "Frame ID"
// @Param       request body models.SaveFrameRequest true "Frame content"
// @Success     200 {object} models.SaveFrameResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/frames/{frame_id} [put]
func (h *FramesHandler) SaveFrame(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.SaveFrameRequest
	if !bindJSON(c, &req) {
		return
	}

	projectID, frameID := c.Param("project_id"), c.Param("frame_id")
	written, err := h.svc.SaveFrame(c.Request.Context(), projectID, uid, models.Frame{
		ID:        frameID,
		ProjectID: projectID,
		ImageData: req.ImageData,
		Layers:    req.Layers,
	}, req.FrameNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SaveFrameResponse{FrameID: frameID, Written: written})
}

// SaveLayers godoc
// @Summary     Save a frame's layers
// @Tags        frames
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Param       frame_id path string true "Frame ID"
// @Param       request body models.SaveLayersRequest true "Layer stack"
// @Success     200 {object} models.SaveFrameResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/frames/{frame_id}/layers [put]
func (h *FramesHandler) SaveLayers(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.SaveLayersRequest
	if !bindJSON(c, &req) {
		return
	}

	frameID := c.Param("frame_id")
	written, err := h.svc.SaveLayers(c.Request.Context(), c.Param("project_id"), uid, frameID, req.Layers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SaveFrameResponse{FrameID: frameID, Written: written})
}

// EditLayer godoc
// @Summary     Edit one layer
// @Description Adds, toggles, renames, repaints or deletes a layer. The last layer cannot be deleted.
// @Tags        frames
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Param       frame_id path string true "Frame ID"
// @Param       request body models.LayerOpRequest true "Layer operation"
// @Success     200 {object} models.LayersResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/frames/{frame_id}/layers [patch]
func (h *FramesHandler) EditLayer(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.LayerOpRequest
	if !bindJSON(c, &req) {
		return
	}

	frameID := c.Param("frame_id")
	layers, err := h.svc.EditLayer(c.Request.Context(), c.Param("project_id"), uid, frameID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.LayersResponse{FrameID: frameID, Layers: layers})
}

// DeleteFrame godoc
// @Summary     Delete a frame
// @Description Removes the frame and renumbers the remaining frames. The last frame cannot be deleted.
// @Tags        frames
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Param       frame_id path string true "Frame ID"
// @Success     200 {object} models.FrameListResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/frames/{frame_id} [delete]
func (h *FramesHandler) DeleteFrame(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	projectID, frameID := c.Param("project_id"), c.Param("frame_id")
	list, err := h.svc.DeleteFrame(c.Request.Context(), projectID, uid, frameID)
	if err != nil {
		respondError(c, err)
		return
	}
	if h.hub != nil {
		h.hub.DiscardFrame(projectID, frameID)
	}
	c.JSON(http.StatusOK, models.NewFrameListResponse(list))
}

// DuplicateFrame godoc
// @Summary     Duplicate a frame
// @Description Inserts a copy directly after the source frame
// @Tags        frames
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Param       frame_id path string true "Frame ID"
// @Success     201 {object} models.FrameResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/frames/{frame_id}/duplicate [post]
func (h *FramesHandler) DuplicateFrame(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	f, err := h.svc.DuplicateFrame(c.Request.Context(), c.Param("project_id"), uid, c.Param("frame_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.NewFrameResponse(*f))
}

// ReorderFrames godoc
// @Summary     Reorder frames
// @Description Applies all new frame numbers in one atomic batch
// @Tags        frames
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Param       request body models.ReorderFramesRequest true "New positions"
// @Success     200 {object} models.FrameListResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/frames/reorder [post]
func (h *FramesHandler) ReorderFrames(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.ReorderFramesRequest
	if !bindJSON(c, &req) {
		return
	}

	list, err := h.svc.ReorderFrames(c.Request.Context(), c.Param("project_id"), uid, req.Frames)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewFrameListResponse(list))
}
