package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"desyn-backend/internal/models"
	"desyn-backend/internal/services"
)

type CollaboratorsHandler struct {
	svc *services.ProjectService
}

func NewCollaboratorsHandler(svc *services.ProjectService) *CollaboratorsHandler {
	return &CollaboratorsHandler{svc: svc}
}

// ListCollaborators godoc
// @Summary     List collaborators
// @Description Resolves the current profile of every user with access, owner first
// @Tags        collaborators
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.CollaboratorListResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/collaborators [get]
func (h *CollaboratorsHandler) ListCollaborators(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	profiles, err := h.svc.ListCollaborators(c.Request.Context(), c.Param("project_id"), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	c.JSON(http.StatusOK, models.CollaboratorListResponse{Collaborators: profiles})
}

// AddCollaborator godoc
// @Summary     Add a collaborator by email
// @Description Grants edit access to the user registered under the email. Owner only.
// @Tags        collaborators
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Param       request body models.AddCollaboratorRequest true "Collaborator email"
// @Success     200 {object} models.AddCollaboratorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     429 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/collaborators [post]
func (h *CollaboratorsHandler) AddCollaborator(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.AddCollaboratorRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.svc.AddCollaborator(c.Request.Context(), c.Param("project_id"), uid, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.AddCollaboratorResponse{
		Added:        res.Added,
		Message:      res.Message,
		Collaborator: res.Collaborator,
	})
}

// RefreshCollaborators godoc
// @Summary     Refresh collaborator snapshots
// @Description Re-reads every collaborator profile and rewrites the stored snapshots
// @Tags        collaborators
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.RefreshCollaboratorsResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/collaborators/refresh [post]
func (h *CollaboratorsHandler) RefreshCollaborators(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.svc.RefreshCollaborators(c.Request.Context(), c.Param("project_id"), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []models.Collaborator{}
	}
	c.JSON(http.StatusOK, models.RefreshCollaboratorsResponse{Collaborators: list})
}
