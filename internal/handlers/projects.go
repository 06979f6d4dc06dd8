package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"desyn-backend/internal/models"
	"desyn-backend/internal/services"
)

type ProjectsHandler struct {
	svc *services.ProjectService
}

func NewProjectsHandler(svc *services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{svc: svc}
}

// CreateProject godoc
// @Summary     Create a project
// @Description Creates an empty animation project owned by the caller
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body models.CreateProjectRequest true "Project settings"
// @Success     201 {object} models.ProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /api/v1/projects [post]
func (h *ProjectsHandler) CreateProject(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.svc.Create(c.Request.Context(), uid, req.Title, req.FPS, req.Width, req.Height)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.NewProjectResponse(p))
}

// ListProjects godoc
// @Summary     List projects
// @Description Lists the projects the caller owns or collaborates on, most recently updated first
// @Tags        projects
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.ProjectListResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /api/v1/projects [get]
func (h *ProjectsHandler) ListProjects(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	projects, err := h.svc.List(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}

	summaries := make([]models.ProjectSummary, len(projects))
	for i, p := range projects {
		summaries[i] = models.ProjectSummary{
			ID:          p.ID,
			Title:       p.Title,
			OwnerID:     p.OwnerID,
			TotalFrames: p.TotalFrames,
			Thumbnail:   p.Thumbnail,
			UpdatedAt:   p.UpdatedAt,
		}
	}
	c.JSON(http.StatusOK, models.ProjectListResponse{Projects: summaries})
}

// OpenProject godoc
// @Summary     Open a project
// @Description Loads the project metadata and all frames, creating a blank first frame when the project is empty
// @Tags        projects
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.OpenProjectResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id} [get]
func (h *ProjectsHandler) OpenProject(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	opened, err := h.svc.Open(c.Request.Context(), c.Param("project_id"), uid)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.OpenProjectResponse{
		Project: models.NewProjectResponse(opened.Project),
		Frames:  models.NewFrameListResponse(opened.Frames).Frames,
	})
}

// UpdateProject godoc
// @Summary     Update project metadata
// @Description Changes title, fps, dimensions or frame count. Owner only.
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Param       request body models.UpdateProjectRequest true "Fields to change"
// @Success     200 {object} models.ProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id} [patch]
func (h *ProjectsHandler) UpdateProject(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.UpdateProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	fields := req.Fields()
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: "no fields to update"})
		return
	}

	p, err := h.svc.UpdateMetadata(c.Request.Context(), c.Param("project_id"), uid, fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewProjectResponse(p))
}

// RegenerateThumbnail godoc
// @Summary     Regenerate the project thumbnail
// @Description Renders frame 0 into a preview image and stores its URL on the project
// @Tags        projects
// @Produce     json
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Success     200 {object} models.ThumbnailResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/thumbnail [post]
func (h *ProjectsHandler) RegenerateThumbnail(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	url, err := h.svc.RegenerateThumbnail(c.Request.Context(), c.Param("project_id"), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ThumbnailResponse{Thumbnail: url})
}
