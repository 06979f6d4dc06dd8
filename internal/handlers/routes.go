package handlers

import (
	"github.com/gin-gonic/gin"

	"desyn-backend/internal/middleware"
)

type Routes struct {
	Projects      *ProjectsHandler
	Frames        *FramesHandler
	Collaborators *CollaboratorsHandler
	Sessions      *SessionHandler
	// AddLimiter throttles collaborator invitations. Optional.
	AddLimiter *middleware.RateLimiter
}

// RegisterRoutes mounts the project API on an authenticated group.
func RegisterRoutes(api *gin.RouterGroup, r Routes) {
	api.POST("/projects", r.Projects.CreateProject)
	api.GET("/projects", r.Projects.ListProjects)

	project := api.Group("/projects/:project_id")
	project.GET("", r.Projects.OpenProject)
	project.PATCH("", r.Projects.UpdateProject)
	project.POST("/thumbnail", r.Projects.RegenerateThumbnail)

	project.GET("/frames", r.Frames.ListFrames)
	project.POST("/frames", r.Frames.AddFrame)
	project.POST("/frames/reorder", r.Frames.ReorderFrames)
	project.PUT("/frames/:frame_id", r.Frames.SaveFrame)
	project.DELETE("/frames/:frame_id", r.Frames.DeleteFrame)
	project.PUT("/frames/:frame_id/layers", r.Frames.SaveLayers)
	project.PATCH("/frames/:frame_id/layers", r.Frames.EditLayer)
	project.POST("/frames/:frame_id/duplicate", r.Frames.DuplicateFrame)

	project.GET("/collaborators", r.Collaborators.ListCollaborators)
	add := []gin.HandlerFunc{r.Collaborators.AddCollaborator}
	if r.AddLimiter != nil {
		add = append([]gin.HandlerFunc{r.AddLimiter.Middleware()}, add...)
	}
	project.POST("/collaborators", add...)
	project.POST("/collaborators/refresh", r.Collaborators.RefreshCollaborators)

	if r.Sessions != nil {
		project.GET("/session", r.Sessions.Session)
	}
}
