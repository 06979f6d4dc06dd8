// Package docs holds the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "email": "support@example.com"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Returns the health status of the API",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.HealthResponse"}}
                }
            }
        },
        "/api/v1/projects": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Lists the projects the caller owns or collaborates on, most recently updated first",
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "List projects",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ProjectListResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Creates an empty animation project owned by the caller",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "Create a project",
                "parameters": [
                    {"description": "Project settings", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateProjectRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.ProjectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/v1/projects/{project_id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Loads the project metadata and all frames, creating a blank first frame when the project is empty",
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "Open a project",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.OpenProjectResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "Changes title, fps, dimensions or frame count. Owner only.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "Update project metadata",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.UpdateProjectRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ProjectResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/v1/projects/{project_id}/thumbnail": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Renders frame 0 into a preview image and stores its URL on the project",
                "produces": ["application/json"],
                "tags": ["projects"],
                "summary": "Regenerate the project thumbnail",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ThumbnailResponse"}}
                }
            }
        },
        "/api/v1/projects/{project_id}/frames": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["frames"],
                "summary": "List frames",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.FrameListResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["frames"],
                "summary": "Append a blank frame",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.FrameResponse"}}
                }
            }
        },
        "/api/v1/projects/{project_id}/frames/reorder": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Applies all new frame numbers in one atomic batch",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["frames"],
                "summary": "Reorder frames",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true},
                    {"description": "New positions", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ReorderFramesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.FrameListResponse"}}
                }
            }
        },
        "/api/v1/projects/{project_id}/frames/{frame_id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Stores the image of an existing frame. Unchanged content is not rewritten. frame_number, when sent, must match the frame's current position.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["frames"],
                "summary": "Save a frame",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true},
                    {"type": "string", "description": "Frame ID", "name": "frame_id", "in": "path", "required": true},
                    {"description": "Frame content", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.SaveFrameRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SaveFrameResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Removes the frame and renumbers the remaining frames. The last frame cannot be deleted.",
                "produces": ["application/json"],
                "tags": ["frames"],
                "summary": "Delete a frame",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true},
                    {"type": "string", "description": "Frame ID", "name": "frame_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.FrameListResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/v1/projects/{project_id}/frames/{frame_id}/layers": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["frames"],
                "summary": "Save a frame's layers",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true},
                    {"type": "string", "description": "Frame ID", "name": "frame_id", "in": "path", "required": true},
                    {"description": "Layer stack", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.SaveLayersRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SaveFrameResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "Adds, toggles, renames, repaints or deletes a layer. The last layer cannot be deleted.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["frames"],
                "summary": "Edit one layer",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true},
                    {"type": "string", "description": "Frame ID", "name": "frame_id", "in": "path", "required": true},
                    {"description": "Layer operation", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.LayerOpRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.LayersResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/v1/projects/{project_id}/frames/{frame_id}/duplicate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Inserts a copy directly after the source frame",
                "produces": ["application/json"],
                "tags": ["frames"],
                "summary": "Duplicate a frame",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true},
                    {"type": "string", "description": "Frame ID", "name": "frame_id", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.FrameResponse"}}
                }
            }
        },
        "/api/v1/projects/{project_id}/collaborators": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Resolves the current profile of every user with access, owner first",
                "produces": ["application/json"],
                "tags": ["collaborators"],
                "summary": "List collaborators",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.CollaboratorListResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Grants edit access to the user registered under the email. Owner only.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["collaborators"],
                "summary": "Add a collaborator by email",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true},
                    {"description": "Collaborator email", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.AddCollaboratorRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.AddCollaboratorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/api/v1/projects/{project_id}/collaborators/refresh": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Re-reads every collaborator profile and rewrites the stored snapshots",
                "produces": ["application/json"],
                "tags": ["collaborators"],
                "summary": "Refresh collaborator snapshots",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.RefreshCollaboratorsResponse"}}
                }
            }
        },
        "/api/v1/projects/{project_id}/session": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Upgrades to a WebSocket carrying frame, layer and metadata edits. Edits are autosaved; save_now flushes them immediately.",
                "tags": ["sessions"],
                "summary": "Open an editing session",
                "parameters": [
                    {"type": "string", "description": "Project ID", "name": "project_id", "in": "path", "required": true},
                    {"type": "string", "description": "JWT when the Authorization header cannot be set", "name": "access_token", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.AddCollaboratorRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {"email": {"type": "string", "example": "friend@example.com"}}
        },
        "models.AddCollaboratorResponse": {
            "type": "object",
            "properties": {
                "added": {"type": "boolean"},
                "message": {"type": "string"},
                "collaborator": {"$ref": "#/definitions/models.Collaborator"}
            }
        },
        "models.Collaborator": {
            "type": "object",
            "properties": {
                "uid": {"type": "string"},
                "displayName": {"type": "string"},
                "avatarUrl": {"type": "string"},
                "email": {"type": "string"},
                "joinedAt": {"type": "string"}
            }
        },
        "models.CollaboratorListResponse": {
            "type": "object",
            "properties": {"collaborators": {"type": "array", "items": {"$ref": "#/definitions/models.Profile"}}}
        },
        "models.CreateProjectRequest": {
            "type": "object",
            "required": ["fps", "height", "width"],
            "properties": {
                "title": {"type": "string", "example": "Walk cycle"},
                "fps": {"type": "integer", "example": 24},
                "width": {"type": "integer", "example": 640},
                "height": {"type": "integer", "example": 360}
            }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "message": {"type": "string"}}
        },
        "models.FrameListResponse": {
            "type": "object",
            "properties": {"frames": {"type": "array", "items": {"$ref": "#/definitions/models.FrameResponse"}}}
        },
        "models.FrameOrder": {
            "type": "object",
            "required": ["frame_id"],
            "properties": {"frame_id": {"type": "string"}, "frame_number": {"type": "integer"}}
        },
        "models.FrameResponse": {
            "type": "object",
            "properties": {
                "frame_id": {"type": "string"},
                "frame_number": {"type": "integer"},
                "image_data": {"type": "string"},
                "layers": {"type": "array", "items": {"$ref": "#/definitions/models.Layer"}},
                "updated_at": {"type": "string"}
            }
        },
        "models.HealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "storage": {"type": "string"}}
        },
        "models.Layer": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "visible": {"type": "boolean"},
                "data": {"type": "string"}
            }
        },
        "models.LayerOpRequest": {
            "type": "object",
            "required": ["op"],
            "properties": {
                "op": {"type": "string", "enum": ["add", "toggle", "rename", "set_data", "delete"], "example": "toggle"},
                "layer_id": {"type": "string"},
                "name": {"type": "string", "example": "Ink"},
                "data": {"type": "string"}
            }
        },
        "models.LayersResponse": {
            "type": "object",
            "properties": {
                "frame_id": {"type": "string"},
                "layers": {"type": "array", "items": {"$ref": "#/definitions/models.Layer"}}
            }
        },
        "models.OpenProjectResponse": {
            "type": "object",
            "properties": {
                "project": {"$ref": "#/definitions/models.ProjectResponse"},
                "frames": {"type": "array", "items": {"$ref": "#/definitions/models.FrameResponse"}}
            }
        },
        "models.Profile": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "display_name": {"type": "string"},
                "avatar_url": {"type": "string"},
                "email": {"type": "string"}
            }
        },
        "models.ProjectListResponse": {
            "type": "object",
            "properties": {"projects": {"type": "array", "items": {"$ref": "#/definitions/models.ProjectSummary"}}}
        },
        "models.ProjectResponse": {
            "type": "object",
            "properties": {
                "project_id": {"type": "string"},
                "title": {"type": "string"},
                "owner_id": {"type": "string"},
                "fps": {"type": "integer"},
                "width": {"type": "integer"},
                "height": {"type": "integer"},
                "total_frames": {"type": "integer"},
                "thumbnail": {"type": "string"},
                "allowed_users": {"type": "array", "items": {"type": "string"}},
                "collaborators": {"type": "array", "items": {"$ref": "#/definitions/models.Collaborator"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.ProjectSummary": {
            "type": "object",
            "properties": {
                "project_id": {"type": "string"},
                "title": {"type": "string"},
                "owner_id": {"type": "string"},
                "total_frames": {"type": "integer"},
                "thumbnail": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.RefreshCollaboratorsResponse": {
            "type": "object",
            "properties": {"collaborators": {"type": "array", "items": {"$ref": "#/definitions/models.Collaborator"}}}
        },
        "models.ReorderFramesRequest": {
            "type": "object",
            "required": ["frames"],
            "properties": {"frames": {"type": "array", "items": {"$ref": "#/definitions/models.FrameOrder"}}}
        },
        "models.SaveFrameRequest": {
            "type": "object",
            "properties": {
                "frame_number": {"type": "integer", "example": 0},
                "image_data": {"type": "string"},
                "layers": {"type": "array", "items": {"$ref": "#/definitions/models.Layer"}}
            }
        },
        "models.SaveFrameResponse": {
            "type": "object",
            "properties": {"frame_id": {"type": "string"}, "written": {"type": "boolean"}}
        },
        "models.SaveLayersRequest": {
            "type": "object",
            "properties": {"layers": {"type": "array", "items": {"$ref": "#/definitions/models.Layer"}}}
        },
        "models.ThumbnailResponse": {
            "type": "object",
            "properties": {"thumbnail": {"type": "string"}}
        },
        "models.UpdateProjectRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "fps": {"type": "integer"},
                "width": {"type": "integer"},
                "height": {"type": "integer"},
                "total_frames": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Desyn Animation Backend API",
	Description:      "Backend API for the Desyn animation editor. It stores projects and frames, coordinates autosave over WebSocket editing sessions, and manages collaborators.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
