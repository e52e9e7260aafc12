// Package docs registers the OpenAPI description served at /docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/creatures": {
            "get": {
                "tags": ["catalog"],
                "summary": "List creatures",
                "parameters": [
                    {"type": "string", "description": "fuzzy name search", "name": "q", "in": "query"},
                    {"type": "integer", "description": "max search results", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/creatures/{copyId}": {
            "get": {
                "tags": ["catalog"],
                "summary": "Creature info",
                "parameters": [{"type": "integer", "description": "copy id", "name": "copyId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}}
            }
        },
        "/families": {
            "get": {"tags": ["catalog"], "summary": "List families", "responses": {"200": {"description": "OK"}}}
        },
        "/schemas/{category}": {
            "get": {
                "tags": ["catalog"],
                "summary": "Document JSON schema",
                "parameters": [{"type": "string", "description": "actor, horse, crafting or item", "name": "category", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/generate": {
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["generation"],
                "summary": "Generate a creature bundle",
                "parameters": [{"description": "generation input", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/generator.Input"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/bundles": {
            "get": {"tags": ["bundles"], "summary": "List stored bundles", "responses": {"200": {"description": "OK"}}}
        },
        "/bundles/{key}/preview": {
            "get": {
                "tags": ["bundles"],
                "summary": "Preview a bundle",
                "parameters": [{"type": "string", "description": "bundle key", "name": "key", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/bundles/{key}/download": {
            "get": {
                "produces": ["application/zip"],
                "tags": ["bundles"],
                "summary": "Download a bundle archive",
                "parameters": [{"type": "string", "description": "bundle key", "name": "key", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/bundles/{key}/files/{filename}": {
            "get": {
                "tags": ["bundles"],
                "summary": "Download one document",
                "parameters": [
                    {"type": "string", "description": "bundle key", "name": "key", "in": "path", "required": true},
                    {"type": "string", "description": "file name", "name": "filename", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/batch": {
            "post": {"security": [{"Bearer": []}], "tags": ["batch"], "summary": "Generate every family synchronously", "responses": {"201": {"description": "Created"}}}
        },
        "/batch/jobs": {
            "post": {"security": [{"Bearer": []}], "tags": ["batch"], "summary": "Start a background batch", "responses": {"202": {"description": "Accepted"}}}
        },
        "/batch/jobs/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["batch"],
                "summary": "Background batch status",
                "parameters": [{"type": "string", "description": "job id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/batch/stream": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["batch"],
                "summary": "Stream batch progress",
                "parameters": [{"type": "string", "description": "author", "name": "author", "in": "query", "required": true}],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        },
        "/counters": {
            "get": {"tags": ["counters"], "summary": "Current counters", "responses": {"200": {"description": "OK"}}}
        },
        "/counters/reset": {
            "post": {"security": [{"Bearer": []}], "tags": ["counters"], "summary": "Reset counters", "responses": {"200": {"description": "OK"}}}
        },
        "/auth/token": {
            "post": {"tags": ["auth"], "summary": "Issue an admin token", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        }
    },
    "definitions": {
        "middleware.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"},
                        "details": {"type": "string"},
                        "retry_after_ms": {"type": "integer"}
                    }
                }
            }
        },
        "generator.Input": {
            "type": "object",
            "properties": {
                "author": {"type": "string"},
                "copy_id": {"type": "integer"},
                "mod_id": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "MiniWorld Mod Generator API",
	Description:      "Generates linked actor, mount, crafting and item documents for creature mods.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
