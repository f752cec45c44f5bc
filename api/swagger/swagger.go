package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "University Body Documents API",
        "description": "Document publication and approval workflow for university bodies",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh and session management"},
        {"name": "Documents", "description": "Upload, review and publication of documents"},
        {"name": "Units", "description": "University bodies owning documents"},
        {"name": "Users", "description": "Administrator accounts"},
        {"name": "System", "description": "Health and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {"tags": ["System"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate with email and password",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "Invalid credentials or inactive account", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Rotate a refresh token",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}],
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "Refresh token revoked or expired", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke a refresh token of the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}],
                "responses": {"204": {"description": "Revoked"}}
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Change password and revoke every session",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Changed"}, "400": {"description": "Validation failed"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/documents": {
            "get": {
                "tags": ["Documents"],
                "summary": "List visible documents",
                "description": "Anonymous callers only see public approved documents.",
                "parameters": [
                    {"name": "view", "in": "query", "type": "string", "enum": ["all", "unit", "mine"]},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "unit_id", "in": "query", "type": "string"},
                    {"name": "approval_status", "in": "query", "type": "string", "enum": ["pending", "approved", "rejected"]},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "sort_by", "in": "query", "type": "string"},
                    {"name": "sort_order", "in": "query", "type": "string", "enum": ["asc", "desc"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer", "maximum": 1000}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            },
            "post": {
                "tags": ["Documents"],
                "summary": "Upload a document",
                "description": "Sub admin uploads start pending and private; admin uploads are approved immediately.",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "title", "in": "formData", "type": "string", "required": true},
                    {"name": "description", "in": "formData", "type": "string"},
                    {"name": "unit_id", "in": "formData", "type": "string"},
                    {"name": "is_public", "in": "formData", "type": "boolean"},
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Invalid file or metadata", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/documents/pending": {
            "get": {
                "tags": ["Documents"],
                "summary": "Pending approval queue",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Reviewer role required"}}
            }
        },
        "/documents/stats": {
            "get": {
                "tags": ["Documents"],
                "summary": "Document counts by approval status",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/documents/export": {
            "get": {
                "tags": ["Documents"],
                "summary": "Export the document register",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"200": {"description": "Export file"}}
            }
        },
        "/documents/{id}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Document metadata",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found or not visible"}}
            },
            "put": {
                "tags": ["Documents"],
                "summary": "Update a document",
                "description": "Non super admins may only change approved documents within the mutation window.",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "multipart/form-data"],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Not permitted"}}
            },
            "delete": {
                "tags": ["Documents"],
                "summary": "Delete a document",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}, "403": {"description": "Not permitted"}}
            }
        },
        "/documents/{id}/approve": {
            "post": {
                "tags": ["Documents"],
                "summary": "Approve a pending document",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "Approved"}, "409": {"description": "Already reviewed"}}
            }
        },
        "/documents/{id}/reject": {
            "post": {
                "tags": ["Documents"],
                "summary": "Reject a pending document",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RejectRequest"}}
                ],
                "responses": {"200": {"description": "Rejected"}, "409": {"description": "Already reviewed"}}
            }
        },
        "/documents/{id}/download": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download a public document",
                "produces": ["application/octet-stream"],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "File attachment"}, "403": {"description": "Document is not public"}}
            }
        },
        "/documents/{id}/preview": {
            "get": {
                "tags": ["Documents"],
                "summary": "Preview a public document inline",
                "produces": ["application/octet-stream"],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "Inline file"}, "403": {"description": "Document is not public"}}
            }
        },
        "/units": {
            "get": {"tags": ["Units"], "summary": "List units", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {
                "tags": ["Units"],
                "summary": "Create a unit",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UnitRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate name"}}
            }
        },
        "/units/{id}": {
            "get": {"tags": ["Units"], "summary": "Get a unit", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Units"], "summary": "Update a unit", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Units"], "summary": "Delete a unit", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/users": {
            "get": {"tags": ["Users"], "summary": "List users", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Users"], "summary": "Create a user", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Email in use"}}}
        },
        "/users/{id}": {
            "get": {"tags": ["Users"], "summary": "Get a user", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Users"], "summary": "Update a user", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Users"], "summary": "Deactivate a user", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"204": {"description": "Deactivated"}}}
        },
        "/metrics/summary": {
            "get": {"tags": ["System"], "summary": "Process metrics summary", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "RefreshRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {"refresh_token": {"type": "string"}}
        },
        "RejectRequest": {
            "type": "object",
            "properties": {"reason": {"type": "string"}}
        },
        "UnitRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "type": {"type": "string", "enum": ["board", "committee", "council", "faculty", "department", "other"]},
                "description": {"type": "string"},
                "admin_id": {"type": "string"},
                "active": {"type": "boolean"}
            }
        },
        "FieldError": {
            "type": "object",
            "properties": {"field": {"type": "string"}, "message": {"type": "string"}}
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "current_page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "total_items": {"type": "integer"},
                "has_next_page": {"type": "boolean"},
                "has_prev_page": {"type": "boolean"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "code": {"type": "string"},
                "data": {"type": "object"},
                "errors": {"type": "array", "items": {"$ref": "#/definitions/FieldError"}},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
