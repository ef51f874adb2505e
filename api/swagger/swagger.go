package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Grade Sync API",
        "description": "Links units to LMS org units and transfers unit grades into the LMS gradebook.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "LMS", "description": "LMS login and unit mappings"},
        {"name": "Grade Sync", "description": "Grade transfers and their results"}
    ],
    "paths": {
        "/health": {
            "get": {"summary": "Liveness check", "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {"summary": "Readiness check", "responses": {"200": {"description": "Ready"}, "503": {"description": "A dependency is unavailable"}}}
        },
        "/lms/login-url": {
            "post": {
                "tags": ["LMS"],
                "summary": "Build the LMS authorization URL",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/lms/callback": {
            "get": {
                "tags": ["LMS"],
                "summary": "Complete the LMS authorization",
                "parameters": [{"name": "code", "in": "query", "required": true, "type": "string"},
                    {"name": "state", "in": "query", "required": true, "type": "string"}],
                "responses": {"302": {"description": "Redirect to the success page"},
                    "500": {"description": "Error processing oauth callback", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/lms/endpoint": {
            "get": {
                "tags": ["LMS"],
                "summary": "Configured LMS API host",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/lms/results/{token}": {
            "get": {
                "tags": ["LMS"],
                "summary": "Download a result through a signed link",
                "produces": ["text/csv"],
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Result CSV"},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/units/{unit_id}/lms": {
            "get": {
                "tags": ["LMS"],
                "summary": "Get the LMS mapping of a unit",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "unit_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not linked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["LMS"],
                "summary": "Link a unit to an LMS org unit",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "unit_id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LMSMappingRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already linked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["LMS"],
                "summary": "Change the LMS mapping of a unit",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "unit_id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LMSMappingRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["LMS"],
                "summary": "Unlink a unit from the LMS",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "unit_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/units/{unit_id}/lms/grades": {
            "post": {
                "tags": ["Grade Sync"],
                "summary": "Queue a grade transfer",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "unit_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Mapping or LMS token missing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "get": {
                "tags": ["Grade Sync"],
                "summary": "Download the latest grade transfer result",
                "produces": ["text/csv"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "unit_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Result CSV"},
                    "404": {"description": "No result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/units/{unit_id}/lms/grades/available": {
            "get": {
                "tags": ["Grade Sync"],
                "summary": "Whether a result exists and a run is active",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "unit_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/units/{unit_id}/lms/grades/weighted": {
            "get": {
                "tags": ["Grade Sync"],
                "summary": "Whether the org unit uses weighted grading",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "unit_id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "LMSMappingRequest": {
            "type": "object",
            "required": ["orgUnitId"],
            "properties": {
                "orgUnitId": {"type": "string", "maxLength": 64},
                "gradeObjectId": {"type": "string", "maxLength": 64}
            }
        },
        "UnitMapping": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "unit_id": {"type": "string"},
                "org_unit_id": {"type": "string"},
                "grade_object_id": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "GradeSyncTriggerResponse": {
            "type": "object",
            "properties": {
                "jobId": {"type": "string"},
                "unitId": {"type": "string"}
            }
        },
        "GradeSyncAvailabilityResponse": {
            "type": "object",
            "properties": {
                "available": {"type": "boolean"},
                "running": {"type": "boolean"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
