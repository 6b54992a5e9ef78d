package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tumaini Aid Reporting API",
        "description": "Periodic update reporting, review and compliance service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Updates", "description": "Periodic update submission and review"},
        {"name": "Compliance", "description": "Missing-report detection and summaries"},
        {"name": "Children", "description": "Sponsored children roster"},
        {"name": "Sponsors", "description": "Sponsor-initiated update requests"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and obtain an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/updates": {
            "get": {
                "tags": ["Updates"],
                "summary": "List submissions",
                "parameters": [
                    {"name": "childId", "in": "query", "type": "string"},
                    {"name": "reportType", "in": "query", "type": "string"},
                    {"name": "period", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "array", "items": {"type": "string"}},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Updates"],
                "summary": "Submit a new periodic update",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSubmissionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Actor role not allowed for report type"},
                    "409": {"description": "Duplicate submission for (child, type, period)"},
                    "429": {"description": "Rate limited"}
                }
            }
        },
        "/updates/{id}": {
            "get": {
                "tags": ["Updates"],
                "summary": "Get one submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/updates/{id}/status": {
            "patch": {
                "tags": ["Updates"],
                "summary": "Move a submission through the review workflow",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangeStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Reviewer role required"},
                    "409": {"description": "Invalid transition or version conflict"}
                }
            }
        },
        "/compliance/missing": {
            "get": {
                "tags": ["Compliance"],
                "summary": "List children missing a qualifying report",
                "parameters": [
                    {"name": "period", "in": "query", "required": true, "type": "string"},
                    {"name": "reportType", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/compliance/summary": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Generate compliance summaries for a period",
                "parameters": [
                    {"name": "period", "in": "query", "required": true, "type": "string"},
                    {"name": "reportType", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/compliance/summary/export": {
            "get": {
                "tags": ["Compliance"],
                "summary": "Export compliance summaries as CSV or PDF",
                "parameters": [
                    {"name": "period", "in": "query", "required": true, "type": "string"},
                    {"name": "reportType", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/children": {
            "get": {
                "tags": ["Children"],
                "summary": "List sponsored children",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/children/{id}": {
            "get": {
                "tags": ["Children"],
                "summary": "Get one child",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/sponsors/{id}/update-requests": {
            "post": {
                "tags": ["Sponsors"],
                "summary": "Request an out-of-cycle update for a sponsored child",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Cooldown active, request not recorded"},
                    "202": {"description": "Request recorded"},
                    "429": {"description": "Rate limited"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateSubmissionRequest": {
            "type": "object",
            "properties": {
                "child_id": {"type": "string"},
                "report_type": {"type": "string", "enum": ["field", "academic"]},
                "period": {"type": "string"},
                "supersedes_id": {"type": "string"},
                "payload": {"$ref": "#/definitions/SubmissionPayload"}
            },
            "required": ["child_id", "report_type", "period"]
        },
        "ChangeStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["PENDING_REVIEW", "NEEDS_CORRECTION", "PUBLISHED", "REJECTED"]},
                "notes": {"type": "string"}
            },
            "required": ["status"]
        },
        "SubmissionPayload": {
            "type": "object",
            "properties": {
                "wellbeing_score": {"type": "integer"},
                "narrative": {"type": "string"},
                "attendance_rate": {"type": "number"},
                "grades": {"type": "object"},
                "extras": {"type": "object"}
            }
        },
        "Submission": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "child_id": {"type": "string"},
                "report_type": {"type": "string"},
                "period": {"type": "string"},
                "status": {"type": "string"},
                "submitted_by": {"type": "string"},
                "payload": {"$ref": "#/definitions/SubmissionPayload"},
                "version": {"type": "integer"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "ComplianceSummary": {
            "type": "object",
            "properties": {
                "period": {"type": "string"},
                "report_type": {"type": "string"},
                "expected_count": {"type": "integer"},
                "present_count": {"type": "integer"},
                "missing_child_ids": {"type": "array", "items": {"type": "string"}},
                "present_child_ids": {"type": "array", "items": {"type": "string"}},
                "compliance_rate": {"type": "integer"},
                "generated_at": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
