// Package docs registers the OpenAPI document for the turks backend.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/health": {
            "get": {
                "tags": ["System"],
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.HealthResponse"}},
                    "503": {"description": "Degraded", "schema": {"$ref": "#/definitions/models.HealthResponse"}}
                }
            }
        },
        "/v1/user/signin": {
            "post": {
                "tags": ["Auth"],
                "summary": "Sign in with a wallet signature",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/models.SignInRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SignInResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/v1/worker/signin": {
            "post": {
                "tags": ["Auth"],
                "summary": "Sign in with a wallet signature",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/models.SignInRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SignInResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/v1/user/challenge": {
            "get": {
                "tags": ["Auth"],
                "summary": "Sign-in challenge",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "publicKey", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ChallengeResponse"}}}
            }
        },
        "/v1/worker/challenge": {
            "get": {
                "tags": ["Auth"],
                "summary": "Sign-in challenge",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "publicKey", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ChallengeResponse"}}}
            }
        },
        "/v1/user/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Auth"],
                "summary": "Current session",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.MeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/v1/worker/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Auth"],
                "summary": "Current session",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.MeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/v1/user/presignedUrl": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Uploads"],
                "summary": "Presign an image upload",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.PresignedURLResponse"}},
                    "503": {"description": "Uploads disabled", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/v1/user/payment-request": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Payments"],
                "summary": "Payment request for one task",
                "produces": ["application/json"],
                "parameters": [{"type": "boolean", "name": "qr", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.PaymentRequestResponse"}}}
            }
        },
        "/v1/user/task": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Tasks"],
                "summary": "Create a paid task",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/models.CreateTaskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.CreateTaskResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "409": {"description": "Payment already used", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "503": {"description": "Ledger unavailable", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/v1/user/tasks": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Tasks"],
                "summary": "List my tasks",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.TaskListResponse"}}}
            }
        },
        "/v1/user/task/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Tasks"],
                "summary": "Get a task",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/core.Task"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/v1/worker/task/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Tasks"],
                "summary": "Get a task",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/core.Task"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "core.Task": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "options": {"type": "array", "items": {"$ref": "#/definitions/core.TaskOption"}},
                "creator": {"type": "string"},
                "payment_signature": {"type": "string"},
                "amount_lamports": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "core.TaskOption": {
            "type": "object",
            "properties": {
                "position": {"type": "integer"},
                "imageUrl": {"type": "string"}
            }
        },
        "models.SignInRequest": {
            "type": "object",
            "properties": {
                "publicKey": {"type": "string"},
                "signature": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "models.SignInResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expires_at": {"type": "string"}
            }
        },
        "models.ChallengeResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "nonce": {"type": "string"},
                "expires_at": {"type": "string"}
            }
        },
        "models.MeResponse": {
            "type": "object",
            "properties": {
                "userId": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "models.TaskOptionRequest": {
            "type": "object",
            "properties": {"imageUrl": {"type": "string"}}
        },
        "models.CreateTaskRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "options": {"type": "array", "items": {"$ref": "#/definitions/models.TaskOptionRequest"}},
                "signature": {"type": "string"}
            }
        },
        "models.CreateTaskResponse": {
            "type": "object",
            "properties": {"id": {"type": "string"}}
        },
        "models.TaskListResponse": {
            "type": "object",
            "properties": {
                "tasks": {"type": "array", "items": {"$ref": "#/definitions/core.Task"}},
                "total": {"type": "integer"}
            }
        },
        "models.PresignedURLResponse": {
            "type": "object",
            "properties": {
                "preSignedUrl": {"type": "string"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "publicUrl": {"type": "string"},
                "expires_at": {"type": "string"}
            }
        },
        "models.PaymentRequestResponse": {
            "type": "object",
            "properties": {
                "recipient": {"type": "string"},
                "lamports": {"type": "integer"},
                "amount_sol": {"type": "string"},
                "url": {"type": "string"},
                "qr_png_base64": {"type": "string"}
            }
        },
        "models.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "timestamp": {"type": "integer"},
                "checks": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "error": {"type": "string"},
                "solution": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Mechanical Turks API",
	Description:      "Wallet sign-in, paid task creation and worker task lookup.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
