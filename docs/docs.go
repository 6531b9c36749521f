// Package docs registers the OpenAPI document served by the Swagger UI.
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
        "/admin/accounts/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Get account",
                "parameters": [
                    {"type": "string", "description": "Account ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "400": {"description": "Invalid ID", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "401": {"description": "Not logged in", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "403": {"description": "Role not allowed", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "404": {"description": "No such account", "schema": {"$ref": "#/definitions/httputil.Response"}}
                }
            }
        },
        "/users/forgotPassword": {
            "post": {
                "description": "Email a one-time reset link. Always returns the same response for unknown emails.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Request password reset",
                "parameters": [
                    {"description": "Email address", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.ForgotPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "400": {"description": "Missing email", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "500": {"description": "Email could not be sent", "schema": {"$ref": "#/definitions/httputil.Response"}}
                }
            }
        },
        "/users/login": {
            "post": {
                "description": "Authenticate with email and password and receive a session token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Log in",
                "parameters": [
                    {"description": "Login credentials", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "400": {"description": "Missing email or password", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "401": {"description": "Incorrect email or password", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/httputil.Response"}}
                }
            }
        },
        "/users/logout": {
            "get": {
                "description": "Replace the session cookie with a short-lived dummy value. Bearer tokens stay valid until they expire.",
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Log out",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httputil.Response"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Current account",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "401": {"description": "Not logged in", "schema": {"$ref": "#/definitions/httputil.Response"}}
                }
            }
        },
        "/users/resetPassword/{token}": {
            "patch": {
                "description": "Set a new password with the token from the reset email and receive a fresh session token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Reset password",
                "parameters": [
                    {"type": "string", "description": "Reset token", "name": "token", "in": "path", "required": true},
                    {"description": "New password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.ResetPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "400": {"description": "Validation error, invalid or expired token", "schema": {"$ref": "#/definitions/httputil.Response"}}
                }
            }
        },
        "/users/session": {
            "get": {
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Session status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httputil.Response"}}
                }
            }
        },
        "/users/signup": {
            "post": {
                "description": "Create an account and receive a session token. The role field is ignored unless enabled by configuration.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Sign up",
                "parameters": [
                    {"description": "Signup data", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "400": {"description": "Validation error or email already exists", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/httputil.Response"}}
                }
            }
        },
        "/users/updateMyPassword": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "Change the password after confirming the current one. Earlier tokens stop working.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Update password",
                "parameters": [
                    {"description": "Current and new password", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.UpdatePasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/httputil.Response"}},
                    "401": {"description": "Not logged in or wrong current password", "schema": {"$ref": "#/definitions/httputil.Response"}}
                }
            }
        }
    },
    "definitions": {
        "auth.ForgotPasswordRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"}
            }
        },
        "auth.LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "auth.ResetPasswordRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"},
                "passwordConfirm": {"type": "string"}
            }
        },
        "auth.SignupRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "passwordConfirm": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "auth.UpdatePasswordRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"},
                "passwordConfirm": {"type": "string"},
                "passwordCurrent": {"type": "string"}
            }
        },
        "httputil.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "data": {},
                "message": {"type": "string"},
                "status": {"type": "string"},
                "token": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the session token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Natours API",
	Description:      "Account authentication for the Natours tour booking API: signup, login, password reset and role-gated routes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
