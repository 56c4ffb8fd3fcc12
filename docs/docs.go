// Package docs holds the Swagger 2.0 definition served at /swagger/.
// Keep it in sync with the handler annotations in internal/handler/http.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/utm-links": {
            "get": {
                "description": "Paginated list of UTM links, newest first",
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "List UTM links",
                "parameters": [
                    {"type": "integer", "description": "Page number (default 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Items per page (default 10, max 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ListLinksResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Create a short code for a destination URL with UTM parameters",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Create a UTM link",
                "parameters": [
                    {"description": "Link creation request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.LinkRequest"}}
                ],
                "responses": {
                    "201": {"description": "Link created successfully", "schema": {"$ref": "#/definitions/http.LinkResponse"}},
                    "400": {"description": "Invalid request data", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Authentication required", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/utm-links/redirect/{code}": {
            "get": {
                "description": "Temporary redirect to the destination URL with UTM parameters; the click is recorded in the background",
                "tags": ["Redirect"],
                "summary": "Redirect by code",
                "parameters": [
                    {"type": "string", "description": "Short code", "name": "code", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "Found"},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/utm-links/{code}/analytics": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Aggregated click analytics for a code; inactive links are included",
                "produces": ["application/json"],
                "tags": ["Analytics"],
                "summary": "Link analytics",
                "parameters": [
                    {"type": "string", "description": "Short code", "name": "code", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/analytics.Report"}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/utm-links/{code}/qr": {
            "get": {
                "produces": ["image/png"],
                "tags": ["Links"],
                "summary": "QR code for a short link",
                "parameters": [
                    {"type": "string", "description": "Short code", "name": "code", "in": "path", "required": true},
                    {"type": "integer", "description": "Image size in pixels (64-1024)", "name": "size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/api/v1/utm-links/{id}": {
            "put": {
                "security": [{"BearerAuth": []}],
                "description": "Overwrite destination and UTM fields; optional isActive toggles the link",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Update a UTM link",
                "parameters": [
                    {"type": "integer", "description": "Link ID", "name": "id", "in": "path", "required": true},
                    {"description": "Link fields", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.LinkRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.LinkResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Links"],
                "summary": "Delete a UTM link",
                "parameters": [
                    {"type": "integer", "description": "Link ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.HealthResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "analytics.Report": {
            "type": "object",
            "properties": {
                "link": {"type": "object"},
                "overview": {
                    "type": "object",
                    "properties": {
                        "totalClicks": {"type": "integer"},
                        "uniqueIPs": {"type": "integer"},
                        "uniqueCountries": {"type": "integer"}
                    }
                },
                "timeSeries": {"type": "array", "items": {"type": "object"}},
                "countryDistribution": {"type": "array", "items": {"type": "object"}},
                "cityDistribution": {"type": "array", "items": {"type": "object"}},
                "deviceDistribution": {"type": "array", "items": {"type": "object"}},
                "browserDistribution": {"type": "array", "items": {"type": "object"}},
                "osDistribution": {"type": "array", "items": {"type": "object"}},
                "refererDistribution": {"type": "array", "items": {"type": "object"}},
                "hourlyDistribution": {"type": "array", "items": {"type": "object"}},
                "weeklyDistribution": {"type": "array", "items": {"type": "object"}}
            }
        },
        "http.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "timestamp": {"type": "string"},
                "version": {"type": "string"},
                "databaseStatus": {"type": "string"},
                "uptime": {"type": "string"},
                "tracking": {"type": "object", "additionalProperties": true}
            }
        },
        "http.LinkRequest": {
            "type": "object",
            "required": ["destinationUrl", "utmMedium", "utmSource"],
            "properties": {
                "destinationUrl": {"type": "string"},
                "utmSource": {"type": "string", "maxLength": 255},
                "utmMedium": {"type": "string", "maxLength": 255},
                "utmCampaign": {"type": "string", "maxLength": 255},
                "utmContent": {"type": "string", "maxLength": 255},
                "isActive": {"type": "boolean"}
            }
        },
        "http.LinkResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "code": {"type": "string"},
                "destinationUrl": {"type": "string"},
                "utmSource": {"type": "string"},
                "utmMedium": {"type": "string"},
                "utmCampaign": {"type": "string"},
                "utmContent": {"type": "string"},
                "isActive": {"type": "boolean"},
                "createdBy": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"},
                "shortUrl": {"type": "string"}
            }
        },
        "http.ListLinksResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/http.LinkResponse"}},
                "metadata": {
                    "type": "object",
                    "properties": {
                        "pagination": {"$ref": "#/definitions/service.PageMeta"}
                    }
                }
            }
        },
        "service.PageMeta": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "page": {"type": "integer"},
                "pageCount": {"type": "integer"},
                "limit": {"type": "integer"},
                "from": {"type": "integer"},
                "to": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT Authorization header. Format: \"Bearer {token}\"",
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
	Title:            "UTM Links API",
	Description:      "Short links with UTM parameters, click tracking and analytics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
