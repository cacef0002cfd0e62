// Package docs holds the OpenAPI description of the lake API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Releasetrain",
            "url": "https://github.com/custodia-labs/releasetrain-lake/issues"
        },
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/ask": {
            "get": {
                "description": "Infers intent and vendor from a free-text question, refreshes the vendor when stale and answers from the lake",
                "produces": ["application/json"],
                "tags": ["Query"],
                "summary": "Ask a question",
                "parameters": [
                    {"type": "string", "description": "Question, e.g. latest fedora version", "name": "q", "in": "query", "required": true},
                    {"type": "integer", "description": "Evidence limit", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Answer"}},
                    "400": {"description": "Missing question", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/answer": {
            "get": {
                "description": "Reads Gold and Silver for a known intent and vendor without triggering a build",
                "produces": ["application/json"],
                "tags": ["Query"],
                "summary": "Answer for a resolved intent",
                "parameters": [
                    {"type": "string", "description": "VERSION, CVE, PATCH or GENERIC", "name": "intent", "in": "query", "required": true},
                    {"type": "string", "description": "Vendor name", "name": "vendor", "in": "query", "required": true},
                    {"type": "integer", "description": "Evidence limit", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Answer"}},
                    "400": {"description": "Invalid intent or missing vendor", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/search": {
            "get": {
                "description": "Searches kept sentences, optionally restricted to a vendor",
                "produces": ["application/json"],
                "tags": ["Query"],
                "summary": "Full-text sentence search",
                "parameters": [
                    {"type": "string", "description": "Search text", "name": "q", "in": "query", "required": true},
                    {"type": "string", "description": "Vendor filter", "name": "vendor", "in": "query"},
                    {"type": "integer", "description": "Maximum hits", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.SearchHit"}}},
                    "400": {"description": "Missing query", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Search index not configured", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/vendors": {
            "get": {
                "description": "Returns the vendor vocabulary used for matching",
                "produces": ["application/json"],
                "tags": ["Vendors"],
                "summary": "List vendors",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VendorsResponse"}}
                }
            }
        },
        "/vendors/status": {
            "get": {
                "description": "Lists every built vendor with its last build time and freshness",
                "produces": ["application/json"],
                "tags": ["Vendors"],
                "summary": "Vendor build status",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.VendorStatus"}}}
                }
            }
        },
        "/lake/totals": {
            "get": {
                "description": "Counts documents, sentences and facts held in the lake plus the sentences in the search index",
                "produces": ["application/json"],
                "tags": ["Vendors"],
                "summary": "Lake row counts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.LakeTotals"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/vendors/{vendor}/latest": {
            "get": {
                "description": "Returns the resolved latest version row for a vendor",
                "produces": ["application/json"],
                "tags": ["Vendors"],
                "summary": "Latest resolved version",
                "parameters": [
                    {"type": "string", "description": "Vendor name", "name": "vendor", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.LatestVersion"}},
                    "404": {"description": "No resolved version", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/vendors/{vendor}/rebuild": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Rebuilds a vendor regardless of TTL. With a task queue configured the rebuild is queued for a worker. When the build lock stays busy the vendor is not rebuilt and the result carries a warning.",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Force a vendor rebuild",
                "parameters": [
                    {"type": "string", "description": "Vendor name", "name": "vendor", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Rebuilt, or skipped with a warning while the build lock is busy", "schema": {"$ref": "#/definitions/domain.BuildResult"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/http.RebuildQueuedResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Admin access required", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Vendor not in vocabulary", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Admin API disabled", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/vendors/reload": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Re-reads the vendor file into the running vocabulary",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Reload vendor vocabulary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ReloadResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Admin access required", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Answer": {
            "type": "object",
            "properties": {
                "abstained": {"type": "boolean"},
                "confidence": {"type": "number", "example": 0.85},
                "intent": {"type": "string", "example": "VERSION"},
                "resolved_vendors": {"type": "array", "items": {"type": "string"}},
                "short_answer": {"type": "string", "example": "Latest fedora version: 40.2"},
                "meta": {"type": "string"},
                "evidence": {"type": "array", "items": {"$ref": "#/definitions/domain.Evidence"}}
            }
        },
        "domain.Evidence": {
            "type": "object",
            "properties": {
                "source": {"type": "string", "example": "os"},
                "title": {"type": "string"},
                "date": {"type": "string"},
                "url": {"type": "string"},
                "snippet": {"type": "string"}
            }
        },
        "domain.SearchHit": {
            "type": "object",
            "properties": {
                "sent_id": {"type": "string"},
                "doc_id": {"type": "string"},
                "source": {"type": "string"},
                "url": {"type": "string"},
                "published_at": {"type": "string"},
                "text": {"type": "string"},
                "vendors": {"type": "array", "items": {"type": "string"}},
                "score": {"type": "number"}
            }
        },
        "domain.VendorStatus": {
            "type": "object",
            "properties": {
                "vendor": {"type": "string"},
                "last_built_at": {"type": "string"},
                "freshness": {"type": "string", "example": "FRESH"}
            }
        },
        "domain.LakeTotals": {
            "type": "object",
            "properties": {
                "documents": {"type": "integer"},
                "sentences": {"type": "integer"},
                "facts": {"type": "integer"},
                "indexed_sentences": {"type": "integer"}
            }
        },
        "domain.LatestVersion": {
            "type": "object",
            "properties": {
                "vendor": {"type": "string"},
                "latest_version": {"type": "string"},
                "date": {"type": "string"},
                "source": {"type": "string"},
                "url": {"type": "string"},
                "snippet": {"type": "string"}
            }
        },
        "domain.BuildStats": {
            "type": "object",
            "properties": {
                "items_fetched": {"type": "integer"},
                "fetch_errors": {"type": "integer"},
                "documents_upserted": {"type": "integer"},
                "sentences_kept": {"type": "integer"},
                "sentences_dropped": {"type": "integer"},
                "sentences_indexed": {"type": "integer"},
                "facts_inserted": {"type": "integer"},
                "vendors_resolved": {"type": "integer"}
            }
        },
        "domain.BuildResult": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "vendor": {"type": "string"},
                "freshness": {"type": "string"},
                "rebuilt": {"type": "boolean"},
                "stats": {"$ref": "#/definitions/domain.BuildStats"},
                "warning": {"type": "string"},
                "duration_seconds": {"type": "number"}
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "vendor is required"}}
        },
        "http.VendorsResponse": {
            "type": "object",
            "properties": {
                "vendors": {"type": "array", "items": {"type": "string"}},
                "count": {"type": "integer"}
            }
        },
        "http.RebuildQueuedResponse": {
            "type": "object",
            "properties": {
                "task_id": {"type": "string"},
                "vendor": {"type": "string"},
                "status": {"type": "string", "example": "pending"}
            }
        },
        "http.ReloadResponse": {
            "type": "object",
            "properties": {"vendors": {"type": "integer"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT Bearer token. Format: \"Bearer {token}\"",
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
	Schemes:          []string{"http", "https"},
	Title:            "Releasetrain Lake API",
	Description:      "Answers release questions from a Silver and Gold fact lake built over the release-train feeds.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
