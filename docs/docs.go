// Package docs holds the OpenAPI document of the HTTP API. Regenerate with
// `swag init -g cmd/aiconfig/docs.go -o docs` after changing handler
// annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "aiconfig maintainers"
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
        "/prompts": {
            "get": {
                "description": "Name, effective model, dependencies and output count of every prompt.",
                "produces": ["application/json"],
                "tags": ["prompts"],
                "summary": "List prompts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.PromptsResponse"}}
                }
            }
        },
        "/prompts/{name}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["prompts"],
                "summary": "Get one prompt",
                "parameters": [
                    {"type": "string", "description": "Prompt name", "name": "name", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Prompt"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/run": {
            "post": {
                "description": "Executes the prompt and records its outputs in memory. With\nlog=debug the fragments are logged as they arrive; the\nresponse is always the complete result.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["run"],
                "summary": "Run a prompt",
                "parameters": [
                    {"description": "Run request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.RunRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.RunResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/batch": {
            "post": {
                "description": "Entries run in order; an adapter failure is recorded as an\nerror output and the batch continues.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["run"],
                "summary": "Run a prompt once per parameter set",
                "parameters": [
                    {"description": "Batch request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.BatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.BatchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/render": {
            "post": {
                "description": "Unresolvable references stay as written.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["prompts"],
                "summary": "Preview a prompt's resolved input",
                "parameters": [
                    {"description": "Render request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.RenderRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.RenderResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/save": {
            "post": {
                "description": "An empty path writes back to the file the document was loaded from.",
                "consumes": ["application/json"],
                "tags": ["document"],
                "summary": "Write the document",
                "parameters": [
                    {"description": "Save request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.SaveRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.Output": {
            "type": "object",
            "properties": {
                "output_type": {"type": "string", "example": "execute_result"},
                "execution_count": {"type": "integer"},
                "data": {},
                "mime_type": {"type": "string"},
                "metadata": {"type": "object", "additionalProperties": true},
                "ename": {"type": "string"},
                "evalue": {"type": "string"},
                "traceback": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.Prompt": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "summarize"},
                "input": {},
                "metadata": {"type": "object", "additionalProperties": true},
                "outputs": {"type": "array", "items": {"$ref": "#/definitions/types.Output"}}
            }
        },
        "types.PromptSummary": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "summarize"},
                "model": {"type": "string", "example": "gpt-4o-mini"},
                "depends_on": {"type": "array", "items": {"type": "string"}},
                "outputs": {"type": "integer"},
                "tags": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.PromptsResponse": {
            "type": "object",
            "properties": {
                "document": {"type": "string"},
                "prompts": {"type": "array", "items": {"$ref": "#/definitions/types.PromptSummary"}}
            }
        },
        "types.RunRequest": {
            "type": "object",
            "properties": {
                "prompt": {"type": "string", "example": "summarize"},
                "params": {"type": "object", "additionalProperties": true},
                "with_dependencies": {"type": "boolean", "example": true}
            }
        },
        "types.RunResponse": {
            "type": "object",
            "properties": {
                "prompt": {"type": "string"},
                "outputs": {"type": "array", "items": {"$ref": "#/definitions/types.Output"}},
                "text": {"type": "string"}
            }
        },
        "types.BatchRequest": {
            "type": "object",
            "properties": {
                "prompt": {"type": "string", "example": "summarize"},
                "params_list": {"type": "array", "items": {"type": "object", "additionalProperties": true}},
                "with_dependencies": {"type": "boolean"}
            }
        },
        "types.BatchResponse": {
            "type": "object",
            "properties": {
                "prompt": {"type": "string"},
                "results": {"type": "array", "items": {"type": "array", "items": {"$ref": "#/definitions/types.Output"}}}
            }
        },
        "types.RenderRequest": {
            "type": "object",
            "properties": {
                "prompt": {"type": "string", "example": "summarize"},
                "params": {"type": "object", "additionalProperties": true}
            }
        },
        "types.RenderResponse": {
            "type": "object",
            "properties": {
                "prompt": {"type": "string"},
                "text": {"type": "string"}
            }
        },
        "types.SaveRequest": {
            "type": "object",
            "properties": {
                "path": {"type": "string", "example": "./travel.aiconfig.json"},
                "include_outputs": {"type": "boolean", "example": true}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "unknown prompt: summarize"},
                "code": {"type": "integer", "example": 404}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "aiconfig API",
	Description:      "HTTP API for running the prompts of one aiconfig document.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
