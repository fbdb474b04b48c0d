// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/tournaments/{tournamentID}/schedule": {
            "get": {
                "tags": ["schedule"],
                "summary": "Current schedule of a tournament",
                "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "tournamentID", "in": "path", "required": true}],
                "responses": {"200": {"description": "slots"}, "404": {"description": "No schedule yet"}}
            }
        },
        "/tournaments/{tournamentID}/schedule/conflicts": {
            "get": {
                "tags": ["schedule"],
                "summary": "Re-validate the current schedule",
                "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "tournamentID", "in": "path", "required": true}],
                "responses": {"200": {"description": "conflicts"}, "404": {"description": "No schedule yet"}}
            }
        },
        "/tournaments/{tournamentID}/schedule/export": {
            "get": {
                "tags": ["schedule"],
                "summary": "Download the current schedule as an xlsx workbook",
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [{"type": "integer", "name": "tournamentID", "in": "path", "required": true}],
                "responses": {"200": {"description": "workbook"}, "404": {"description": "No schedule yet"}}
            }
        },
        "/tournaments/{tournamentID}/schedule/optimize": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["schedule"],
                "summary": "Build a schedule for all unscheduled matches",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "tournamentID", "in": "path", "required": true},
                    {"name": "constraints", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "allocation result"},
                    "400": {"description": "Malformed body"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"},
                    "422": {"description": "Invalid constraints or nothing to schedule"}
                }
            }
        },
        "/tournaments/{tournamentID}/schedule/adjustments": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["schedule"],
                "summary": "Apply a delay, reschedule or court change",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "tournamentID", "in": "path", "required": true},
                    {"name": "event", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "adjustment outcome"},
                    "404": {"description": "Unknown match or no schedule yet"},
                    "409": {"description": "Infeasible"},
                    "422": {"description": "Invalid event"}
                }
            }
        },
        "/hub/metrics": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["realtime"],
                "summary": "Distribution hub counters",
                "produces": ["application/json"],
                "responses": {"200": {"description": "metrics"}, "503": {"description": "Hub stopped"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Court Scheduler API",
	Description:      "Court scheduling engine and live schedule distribution.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
