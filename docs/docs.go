// Package docs registers the OpenAPI document served under /swagger/.
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
		"/events": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"events"
				],
				"summary": "Create an event",
				"responses": {
					"201": {
						"description": "Created"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			},
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"events"
				],
				"summary": "List events",
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/events/recurring": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"recurring"
				],
				"summary": "Create a recurring series",
				"responses": {
					"201": {
						"description": "Created"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/events/{eventID}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"events"
				],
				"summary": "Get an event",
				"parameters": [
					{
						"type": "string",
						"description": "eventID (UUID)",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			},
			"patch": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"events"
				],
				"summary": "Update an event",
				"parameters": [
					{
						"type": "string",
						"description": "eventID (UUID)",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			},
			"delete": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"events"
				],
				"summary": "Delete an event",
				"parameters": [
					{
						"type": "string",
						"description": "eventID (UUID)",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/events/{eventID}/cancel": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"events"
				],
				"summary": "Cancel an event",
				"parameters": [
					{
						"type": "string",
						"description": "eventID (UUID)",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/events/{eventID}/reinstate": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"events"
				],
				"summary": "Reinstate a cancelled event",
				"parameters": [
					{
						"type": "string",
						"description": "eventID (UUID)",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/events/{eventID}/attendance": {
			"put": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"attendance"
				],
				"summary": "Set the caller's attendance",
				"parameters": [
					{
						"type": "string",
						"description": "eventID (UUID)",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/events/{eventID}/signup-sheets": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"signup-sheets"
				],
				"summary": "Create a sign-up sheet",
				"parameters": [
					{
						"type": "string",
						"description": "eventID (UUID)",
						"name": "eventID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/recurring/{seriesID}": {
			"delete": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"recurring"
				],
				"summary": "Delete a recurring series",
				"parameters": [
					{
						"type": "string",
						"description": "seriesID (UUID)",
						"name": "seriesID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/recurring/{seriesID}/attendance": {
			"put": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"attendance"
				],
				"summary": "Set the caller's default attendance for a series",
				"parameters": [
					{
						"type": "string",
						"description": "seriesID (UUID)",
						"name": "seriesID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/signup-sheets/{sheetID}": {
			"put": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"signup-sheets"
				],
				"summary": "Replace a sign-up sheet",
				"parameters": [
					{
						"type": "string",
						"description": "sheetID (UUID)",
						"name": "sheetID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			},
			"delete": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"signup-sheets"
				],
				"summary": "Delete a sign-up sheet",
				"parameters": [
					{
						"type": "string",
						"description": "sheetID (UUID)",
						"name": "sheetID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/signup-sheets/{sheetID}/crews/{crewID}": {
			"patch": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"signup-sheets"
				],
				"summary": "Edit one crew slot",
				"parameters": [
					{
						"type": "string",
						"description": "sheetID (UUID)",
						"name": "sheetID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "crewID (UUID)",
						"name": "crewID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/signup-sheets/{sheetID}/crews/{crewID}/signup": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"signups"
				],
				"summary": "Sign up to a crew slot",
				"parameters": [
					{
						"type": "string",
						"description": "sheetID (UUID)",
						"name": "sheetID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "crewID (UUID)",
						"name": "crewID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			},
			"delete": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"signups"
				],
				"summary": "Leave a crew slot",
				"parameters": [
					{
						"type": "string",
						"description": "sheetID (UUID)",
						"name": "sheetID",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "crewID (UUID)",
						"name": "crewID",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/vacancies": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"vacancies"
				],
				"summary": "Find events that still need crew",
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/me/events": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"me"
				],
				"summary": "List my events",
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		},
		"/me/calendar.ics": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"me"
				],
				"summary": "My calendar feed",
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "error.code: unauthorized",
						"schema": {
							"$ref": "#/definitions/helpers.APIResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"helpers.APIError": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"message": {
					"type": "string"
				}
			}
		},
		"helpers.APIResponse": {
			"type": "object",
			"properties": {
				"data": {},
				"error": {
					"$ref": "#/definitions/helpers.APIError"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Type \"Bearer\" followed by a space and the JWT.",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "crewcall API",
	Description:      "Production scheduling and crew sign-up for a media organization.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
