// Package docs holds the OpenAPI description of the f2dhis2 HTTP API.
// Regenerate with: swag init -g cmd/server/main.go -o docs
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
        "/formhub/{id_string}/{uuid}": {
            "get": {
                "description": "Queues submission {uuid} of form {id_string} for delivery to DHIS2 and requests a background drain. The answer is JSONP when a callback query parameter is given.",
                "produces": ["application/json"],
                "tags": ["formhub"],
                "summary": "Notify of a new Formhub submission",
                "parameters": [
                    {"type": "string", "description": "Formhub form id_string", "name": "id_string", "in": "path", "required": true},
                    {"type": "string", "description": "Submission uuid", "name": "uuid", "in": "path", "required": true},
                    {"type": "string", "description": "JSONP callback", "name": "callback", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "status=false with contents 'Unknown Service' when the form is not registered", "schema": {"$ref": "#/definitions/handlers.NotificationResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.NotificationResponse"}}
                }
            },
            "post": {
                "description": "Same as GET.",
                "produces": ["application/json"],
                "tags": ["formhub"],
                "summary": "Notify of a new Formhub submission",
                "parameters": [
                    {"type": "string", "description": "Formhub form id_string", "name": "id_string", "in": "path", "required": true},
                    {"type": "string", "description": "Submission uuid", "name": "uuid", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.NotificationResponse"}}
                }
            }
        },
        "/services": {
            "get": {
                "produces": ["application/json"],
                "tags": ["services"],
                "summary": "List services",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Service"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            },
            "post": {
                "description": "Downloads form.json from the given form URL and registers the form as a service.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["services"],
                "summary": "Import a Formhub form",
                "parameters": [
                    {"description": "Form URL", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ImportServiceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Service"}},
                    "400": {"description": "VALIDATION_ERROR", "schema": {"$ref": "#/definitions/models.APIError"}},
                    "409": {"description": "DUPLICATE", "schema": {"$ref": "#/definitions/models.APIError"}},
                    "502": {"description": "BAD_GATEWAY", "schema": {"$ref": "#/definitions/models.APIError"}},
                    "503": {"description": "SERVICE_UNAVAILABLE", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            }
        },
        "/services/{service_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["services"],
                "summary": "Get a service",
                "parameters": [
                    {"type": "string", "description": "Service ID (UUID)", "name": "service_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Service"}},
                    "400": {"description": "INVALID_ID_FORMAT", "schema": {"$ref": "#/definitions/models.APIError"}},
                    "404": {"description": "SERVICE_NOT_FOUND", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            }
        },
        "/services/{service_id}/refresh": {
            "post": {
                "description": "Downloads form.json again and replaces the stored descriptor and title.",
                "produces": ["application/json"],
                "tags": ["services"],
                "summary": "Reload a service's form descriptor",
                "parameters": [
                    {"type": "string", "description": "Service ID (UUID)", "name": "service_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Service"}},
                    "404": {"description": "SERVICE_NOT_FOUND", "schema": {"$ref": "#/definitions/models.APIError"}},
                    "409": {"description": "CONFLICT_ERROR", "schema": {"$ref": "#/definitions/models.APIError"}},
                    "502": {"description": "BAD_GATEWAY", "schema": {"$ref": "#/definitions/models.APIError"}},
                    "503": {"description": "SERVICE_UNAVAILABLE", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            }
        },
        "/services/{service_id}/fields": {
            "get": {
                "description": "Flattens the stored form descriptor into the field names used in submissions, for building mappings.",
                "produces": ["application/json"],
                "tags": ["services"],
                "summary": "List the fields of a service's form",
                "parameters": [
                    {"type": "string", "description": "Service ID (UUID)", "name": "service_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/formhub.Field"}}},
                    "404": {"description": "SERVICE_NOT_FOUND", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            }
        },
        "/datasets": {
            "get": {
                "produces": ["application/json"],
                "tags": ["datasets"],
                "summary": "List data sets with their data elements",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.DataSet"}}}
                }
            },
            "post": {
                "description": "Reads the data set and its data elements from DHIS2 and creates or refreshes the local copy.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["datasets"],
                "summary": "Import a DHIS2 data set",
                "parameters": [
                    {"description": "Data set URL, e.g. https://dhis/api/dataSets/pBOMPrpg1QX", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ImportDataSetRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.DataSet"}},
                    "400": {"description": "VALIDATION_ERROR", "schema": {"$ref": "#/definitions/models.APIError"}},
                    "502": {"description": "BAD_GATEWAY", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            }
        },
        "/datasets/{data_set_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["datasets"],
                "summary": "Get a data set",
                "parameters": [
                    {"type": "string", "description": "Data set ID (UUID)", "name": "data_set_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DataSet"}},
                    "404": {"description": "DATA_SET_NOT_FOUND", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            }
        },
        "/datavaluesets": {
            "get": {
                "produces": ["application/json"],
                "tags": ["datavaluesets"],
                "summary": "List data value sets",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.DataValueSet"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["datavaluesets"],
                "summary": "Bind a service to a data set",
                "parameters": [
                    {"description": "Binding", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateDataValueSetRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.DataValueSet"}},
                    "400": {"description": "VALIDATION_ERROR", "schema": {"$ref": "#/definitions/models.APIError"}},
                    "404": {"description": "NOT_FOUND", "schema": {"$ref": "#/definitions/models.APIError"}},
                    "409": {"description": "DUPLICATE", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            }
        },
        "/datavaluesets/{dvs_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["datavaluesets"],
                "summary": "Get a data value set",
                "parameters": [
                    {"type": "string", "description": "Data value set ID (UUID)", "name": "dvs_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DataValueSet"}},
                    "404": {"description": "DATA_VALUE_SET_NOT_FOUND", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            }
        },
        "/datavaluesets/{dvs_id}/mappings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["mappings"],
                "summary": "List the mappings of a data value set",
                "parameters": [
                    {"type": "string", "description": "Data value set ID (UUID)", "name": "dvs_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.FormDataElement"}}},
                    "404": {"description": "DATA_VALUE_SET_NOT_FOUND", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["mappings"],
                "summary": "Map a form field to a data element",
                "parameters": [
                    {"type": "string", "description": "Data value set ID (UUID)", "name": "dvs_id", "in": "path", "required": true},
                    {"description": "Mapping", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateMappingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.FormDataElement"}},
                    "400": {"description": "VALIDATION_ERROR", "schema": {"$ref": "#/definitions/models.APIError"}},
                    "404": {"description": "DATA_ELEMENT_NOT_FOUND", "schema": {"$ref": "#/definitions/models.APIError"}},
                    "409": {"description": "MAPPING_CONFLICT", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            }
        },
        "/datavaluesets/{dvs_id}/mappings/{mapping_id}": {
            "delete": {
                "tags": ["mappings"],
                "summary": "Delete a mapping",
                "parameters": [
                    {"type": "string", "description": "Data value set ID (UUID)", "name": "dvs_id", "in": "path", "required": true},
                    {"type": "string", "description": "Mapping ID (UUID)", "name": "mapping_id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "MAPPING_NOT_FOUND", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            }
        },
        "/queue": {
            "get": {
                "produces": ["application/json"],
                "tags": ["queue"],
                "summary": "List queued submissions",
                "parameters": [
                    {"type": "boolean", "description": "Filter by processed state", "name": "processed", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.DataQueue"}}},
                    "400": {"description": "VALIDATION_ERROR", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            }
        },
        "/queue/process": {
            "post": {
                "description": "Runs one drain synchronously and reports how many submissions were delivered.",
                "produces": ["application/json"],
                "tags": ["queue"],
                "summary": "Drain the queue now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ProcessResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "formhub.Field": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "name": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "handlers.NotificationResponse": {
            "type": "object",
            "properties": {
                "contents": {"type": "string"},
                "status": {"type": "boolean"}
            }
        },
        "handlers.ProcessResponse": {
            "type": "object",
            "properties": {
                "processed": {"type": "integer"}
            }
        },
        "models.APIError": {
            "description": "APIError represents a standardized error response format, including an application-specific error code, a human-readable message, and optional details.",
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {},
                "message": {"type": "string"}
            }
        },
        "models.CreateDataValueSetRequest": {
            "type": "object",
            "required": ["data_set_id", "service_id"],
            "properties": {
                "data_set_id": {"type": "string"},
                "org_unit": {"type": "string", "maxLength": 32},
                "service_id": {"type": "string"}
            }
        },
        "models.CreateMappingRequest": {
            "type": "object",
            "required": ["data_element_id", "form_field"],
            "properties": {
                "data_element_id": {"type": "string"},
                "form_field": {"type": "string", "maxLength": 255, "minLength": 1}
            }
        },
        "models.DataElement": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "data_set_id": {"type": "string"},
                "element_id": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.DataQueue": {
            "description": "DataQueue is a unit of synchronisation work keyed by service and submission uuid.",
            "type": "object",
            "properties": {
                "attempts": {"type": "integer"},
                "claimed_at": {"type": "string"},
                "created_at": {"type": "string"},
                "data_id": {"type": "string"},
                "id": {"type": "string"},
                "last_error": {"type": "string"},
                "processed": {"type": "boolean"},
                "processed_on": {"type": "string"},
                "service": {"$ref": "#/definitions/models.Service"},
                "service_id": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.DataSet": {
            "description": "DataSet is a DHIS2 data set with its reporting frequency.",
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "data_set_id": {"type": "string"},
                "elements": {"type": "array", "items": {"$ref": "#/definitions/models.DataElement"}},
                "frequency": {"type": "string", "enum": ["Yearly", "Monthly", "Weekly", "Daily"]},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "updated_at": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "models.DataValueSet": {
            "description": "DataValueSet defines what is reported where.",
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "data_set": {"$ref": "#/definitions/models.DataSet"},
                "data_set_id": {"type": "string"},
                "id": {"type": "string"},
                "org_unit": {"type": "string"},
                "service": {"$ref": "#/definitions/models.Service"},
                "service_id": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.FormDataElement": {
            "description": "FormDataElement is a field mapping from a Formhub field to a DHIS2 data element.",
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "data_element": {"$ref": "#/definitions/models.DataElement"},
                "data_element_id": {"type": "string"},
                "data_value_set_id": {"type": "string"},
                "form_field": {"type": "string"},
                "id": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.ImportDataSetRequest": {
            "type": "object",
            "required": ["url"],
            "properties": {
                "url": {"type": "string"}
            }
        },
        "models.ImportServiceRequest": {
            "type": "object",
            "required": ["url"],
            "properties": {
                "url": {"type": "string"}
            }
        },
        "models.Service": {
            "description": "Service is a registered Formhub form that submissions are pulled from.",
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "id_string": {"type": "string"},
                "name": {"type": "string"},
                "updated_at": {"type": "string"},
                "url": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BasicAuth": {
            "type": "basic"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "f2dhis2 API",
	Description:      "Forwards Formhub submissions to DHIS2 as data value sets.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
