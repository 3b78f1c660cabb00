// Package docs registers the OpenAPI document served under /swagger. Keep it in
// sync with the godoc annotations on the handlers (swag init -g cmd/server/main.go).
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
    "security": [{"BearerAuth": []}],
    "paths": {
        "/v1/caja/abrir": {"post": {"tags": ["caja"], "summary": "Abre una nueva sesion de caja para el operador autenticado", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}}}},
        "/v1/caja/activa": {"get": {"tags": ["caja"], "summary": "Sesion abierta del operador autenticado", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/v1/caja/historial": {"get": {"tags": ["caja"], "summary": "Sesiones mas recientes primero", "parameters": [{"type": "integer", "default": 20, "name": "limit", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/v1/caja/historial/export": {"get": {"tags": ["caja"], "summary": "Exporta el historial de sesiones a XLSX", "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"], "responses": {"200": {"description": "OK"}}}},
        "/v1/caja/{id}": {"get": {"tags": ["caja"], "summary": "Obtiene una sesion de caja", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/v1/caja/{id}/relevo": {"post": {"tags": ["caja"], "summary": "Relevo de operador sin cerrar la caja", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/v1/caja/{id}/movimientos": {
            "get": {"tags": ["caja"], "summary": "Movimientos de la sesion en orden de secuencia", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["caja"], "summary": "Registra una sangria o un suprimento", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}, "503": {"description": "Service Unavailable"}}}
        },
        "/v1/caja/{id}/arqueo": {"post": {"tags": ["caja"], "summary": "Arqueo ciego y cierre de la sesion", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}}}},
        "/v1/caja/{id}/reporte": {"get": {"tags": ["caja"], "summary": "Reporte parcial (o resumen de cierre si la sesion esta cerrada)", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/v1/caja/{id}/eventos": {"get": {"tags": ["caja"], "summary": "Stream SSE de los movimientos de una sesion", "produces": ["text/event-stream"], "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/v1/ventas": {"post": {"tags": ["ventas"], "summary": "Registrar una venta pendiente de pago", "responses": {"201": {"description": "Created"}, "422": {"description": "Unprocessable Entity"}}}},
        "/v1/ventas/{id}": {
            "get": {"tags": ["ventas"], "summary": "Obtener una venta", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["ventas"], "summary": "Anular una venta pendiente", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}, "409": {"description": "Conflict"}}}
        },
        "/v1/ventas/{id}/pagar": {"post": {"tags": ["ventas"], "summary": "Cobrar una venta en una sesion de caja", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}, "503": {"description": "Service Unavailable"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Caja API",
	Description:      "Libro de caja: sesiones, movimientos, cobros y arqueo.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
