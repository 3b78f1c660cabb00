// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Stable machine-readable codes. The UI keys its reaction on these: retryable
// codes get a "retry" button, the rest disable the action.
const (
	CodeValidacion          = "VALIDACION"
	CodeNoEncontrado        = "NO_ENCONTRADO"
	CodeSesionYaAbierta     = "SESION_YA_ABIERTA"
	CodeSesionCerrada       = "SESION_CERRADA"
	CodeFondosInsuficientes = "FONDOS_INSUFICIENTES"
	CodeVentaYaPagada       = "VENTA_YA_PAGADA"
	CodeVentaAnulada        = "VENTA_ANULADA"
	CodeVentaDuplicada      = "VENTA_DUPLICADA"
	CodeConflicto           = "CONFLICTO_TRANSITORIO"
	CodeNoAutenticado       = "NO_AUTENTICADO"
	CodeSinPermiso          = "SIN_PERMISO"
	CodeLimite              = "LIMITE_EXCEDIDO"
	CodeInterno             = "INTERNO"
	CodeNoDisponible        = "NO_DISPONIBLE"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Code      string `json:"code"`
	Detail    string `json:"detail"`
	Retryable bool   `json:"retryable"`
}

func New(code, msg string) *APIError {
	return &APIError{Code: code, Detail: msg}
}

// Retry builds an envelope the client may resend unchanged.
func Retry(code, msg string) *APIError {
	return &APIError{Code: code, Detail: msg, Retryable: true}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Code      string            `json:"code"`
	Detail    string            `json:"detail"`
	Retryable bool              `json:"retryable"`
	Fields    map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Code: CodeValidacion, Detail: "Error de validacion", Fields: fields}
}
