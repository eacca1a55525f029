package models

// APIError represents a standardized error response format for the API.
// @Description APIError represents a standardized error response format, including an application-specific error code, a human-readable message, and optional details.
type APIError struct {
	Code    string      `json:"code"`              // Application-specific error code (e.g., "NOT_FOUND", "VALIDATION_ERROR")
	Message string      `json:"message"`           // Human-readable message describing the error
	Details interface{} `json:"details,omitempty"` // Optional field for additional error details
}

// Predefined application-specific error codes
const (
	// Generic Errors
	ErrorCodeInternalServerError = "INTERNAL_SERVER_ERROR"
	ErrorCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrorCodeBadGateway          = "BAD_GATEWAY" // upstream Formhub/DHIS2 answered badly

	// Input Validation & Data Errors
	ErrorCodeValidation      = "VALIDATION_ERROR"
	ErrorCodeInvalidIDFormat = "INVALID_ID_FORMAT"

	// Resource Specific Errors
	ErrorCodeNotFound             = "NOT_FOUND"
	ErrorCodeServiceNotFound      = "SERVICE_NOT_FOUND"
	ErrorCodeDataSetNotFound      = "DATA_SET_NOT_FOUND"
	ErrorCodeDataValueSetNotFound = "DATA_VALUE_SET_NOT_FOUND"
	ErrorCodeDataElementNotFound  = "DATA_ELEMENT_NOT_FOUND"
	ErrorCodeMappingNotFound      = "MAPPING_NOT_FOUND"

	// Business Logic / State Errors
	ErrorCodeConflict        = "CONFLICT_ERROR"
	ErrorCodeDuplicate       = "DUPLICATE"
	ErrorCodeMappingConflict = "MAPPING_CONFLICT"
)
