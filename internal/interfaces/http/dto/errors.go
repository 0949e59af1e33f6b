package dto

import "net/http"

// API error codes. Every code is ERR_<CATEGORY>[_<DETAIL>].
const (
	ErrCodeUnknown            = "ERR_UNKNOWN"
	ErrCodeInternal           = "ERR_INTERNAL"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"

	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"

	ErrCodeUnauthorized  = "ERR_UNAUTHORIZED"
	ErrCodeForbidden     = "ERR_FORBIDDEN"
	ErrCodeTokenExpired  = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid  = "ERR_TOKEN_INVALID"
	ErrCodeStoreRequired = "ERR_STORE_REQUIRED"

	ErrCodeNotFound             = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists        = "ERR_ALREADY_EXISTS"
	ErrCodeConflict             = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict  = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeLockNotAvailable     = "ERR_LOCK_NOT_AVAILABLE"
	ErrCodeStaleSequence        = "ERR_STALE_SEQUENCE"
	ErrCodeIdempotencyKeyReused = "ERR_IDEMPOTENCY_KEY_REUSED"

	ErrCodeInvalidState     = "ERR_INVALID_STATE"
	ErrCodeUnknownProduct   = "ERR_UNKNOWN_PRODUCT"
	ErrCodeUnknownWarehouse = "ERR_UNKNOWN_WAREHOUSE"

	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// codeSpec is the HTTP status of an API code and the domain error codes
// that are reported under it.
type codeSpec struct {
	status int
	domain []string
}

var catalog = map[string]codeSpec{
	ErrCodeUnknown:            {http.StatusInternalServerError, nil},
	ErrCodeInternal:           {http.StatusInternalServerError, []string{"INTERNAL_ERROR"}},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, []string{"SERVICE_UNAVAILABLE"}},

	ErrCodeValidation:         {http.StatusBadRequest, []string{"VALIDATION_ERROR", "DUPLICATE_IN_BATCH"}},
	ErrCodeValidationRequired: {http.StatusBadRequest, []string{"MISSING_IDEMPOTENCY_KEY", "INVALID_STORE", "INVALID_PRODUCT", "INVALID_WAREHOUSE"}},
	ErrCodeValidationFormat:   {http.StatusBadRequest, []string{"INVALID_MOVEMENT_TYPE", "INVALID_REFERENCE"}},
	ErrCodeValidationRange:    {http.StatusBadRequest, []string{"NEGATIVE_COUNTED_QTY", "INVALID_COUNTED_QTY", "INVALID_QUANTITY", "INVALID_COUNTED_AT"}},

	ErrCodeUnauthorized:  {http.StatusUnauthorized, []string{"UNAUTHORIZED"}},
	ErrCodeForbidden:     {http.StatusForbidden, []string{"FORBIDDEN"}},
	ErrCodeTokenExpired:  {http.StatusUnauthorized, nil},
	ErrCodeTokenInvalid:  {http.StatusUnauthorized, nil},
	ErrCodeStoreRequired: {http.StatusBadRequest, nil},

	ErrCodeNotFound:             {http.StatusNotFound, []string{"NOT_FOUND"}},
	ErrCodeAlreadyExists:        {http.StatusConflict, []string{"ALREADY_EXISTS"}},
	ErrCodeConflict:             {http.StatusConflict, nil},
	ErrCodeConcurrencyConflict:  {http.StatusConflict, []string{"CONCURRENCY_CONFLICT"}},
	ErrCodeLockNotAvailable:     {http.StatusConflict, []string{"LOCK_NOT_AVAILABLE"}},
	ErrCodeStaleSequence:        {http.StatusConflict, []string{"STALE_SEQUENCE"}},
	ErrCodeIdempotencyKeyReused: {http.StatusConflict, []string{"IDEMPOTENCY_KEY_REUSED"}},

	ErrCodeInvalidState:     {http.StatusUnprocessableEntity, []string{"INVALID_STATE"}},
	ErrCodeUnknownProduct:   {http.StatusUnprocessableEntity, []string{"UNKNOWN_PRODUCT"}},
	ErrCodeUnknownWarehouse: {http.StatusUnprocessableEntity, []string{"UNKNOWN_WAREHOUSE"}},

	ErrCodeBadRequest:      {http.StatusBadRequest, []string{"BAD_REQUEST"}},
	ErrCodeInvalidInput:    {http.StatusBadRequest, []string{"INVALID_INPUT"}},
	ErrCodeInvalidJSON:     {http.StatusBadRequest, nil},
	ErrCodeRequestTooLarge: {http.StatusRequestEntityTooLarge, nil},
}

// domainCodes is catalog inverted: domain code to API code
var domainCodes = func() map[string]string {
	m := make(map[string]string)
	for api, spec := range catalog {
		for _, d := range spec.domain {
			m[d] = api
		}
	}
	return m
}()

// GetHTTPStatus returns the status for an API code, 500 when unknown
func GetHTTPStatus(code string) int {
	if spec, ok := catalog[code]; ok {
		return spec.status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode maps a domain error code onto its API code. API codes and
// unrecognised codes come back unchanged.
func NormalizeErrorCode(code string) string {
	if api, ok := domainCodes[code]; ok {
		return api
	}
	return code
}
