/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"

	ErrInactivePatron         ErrorCode = "ECS_REQUEST_CANNOT_BE_PLACED_FOR_INACTIVE_PATRON"
	ErrDuplicateEcsTlr        ErrorCode = "PATRON_HAS_OPEN_ECS_TLR_FOR_THE_SAME_TITLE"
	ErrInvalidLoanAction      ErrorCode = "INVALID_LOAN_ACTION_REQUEST"
	ErrLoanNotFound           ErrorCode = "LOAN_NOT_FOUND"
	ErrTenantPicking          ErrorCode = "TENANT_PICKING_ERROR"
	ErrRequestCreating        ErrorCode = "REQUEST_CREATING_ERROR"
	ErrUnrecognizedEventTopic ErrorCode = "UNRECOGNIZED_EVENT_TOPIC"
)

// ErrorType groups codes into the categories clients branch on.
type ErrorType string

const (
	TypeValidation      ErrorType = "ValidationError"
	TypeTenantPicking   ErrorType = "TenantPickingError"
	TypeRequestCreating ErrorType = "RequestCreatingError"
	TypeNotFound        ErrorType = "NotFoundError"
	TypeInternal        ErrorType = "InternalError"
	TypeBadRequest      ErrorType = "BadRequestError"
)

var typeByCode = map[ErrorCode]ErrorType{
	ErrNotFound:               TypeNotFound,
	ErrLoanNotFound:           TypeNotFound,
	ErrConflict:               TypeBadRequest,
	ErrBadRequest:             TypeBadRequest,
	ErrInvalidInput:           TypeBadRequest,
	ErrUnrecognizedEventTopic: TypeBadRequest,
	ErrInactivePatron:         TypeValidation,
	ErrDuplicateEcsTlr:        TypeValidation,
	ErrInvalidLoanAction:      TypeValidation,
	ErrTenantPicking:          TypeTenantPicking,
	ErrRequestCreating:        TypeRequestCreating,
	ErrInternalServer:         TypeInternal,
}

// Parameter is a key/value pair echoed back to the caller with a structured error.
type Parameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type APIError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Parameters []Parameter `json:"parameters,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError builds an error of code. An error passed as details is kept as
// its message, since wrapped and joined errors have no exported fields to encode.
func NewAPIError(code ErrorCode, message string, details interface{}) APIError {
	if details != nil {
		logrus.Error(details)
	}
	if err, ok := details.(error); ok {
		details = err.Error()
	}
	return APIError{
		Type:    typeOf(code),
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewValidationError builds an error carrying the parameters that failed validation.
func NewValidationError(code ErrorCode, message string, params ...Parameter) APIError {
	return APIError{
		Type:       typeOf(code),
		Code:       code,
		Message:    message,
		Parameters: params,
	}
}

func typeOf(code ErrorCode) ErrorType {
	if t, ok := typeByCode[code]; ok {
		return t
	}
	return TypeInternal
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code ErrorCode) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func MapErrorToHTTPStatus(err error) int {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return http.StatusInternalServerError
	}
	switch apiErr.Code {
	case ErrNotFound, ErrLoanNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	case ErrInvalidInput, ErrBadRequest, ErrUnrecognizedEventTopic:
		return http.StatusBadRequest
	case ErrInactivePatron, ErrDuplicateEcsTlr, ErrInvalidLoanAction:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ToResponse converts any error into a status code and a body. Errors that are
// not APIErrors become internal errors whose message names the Go type.
func ToResponse(err error) (int, APIError) {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return MapErrorToHTTPStatus(apiErr), apiErr
	}
	return http.StatusInternalServerError, APIError{
		Type:    TypeInternal,
		Code:    ErrInternalServer,
		Message: fmt.Sprintf("%T: %s", err, err.Error()),
	}
}
