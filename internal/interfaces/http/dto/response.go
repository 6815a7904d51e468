package dto

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents error details. Parameters carry the engine's
// structured error parameters (fund code, expense class name, ...).
type ErrorInfo struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithParams creates an error response with parameters
func NewErrorResponseWithParams(code, message string, params map[string]string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:       code,
			Message:    message,
			Parameters: params,
		},
	}
}
