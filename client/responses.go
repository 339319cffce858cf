package client

import (
	"fmt"

	"github.com/cwbudde/algo-keytune/keytune"
)

// Error codes carried in the "errcode" field of error responses.
const (
	ErrCodeInvalidAudio = "M_INVALID_AUDIO"
	ErrCodeDecode       = "M_DECODE_ERROR"
	ErrCodeUnknownKey   = "M_UNKNOWN_KEY"
	ErrCodeNotAnalyzed  = "M_NOT_ANALYZED"
	ErrCodeBadRequest   = "M_BAD_REQUEST"
	ErrCodeTooLarge     = "M_TOO_LARGE"
	ErrCodeNotFound     = "M_NOT_FOUND"
	ErrCodeMethod       = "M_METHOD_NOT_ALLOWED"
	ErrCodeLimited      = "M_LIMIT_EXCEEDED"
	ErrCodeUnknown      = "M_UNKNOWN"
)

// SessionHeader carries the session token as an alternative to the
// "session" form field.
const SessionHeader = "X-Keytune-Session"

// ShiftHeader reports the applied shift in semitones on /key_switch.
const ShiftHeader = "X-Keytune-Shift"

// AnalyzeResponse is the body of a successful /analyze call.
type AnalyzeResponse struct {
	Key          string      `json:"key"`
	TuningOffset float64     `json:"tuning_offset"`
	Session      string      `json:"session"`
	SampleRate   int         `json:"sample_rate"`
	Duration     float64     `json:"duration"`
	Chroma       [12]float64 `json:"chroma"`
	Filename     string      `json:"filename,omitempty"`
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    string `json:"errcode"`
	Message string `json:"error"`
	Status  int    `json:"-"`
}

func (e *ErrorResponse) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("keytune server: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("keytune server: %s: %s", e.Code, e.Message)
}

// Kind maps the error code back to a keytune error kind.
func (e *ErrorResponse) Kind() keytune.Kind {
	switch e.Code {
	case ErrCodeInvalidAudio:
		return keytune.KindInvalidAudio
	case ErrCodeDecode:
		return keytune.KindDecode
	case ErrCodeUnknownKey:
		return keytune.KindUnknownKey
	case ErrCodeNotAnalyzed:
		return keytune.KindNotAnalyzed
	default:
		return keytune.KindUnknown
	}
}

// Is lets errors.Is match the keytune sentinels.
func (e *ErrorResponse) Is(target error) bool {
	t, ok := target.(*keytune.Error)
	return ok && e.Kind() != keytune.KindUnknown && t.Kind == e.Kind()
}

func InternalServerError(message string) *ErrorResponse {
	return &ErrorResponse{ErrCodeUnknown, message, 500}
}

func BadRequest(message string) *ErrorResponse {
	return &ErrorResponse{ErrCodeBadRequest, message, 400}
}

func NotFoundError() *ErrorResponse {
	return &ErrorResponse{ErrCodeNotFound, "Not found", 404}
}

func MethodNotAllowed() *ErrorResponse {
	return &ErrorResponse{ErrCodeMethod, "Method Not Allowed", 405}
}

func RequestTooLarge() *ErrorResponse {
	return &ErrorResponse{ErrCodeTooLarge, "Too Large", 413}
}

func RateLimitReached() *ErrorResponse {
	return &ErrorResponse{ErrCodeLimited, "Rate Limited", 429}
}

func NoFileProvided() *ErrorResponse {
	return &ErrorResponse{ErrCodeBadRequest, "No file provided.", 400}
}

func NoFileSelected() *ErrorResponse {
	return &ErrorResponse{ErrCodeBadRequest, "No file selected.", 400}
}

func NotAnalyzed() *ErrorResponse {
	return &ErrorResponse{ErrCodeNotAnalyzed, "No file analyzed yet.", 400}
}

func InvalidKey() *ErrorResponse {
	return &ErrorResponse{ErrCodeUnknownKey, "Invalid or missing desired key.", 400}
}

// FromError converts a keytune error into a response.
func FromError(err error) *ErrorResponse {
	switch keytune.KindOf(err) {
	case keytune.KindInvalidAudio:
		return &ErrorResponse{ErrCodeInvalidAudio, "The audio could not be analyzed.", 400}
	case keytune.KindDecode:
		return &ErrorResponse{ErrCodeDecode, "The file could not be decoded as audio.", 400}
	case keytune.KindUnknownKey:
		return InvalidKey()
	case keytune.KindNotAnalyzed:
		return NotAnalyzed()
	default:
		return InternalServerError("Error processing request")
	}
}
