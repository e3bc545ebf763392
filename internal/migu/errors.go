package migu

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// ErrUnavailable is returned while the circuit breaker for a Migu service is open.
var ErrUnavailable = errors.New("migu service unavailable")

// APIError is a business error reported by a Migu service.
type APIError struct {
	Service    string
	Code       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("migu %s [%d] %s: %s", e.Service, e.StatusCode, e.Code, e.Message)
}

// envelope is the body every Migu endpoint answers with.
type envelope struct {
	ResultCode string          `json:"resultCode"`
	ResultDesc string          `json:"resultDesc"`
	Data       json.RawMessage `json:"data"`
}

const resultOK = "0"

// parseError turns a failed response into an *APIError.
func parseError(service string, resp *resty.Response) error {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err == nil && env.ResultCode != "" {
		return &APIError{
			Service:    service,
			Code:       env.ResultCode,
			Message:    env.ResultDesc,
			StatusCode: resp.StatusCode(),
		}
	}
	return &APIError{
		Service:    service,
		Code:       "unknown_error",
		Message:    string(resp.Body()),
		StatusCode: resp.StatusCode(),
	}
}

// IsAPIError reports whether err carries a Migu business error and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
