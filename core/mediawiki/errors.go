package mediawiki

import (
	"errors"
	"fmt"
)

// ErrInvalidURL is returned by NewSite for an unusable api.php address.
var ErrInvalidURL = errors.New("invalid api url")

// APIError is the "error" member of an API answer.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mediawiki: %s: %s", e.Code, e.Info)
}

// AuthError is returned when login does not end in "Success".
type AuthError struct {
	Result string
	Reason string
	Data   map[string]interface{} // the raw answer
}

func (e *AuthError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("mediawiki login: %s: %s", e.Result, e.Reason)
	}
	return "mediawiki login: " + e.Result
}
