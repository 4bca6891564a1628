package core

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindInvalidResponse      ErrorKind = "invalid_response"
	KindMissingCredentials   ErrorKind = "missing_credentials"
	KindUnauthorized         ErrorKind = "unauthorized"
	KindServerError          ErrorKind = "server_error"
	KindAPIFailure           ErrorKind = "api_failure"
	KindMissingUsageData     ErrorKind = "missing_usage_data"
	KindMissingPrimaryWindow ErrorKind = "missing_primary_window"
	KindTimeout              ErrorKind = "timeout"
)

const (
	ServerErrorPreviewLimit = 240
	MissingDataPreviewLimit = 400
)

// ProviderError is the single error type fetches and mappers return. Kind
// tells callers whether to prompt for auth, show "no data" or retry later.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Preview    string
	Err        error
}

func (e *ProviderError) Error() string {
	prefix := string(e.Kind)
	if e.Provider != "" {
		prefix = e.Provider + ": " + prefix
	}
	switch {
	case e.Kind == KindServerError:
		msg := fmt.Sprintf("%s: HTTP %d", prefix, e.StatusCode)
		if e.Preview != "" {
			msg += ": " + e.Preview
		}
		return msg
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	case e.Message != "":
		return prefix + ": " + e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches another *ProviderError by kind, so errors.Is(err, ErrTimeout)
// style sentinels work.
func (e *ProviderError) Is(target error) bool {
	var t *ProviderError
	if !errors.As(target, &t) {
		return false
	}
	return t.Provider == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrInvalidResponse      = &ProviderError{Kind: KindInvalidResponse}
	ErrMissingCredentials   = &ProviderError{Kind: KindMissingCredentials}
	ErrUnauthorized         = &ProviderError{Kind: KindUnauthorized}
	ErrServerError          = &ProviderError{Kind: KindServerError}
	ErrAPIFailure           = &ProviderError{Kind: KindAPIFailure}
	ErrMissingUsageData     = &ProviderError{Kind: KindMissingUsageData}
	ErrMissingPrimaryWindow = &ProviderError{Kind: KindMissingPrimaryWindow}
	ErrTimeout              = &ProviderError{Kind: KindTimeout}
)

func InvalidResponse(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindInvalidResponse, Err: err}
}

func MissingCredentials(provider, message string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindMissingCredentials, Message: message}
}

func Unauthorized(provider string, status int) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindUnauthorized, StatusCode: status,
		Message: fmt.Sprintf("HTTP %d", status)}
}

func ServerError(provider string, status int, body string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindServerError, StatusCode: status,
		Preview: truncatePreview(body, ServerErrorPreviewLimit)}
}

func APIFailure(provider, message string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindAPIFailure, Message: message}
}

func MissingUsageData(provider, preview string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindMissingUsageData,
		Preview: truncatePreview(preview, MissingDataPreviewLimit)}
}

func MissingPrimaryWindow(provider string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindMissingPrimaryWindow}
}

func Timeout(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindTimeout, Err: err}
}

func truncatePreview(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// KindOf reports the kind of a *ProviderError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// NeedsReauth is true when the user has to refresh credentials.
func NeedsReauth(err error) bool {
	k := KindOf(err)
	return k == KindUnauthorized || k == KindMissingCredentials
}

// IsNoData is true when the provider answered but had nothing to show.
func IsNoData(err error) bool {
	switch KindOf(err) {
	case KindMissingUsageData, KindAPIFailure, KindMissingPrimaryWindow:
		return true
	}
	return false
}

// IsTransient is true for failures the next poll may not see again.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindServerError, KindInvalidResponse:
		return true
	}
	return false
}
