package spotify

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	spotifyapi "github.com/zmb3/spotify/v2"
)

// Exported error variables for better error handling
var (
	ErrNotAuthenticated = errors.New("not authenticated with Spotify")
	ErrNoActiveDevice   = errors.New("no active Spotify device")
	ErrNotATrack        = errors.New("uri does not denote a track")
	ErrNotAContext      = errors.New("uri does not denote a playback context")
)

// Error is a failed player operation with its classified Kind.
type Error struct {
	Op      string    // Operation that failed
	Kind    ErrorKind // Type of error
	Err     error     // Underlying error
	Context map[string]interface{}
}

// ErrorKind classifies why a Web API call failed.
type ErrorKind int

const (
	ErrAPI ErrorKind = iota
	ErrAuth
	ErrNoDevice
	ErrRateLimited
	ErrNetwork
	ErrInput
)

func (k ErrorKind) String() string {
	switch k {
	case ErrAuth:
		return "auth"
	case ErrNoDevice:
		return "no_device"
	case ErrRateLimited:
		return "rate_limited"
	case ErrNetwork:
		return "network"
	case ErrInput:
		return "input"
	default:
		return "api"
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the sentinels by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotAuthenticated:
		return e.Kind == ErrAuth
	case ErrNoActiveDevice:
		return e.Kind == ErrNoDevice
	}
	return false
}

// wrap classifies err from the Web API client into an *Error.
func wrap(op string, err error, ctx map[string]interface{}) error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return err
	}

	kind := ErrNetwork
	var apiErr spotifyapi.Error
	var apiErrPtr *spotifyapi.Error
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		kind = ErrAuth
	case errors.Is(err, ErrNotATrack), errors.Is(err, ErrNotAContext):
		kind = ErrInput
	case errors.As(err, &apiErr):
		kind = classifyStatus(apiErr.Status, apiErr.Message)
	case errors.As(err, &apiErrPtr):
		kind = classifyStatus(apiErrPtr.Status, apiErrPtr.Message)
	}

	return &Error{Op: op, Kind: kind, Err: err, Context: ctx}
}

func classifyStatus(status int, message string) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuth
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusNotFound && strings.Contains(strings.ToLower(message), "device"):
		return ErrNoDevice
	default:
		return ErrAPI
	}
}
