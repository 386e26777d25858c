package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrNotReady              = errors.New("player data not loaded yet")
	ErrUpstream              = errors.New("upstream request failed")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
