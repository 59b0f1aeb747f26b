package session

import (
	"errors"
	"fmt"

	"github.com/banshee-data/handwarp/internal/redirect"
)

// ErrSessionAborted is returned by every Tick after a configuration error
// ended the session.
var ErrSessionAborted = errors.New("session aborted")

func configError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", redirect.ErrConfiguration, fmt.Sprintf(format, args...))
}

func wrapConfigError(what string, err error) error {
	if redirect.IsConfigurationError(err) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%w: %s: %w", redirect.ErrConfiguration, what, err)
}
