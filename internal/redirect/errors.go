package redirect

import (
	"errors"
	"fmt"
)

// ErrConfiguration is wrapped by every fatal setup error. Such errors are not
// retried; the host must fix the scene or config and restart the run.
var ErrConfiguration = errors.New("configuration error")

var (
	ErrEmptyPool         = fmt.Errorf("%w: there are no redirection targets that could be selected", ErrConfiguration)
	ErrNoCorrespondences = fmt.Errorf("%w: redirection target has no real/virtual correspondence", ErrConfiguration)
	ErrZeroWarpPath      = fmt.Errorf("%w: curve body warp needs a non-zero warp path", ErrConfiguration)
)

// IsConfigurationError reports whether err is (or wraps) a configuration
// error.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
