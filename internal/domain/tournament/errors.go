package tournament

import (
	"fmt"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrFetchFailed         = crerr.New("upstream fetch failed")
	ErrParseFailed         = crerr.New("upstream payload not in expected shape")
	ErrAllSourcesExhausted = crerr.New("all sources exhausted")
	ErrInvalidSnapshot     = crerr.New("invalid snapshot")
)

// FetchFailed reports that source could not be reached or answered with an
// unusable status.
func FetchFailed(source string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: source=%s", ErrFetchFailed, source)
	}
	return fmt.Errorf("%w: source=%s: %w", ErrFetchFailed, source, cause)
}

// ParseFailed reports that source answered but section could not be read.
func ParseFailed(source string, section Section, reason string) error {
	return fmt.Errorf("%w: source=%s section=%s: %s", ErrParseFailed, source, section, reason)
}
