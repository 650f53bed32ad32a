package view

import "codeberg.org/mutker/reqprof/internal/errors"

const (
	ErrNotFound     = errors.ErrorCode("view_not_found")
	ErrParseFailed  = errors.ErrorCode("view_parse_failed")
	ErrRenderFailed = errors.ErrorCode("view_render_failed")
)

// IsNotFound reports whether err means the view does not exist.
func IsNotFound(err error) bool {
	return errors.HasCode(err, ErrNotFound)
}
