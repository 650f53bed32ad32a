package server

import "codeberg.org/mutker/reqprof/internal/errors"

const (
	ErrRegisterFailed errors.ErrorCode = "server_register_failed"
	ErrRenderFailed   errors.ErrorCode = "server_render_failed"
)
