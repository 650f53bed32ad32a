package profiler

import "codeberg.org/mutker/reqprof/internal/errors"

const (
	ErrCollectFailed = errors.ErrorCode("profiler_collect_failed")
	ErrIDGeneration  = errors.ErrorCode("profiler_id_generation_failed")
	ErrRenderFailed  = errors.ErrorCode("profiler_render_failed")
	ErrWriteFailed   = errors.ErrorCode("profiler_write_failed")
)
