package router

import "codeberg.org/mutker/reqprof/internal/errors"

const (
	ErrRouteNotFound  = errors.ErrorCode("router_route_not_found")
	ErrMissingParam   = errors.ErrorCode("router_missing_param")
	ErrDuplicateRoute = errors.ErrorCode("router_duplicate_route")
)
