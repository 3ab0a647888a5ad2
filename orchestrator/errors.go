package orchestrator

import (
	"errors"

	"github.com/framelight/fusionpilot/backend"
	"github.com/framelight/fusionpilot/plan"
	"github.com/framelight/fusionpilot/render"
)

// Code is a machine-readable error-taxonomy code carried on the wire
// envelope so callers can branch without parsing message text.
type Code string

const (
	CodePlanEmpty          Code = "plan_empty"
	CodeBackendUnavailable Code = "backend_unavailable"
	CodeBackendExecution   Code = "backend_execution_error"
	CodeRenderRangeInvalid Code = "render_range_invalid"
	CodePermissionDenied   Code = "permission_denied"
	CodeNoActivePlan       Code = "no_active_plan"
	CodeUnknownCommand     Code = "unknown_command"
	CodeSessionNotFound    Code = "session_not_found"
	CodeInternal           Code = "internal"
)

// ErrNoActivePlan is returned by step operations when no plan is awaiting
// execution.
var ErrNoActivePlan = errors.New("no active plan")

// CodeFor maps an error to its taxonomy code.
func CodeFor(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, plan.ErrPlanEmpty), errors.Is(err, plan.ErrNotActionable):
		return CodePlanEmpty
	case errors.Is(err, backend.ErrPermissionDenied):
		return CodePermissionDenied
	case errors.Is(err, backend.ErrUnavailable):
		return CodeBackendUnavailable
	case errors.Is(err, backend.ErrExecution):
		return CodeBackendExecution
	case errors.Is(err, render.ErrCeilingOutOfRange):
		return CodeRenderRangeInvalid
	case errors.Is(err, ErrNoActivePlan):
		return CodeNoActivePlan
	default:
		return CodeInternal
	}
}
