package generation

import "errors"

// Validation failures. Checked in order by ValidateForm; the first rule
// that fails wins. None of these triggers a network call.
var (
	ErrMissingInput          = errors.New("prompt text and reference image are both absent")
	ErrInvalidDimension      = errors.New("width, height and depth must be positive finite numbers")
	ErrInvalidInfill         = errors.New("infill must be an integer between 0 and 100")
	ErrInvalidShellThickness = errors.New("shell thickness must be at least 0.4 mm")
)

// Dispatch failures. Each is recovered by substituting the placeholder
// asset, so callers always have a renderable result.
var (
	ErrTransport     = errors.New("generation backend unreachable")
	ErrBackend       = errors.New("generation backend returned an error")
	ErrMissingResult = errors.New("generation backend response missing model URL")
)

// Kind maps a generation error to its stable wire name, used in API
// responses and metrics labels.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMissingInput):
		return "missing_input"
	case errors.Is(err, ErrInvalidDimension):
		return "invalid_dimension"
	case errors.Is(err, ErrInvalidInfill):
		return "invalid_infill"
	case errors.Is(err, ErrInvalidShellThickness):
		return "invalid_shell_thickness"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	case errors.Is(err, ErrBackend):
		return "backend_error"
	case errors.Is(err, ErrMissingResult):
		return "missing_result"
	case err == nil:
		return ""
	default:
		return "internal_error"
	}
}

// IsValidation reports whether err is one of the validator's failures.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingInput) ||
		errors.Is(err, ErrInvalidDimension) ||
		errors.Is(err, ErrInvalidInfill) ||
		errors.Is(err, ErrInvalidShellThickness)
}
