package sky

import "errors"

// Error taxonomy for the visibility pipeline. Callers match with errors.Is;
// returned errors wrap these with the offending value.
var (
	// ErrInvalidCoordinate reports a malformed or out-of-domain RA, Dec,
	// longitude or latitude.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrInvalidInstant reports a date/hour combination that does not name a
	// calendar instant.
	ErrInvalidInstant = errors.New("invalid instant")
)

// Kind returns a short machine-readable label for err, suitable for API
// responses and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCoordinate):
		return "invalid_coordinate"
	case errors.Is(err, ErrInvalidInstant):
		return "invalid_instant"
	default:
		return "internal"
	}
}
