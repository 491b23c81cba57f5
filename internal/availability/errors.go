package availability

import "github.com/wolfman30/clinic-scheduler/internal/apperr"

var (
	// ErrRuleNotFound is returned when deleting a rule that does not exist
	ErrRuleNotFound = apperr.New(apperr.ErrNotFound, "rule not found")

	// ErrUnknownKind is returned for a Delete kind other than availability or block
	ErrUnknownKind = apperr.New(apperr.ErrValidation, "unknown rule kind")
)
