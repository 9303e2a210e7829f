package similarity

import "errors"

var (
	// ErrThresholdRange is returned when a threshold is outside (0, 1].
	ErrThresholdRange = errors.New("threshold must be in (0, 1]")

	// ErrThresholdOrder is returned when thresholds are not strictly
	// ordered exact > near > related.
	ErrThresholdOrder = errors.New("thresholds must satisfy exact > near > related")
)
