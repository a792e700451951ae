package gitx

import (
	"strings"

	"github.com/klevermonicker/gitdance/internal/errors"
)

// ClassifyPushFailure maps git's push stderr to a typed rejection reason.
// This is the only place that inspects the wording of push errors;
// escalation logic branches on the returned reason.
func ClassifyPushFailure(stderr string) errors.RejectReason {
	s := strings.ToLower(stderr)

	switch {
	case strings.Contains(s, "stale info"):
		return errors.RejectStaleLease
	case strings.Contains(s, "non-fast-forward"),
		strings.Contains(s, "fetch first"):
		return errors.RejectNonFastForward
	default:
		return errors.RejectUnknown
	}
}
