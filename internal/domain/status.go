package domain

import "strings"

// ParseDecisionStatus maps raw listing text onto the DecisionStatus enum.
// Anything non-empty that is not a recognized status becomes DecisionOther;
// empty input is DecisionUnknown.
func ParseDecisionStatus(raw string) DecisionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return DecisionUnknown
	case "accepted":
		return DecisionAccepted
	case "rejected":
		return DecisionRejected
	case "waitlisted", "wait listed", "wait-listed":
		return DecisionWaitlisted
	case "interview":
		return DecisionInterview
	default:
		return DecisionOther
	}
}
