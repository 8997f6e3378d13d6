// internal/lifecycle/machine.go

// Package lifecycle holds the application status graph. The transition table
// used to live as a flat switch inside each consumer; it is centralized here
// so every service applies the same policy and the table is inspectable in
// tests without a broker.
package lifecycle

import (
	commonerrors "agrisure-workers/internal/common/errors"
	"agrisure-workers/internal/events"
)

// Status is one node of the application lifecycle graph.
type Status string

const (
	StatusSubmitted                Status = "SUBMITTED"
	StatusUnderReviewByMA          Status = "UNDER_REVIEW_BY_MA"
	StatusApprovedByMA             Status = "APPROVED_BY_MA"
	StatusRejectedByMA             Status = "REJECTED_BY_MA"
	StatusUnderReviewByAEW         Status = "UNDER_REVIEW_BY_AEW"
	StatusApprovedByAEW            Status = "APPROVED_BY_AEW"
	StatusRejectedByAEW            Status = "REJECTED_BY_AEW"
	StatusUnderReviewByUnderwriter Status = "UNDER_REVIEW_BY_UNDERWRITER"
	StatusApprovedByUnderwriter    Status = "APPROVED_BY_UNDERWRITER"
	StatusRejectedByUnderwriter    Status = "REJECTED_BY_UNDERWRITER"
	StatusUnderReviewByAdjuster    Status = "UNDER_REVIEW_BY_ADJUSTER"
	StatusApprovedByAdjuster       Status = "APPROVED_BY_ADJUSTER"
	StatusRejectedByAdjuster       Status = "REJECTED_BY_ADJUSTER"
	StatusPolicyIssued             Status = "POLICY_ISSUED"
	StatusClaimApproved            Status = "CLAIM_APPROVED"
	StatusCancelledByUser          Status = "CANCELLED_BY_USER"
)

// targets maps each event type to its single target status.
var targets = map[string]Status{
	events.TypeApplicationSubmitted:     StatusSubmitted,
	events.TypeMAReviewStarted:          StatusUnderReviewByMA,
	events.TypeMAApproved:               StatusApprovedByMA,
	events.TypeMARejected:               StatusRejectedByMA,
	events.TypeAEWReviewStarted:         StatusUnderReviewByAEW,
	events.TypeAEWApproved:              StatusApprovedByAEW,
	events.TypeAEWRejected:              StatusRejectedByAEW,
	events.TypeUnderwriterReviewStarted: StatusUnderReviewByUnderwriter,
	events.TypeUnderwriterApproved:      StatusApprovedByUnderwriter,
	events.TypeUnderwriterRejected:      StatusRejectedByUnderwriter,
	events.TypePolicyIssued:             StatusPolicyIssued,
	events.TypeAdjusterReviewStarted:    StatusUnderReviewByAdjuster,
	events.TypeAdjusterApproved:         StatusApprovedByAdjuster,
	events.TypeAdjusterRejected:         StatusRejectedByAdjuster,
	events.TypeClaimApproved:            StatusClaimApproved,
	events.TypeApplicationCancelled:     StatusCancelledByUser,
}

// sources maps each event type to the statuses it may originate from.
// APPLICATION_SUBMITTED and APPLICATION_CANCELLED are absent: the former
// creates the initial record and never transitions an existing one, the
// latter is allowed from any non-terminal status.
var sources = map[string][]Status{
	events.TypeMAReviewStarted:          {StatusSubmitted},
	events.TypeMAApproved:               {StatusUnderReviewByMA},
	events.TypeMARejected:               {StatusUnderReviewByMA},
	events.TypeAEWReviewStarted:         {StatusApprovedByMA},
	events.TypeAEWApproved:              {StatusUnderReviewByAEW},
	events.TypeAEWRejected:              {StatusUnderReviewByAEW},
	events.TypeUnderwriterReviewStarted: {StatusApprovedByAEW},
	events.TypeUnderwriterApproved:      {StatusUnderReviewByUnderwriter},
	events.TypeUnderwriterRejected:      {StatusUnderReviewByUnderwriter},
	events.TypePolicyIssued:             {StatusApprovedByUnderwriter},
	events.TypeAdjusterReviewStarted:    {StatusPolicyIssued},
	events.TypeAdjusterApproved:         {StatusUnderReviewByAdjuster},
	events.TypeAdjusterRejected:         {StatusUnderReviewByAdjuster},
	events.TypeClaimApproved:            {StatusPolicyIssued, StatusApprovedByAdjuster},
}

var terminal = map[Status]bool{
	StatusRejectedByMA:          true,
	StatusRejectedByAEW:         true,
	StatusRejectedByUnderwriter: true,
	StatusRejectedByAdjuster:    true,
	StatusClaimApproved:         true,
	StatusCancelledByUser:       true,
}

// IsTerminal reports whether no further transition may leave the status.
func IsTerminal(s Status) bool {
	return terminal[s]
}

// IsKnown reports whether the status belongs to the closed enumeration.
func IsKnown(s Status) bool {
	for _, t := range targets {
		if t == s {
			return true
		}
	}
	return false
}

// TargetOf returns the status an event type transitions into.
func TargetOf(eventType string) (Status, bool) {
	t, ok := targets[eventType]
	return t, ok
}

// IsIntake reports whether the event type creates the initial record rather
// than transitioning an existing one.
func IsIntake(eventType string) bool {
	return eventType == events.TypeApplicationSubmitted
}

// Transition validates an event against the current status and returns the
// next status. It is pure: callers persist the result. Rejections surface as
// INVALID_TRANSITION so the dispatcher dead-letters the event instead of
// silently applying or dropping it.
func Transition(current Status, eventType string) (Status, error) {
	target, ok := targets[eventType]
	if !ok {
		return "", commonerrors.NewUnknownEventTypeError(eventType)
	}

	if IsIntake(eventType) {
		// Initial state is created by intake, never reached by transition.
		return "", commonerrors.NewInvalidTransitionError(string(current), eventType)
	}

	if eventType == events.TypeApplicationCancelled {
		if IsTerminal(current) {
			return "", commonerrors.NewInvalidTransitionError(string(current), eventType)
		}
		return target, nil
	}

	for _, from := range sources[eventType] {
		if from == current {
			return target, nil
		}
	}
	return "", commonerrors.NewInvalidTransitionError(string(current), eventType)
}
