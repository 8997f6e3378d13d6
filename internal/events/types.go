// internal/events/types.go
package events

// Event type vocabulary shared across topics. Every type maps to exactly one
// target workflow status; the mapping itself lives in the lifecycle package.
const (
	TypeApplicationSubmitted = "APPLICATION_SUBMITTED"
	TypeApplicationCancelled = "APPLICATION_CANCELLED"

	TypeMAReviewStarted = "MA_REVIEW_STARTED"
	TypeMAApproved      = "MA_APPROVED"
	TypeMARejected      = "MA_REJECTED"

	TypeAEWReviewStarted = "AEW_REVIEW_STARTED"
	TypeAEWApproved      = "AEW_APPROVED"
	TypeAEWRejected      = "AEW_REJECTED"

	TypeUnderwriterReviewStarted = "UNDERWRITER_REVIEW_STARTED"
	TypeUnderwriterApproved      = "UNDERWRITER_APPROVED"
	TypeUnderwriterRejected      = "UNDERWRITER_REJECTED"

	TypePolicyIssued = "POLICY_ISSUED"

	TypeAdjusterReviewStarted = "ADJUSTER_REVIEW_STARTED"
	TypeAdjusterApproved      = "ADJUSTER_APPROVED"
	TypeAdjusterRejected      = "ADJUSTER_REJECTED"

	TypeClaimApproved = "CLAIM_APPROVED"

	TypeVerificationCompleted = "VERIFICATION_COMPLETED"
	TypeVerificationRejected  = "VERIFICATION_REJECTED"

	TypeDocumentAttached = "DOCUMENT_ATTACHED"
	TypeDocumentVerified = "DOCUMENT_VERIFIED"
)
