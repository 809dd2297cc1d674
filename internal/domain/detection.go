package domain

type DetectionResult string

const (
	// ResultAutoSettled: violation created and debited in full.
	ResultAutoSettled DetectionResult = "auto_settled"
	// ResultPendingFunds: violation created, wallet could not cover the fee.
	ResultPendingFunds DetectionResult = "pending_insufficient_funds"
	// ResultUnregisteredPlate: no matching vehicle; nothing was created.
	// Surfaced so the event can be flagged for manual review.
	ResultUnregisteredPlate DetectionResult = "unregistered_plate"
	// ResultDuplicateSubmission: same evidence seen within the dedupe
	// window; no new violation.
	ResultDuplicateSubmission DetectionResult = "duplicate_submission"
)

type DetectionOutcome struct {
	Result      DetectionResult
	RawPlate    string
	EvidenceRef string
	Violation   *Violation
}
