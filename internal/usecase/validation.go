package usecase

import "xcreator/internal/domain"

// ValidationOutcome is the classifier's verdict reduced against the requested category.
type ValidationOutcome int

const (
	// ValidationInconclusive covers classifier failures, malformed replies and
	// disagreement below high confidence.
	ValidationInconclusive ValidationOutcome = iota
	ValidationAgree
	ValidationDisagreeHighConfidence
)

func (o ValidationOutcome) String() string {
	switch o {
	case ValidationAgree:
		return "agree"
	case ValidationDisagreeHighConfidence:
		return "disagree_high_confidence"
	default:
		return "inconclusive"
	}
}

// ValidationAction is what ingestion does with an outcome.
type ValidationAction int

const (
	ActionProceed ValidationAction = iota
	ActionCorrect
	ActionReject
)

// assessVerdict reduces a classifier reply to an outcome. A non-nil err means
// the classifier was unreachable or its reply could not be parsed.
func assessVerdict(requested domain.Category, verdict domain.Verdict, err error) ValidationOutcome {
	if err != nil || !verdict.Category.Valid() {
		return ValidationInconclusive
	}
	if verdict.Category == requested {
		return ValidationAgree
	}
	if verdict.Confidence == "high" {
		return ValidationDisagreeHighConfidence
	}
	return ValidationInconclusive
}

// decide is the single decision table for category validation.
func decide(outcome ValidationOutcome, autoCorrect bool) ValidationAction {
	switch {
	case outcome != ValidationDisagreeHighConfidence:
		return ActionProceed
	case autoCorrect:
		return ActionCorrect
	default:
		return ActionReject
	}
}
