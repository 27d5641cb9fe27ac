// Package submit drives the multi-round application submission flow: it
// classifies backend responses, recovers unresolved questions, resolves
// baseline-profile gaps and resubmits until the backend reports a terminal
// outcome.
package submit

import (
	"errors"

	"applyflow-engine/internal/backend"
)

// Outcome is the classified kind of a submission response.
type Outcome string

const (
	OutcomeProfileIncomplete      Outcome = "profile_incomplete"
	OutcomeStructuredFieldsNeeded Outcome = "structured_fields_needed"
	OutcomeAutomationSuccess      Outcome = "automation_success"
	OutcomeAutomationInputNeeded  Outcome = "automation_input_needed"
	OutcomeAutomationFailed       Outcome = "automation_failed"
	OutcomeGenericSuccess         Outcome = "generic_success"
	OutcomeTransportError         Outcome = "transport_error"
)

type Classification struct {
	Outcome Outcome

	// profile_incomplete: baseline fields the backend reported missing.
	MissingProfileFields []string

	// structured_fields_needed: backend-declared field descriptors.
	Fields []backend.RequiredField

	// automation_input_needed: free-text message to be parsed, plus any
	// out-of-band option sets keyed by question text.
	Message string
	Options map[string][]string

	Result *backend.AutomationResult
	Err    error // transport_error only
}

// Classify maps a submission response to exactly one outcome kind. It is
// total: any successful HTTP response with an unrecognized shape is a
// generic success, any failure that is not the 412 profile signal is a
// transport error.
func Classify(out *backend.SubmissionOutcome, err error) Classification {
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.ProfileIncomplete() {
			return Classification{
				Outcome:              OutcomeProfileIncomplete,
				MissingProfileFields: apiErr.MissingFields,
			}
		}
		return Classification{Outcome: OutcomeTransportError, Err: err}
	}
	if out == nil {
		return Classification{Outcome: OutcomeGenericSuccess}
	}

	ar := out.AutomationResult

	// a successful automation wins over any other payload field
	if ar != nil {
		switch ar.Status {
		case backend.StatusSuccess, backend.StatusSubmitted:
			return Classification{Outcome: OutcomeAutomationSuccess, Result: ar}
		}
	}

	if len(out.MissingFields) > 0 {
		return Classification{
			Outcome: OutcomeStructuredFieldsNeeded,
			Fields:  out.MissingFields,
		}
	}

	if ar == nil {
		return Classification{Outcome: OutcomeGenericSuccess}
	}

	switch ar.Status {
	case backend.StatusUserInputRequired, backend.StatusRequiresInput:
		if len(ar.RequiredInputs) > 0 {
			return Classification{
				Outcome: OutcomeStructuredFieldsNeeded,
				Fields:  ar.RequiredInputs,
				Result:  ar,
			}
		}
		return Classification{
			Outcome: OutcomeAutomationInputNeeded,
			Message: ar.Message,
			Options: ar.FieldOptions,
			Result:  ar,
		}
	case backend.StatusFailed:
		return Classification{Outcome: OutcomeAutomationFailed, Message: ar.Message, Result: ar}
	default:
		return Classification{Outcome: OutcomeGenericSuccess, Result: ar}
	}
}
