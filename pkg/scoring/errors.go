package scoring

import "errors"

// Phase identifies which pipeline stage failed.
type Phase string

const (
	PhaseScoring   Phase = "scoring"
	PhaseSynthesis Phase = "synthesis"
)

// PipelineError reports that a phase produced no usable JSON. It is distinct
// from transport errors: the call succeeded, the text was unusable. Synthesis
// failures carry the locked Phase-1 scores so callers can retry synthesis
// alone without re-scoring.
type PipelineError struct {
	Phase  Phase
	Raw    string      // truncated model text that failed extraction
	Scores *Normalized // set when Phase == PhaseSynthesis
}

func (e *PipelineError) Error() string {
	if e.Phase == PhaseScoring {
		return "scoring failed: no usable category scores in model response"
	}
	return "synthesis failed: no usable narrative in model response"
}

// IsScoringFailed reports whether err is a Phase-1 extraction failure.
func IsScoringFailed(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Phase == PhaseScoring
}

// IsSynthesisFailed reports whether err is a Phase-2 extraction failure.
func IsSynthesisFailed(err error) bool {
	var pe *PipelineError
	return errors.As(err, &pe) && pe.Phase == PhaseSynthesis
}
