package causal

// Method is a causal-inference technique run as a background analysis job.
type Method string

const (
	MethodDiD          Method = "did"
	MethodIV           Method = "iv"
	MethodPanelIV      Method = "panel_iv"
	MethodEventStudy   Method = "event_study"
	MethodCompare      Method = "compare"
	MethodSCM          Method = "scm"
	MethodAugmentedSCM Method = "augmented_scm"
)

// IsValid reports whether the method is part of the supported enumeration.
func (m Method) IsValid() bool {
	switch m {
	case MethodDiD, MethodIV, MethodPanelIV, MethodEventStudy, MethodCompare, MethodSCM, MethodAugmentedSCM:
		return true
	}
	return false
}

// FeatureFlag names the tenant flag a method is gated behind, empty for
// generally available methods.
func (m Method) FeatureFlag() string {
	switch m {
	case MethodSCM:
		return "scm"
	case MethodAugmentedSCM:
		return "augmented_scm"
	default:
		return ""
	}
}
