package pipeline

// State identifies a position in the pipeline state machine
type State int

// Pipeline states. Transitions are linear on success; any stage failure
// between TypeDetect and Store routes directly to ReportFailure.
const (
	StateTypeDetect State = iota
	StateValidate
	StateParse
	StateMap
	StateStore
	StateReportSuccess
	StateReportFailure
	StateDone
)

// String returns the state name used in logs, metrics, and failure reports
func (s State) String() string {
	switch s {
	case StateTypeDetect:
		return "TypeDetect"
	case StateValidate:
		return "Validate"
	case StateParse:
		return "Parse"
	case StateMap:
		return "Map"
	case StateStore:
		return "Store"
	case StateReportSuccess:
		return "ReportSuccess"
	case StateReportFailure:
		return "ReportFailure"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}
