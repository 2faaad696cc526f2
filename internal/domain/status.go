package domain

// LocalFileState classifies what is on disk for one asset path.
type LocalFileState int

const (
	Absent LocalFileState = iota
	PlaceholderStub
	Present
)

// FetchOutcome is the terminal result of reconciling one asset path.
type FetchOutcome int

const (
	OutcomeOk FetchOutcome = iota
	OutcomeSkipped
	OutcomeFailed
)

var stateLabels = map[LocalFileState]string{
	Absent:          "absent",
	PlaceholderStub: "placeholder",
	Present:         "present",
}

var outcomeLabels = map[FetchOutcome]string{
	OutcomeOk:      "ok",
	OutcomeSkipped: "skipped",
	OutcomeFailed:  "failed",
}

func (s LocalFileState) String() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}

	return "unknown"
}

// NeedsFetch reports whether a file in this state has to be downloaded.
func (s LocalFileState) NeedsFetch() bool {
	return s == Absent || s == PlaceholderStub
}

func (o FetchOutcome) String() string {
	if label, ok := outcomeLabels[o]; ok {
		return label
	}

	return "unknown"
}
