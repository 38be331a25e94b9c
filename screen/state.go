package screen

// State is where a screen is in its fetch/mutate cycle.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Mutating
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Mutating:
		return "mutating"
	case Failed:
		return "failed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
