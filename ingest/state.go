package ingest

import "fmt"

// State of the ingestion loop.
type State int32

const (
	// Idle is the state between heights.
	Idle State = iota
	// Fetching waits for blobs of the next height.
	Fetching
	// Decoding orders and decodes blobs.
	Decoding
	// Applying executes transactions.
	Applying
	// Checkpointing persists the state root and the checkpoint.
	Checkpointing
	// Halted is terminal. The database can't be trusted.
	Halted
)

var allStates = []State{Idle, Fetching, Decoding, Applying, Checkpointing, Halted}

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Decoding:
		return "decoding"
	case Applying:
		return "applying"
	case Checkpointing:
		return "checkpointing"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for _, state := range allStates {
		if state.String() == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown loop state %q", text)
}
