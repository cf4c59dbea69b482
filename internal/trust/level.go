// Package trust implements the Trust Gateway: the policy-based
// authorization layer that sits between the dispatcher and every tool
// handler, classifying tools by destructiveness and requiring elevation for
// dangerous ones.
package trust

import "fmt"

// Level is a session's authorization capacity, ordered from least to most
// privileged.
type Level int

const (
	Untrusted Level = iota
	Standard
	Elevated
	Full
)

func (l Level) String() string {
	switch l {
	case Untrusted:
		return "UNTRUSTED"
	case Standard:
		return "STANDARD"
	case Elevated:
		return "ELEVATED"
	case Full:
		return "FULL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name (as found in the
// <NAMESPACE>_TRUST_DEFAULT_LEVEL env var or an elevation token) to a Level.
func ParseLevel(name string) (Level, error) {
	switch name {
	case "UNTRUSTED":
		return Untrusted, nil
	case "STANDARD":
		return Standard, nil
	case "ELEVATED":
		return Elevated, nil
	case "FULL":
		return Full, nil
	default:
		return Untrusted, fmt.Errorf("unknown trust level %q", name)
	}
}
