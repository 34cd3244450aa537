package cargo

import (
	"strings"

	"github.com/matzehuels/stacklicense/pkg/errors"
)

// Directive is an invocation mode for cargo. Each mode adds at most one
// flag to the command line.
type Directive int

const (
	// Default runs cargo without extra flags.
	Default Directive = iota
	// Locked requires Cargo.lock to be up to date (--locked).
	Locked
	// Offline forbids network access (--offline).
	Offline
	// Frozen implies both --locked and --offline (--frozen).
	Frozen
)

// Flag returns the command-line flag for the directive, or "" for Default.
func (d Directive) Flag() string {
	switch d {
	case Locked:
		return "--locked"
	case Offline:
		return "--offline"
	case Frozen:
		return "--frozen"
	}
	return ""
}

func (d Directive) String() string {
	switch d {
	case Default:
		return "default"
	case Locked:
		return "locked"
	case Offline:
		return "offline"
	case Frozen:
		return "frozen"
	}
	return "unknown"
}

// apply returns args with the directive's flag appended.
func (d Directive) apply(args []string) []string {
	out := append([]string(nil), args...)
	if f := d.Flag(); f != "" {
		out = append(out, f)
	}
	return out
}

// DirectiveList is an ordered list of modes tried until one succeeds.
type DirectiveList []Directive

// DefaultDirectives runs cargo once without flags.
func DefaultDirectives() DirectiveList { return DirectiveList{Default} }

// PreferLocked tries --locked first and falls back to a plain run.
func PreferLocked() DirectiveList { return DirectiveList{Locked, Default} }

// PreferFrozen tries --frozen, then --locked, then a plain run.
func PreferFrozen() DirectiveList { return DirectiveList{Frozen, Locked, Default} }

// ParseDirectives parses a comma separated list such as "locked,default".
// The presets "prefer-locked" and "prefer-frozen" are accepted as well.
// An empty string yields DefaultDirectives.
func ParseDirectives(s string) (DirectiveList, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return DefaultDirectives(), nil
	case "prefer-locked":
		return PreferLocked(), nil
	case "prefer-frozen":
		return PreferFrozen(), nil
	}

	var list DirectiveList
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "default":
			list = append(list, Default)
		case "locked":
			list = append(list, Locked)
		case "offline":
			list = append(list, Offline)
		case "frozen":
			list = append(list, Frozen)
		default:
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cargo directive %q", part)
		}
	}
	return list, nil
}

func (l DirectiveList) String() string {
	names := make([]string, len(l))
	for i, d := range l {
		names[i] = d.String()
	}
	return strings.Join(names, ",")
}
