// Package ports builds the port sets a scan probes and carries the static
// port metadata (service names, risk flags, descriptions) used by reporting.
package ports

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/artofscripting/networkvector/internal/errors"
)

// Mode selects which port set a scan uses.
type Mode string

const (
	ModeCurated  Mode = "curated"
	ModeExplicit Mode = "explicit"
	ModeAll      Mode = "all"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// Keywords accepted by Parse in place of a numeric list.
const (
	keywordAll    = "all"
	keywordCommon = "common"
)

// Curated returns a copy of the default port set.
func Curated() []uint16 {
	return slices.Clone(curated)
}

// All returns every TCP port, 1 through 65535, in ascending order.
func All() []uint16 {
	out := make([]uint16, 0, MaxPort)
	for p := MinPort; p <= MaxPort; p++ {
		out = append(out, uint16(p))
	}
	return out
}

// Parse turns a user port list into a sorted, deduplicated slice.
// Accepted forms: "22", "22,80,443", "1-1024", "22 80 8000-8100",
// and the keywords "all" and "common".
func Parse(spec string) ([]uint16, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.ErrInvalidPorts(spec, fmt.Errorf("empty port list"))
	}

	switch strings.ToLower(spec) {
	case keywordAll:
		return All(), nil
	case keywordCommon:
		return Curated(), nil
	}

	tokens := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(tokens) == 0 {
		return nil, errors.ErrInvalidPorts(spec, fmt.Errorf("empty port list"))
	}

	seen := make(map[uint16]struct{})
	for _, tok := range tokens {
		lo, hi, err := parseToken(tok)
		if err != nil {
			return nil, errors.ErrInvalidPorts(spec, err)
		}
		for p := lo; p <= hi; p++ {
			seen[uint16(p)] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

func parseToken(tok string) (int, int, error) {
	if lo, hi, ok := strings.Cut(tok, "-"); ok {
		start, err := parsePort(lo)
		if err != nil {
			return 0, 0, err
		}
		end, err := parsePort(hi)
		if err != nil {
			return 0, 0, err
		}
		if start > end {
			return 0, 0, fmt.Errorf("range start greater than end: %s", tok)
		}
		return start, end, nil
	}
	p, err := parsePort(tok)
	return p, p, err
}

func parsePort(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if v < MinPort || v > MaxPort {
		return 0, fmt.Errorf("port %d out of range %d-%d", v, MinPort, MaxPort)
	}
	return v, nil
}

// Build resolves a mode into the concrete port set for a phase.
// ModeExplicit requires a non-empty explicit list; the result is always
// sorted and free of duplicates.
func Build(mode Mode, explicit []uint16) ([]uint16, error) {
	switch mode {
	case ModeCurated, "":
		return Curated(), nil
	case ModeAll:
		return All(), nil
	case ModeExplicit:
		if len(explicit) == 0 {
			return nil, errors.ErrInvalidPorts("", fmt.Errorf("explicit mode needs at least one port"))
		}
		seen := make(map[uint16]struct{}, len(explicit))
		for _, p := range explicit {
			if p == 0 {
				return nil, errors.ErrInvalidPorts("0", fmt.Errorf("port 0 is not scannable"))
			}
			seen[p] = struct{}{}
		}
		return sortedKeys(seen), nil
	default:
		return nil, errors.NewScanError(errors.CodeValidation, fmt.Sprintf("unknown port mode %q", mode))
	}
}

func sortedKeys(set map[uint16]struct{}) []uint16 {
	out := make([]uint16, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
