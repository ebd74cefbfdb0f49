// Package fingerprint guesses a host's operating system from the set of TCP
// ports found open on it. Classification is a pure function of that set: an
// ordered rule table is walked and the first rule whose required ports are all
// open wins, with confidence raised one step when other rules for the same
// label also see their indicative ports.
package fingerprint

import (
	"fmt"
	"strings"
)

// Confidence is ordered: High > Medium > Low > Unknown.
type Confidence int

const (
	Unknown Confidence = iota
	Low
	Medium
	High
)

// UnknownLabel is used when no rule matches or nothing is open.
const UnknownLabel = "Unknown"

// String returns the display name for c.
func (c Confidence) String() string {
	switch c {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	default:
		return "Unknown"
	}
}

// Upgrade raises c one level, capped at High. Unknown is never upgraded.
func (c Confidence) Upgrade() Confidence {
	if c == Unknown || c >= High {
		return c
	}
	return c + 1
}

// MarshalText encodes the confidence by name so JSON payloads stay readable.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (c *Confidence) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "high":
		*c = High
	case "medium":
		*c = Medium
	case "low":
		*c = Low
	case "unknown", "":
		*c = Unknown
	default:
		return fmt.Errorf("unknown confidence %q", string(b))
	}
	return nil
}

// Guess is the outcome of a classification.
type Guess struct {
	Label      string     `json:"label"`
	Confidence Confidence `json:"confidence"`
	Rule       string     `json:"rule,omitempty"`
}

// String renders the guess the way reports print it, e.g. "Windows (High)".
func (g Guess) String() string {
	return fmt.Sprintf("%s (%s)", g.Label, g.Confidence)
}

// Rule is one row of the signature table.
type Rule struct {
	Name       string
	Label      string
	Required   []uint16
	Indicative []uint16
	Base       Confidence
}

func (r Rule) matches(open map[uint16]struct{}) bool {
	if len(r.Required) == 0 {
		return false
	}
	for _, p := range r.Required {
		if _, ok := open[p]; !ok {
			return false
		}
	}
	return true
}

func (r Rule) indicated(open map[uint16]struct{}) bool {
	for _, p := range r.Indicative {
		if _, ok := open[p]; ok {
			return true
		}
	}
	return false
}

// DefaultRules is the built-in table. Order matters: more specific
// signatures come first.
var DefaultRules = []Rule{
	{
		Name:       "windows-dc",
		Label:      "Windows (Domain Controller)",
		Required:   []uint16{88, 389, 445},
		Indicative: []uint16{53, 88, 389, 636, 3268, 3269},
		Base:       High,
	},
	{
		Name:       "windows-rpc",
		Label:      "Windows",
		Required:   []uint16{135, 445},
		Indicative: []uint16{135, 139, 445},
		Base:       Medium,
	},
	{
		Name:       "windows-smb",
		Label:      "Windows",
		Required:   []uint16{139, 445},
		Indicative: []uint16{139, 445},
		Base:       Low,
	},
	{
		Name:       "windows-remote",
		Label:      "Windows",
		Required:   []uint16{3389},
		Indicative: []uint16{3389, 5985, 5986},
		Base:       Medium,
	},
	{
		Name:       "macos",
		Label:      "macOS",
		Required:   []uint16{548},
		Indicative: []uint16{548, 5900, 3283},
		Base:       Medium,
	},
	{
		Name:       "printer",
		Label:      "Printer",
		Required:   []uint16{9100},
		Indicative: []uint16{515, 631, 9100},
		Base:       Medium,
	},
	{
		Name:       "unix-ssh",
		Label:      "Unix-like",
		Required:   []uint16{22},
		Indicative: []uint16{22},
		Base:       Medium,
	},
	{
		Name:       "unix-rpc",
		Label:      "Unix-like",
		Required:   []uint16{111},
		Indicative: []uint16{111, 2049},
		Base:       Low,
	},
	{
		Name:       "network-device",
		Label:      "Network Device",
		Required:   []uint16{23},
		Indicative: []uint16{23, 161, 179},
		Base:       Low,
	},
}

// Classifier evaluates a rule table.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a classifier over rules, evaluated in order.
func NewClassifier(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

var defaultClassifier = NewClassifier(DefaultRules)

// Classify runs the default rule table over the open ports.
func Classify(open []uint16) Guess {
	return defaultClassifier.Classify(open)
}

// Classify returns the guess for an open-port set. The input order is
// irrelevant and duplicates are ignored.
func (c *Classifier) Classify(open []uint16) Guess {
	if len(open) == 0 {
		return Guess{Label: UnknownLabel, Confidence: Unknown}
	}

	set := make(map[uint16]struct{}, len(open))
	for _, p := range open {
		set[p] = struct{}{}
	}

	primary := -1
	for i, r := range c.rules {
		if r.matches(set) {
			primary = i
			break
		}
	}
	if primary < 0 {
		return Guess{Label: UnknownLabel, Confidence: Low}
	}

	match := c.rules[primary]
	corroborating := 0
	for _, r := range c.rules {
		if r.Label == match.Label && r.indicated(set) {
			corroborating++
		}
	}

	conf := match.Base
	if corroborating > 1 {
		conf = conf.Upgrade()
	}
	return Guess{Label: match.Label, Confidence: conf, Rule: match.Name}
}
