package policy

import (
	"fmt"
	"strings"

	"github.com/termgate/termgate/internal/config"
)

// Verdict is the allow/deny decision for a single command.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// SafetyPolicy decides whether a command string is safe to hand to the
// shell. Matching is deliberately crude: case-insensitive substring
// containment. A denylisted fragment embedded in a longer unrelated token
// still triggers a rejection. The policy has no understanding of shell
// metacharacters, so a denylisted operation hidden behind chaining or
// command substitution is not detected unless strict mode is enabled.
//
// Evaluate is pure and the rule lists are never mutated after New, so a
// single SafetyPolicy is safe for concurrent use.
type SafetyPolicy struct {
	denylist          []string
	protectedPaths    []string
	destructiveVerbs  []string
	superuserPrefixes []string
	strict            bool
}

// strictMarkers are the chaining/substitution tokens rejected in strict mode.
var strictMarkers = []string{";", "&&", "||", "`", "$("}

// New creates a SafetyPolicy from the gateway configuration. Rule entries
// are lowercased once here; Evaluate lowercases the command to match.
func New(cfg config.GatewayConfig) *SafetyPolicy {
	return &SafetyPolicy{
		denylist:          lowerAll(cfg.Denylist),
		protectedPaths:    lowerAll(cfg.ProtectedPaths),
		destructiveVerbs:  lowerAll(cfg.DestructiveVerbs),
		superuserPrefixes: lowerAll(cfg.SuperuserPrefixes),
		strict:            cfg.Strict,
	}
}

// Evaluate returns a verdict for the given command. It is total: every
// input, including the empty string, produces a verdict and never an error.
func (p *SafetyPolicy) Evaluate(command string) Verdict {
	normalized := strings.ToLower(strings.TrimSpace(command))

	for _, entry := range p.denylist {
		if strings.Contains(normalized, entry) {
			return Verdict{
				Allowed: false,
				Reason:  fmt.Sprintf("command contains denylisted operation %q", entry),
			}
		}
	}

	for _, path := range p.protectedPaths {
		if !strings.Contains(normalized, path) {
			continue
		}
		for _, verb := range p.destructiveVerbs {
			if strings.Contains(normalized, verb) {
				return Verdict{
					Allowed: false,
					Reason:  fmt.Sprintf("destructive operation %q on protected path %q", verb, path),
				}
			}
		}
	}

	for _, prefix := range p.superuserPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return Verdict{
				Allowed: false,
				Reason:  fmt.Sprintf("command requests privilege escalation via %q", strings.TrimSpace(prefix)),
			}
		}
	}

	if p.strict {
		for _, marker := range strictMarkers {
			if strings.Contains(normalized, marker) {
				return Verdict{
					Allowed: false,
					Reason:  fmt.Sprintf("strict mode forbids shell chaining token %q", marker),
				}
			}
		}
	}

	return Verdict{Allowed: true}
}

// RuleCounts reports the size of each rule list, for status endpoints.
func (p *SafetyPolicy) RuleCounts() map[string]int {
	return map[string]int{
		"denylist":           len(p.denylist),
		"protected_paths":    len(p.protectedPaths),
		"destructive_verbs":  len(p.destructiveVerbs),
		"superuser_prefixes": len(p.superuserPrefixes),
	}
}

// Strict reports whether strict mode is enabled.
func (p *SafetyPolicy) Strict() bool {
	return p.strict
}

func lowerAll(entries []string) []string {
	lowered := make([]string, len(entries))
	for i, entry := range entries {
		lowered[i] = strings.ToLower(entry)
	}
	return lowered
}
