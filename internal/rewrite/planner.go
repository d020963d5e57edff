// Package rewrite computes the text replacement that re-parents a
// migration script. It is deliberately a pair of pattern patches, not a
// structural rewrite: the script is never parsed as code, and the
// caller is expected to have verified the target and new parent against
// the graph before planning (and to have confirmed the action with the
// user, since it rewrites migration history).
package rewrite

import (
	"fmt"
	"regexp"
)

// Base is the sentinel for "no parent": re-parenting onto Base turns
// the target into a root revision.
const Base = ""

var (
	// The human-readable parent reference in the script docstring.
	revisesPattern = regexp.MustCompile(`(?m)^(Revises:).*$`)

	// The down_revision assignment, with or without the type
	// annotation newer alembic templates emit.
	downRevisionPattern = regexp.MustCompile(`(?m)^(down_revision(?:\s*:\s*[^=\n]+)?\s*=\s*).*$`)
)

// Patch is one pattern-based replacement within the script text.
type Patch struct {
	Pattern     *regexp.Regexp
	Replacement string // expansion template for Pattern
}

// Plan is the full set of patches that re-parent one revision.
type Plan struct {
	Target    string
	NewParent string // Base for "no parent"
	Patches   []Patch
}

// NewPlan computes the patches that point target's parent at newParent.
// With newParent == Base both locations are rewritten to their explicit
// no-parent forms instead of referencing an identifier.
func NewPlan(target, newParent string) *Plan {
	plan := &Plan{Target: target, NewParent: newParent}

	if newParent == Base {
		plan.Patches = []Patch{
			{Pattern: revisesPattern, Replacement: "${1}"},
			{Pattern: downRevisionPattern, Replacement: "${1}None"},
		}
	} else {
		plan.Patches = []Patch{
			{Pattern: revisesPattern, Replacement: "${1} " + newParent},
			{Pattern: downRevisionPattern, Replacement: "${1}'" + newParent + "'"},
		}
	}
	return plan
}

// Apply runs the plan's patches over the script text and returns the
// replacement text. Each patch must match at least once; a script where
// a location is missing was not generated from an alembic template and
// is refused rather than half-rewritten.
func (p *Plan) Apply(src string) (string, error) {
	out := src
	for _, patch := range p.Patches {
		if !patch.Pattern.MatchString(out) {
			return "", fmt.Errorf("revision %s: script has no %s location", p.Target, describePattern(patch.Pattern))
		}
		out = patch.Pattern.ReplaceAllString(out, patch.Replacement)
	}
	return out, nil
}

func describePattern(re *regexp.Regexp) string {
	switch re {
	case revisesPattern:
		return "Revises:"
	default:
		return "down_revision"
	}
}
