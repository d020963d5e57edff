package alembic

import (
	"bufio"
	"regexp"
	"strings"
)

// revTokenPattern matches a revision identifier appearing anywhere on a
// line of `alembic current` or `alembic heads` output.
var revTokenPattern = regexp.MustCompile(`\b[0-9a-f]{8,40}\b`)

// ParseRevisionSet extracts every revision-looking token from the blob
// into a membership set. The listing commands print one revision per
// line with optional decorations ("abc123def456 (head)"), but no
// structure beyond the hex token itself is relied upon.
func ParseRevisionSet(blob string) map[string]bool {
	set := make(map[string]bool)

	scanner := bufio.NewScanner(strings.NewReader(blob))
	for scanner.Scan() {
		for _, tok := range revTokenPattern.FindAllString(scanner.Text(), -1) {
			set[tok] = true
		}
	}
	return set
}
