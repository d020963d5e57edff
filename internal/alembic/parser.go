package alembic

import (
	"bufio"
	"regexp"
	"strings"
)

// Keyword prefixes of `alembic history --verbose` output. Everything
// outside these is either a message line or logger noise.
const (
	kwRev        = "Rev:"
	kwParent     = "Parent:"
	kwPath       = "Path:"
	kwMerges     = "Merges:"
	kwRevisionID = "Revision ID:"
	kwRevises    = "Revises:"
	kwCreateDate = "Create Date:"

	// baseMarker is what alembic prints for a revision with no parent.
	baseMarker = "<base>"
)

// noisePattern matches lines emitted by alembic's own logger, e.g.
// "INFO  [alembic.runtime.migration] Context impl PostgresqlImpl."
var noisePattern = regexp.MustCompile(`^(?:DEBUG|INFO|WARNING|ERROR|CRITICAL)\s+\[`)

// parenPattern captures parenthesized token groups on a Rev: header line,
// e.g. "(head)" or "(branchpoint, mybranch)".
var parenPattern = regexp.MustCompile(`\(([^)]*)\)`)

// ParseHistory scans the verbose history blob and returns the revision
// records in the order encountered, which is newest-first because that is
// how alembic lists history. Callers building a graph reverse the slice.
//
// The scanner is deliberately lenient: a header line without a valid
// revision id starts no record, unknown lines become message text, and a
// missing Parent: line leaves the record a root. No input ever produces
// an error.
func ParseHistory(blob string) []*RevisionRecord {
	p := &historyParser{}

	scanner := bufio.NewScanner(strings.NewReader(blob))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.feed(strings.TrimSpace(scanner.Text()))
	}
	p.flush()

	return p.records
}

// historyParser is the line state machine. cur is the record being
// accumulated, nil while skipping (before the first header, or after a
// malformed one). msg collects pending message lines until the record
// is finalized.
type historyParser struct {
	records []*RevisionRecord
	cur     *RevisionRecord
	msg     []string
}

func (p *historyParser) feed(line string) {
	switch {
	case strings.HasPrefix(line, kwRev):
		p.flush()
		p.startRecord(line)

	case strings.HasPrefix(line, kwParent):
		p.setParent(line)

	case strings.HasPrefix(line, kwPath):
		// File path metadata, never part of the message.

	case strings.Contains(line, kwMerges):
		if p.cur != nil {
			p.cur.IsMerge = true
		}

	case strings.HasPrefix(line, kwRevisionID), strings.HasPrefix(line, kwRevises):
		// Metadata echoes of the header and parent lines.

	case strings.HasPrefix(line, kwCreateDate):
		if p.cur != nil {
			p.cur.Date = strings.TrimSpace(strings.TrimPrefix(line, kwCreateDate))
		}

	case line == "":
		// A blank line is a paragraph boundary, not message content.

	case noisePattern.MatchString(line):
		// Logger output interleaved with content; never part of a message.

	default:
		if p.cur != nil {
			p.msg = append(p.msg, line)
		}
	}
}

// startRecord parses a "Rev: <id> (tokens...)" header. A header whose id
// does not look like a revision id starts nothing; subsequent lines are
// ignored until the next valid header.
func (p *historyParser) startRecord(line string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, kwRev))

	fields := strings.Fields(rest)
	if len(fields) == 0 || !IsRevisionID(fields[0]) {
		p.cur = nil
		return
	}

	rec := &RevisionRecord{ID: fields[0]}
	for _, group := range parenPattern.FindAllStringSubmatch(rest, -1) {
		for _, tok := range strings.Split(group[1], ",") {
			switch tok = strings.TrimSpace(tok); tok {
			case "":
			case "current":
				rec.HintCurrent = true
			case "head":
				rec.HintHead = true
			default:
				rec.BranchLabels = append(rec.BranchLabels, tok)
			}
		}
	}
	p.cur = rec
}

func (p *historyParser) setParent(line string) {
	if p.cur == nil {
		return
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, kwParent))
	fields := strings.Fields(rest)
	if len(fields) == 0 || fields[0] == baseMarker {
		p.cur.DownRevision = ""
		return
	}
	if IsRevisionID(fields[0]) {
		p.cur.DownRevision = fields[0]
	}
}

// flush finalizes the record under accumulation, attaching the pending
// message lines, and resets the accumulator. Safe to call when nothing
// is accumulating.
func (p *historyParser) flush() {
	if p.cur != nil {
		p.cur.Message = strings.TrimSpace(strings.Join(p.msg, "\n"))
		p.records = append(p.records, p.cur)
	}
	p.cur = nil
	p.msg = nil
}
