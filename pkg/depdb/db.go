package depdb

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/nimbuild/nimbuild/pkg/diag"
	"github.com/pmezard/go-difflib/difflib"
)

const formatTag = "nimbuild-depdb-1"

// Record is one target's sidecar dependency database (§4.9 step 8): the
// rule that last wrote it (a random id, so a changed or newly restarted
// rule run never mistakes another run's file for its own), the
// compiler's fingerprint, and the recorded header/input list.
type Record struct {
	RuleID   string
	Checksum string
	Headers  []string
}

// NewRuleID mints a fresh rule-identifier, to stamp a Record that this
// extraction pass is about to (re)write. Using a process-random uuid
// rather than the rule's name lets two concurrent restarts of the same
// rule (on two different targets racing through the scheduler) tell
// their own depdb writes apart from a stale one left by an older build.
func NewRuleID() string { return uuid.NewString() }

// Write serializes rec to path, one field per line.
func Write(path string, rec Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, formatTag)
	fmt.Fprintln(w, rec.RuleID)
	fmt.Fprintln(w, rec.Checksum)
	for _, h := range rec.Headers {
		fmt.Fprintln(w, h)
	}
	return w.Flush()
}

// Read parses a depdb file written by Write. A missing file or bad
// header is reported as an error so callers treat it as "no trusted
// record" rather than panicking on garbage.
func Read(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		return Record{}, diag.New(diag.DepdbReadError, "%s: empty file", path)
	}
	if sc.Text() != formatTag {
		return Record{}, diag.New(diag.DepdbReadError, "%s: unrecognized format %q", path, sc.Text())
	}
	if !sc.Scan() {
		return Record{}, diag.New(diag.DepdbReadError, "%s: missing rule id", path)
	}
	ruleID := sc.Text()
	if !sc.Scan() {
		return Record{}, diag.New(diag.DepdbReadError, "%s: missing checksum", path)
	}
	checksum := sc.Text()

	var headers []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		headers = append(headers, line)
	}
	if err := sc.Err(); err != nil {
		return Record{}, err
	}
	return Record{RuleID: ruleID, Checksum: checksum, Headers: headers}, nil
}

// Stale reports whether current's header/checksum no longer matches the
// on-disk record, per §4.9 step 8's apply-time check: a rule-id or
// checksum mismatch always forces re-extraction; otherwise the caller is
// expected to also compare prerequisite mtimes against the target.
func (r Record) Stale(current Record) bool {
	return r.RuleID != current.RuleID || r.Checksum != current.Checksum
}

// Diff renders a unified diff between the previous and current header
// lists, explaining why a depdb mismatch forced re-extraction. Nothing
// in this module calls it, so no verbosity level prints this diff.
func Diff(old, new []string) string {
	d := difflib.UnifiedDiff{
		A:        old,
		B:        new,
		FromFile: "depdb (previous)",
		ToFile:   "depdb (current)",
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return strings.Join(new, "\n")
	}
	return text
}
