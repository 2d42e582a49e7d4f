package rule

import (
	"fmt"
	"strings"

	"github.com/nimbuild/nimbuild/pkg/action"
)

// AmbiguousError is the diagnosable build error raised when two or more
// rules match the same (action, target) slot (§4.5 step 4, §8 scenario 4).
type AmbiguousError struct {
	Action  action.Action
	Target  string
	Names   []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s: target %s matched by ambiguous rules: %s",
		e.Action, e.Target, strings.Join(e.Names, ", "))
}

// NotFoundError is raised when no rule matches.
type NotFoundError struct {
	Action action.Action
	Target string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no rule to make target %s", e.Action, e.Target)
}
