package cc

import (
	"fmt"
	"os"
	"time"
)

type missingSourceError struct {
	target string
}

func (e *missingSourceError) Error() string {
	return fmt.Sprintf("cc: %s: no resolved source prerequisite", e.target)
}

func errSourceMissing(target string) error {
	return &missingSourceError{target: target}
}

// mtimeOf stats path, treating a missing file as "no mtime" rather than
// an error: a not-yet-built generated header should force a rebuild, not
// fail the stat.
func mtimeOf(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
