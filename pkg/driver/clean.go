package driver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nimbuild/nimbuild/pkg/action"
	"github.com/nimbuild/nimbuild/pkg/target"
)

// PerformClean implements the shared clean recipe (§4.8): remove the
// target's own file, every ad hoc group member's file, and a
// caller-supplied set of extra-path directives, then recurse into
// prerequisites in reverse order.
func (d *Driver) PerformClean(a action.Action, t *target.Target, extras []string) (target.ExecResult, error) {
	changed := false

	if p, ok := t.Path(); ok {
		if rm, err := removeOne(p); err != nil {
			return target.ResultFailed, err
		} else if rm {
			changed = true
		}
	}
	for _, m := range t.Members {
		if p, ok := m.Path(); ok {
			if rm, _ := removeOne(p); rm {
				changed = true
			}
		}
	}

	base, _ := t.Path()
	for _, spec := range extras {
		paths, err := resolveExtraSpec(base, spec)
		if err != nil {
			return target.ResultFailed, err
		}
		for _, p := range paths {
			if rm, err := removeOne(p); err != nil {
				return target.ResultFailed, err
			} else if rm {
				changed = true
			}
		}
	}

	if err := d.ExecutePrerequisites(a, t, true); err != nil {
		return target.ResultFailed, err
	}

	if changed {
		return target.ResultChanged, nil
	}
	return target.ResultUnchanged, nil
}

func removeOne(p string) (removed bool, err error) {
	if p == "" {
		return false, nil
	}
	err = os.Remove(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// resolveExtraSpec turns one extra-path directive into the concrete
// paths it names, relative to a target's own path:
//   - an absolute path names itself.
//   - a suffix ending in "/" names a directory to remove (non-recursive
//     unless it ends in the "***" leaf form instead).
//   - a suffix ending in "***" removes that directory recursively.
//   - a suffix with leading "-" characters strips that many extensions
//     from the base path before appending the remaining suffix (e.g.
//     "--.d" strips two extensions and appends ".d").
func resolveExtraSpec(basePath, spec string) ([]string, error) {
	if filepath.IsAbs(spec) {
		return []string{spec}, nil
	}

	recursive := strings.HasSuffix(spec, "***")
	if recursive {
		spec = strings.TrimSuffix(spec, "***")
	}

	strips := 0
	for strips < len(spec) && spec[strips] == '-' {
		strips++
	}
	suffix := spec[strips:]

	stem := basePath
	for i := 0; i < strips; i++ {
		ext := filepath.Ext(stem)
		if ext == "" {
			break
		}
		stem = strings.TrimSuffix(stem, ext)
	}

	target := stem + suffix
	if recursive {
		return expandRecursive(target)
	}
	return []string{target}, nil
}

func expandRecursive(dir string) ([]string, error) {
	var paths []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if !info.IsDir() {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	paths = append(paths, dir)
	return paths, nil
}
