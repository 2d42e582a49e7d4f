package cc

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/nimbuild/nimbuild/pkg/action"
	"github.com/nimbuild/nimbuild/pkg/depdb"
	"github.com/nimbuild/nimbuild/pkg/driver"
	"github.com/nimbuild/nimbuild/pkg/target"
	"github.com/nimbuild/nimbuild/pkg/ttype"
)

// CompileRule binds the illustrative C/C++ "compile" rule (obj from a
// single source file) to a target type, implementing the §4.9 restart
// loop for dynamically discovered header prerequisites.
type CompileRule struct {
	Driver     *driver.Driver
	Set        *target.Set
	Toolchain  Toolchain
	SourceType *ttype.Type
	HeaderType *ttype.Type // default type for a header with no extension-map entry
	ExtMap     map[string]*ttype.Type
	PrefixMap  *depdb.PrefixMap
	Action     action.Action // perform(update) for obj, bound at registration
}

// Apply implements rule.ApplyFunc: binds the compile recipe, which owns
// source-file matching and dependency extraction.
func (c *CompileRule) Apply(a action.Action, t *target.Target, result any) (target.Recipe, error) {
	return c.recipe, nil
}

func (c *CompileRule) sourceOf(t *target.Target) *target.Target {
	for _, p := range t.Prerequisites() {
		if p.Type == c.SourceType {
			if rt, ok := p.Resolved(); ok {
				return rt
			}
		}
	}
	return nil
}

func (c *CompileRule) recipe(a action.Action, t *target.Target) (target.ExecResult, error) {
	ctx := context.Background()

	src := c.sourceOf(t)
	if src == nil {
		return target.ResultFailed, errSourceMissing(t.Name)
	}
	srcPath, _ := src.Path()
	objPath, _ := t.Path()
	depPath := objPath + ".d"

	checksum, err := c.Toolchain.Checksum(ctx)
	if err != nil {
		return target.ResultFailed, err
	}

	prevRec, prevErr := depdb.Read(depPath)
	trustPrevious := prevErr == nil && !prevRec.Stale(depdb.Record{RuleID: prevRec.RuleID, Checksum: checksum}) &&
		!anyNewerThan(prevRec.Headers, objPath)

	var headerTargets []*target.Target
	var headerPaths []string

	if trustPrevious {
		headerPaths = prevRec.Headers
	} else {
		headerTargets, headerPaths, err = c.extract(ctx, t, srcPath)
		if err != nil {
			return target.ResultFailed, err
		}
	}

	changed, err := c.compileIfStale(ctx, t, src, srcPath, objPath, headerPaths)
	if err != nil {
		return target.ResultFailed, err
	}

	rec := depdb.Record{RuleID: depdb.NewRuleID(), Checksum: checksum, Headers: headerPaths}
	if err := depdb.Write(depPath, rec); err != nil {
		return target.ResultFailed, err
	}

	for _, ht := range headerTargets {
		_ = ht // header targets already executed inline during extraction
	}

	if changed {
		return target.ResultChanged, nil
	}
	return target.ResultUnchanged, nil
}

// extract runs the §4.9 restart loop: emit a make-rule, resolve any new
// headers (absolute ones directly, relative ones via the prefix map),
// intern and execute_direct each one, and restart if any changed,
// skipping the prefix already seen.
func (c *CompileRule) extract(ctx context.Context, t *target.Target, srcPath string) ([]*target.Target, []string, error) {
	var all []string
	var targets []*target.Target
	skip := 0

	for {
		line, err := c.Toolchain.EmitMakeRule(ctx, srcPath)
		if err != nil {
			return nil, nil, err
		}
		parsed := depdb.ParseMakeRule(line, "*", srcPath)

		changed := false
		for i := skip; i < len(parsed); i++ {
			h := parsed[i]
			var headerPath string
			if filepath.IsAbs(h) {
				headerPath = h
			} else {
				headerPath, err = c.PrefixMap.Resolve(h)
				if err != nil {
					return nil, nil, err
				}
			}

			typ := c.ExtMap[strings.TrimPrefix(filepath.Ext(headerPath), ".")]
			if typ == nil {
				typ = c.HeaderType
			}

			ht := c.Set.Intern(target.Key{
				Type:   typ,
				OutDir: filepath.Dir(headerPath),
				Name:   strings.TrimSuffix(filepath.Base(headerPath), filepath.Ext(headerPath)),
				Ext:    strings.TrimPrefix(filepath.Ext(headerPath), "."),
			}, t.Scope)
			ht.SetPath(headerPath)

			if err := c.Driver.Match(action.New(c.Action.Meta, nil, action.OpUpdate), ht); err != nil {
				return nil, nil, err
			}
			res, err := c.Driver.ExecuteDirect(action.New(c.Action.Meta, nil, action.OpUpdate), ht)
			if err != nil {
				return nil, nil, err
			}
			if res == target.ResultChanged {
				changed = true
			}

			all = append(all, headerPath)
			targets = append(targets, ht)
		}
		skip = len(parsed)
		if !changed {
			break
		}
	}
	return targets, all, nil
}

func (c *CompileRule) compileIfStale(ctx context.Context, t *target.Target, src *target.Target, srcPath, objPath string, headers []string) (bool, error) {
	objMtime, hasObj := t.Mtime()
	if !hasObj {
		objMtime = time.Time{}
	}
	srcMtime, _ := src.Mtime()

	stale := !hasObj || srcMtime.After(objMtime) || anyNewerThan(headers, objPath)
	if !stale {
		return false, nil
	}
	if err := c.Toolchain.Compile(ctx, srcPath, objPath, nil); err != nil {
		return false, err
	}
	t.SetMtime(time.Now())
	return true, nil
}

func anyNewerThan(paths []string, objPath string) bool {
	objMtime, ok := mtimeOf(objPath)
	if !ok {
		return true
	}
	for _, p := range paths {
		if mt, ok := mtimeOf(p); !ok || mt.After(objMtime) {
			return true
		}
	}
	return false
}
