// Package app wires together every nimbuild package (config, logging,
// messages, scope tree, rule registry, scheduler and driver) into one
// running build context and drives a single top-level operation across
// a set of requested targets.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nimbuild/nimbuild/pkg/action"
	"github.com/nimbuild/nimbuild/pkg/config"
	"github.com/nimbuild/nimbuild/pkg/diag"
	"github.com/nimbuild/nimbuild/pkg/driver"
	"github.com/nimbuild/nimbuild/pkg/i18n"
	"github.com/nimbuild/nimbuild/pkg/log"
	"github.com/nimbuild/nimbuild/pkg/phase"
	"github.com/nimbuild/nimbuild/pkg/rule"
	"github.com/nimbuild/nimbuild/pkg/scope"
	"github.com/nimbuild/nimbuild/pkg/target"
	"github.com/nimbuild/nimbuild/pkg/ttype"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FileType is the generic plain-file target type used for targets
// interned directly from a path (rather than discovered by a language
// module's buildfile rules, which are this core's external collaborator
// per the matcher/prerequisite model). A file target's fallback update
// rule treats it as up to date whenever it exists on disk.
var FileType = &ttype.Type{Name: "file"}

// App bundles the whole running build: configuration, diagnostics, and
// the scope/rule/scheduler/driver stack a single invocation of nimbuild
// drives targets through.
type App struct {
	closers []io.Closer

	Config *config.AppConfig
	Log    *logrus.Entry
	Tr     *i18n.MessageSet

	Tree      *scope.Tree
	Targets   *target.Set
	Actions   *action.Registry
	Rules     *rule.Registry
	Scheduler *phase.Scheduler
	Driver    *driver.Driver

	ErrorChan chan error
}

// NewApp bootstraps a new application: loads config, sets up logging and
// the message catalog, and constructs an empty scope/rule/scheduler/
// driver stack ready to have rules registered and targets interned.
func NewApp(cfg *config.AppConfig, maxActive, maxThreads int) (*App, error) {
	app := &App{
		closers:   []io.Closer{},
		Config:    cfg,
		ErrorChan: make(chan error),
	}

	app.Log = log.NewLogger(cfg, "")
	app.Tr = i18n.NewMessageSet(app.Log, "en")

	app.Tree = scope.NewTree()
	app.Targets = target.NewSet()
	app.Actions = action.NewRegistry()
	app.Rules = rule.NewRegistry()

	if maxActive <= 0 {
		maxActive = 1
	}
	if maxThreads <= 0 {
		maxThreads = maxActive * 4
	}
	app.Scheduler = phase.NewScheduler(maxActive, maxThreads)
	app.Driver = driver.New(app.Rules, app.Scheduler)
	app.Driver.KeepGoing = cfg.UserConfig.KeepGoing

	app.Tree.Global().RegisterTargetType(FileType)

	app.registerWellKnownOps()
	app.registerFileFallbackRule()

	return app, nil
}

// InternFile interns path as a "file"-type target rooted at the global
// scope, the minimal target-graph entry point this binary offers in
// place of a buildfile loader. The type is resolved by name through the
// scope tree's own target-type table (rather than referencing FileType
// directly) so a lookup miss surfaces the same diag.ComplexError a
// buildfile-driven derive_target_type reference would.
func (app *App) InternFile(path string) *target.Target {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	dir := filepath.Dir(abs)
	name := filepath.Base(abs)
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext != "" {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	tt, err := app.Tree.Global().ResolveTargetType("file")
	if err != nil {
		app.Log.WithError(err).Warn("falling back to the built-in file type")
		tt = FileType
	}

	t := app.Targets.Intern(target.Key{Type: tt, OutDir: dir, SrcDir: dir, Name: name, Ext: ext}, app.Tree.Global())
	t.SetPath(abs)
	return t
}

// registerFileFallbackRule installs the update/clean rules FileType
// targets get when no language module claims them: update reports
// ResultUnchanged if the file exists (failing otherwise), clean removes
// it.
func (app *App) registerFileFallbackRule() {
	app.Rules.Register(app.Tree.Global(), action.MetaPerform.ID, action.OpUpdate.ID, FileType, "", &rule.Rule{
		Name:  "file.update",
		Match: func(a action.Action, t *target.Target, hint string) (any, bool) { return nil, true },
		Apply: func(a action.Action, t *target.Target, result any) (target.Recipe, error) {
			return func(a action.Action, t *target.Target) (target.ExecResult, error) {
				path, _ := t.Path()
				if _, err := os.Stat(path); err != nil {
					return target.ResultFailed, fmt.Errorf("file target %q: %w", path, err)
				}
				return target.ResultUnchanged, nil
			}, nil
		},
	})

	app.Rules.Register(app.Tree.Global(), action.MetaPerform.ID, action.OpClean.ID, FileType, "", &rule.Rule{
		Name:  "file.clean",
		Match: func(a action.Action, t *target.Target, hint string) (any, bool) { return nil, true },
		Apply: func(a action.Action, t *target.Target, result any) (target.Recipe, error) {
			return func(a action.Action, t *target.Target) (target.ExecResult, error) {
				path, _ := t.Path()
				if err := os.Remove(path); err != nil {
					if os.IsNotExist(err) {
						return target.ResultUnchanged, nil
					}
					return target.ResultFailed, err
				}
				return target.ResultChanged, nil
			}, nil
		},
	})
}

func (app *App) registerWellKnownOps() {
	app.Actions.RegisterMetaOp(action.MetaPerform)
	app.Actions.RegisterMetaOp(action.MetaConfigure)
	app.Actions.RegisterMetaOp(action.MetaDist)
	app.Actions.RegisterOp(action.OpUpdate)
	app.Actions.RegisterOp(action.OpClean)
	app.Actions.RegisterOp(action.OpInstall)
	app.Actions.RegisterOp(action.OpDist)
}

// Run drives act across targets, one goroutine per top-level target,
// each registering itself with the scheduler's bounded active pool for
// the duration of its own Match/Execute pair. golang.org/x/sync/errgroup
// collects the first failure and cancels the group's context when
// KeepGoing is false, so targets not yet started are skipped; under
// KeepGoing every target still runs and every failure is reported. A
// deadlock monitor runs for the duration of the call and cancels it
// early if the scheduler makes no progress for one sampling interval.
func (app *App) Run(act action.Action, targets []*target.Target) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interval := app.deadlockInterval()
	var deadlockErr error
	monitor := phase.NewMonitor(app.Scheduler, interval, func(de *phase.DeadlockError) {
		deadlockErr = de
		cancel()
	})
	go monitor.Run(ctx)

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var errs []error
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, t := range targets {
		t := t
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			app.Scheduler.Begin()
			defer app.Scheduler.End()

			if err := app.Driver.Match(act, t); err != nil {
				app.logFailure(act, t, err)
				record(err)
				if !app.Driver.KeepGoing {
					return err
				}
				return nil
			}
			if _, err := app.Driver.Execute(act, t); err != nil {
				app.logFailure(act, t, err)
				record(err)
				if !app.Driver.KeepGoing {
					return err
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if deadlockErr != nil {
		errs = append(errs, deadlockErr)
	}

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return fmt.Errorf("%d targets failed: %s", len(errs), strings.Join(msgs, "; "))
	}
}

func (app *App) deadlockInterval() time.Duration {
	raw := app.Config.UserConfig.Scheduler.DeadlockInterval
	if raw == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		app.Log.Warnf("invalid scheduler.deadlockInterval %q, using 5s: %v", raw, err)
		return 5 * time.Second
	}
	return d
}

func (app *App) logFailure(act action.Action, t *target.Target, err error) {
	log.ForAction(app.Log, act, t).Error(err)
}

// Close releases any resources the app opened.
func (app *App) Close() error {
	for _, closer := range app.closers {
		if err := closer.Close(); err != nil {
			return err
		}
	}
	return nil
}

type errorMapping struct {
	match   func(err error) bool
	message func(tr *i18n.MessageSet) string
}

// KnownError takes an error and tells us whether it's an error that we
// know about where we can print a nicely formatted, localized message
// instead of the raw Go error.
func (app *App) KnownError(err error) (string, bool) {
	mappings := []errorMapping{
		{
			match:   func(err error) bool { _, ok := err.(*driver.CycleError); return ok },
			message: func(tr *i18n.MessageSet) string { return tr.DependencyCycle },
		},
		{
			match:   func(err error) bool { _, ok := err.(*rule.AmbiguousError); return ok },
			message: func(tr *i18n.MessageSet) string { return tr.AmbiguousMatch },
		},
		{
			match:   func(err error) bool { _, ok := err.(*rule.NotFoundError); return ok },
			message: func(tr *i18n.MessageSet) string { return tr.RuleNotFound },
		},
		{
			match:   func(err error) bool { _, ok := err.(*phase.DeadlockError); return ok },
			message: func(tr *i18n.MessageSet) string { return tr.DeadlockDetected },
		},
		{
			match:   func(err error) bool { return diag.HasCode(err, diag.DepdbReadError) },
			message: func(tr *i18n.MessageSet) string { return tr.DepdbReadError },
		},
		{
			match:   func(err error) bool { return diag.HasCode(err, diag.InstallPathUnresolved) },
			message: func(tr *i18n.MessageSet) string { return tr.InstallPathUnresolved },
		},
		{
			match:   func(err error) bool { return diag.HasCode(err, diag.UnknownTargetType) },
			message: func(tr *i18n.MessageSet) string { return tr.UnknownTargetType },
		},
	}

	for _, mapping := range mappings {
		if mapping.match(err) {
			return fmt.Sprintf("%s: %s", mapping.message(app.Tr), err.Error()), true
		}
	}

	return "", false
}
