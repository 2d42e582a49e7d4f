package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/go-errors/errors"
	"github.com/integrii/flaggy"
	"github.com/jesseduffield/yaml"
	"github.com/nimbuild/nimbuild/pkg/app"
	"github.com/nimbuild/nimbuild/pkg/config"
	"github.com/nimbuild/nimbuild/pkg/utils"
	"github.com/samber/lo"
)

const defaultVersion = "unversioned"

var (
	commit  string
	version = defaultVersion
	date    string

	configFlag    = false
	debuggingFlag = false
	keepGoing     = false
	watch         = false
	jobs          = 0
	verbose       = 1
	operation     = "update"
	targetNames   []string
)

func main() {
	updateBuildInfo()

	info := fmt.Sprintf(
		"%s\nDate: %s\nCommit: %s\nOS: %s\nArch: %s",
		version, date, commit, runtime.GOOS, runtime.GOARCH,
	)

	flaggy.SetName("nimbuild")
	flaggy.SetDescription("A dependency-graph build engine core")
	flaggy.DefaultParser.AdditionalHelpPrepend = "https://github.com/nimbuild/nimbuild"

	flaggy.Bool(&configFlag, "c", "config", "Print the current default config")
	flaggy.Bool(&debuggingFlag, "d", "debug", "Enable debug logging to development.log")
	flaggy.Int(&jobs, "j", "jobs", "Maximum concurrently active goroutines (0 = scheduler.maxActive from config.yml)")
	flaggy.Bool(&keepGoing, "k", "keep-going", "Continue past a failed target instead of stopping")
	flaggy.Int(&verbose, "v", "verbose", "Diagnostic verbosity (0-6)")
	flaggy.Bool(&watch, "w", "watch", "Rebuild automatically when a source changes")
	flaggy.String(&operation, "o", "operation", "Operation to perform: update, clean, install, dist")
	flaggy.StringSlice(&targetNames, "t", "target", "Target to build (repeatable)")
	flaggy.SetVersion(info)

	flaggy.Parse()

	if configFlag {
		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		if err := encoder.Encode(config.GetDefaultConfig()); err != nil {
			log.Fatal(err.Error())
		}
		fmt.Printf("%v\n", buf.String())
		os.Exit(0)
	}

	projectDir, err := os.Getwd()
	if err != nil {
		log.Fatal(err.Error())
	}

	appConfig, err := config.NewAppConfig("nimbuild", version, commit, date, debuggingFlag, projectDir)
	if err != nil {
		log.Fatal(err.Error())
	}
	appConfig.UserConfig.KeepGoing = appConfig.UserConfig.KeepGoing || keepGoing
	appConfig.UserConfig.Diagnostics.Verbose = verbose
	appConfig.UserConfig.Watch = appConfig.UserConfig.Watch || watch

	if jobs == 0 {
		jobs = appConfig.UserConfig.Scheduler.MaxActive
	}
	a, err := app.NewApp(appConfig, jobs, appConfig.UserConfig.Scheduler.MaxThreads)
	if err != nil {
		log.Fatal(err.Error())
	}

	if len(targetNames) == 0 {
		fmt.Println("no targets given; nothing to do (buildfile loading is an external collaborator not wired into this binary)")
		_ = a.Close()
		os.Exit(0)
	}

	if appConfig.UserConfig.Watch {
		err = runWatch(a, operation, targetNames)
	} else {
		err = runOnce(a, operation, targetNames)
	}
	_ = a.Close()

	if err != nil {
		if errMessage, known := a.KnownError(err); known {
			log.Println(errMessage)
			os.Exit(1)
		}

		newErr := errors.Wrap(err, 0)
		stackTrace := newErr.ErrorStack()
		a.Log.Error(stackTrace)

		log.Fatalf("%s\n\n%s", a.Tr.Failed, stackTrace)
	}
}

func updateBuildInfo() {
	if version == defaultVersion {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			revision, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
				return setting.Key == "vcs.revision"
			})
			if ok {
				commit = revision.Value
				version = utils.SafeTruncate(revision.Value, 7)
			}

			vcsTime, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
				return setting.Key == "vcs.time"
			})
			if ok {
				date = vcsTime.Value
			}
		}
	}
}
