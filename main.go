package main

import (
	"fmt"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"github.com/ytget/jobmon/internal/config"
	"github.com/ytget/jobmon/internal/filejob"
	"github.com/ytget/jobmon/internal/logging"
	"github.com/ytget/jobmon/internal/monitor"
	"github.com/ytget/jobmon/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.ytget.jobmon"
	AppName = "Job Monitor"

	WindowWidth  = 720
	WindowHeight = 480

	// Partial progress lines are logged at most this often per job
	ProgressLogInterval = time.Second
)

func main() {
	logger, err := logging.New(os.Getenv(config.EnvLogLevel), os.Getenv(config.EnvLogFormat), os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info().Str("version", version).Msg("Job Monitor starting")

	myApp := app.NewWithID(AppID)
	myApp.Settings().SetTheme(ui.NewCompactTheme())

	windowTitle := fmt.Sprintf("%s v%s", AppName, version)
	myWindow := myApp.NewWindow(windowTitle)
	myWindow.Resize(fyne.NewSize(WindowWidth, WindowHeight))

	settings := config.NewSettings(myApp)

	mon, err := monitor.New(settings.MonitorConfig(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create job monitor")
	}
	defer mon.Close()

	jobs := filejob.NewService(mon, settings.GetMaxParallelJobs(), logger)

	mon.AddListener(logging.NewListener(logger, ProgressLogInterval))
	mon.AddListener(jobs.ForgetRemoved())

	root := ui.NewRootUI(myWindow, settings, mon, jobs, logger)

	myWindow.SetOnClosed(func() {
		root.Detach()
		jobs.StopAll()
	})

	myWindow.ShowAndRun()
	logger.Info().Msg("Job Monitor stopped")
}
