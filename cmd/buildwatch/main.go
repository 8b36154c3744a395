package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"buildwatch/internal"
	"buildwatch/internal/jenkins"
	"buildwatch/internal/service"
	"buildwatch/internal/settings"
	"buildwatch/internal/store"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	_ "modernc.org/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app := newApp()
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "trigger":
		err = app.runTrigger(ctx, args)
	case "watch":
		err = app.runWatch(ctx)
	case "history":
		err = app.runHistory(ctx, args)
	case "analytics":
		err = app.runAnalytics(ctx, args)
	case "logs":
		err = app.runLogs(ctx, args)
	case "export":
		err = app.runExport(ctx, args)
	case "settings":
		err = app.runSettings(ctx, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: buildwatch <command> [flags]

commands:
  trigger    trigger a build and follow it to completion
  watch      resume polling for all unfinished builds
  history    list tracked builds
  analytics  build statistics, trend and hourly histogram
  logs       fetch console logs for a build
  export     export the build history as CSV
  settings   show or change persisted settings`)
}

type app struct {
	rdb, rwdb *sql.DB
	scheduler gocron.Scheduler
	clock     clockwork.Clock

	kvs        *store.KeyValueStore
	history    store.HistoryStore
	user       settings.UserSettings
	api        *jenkins.Client
	reconciler *service.Reconciler
	builds     *service.BuildService
	logs       *service.LogService
}

func newApp() *app {
	settings.ReadDotenv(internal.DotEnvPath)
	settings.Settings = settings.NewSettings()

	rdb := store.InitDatabase(true)
	rwdb := store.InitDatabase(false)
	store.RunMigrations(rwdb, internal.MigrationsDir)

	kvs := store.NewKeyValueStore(rdb, rwdb)
	user := loadUserSettings(kvs)

	history := store.NewHistorySQLiteStore(rdb, rwdb)
	api := jenkins.NewClient(user.APIURL)
	clock := clockwork.NewRealClock()

	scheduler := service.NewScheduler()
	reconciler := service.NewReconciler(api, history, scheduler, clock, user.Interval())
	scheduler.Start()

	return &app{
		rdb:        rdb,
		rwdb:       rwdb,
		scheduler:  scheduler,
		clock:      clock,
		kvs:        kvs,
		history:    history,
		user:       user,
		api:        api,
		reconciler: reconciler,
		builds:     service.NewBuildService(api, history, reconciler, clock),
		logs:       service.NewLogService(api),
	}
}

// loadUserSettings returns the persisted user settings, seeding them from
// the optional YAML config file on first run.
func loadUserSettings(kvs *store.KeyValueStore) settings.UserSettings {
	ctx := context.Background()
	if _, err := kvs.Get(ctx, store.KeyUserSettings); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Fatal("err reading settings:", err)
		}
		us, err := settings.ReadConfigFile(settings.Settings.ConfigPath)
		if err != nil {
			log.Fatal("err reading config file:", err)
		}
		if err := kvs.WriteUserSettings(ctx, us); err != nil {
			log.Fatal("err storing settings:", err)
		}
		return us
	}

	us, err := kvs.ReadUserSettings(ctx)
	if err != nil {
		log.Fatal("err reading settings:", err)
	}
	return us
}

func (a *app) Close() {
	if err := a.scheduler.Shutdown(); err != nil {
		log.Println("err shutting down scheduler:", err)
	}
	_ = a.rdb.Close()
	_ = a.rwdb.Close()
}

func (a *app) runTrigger(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trigger", flag.ExitOnError)
	repoURL := fs.String("repo", "", "repository URL to build")
	branch := fs.String("branch", "main", "branch to build")
	detach := fs.Bool("detach", false, "exit after triggering instead of following the build")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := a.builds.TriggerBuild(ctx, *repoURL, *branch)
	if err != nil {
		return err
	}
	fmt.Printf("triggered job %s for %s (%s)\n", r.JobName, r.RepoURL, r.Branch)
	if *detach {
		return nil
	}
	return a.follow(ctx, r.BuildID)
}

// follow prints status changes for a build until it reaches a terminal
// status or the user interrupts, in which case its poller is stopped.
func (a *app) follow(ctx context.Context, buildID string) error {
	last := store.BuildStatus("")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.reconciler.StopPolling(buildID)
			return nil
		case <-ticker.C:
		}

		r, err := a.history.ReadBuildByID(context.Background(), buildID)
		if err != nil {
			return err
		}
		if r.Status != last {
			last = r.Status
			fmt.Printf("%s  progress %d%%\n", r.Status, a.reconciler.Progress(buildID))
		}
		if r.Status.Terminal() {
			fmt.Printf("finished in %ds\n", r.Duration/1000)
			return nil
		}
	}
}

func (a *app) runWatch(ctx context.Context) error {
	if err := a.reconciler.ResumeActive(ctx); err != nil {
		return err
	}
	fmt.Printf("polling %d unfinished build(s) every %s, ctrl-c to stop\n",
		a.reconciler.ActivePolls(), a.user.Interval())
	<-ctx.Done()
	return nil
}

func (a *app) runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	query := fs.String("query", "", "filter by repository substring")
	status := fs.String("status", service.StatusFilterAll, "filter by status (ALL, SUCCESS, FAILED, RUNNING, ...)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := a.builds.ListBuilds(ctx)
	if err != nil {
		return err
	}
	records = service.FilterBuilds(records, *query, *status)

	for _, r := range records {
		number := "-"
		if r.BuildNumber != nil {
			number = fmt.Sprintf("#%d", *r.BuildNumber)
		}
		tags := ""
		if len(r.Tags) > 0 {
			tags = "  [" + strings.Join(r.Tags, ", ") + "]"
		}
		fmt.Printf("%-8s %-8s %4ds  %s (%s)%s\n",
			number, r.Status, r.Duration/1000, r.RepoURL, r.Branch, tags)
	}
	return nil
}

func (a *app) runAnalytics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analytics", flag.ExitOnError)
	job := fs.String("job", a.user.DefaultJob, "job to fall back to when no local history exists")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := a.builds.ListBuilds(ctx)
	if err != nil {
		return err
	}

	var summaries []service.BuildSummary
	if len(records) > 0 {
		summaries = service.SummarizeRecords(records)
	} else {
		// no local history yet: fall back to the raw builds list
		builds, err := a.api.ListBuilds(ctx, *job)
		if err != nil {
			return err
		}
		summaries = service.SummarizeJenkinsBuilds(builds)
	}

	stats := service.CalculateStats(summaries)
	fmt.Printf("total %d  success %d  failed %d  running %d\n",
		stats.Total, stats.Success, stats.Failed, stats.Running)
	fmt.Printf("success rate %d%%  avg duration %ds\n", stats.SuccessRate, stats.AvgDuration)

	fmt.Println("\nduration trend:")
	for _, p := range service.TrendSeries(summaries, service.DefaultTrendSize) {
		marker := "x"
		if p.Success == 1 {
			marker = "ok"
		}
		fmt.Printf("  %-10s %4ds  %s\n", p.Label, p.DurationSeconds, marker)
	}

	fmt.Println("\nbuilds by hour:")
	for _, h := range service.HourlyHistogram(summaries) {
		fmt.Printf("  %-6s %d\n", h.Label, h.Count)
	}
	return nil
}

func (a *app) runLogs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	job := fs.String("job", a.user.DefaultJob, "job name")
	build := fs.Int64("build", 0, "build number")
	save := fs.Bool("save", false, "save the logs to a file instead of printing")
	dir := fs.String("dir", ".", "directory to save the log file in")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *save {
		path, err := a.logs.SaveLogs(ctx, *job, *build, *dir)
		if err != nil {
			return err
		}
		fmt.Println("saved", path)
		return nil
	}

	for _, line := range strings.Split(a.logs.FetchLogs(ctx, *job, *build), "\n") {
		fmt.Printf("%-8s %s\n", service.ClassifyLine(line), line)
	}
	return nil
}

func (a *app) runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("o", "", "output file, - for stdout (default: timestamped name)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := a.builds.ListBuilds(ctx)
	if err != nil {
		return err
	}

	if *out == "-" {
		return service.WriteHistoryCSV(os.Stdout, records)
	}

	path := *out
	if path == "" {
		path = service.ExportFilename(a.clock.Now())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := service.WriteHistoryCSV(f, records); err != nil {
		return err
	}
	fmt.Println("exported", path)
	return nil
}

func (a *app) runSettings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	jenkinsURL := fs.String("jenkins-url", a.user.JenkinsURL, "Jenkins base URL")
	apiURL := fs.String("api-url", a.user.APIURL, "build-manager API base URL")
	interval := fs.Int64("interval", a.user.PollingInterval, "polling interval in milliseconds")
	defaultJob := fs.String("default-job", a.user.DefaultJob, "job used when none is given")
	darkMode := fs.String("dark-mode", "", "set the dark-mode flag (true/false)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *darkMode != "" {
		enabled := *darkMode == "true"
		if err := a.kvs.WriteDarkMode(ctx, enabled); err != nil {
			return err
		}
	}

	us := settings.UserSettings{
		JenkinsURL:      *jenkinsURL,
		APIURL:          *apiURL,
		PollingInterval: *interval,
		DefaultJob:      *defaultJob,
	}
	if us != a.user {
		if err := a.kvs.WriteUserSettings(ctx, us); err != nil {
			return err
		}
		a.user = us
	}

	dark, err := a.kvs.ReadDarkMode(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("jenkins url      %s\n", us.JenkinsURL)
	fmt.Printf("api url          %s\n", us.APIURL)
	fmt.Printf("polling interval %dms\n", us.PollingInterval)
	fmt.Printf("default job      %s\n", us.DefaultJob)
	fmt.Printf("dark mode        %t\n", dark)
	return nil
}
