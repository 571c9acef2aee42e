package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"apexrun/internal/api"
	"apexrun/internal/auth"
	"apexrun/internal/config"
	"apexrun/internal/report"
	"apexrun/internal/service"
	"apexrun/internal/store"
	"apexrun/internal/strava"
)

const usage = `Usage: apexrun [-v] <command> [flags] [args]

Commands:
  import [-replace] FILE...   import TCX, GPX and FIT files
  summary                     list every session
  records                     personal records
  load                        acute/chronic training load
  zones                       average time in heart rate zone
  fitness                     fitness, fatigue and form
  predictions                 race predictions
  periods [-type weekly|monthly] [-n 12]
  stats                       history statistics
  clear                       delete the whole history
  serve                       run the HTTP API
  strava-auth                 connect a Strava account
  strava-sync                 fetch new runs from Strava
`

// app bundles what every command needs
type app struct {
	cfg     *config.Config
	history *service.History
	log     *slog.Logger
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return nil
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	repo, err := store.OpenRepository(cfg.Storage.Driver, cfg.Storage.StoragePath(dir))
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer repo.Close()

	a := &app{
		cfg:     cfg,
		history: service.NewHistory(repo, cfg.Athlete.Profile(), service.WithLogger(logger)),
		log:     logger,
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "import":
		return a.importFiles(ctx, args)
	case "summary":
		rows, err := a.history.Summary(ctx)
		return show(report.Sessions(rows), err)
	case "records":
		records, err := a.history.Records(ctx)
		return show(report.Records(records), err)
	case "load":
		status, err := a.history.LoadStatus(ctx)
		return show(report.Load(status), err)
	case "zones":
		agg, err := a.history.Zones(ctx)
		return show(report.Zones(agg), err)
	case "fitness":
		data, err := a.history.Fitness(ctx)
		if err != nil {
			return err
		}
		return show(report.Fitness(data), nil)
	case "predictions":
		data, err := a.history.Predictions(ctx)
		if errors.Is(err, service.ErrNoHistory) {
			return show("No personal records to predict from yet.", nil)
		}
		if err != nil {
			return err
		}
		return show(report.Predictions(data), nil)
	case "periods":
		return a.periods(ctx, args)
	case "stats":
		stats, err := a.history.Stats(ctx)
		if err != nil {
			return err
		}
		return show(report.Stats(stats), nil)
	case "clear":
		if err := a.history.Clear(ctx); err != nil {
			return err
		}
		return show("History cleared.", nil)
	case "serve":
		return a.serve(ctx)
	case "strava-auth":
		return a.stravaAuth(ctx)
	case "strava-sync":
		return a.stravaSync(ctx)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// loadConfig reads the config file, writing the example first if there is none
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		path, perr := config.Path()
		if perr != nil {
			return nil, perr
		}
		if err := config.CreateExample(path); err != nil {
			return nil, fmt.Errorf("creating example config: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Created a default config at %s\n", path)
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func show(out string, err error) error {
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func (a *app) importFiles(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	replace := fs.Bool("replace", false, "replace the history instead of merging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("import: no files given")
	}

	progress := make(chan service.ImportProgress, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			fmt.Fprintf(os.Stderr, "\r\033[K%s", report.Progress(p.Completed, p.Total, p.Current))
		}
		fmt.Fprintln(os.Stderr)
	}()

	result, err := a.history.ImportFiles(ctx, fs.Args(), *replace, progress)
	<-done
	if err != nil {
		return err
	}
	return show(report.Import(result), nil)
}

func (a *app) periods(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("periods", flag.ContinueOnError)
	periodType := fs.String("type", service.Weekly, "weekly or monthly")
	n := fs.Int("n", 12, "number of periods")
	if err := fs.Parse(args); err != nil {
		return err
	}

	stats, err := a.history.Periods(ctx, *periodType, *n)
	if err != nil {
		return err
	}
	comparisons, err := a.history.Comparisons(ctx, *periodType)
	if err != nil {
		return err
	}
	return show(report.Periods(stats, comparisons), nil)
}

func (a *app) serve(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.NewRouter(api.NewHandler(a.history, a.log)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Warn("http api listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (a *app) oauthConfig() *oauth2.Config {
	return auth.NewOAuthConfig(auth.Config{
		ClientID:     a.cfg.Strava.ClientID,
		ClientSecret: a.cfg.Strava.ClientSecret,
		RedirectURL:  "http://" + auth.CallbackAddr + "/callback",
	})
}

func (a *app) stravaAuth(ctx context.Context) error {
	if err := a.cfg.ValidateStrava(); err != nil {
		return err
	}

	token, err := auth.Authenticate(ctx, a.oauthConfig(), os.Stdout)
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}
	a.cfg.Strava.RefreshToken = token.RefreshToken
	if err := config.Save(a.cfg); err != nil {
		return fmt.Errorf("saving refresh token: %w", err)
	}
	return show(fmt.Sprintf("Connected to Strava as athlete %d.", auth.AthleteID(token)), nil)
}

func (a *app) stravaSync(ctx context.Context) error {
	if err := a.cfg.ValidateStrava(); err != nil {
		return err
	}
	if a.cfg.Strava.RefreshToken == "" {
		return errors.New("not connected to Strava, run strava-auth first")
	}

	tokens := auth.NewTokenSource(ctx, a.oauthConfig(), a.cfg.Strava.RefreshToken, func(refresh string) error {
		a.cfg.Strava.RefreshToken = refresh
		return config.Save(a.cfg)
	})
	svc := service.NewSyncService(strava.NewClient(ctx, tokens), a.history, a.log)

	progress := make(chan service.SyncProgress, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			label := p.Phase
			if p.CurrentActivity != "" {
				label += " " + p.CurrentActivity
			}
			fmt.Fprintf(os.Stderr, "\r\033[K%s", report.Progress(p.Completed, p.Total, label))
		}
		fmt.Fprintln(os.Stderr)
	}()

	result, err := svc.SyncAll(ctx, progress)
	<-done
	if err != nil {
		return err
	}
	return show(report.Sync(result), nil)
}
