package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hkulib-booker/config"
	"hkulib-booker/googlecalendar"
	"hkulib-booker/scheduler"
	"hkulib-booker/site"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(cfg *config.CommonConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal().Err(err).Msg("Error loading .env file")
	}

	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}

	commonCfg, err := config.LoadCommonConfig(filepath.Join(configDir, "common_config.json"))
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading common config")
	}
	setupLogger(commonCfg)

	loc, err := commonCfg.Location()
	if err != nil {
		log.Fatal().Err(err).Str("timezone", commonCfg.Timezone).Msg("Error loading timezone")
	}

	users, err := config.LoadUserConfigs(filepath.Join(configDir, "user_configs"))
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading user configs")
	}
	if len(users) == 0 {
		log.Warn().Str("dir", filepath.Join(configDir, "user_configs")).Msg("No user configs found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := site.NewStore()
	sched, err := scheduler.New(loc)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating scheduler")
	}

	for _, user := range users {
		if err := registerJobs(ctx, sched, newUserRunner(commonCfg, user, loc, store)); err != nil {
			log.Fatal().Err(err).Str("user", user.Username).Msg("Error scheduling jobs")
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	sched.Start()
	g.Go(func() error {
		<-ctx.Done()
		return sched.Stop()
	})

	if commonCfg.StatusAddr != "" {
		server := site.NewServer(commonCfg.StatusAddr, site.NewRouter(store, oauthRoutes(commonCfg)))

		g.Go(func() error {
			log.Info().Str("addr", commonCfg.StatusAddr).Msg("Starting status server")
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			log.Info().Msg("Shutting down status server")
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown error: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Daemon terminated with error")
		os.Exit(1)
	}
	log.Info().Msg("Daemon stopped")
}

// registerJobs schedules the user's booking jobs and, if configured, the
// record sync. A sync also runs once at startup.
func registerJobs(ctx context.Context, sched *scheduler.Service, u *userRunner) error {
	for _, job := range u.user.Bookings {
		name := job.JobName(u.user.Username)
		if _, err := sched.AddJob(name, job.Cron, func() {
			runCtx, cancel := context.WithTimeout(ctx, 2*u.common.HTTPTimeout()+time.Minute)
			defer cancel()
			_ = u.book(runCtx, job)
		}); err != nil {
			return err
		}
		log.Info().Str("job_name", name).Str("cron", job.Cron).Str("facility_id", job.FacilityID).Msg("Booking job scheduled")
	}

	if u.user.SyncCron == "" {
		return nil
	}
	sync := func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if err := u.sync(runCtx); err != nil {
			log.Error().Err(err).Str("user", u.user.Username).Msg("Booking sync failed")
		}
	}
	if _, err := sched.AddJob(u.user.Username+"/sync", u.user.SyncCron, sync); err != nil {
		return err
	}
	go sync()
	return nil
}

func oauthRoutes(cfg *config.CommonConfig) *site.OAuth {
	if !googlecalendar.Enabled(cfg) {
		return nil
	}
	return &site.OAuth{
		AuthURL: func(state string) string {
			return googlecalendar.AuthURL(cfg, state)
		},
		Exchange: func(ctx context.Context, code string) error {
			return googlecalendar.Exchange(ctx, cfg, code)
		},
	}
}
