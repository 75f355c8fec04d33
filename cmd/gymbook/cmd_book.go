// Package main implements the book command: the full reservation run,
// optionally scheduled against a release moment.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gymbook/internal/booking"
	"gymbook/internal/browser"
	"gymbook/internal/captcha"
	"gymbook/internal/config"
	"gymbook/internal/history"
	"gymbook/internal/schedule"
)

var (
	bookUsername    string
	bookPassword    string
	bookCampus      string
	bookFacility    string
	bookDate        string
	bookTime        string
	bookDebug       bool
	bookBookingTime string
)

// bookCmd runs one reservation attempt
var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Reserve the configured court",
	Long: `Runs the reservation flow: log in, select campus, facility, date and
time slot, and confirm.

Credentials and preferences come from .env, the environment, or flags
(flags win). With --booking-time the run waits until one minute before
the release moment, then retries the date/slot steps until success or
ten minutes past the moment.

Examples:
  gymbook book --username <username> --password <password>
  gymbook book
  gymbook book --debug
  gymbook book --booking-time "2026-09-15 12:30:00"`,
	RunE: runBook,
}

func init() {
	bookCmd.Flags().StringVar(&bookUsername, "username", "", "Account username (overrides .env)")
	bookCmd.Flags().StringVar(&bookPassword, "password", "", "Account password (overrides .env)")
	bookCmd.Flags().StringVar(&bookCampus, "campus", "", "Campus name to select")
	bookCmd.Flags().StringVar(&bookFacility, "facility", "", "Facility name to select")
	bookCmd.Flags().StringVar(&bookDate, "date", "", "Date number to select (e.g. 9-17)")
	bookCmd.Flags().StringVar(&bookTime, "time", "", "Time slot to select (e.g. 21:00-22:00)")
	bookCmd.Flags().BoolVar(&bookDebug, "debug", false, "Show the browser window and save failure screenshots")
	bookCmd.Flags().StringVar(&bookBookingTime, "booking-time", "", `Release moment, Beijing time, "YYYY-MM-DD HH:MM:SS"`)
}

func runBook(cmd *cobra.Command, args []string) error {
	cfg, err := loadBookConfig()
	if err != nil {
		return err
	}

	var bookingTime time.Time
	if bookBookingTime != "" {
		bookingTime, err = schedule.ParseBookingTime(bookBookingTime)
		if err != nil {
			return err
		}
		if err := schedule.ValidateFuture(bookingTime, schedule.Now()); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	if !bookingTime.IsZero() {
		start := schedule.StartTime(bookingTime)
		logger.Info("waiting for booking window",
			zap.String("booking_time", schedule.FormatBeijing(bookingTime)),
			zap.String("start", schedule.FormatBeijing(start)))
		waited, err := schedule.WaitUntil(ctx, start)
		if err != nil {
			return err
		}
		if !waited {
			logger.Warn("start moment already passed, running immediately")
		}
	}

	solver, err := buildSolver(ctx, cfg)
	if err != nil {
		return err
	}

	sess := browser.NewSession(browserConfig(cfg), logger)
	if err := sess.Start(ctx); err != nil {
		return err
	}
	defer sess.Close()

	booker := booking.New(booking.Params{
		Config:      cfg,
		Selectors:   config.DefaultSelectors(),
		Session:     sess,
		Humanizer:   browser.NewHumanizer(),
		Solver:      solver,
		Logger:      logger,
		BookingTime: bookingTime,
	})

	started := schedule.Now()
	runErr := booker.Run(ctx)
	recordAttempt(cfg, booker, started, runErr)

	if runErr != nil {
		return fmt.Errorf("reservation failed: %w", runErr)
	}
	fmt.Println("reservation confirmed")
	return nil
}

// loadBookConfig merges flags over the file/env config.
func loadBookConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if bookUsername != "" {
		cfg.Username = bookUsername
	}
	if bookPassword != "" {
		cfg.Password = bookPassword
	}
	if bookCampus != "" {
		cfg.CampusName = bookCampus
	}
	if bookFacility != "" {
		cfg.FacilityName = bookFacility
	}
	if bookDate != "" {
		cfg.DateNumber = bookDate
	}
	if bookTime != "" {
		cfg.TimeSlot = bookTime
	}
	if bookDebug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func browserConfig(cfg *config.Config) browser.Config {
	bc := browser.DefaultConfig()
	bc.Headless = !cfg.Debug
	bc.Bin = cfg.BrowserBin
	bc.NavigationTimeoutMs = cfg.NavigationTimeoutMs
	return bc
}

func buildSolver(ctx context.Context, cfg *config.Config) (captcha.Solver, error) {
	switch cfg.CaptchaProvider {
	case "manual":
		return captcha.NewManualSolver(filepath.Join(cfg.DataDir, "captcha.png")), nil
	case "gemini", "":
		if cfg.GeminiAPIKey == "" {
			logger.Warn("no GEMINI_API_KEY set, falling back to manual captcha entry")
			return captcha.NewManualSolver(filepath.Join(cfg.DataDir, "captcha.png")), nil
		}
		return captcha.NewGeminiSolver(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown captcha provider %q", cfg.CaptchaProvider)
	}
}

// recordAttempt logs the run to the history store. Failure to record
// never masks the run's own outcome.
func recordAttempt(cfg *config.Config, booker *booking.Booker, started time.Time, runErr error) {
	store, err := history.Open(filepath.Join(cfg.DataDir, "history.db"))
	if err != nil {
		logger.Warn("history store unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	a := &history.Attempt{
		Username:     cfg.Username,
		CampusName:   cfg.CampusName,
		FacilityName: cfg.FacilityName,
		DateNumber:   cfg.DateNumber,
		TimeSlot:     cfg.TimeSlot,
		Retries:      booker.Retries(),
		Success:      runErr == nil,
		StartedAt:    started,
		FinishedAt:   schedule.Now(),
	}
	if runErr != nil {
		a.ErrorMessage = runErr.Error()
	}
	if err := store.Record(a); err != nil {
		logger.Warn("record attempt failed", zap.Error(err))
	}
}
