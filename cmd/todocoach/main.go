package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chris/todocoach/config"
	"github.com/chris/todocoach/internal/bot"
	"github.com/chris/todocoach/internal/coach"
	"github.com/chris/todocoach/internal/db"
	"github.com/chris/todocoach/internal/discord"
	"github.com/chris/todocoach/internal/llm"
	"github.com/chris/todocoach/internal/logging"
	"github.com/chris/todocoach/internal/scheduler"
	"github.com/chris/todocoach/internal/service"
	"github.com/chris/todocoach/internal/telegram"
)

// localUserID is the chat and user ID of the stdin transport.
const localUserID = 1

var (
	verbose bool
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "todocoach",
	Short: "Personal todo, chore and reflection coach for Telegram, Discord or the terminal",
	Long: `todocoach tracks todos, weekend chores and daily reflections, and sends
coaching messages built from your task history.

Without a subcommand it runs the bot: Telegram when TELEGRAM_BOT_TOKEN is set,
else Discord when DISCORD_BOT_TOKEN is set, else an interactive terminal chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot and the scheduler until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Print a coaching check-in for one user",
	RunE: func(cmd *cobra.Command, args []string) error {
		weekly, _ := cmd.Flags().GetBool("weekly")
		return printMessage(cmd, func(ctx context.Context, a *app, userID int64) (string, error) {
			return a.coach.CoachingMessage(ctx, userID, weekly)
		})
	},
}

var improveCmd = &cobra.Command{
	Use:   "improve",
	Short: "Print the execution-pattern analysis for one user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printMessage(cmd, func(ctx context.Context, a *app, userID int64) (string, error) {
			return a.coach.ImprovementMessage(ctx, userID)
		})
	},
}

var broadcastCmd = &cobra.Command{
	Use:   "broadcast [daily|weekly|chores|chores-confirm|reflection]",
	Short: "Run one scheduled job now over every target user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := jobName(args[0])
		if err != nil {
			return err
		}
		return runBroadcast(cmd.Context(), job)
	},
}

var serviceCmd = &cobra.Command{
	Use:   "service [install|uninstall|start|stop|restart|status|logs]",
	Short: "Manage the launchd agent (macOS)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := service.NewInstaller(config.EnvFile())
		if err != nil {
			return err
		}
		actions := map[string]func() error{
			"install":   in.Install,
			"uninstall": in.Uninstall,
			"start":     in.Start,
			"stop":      in.Stop,
			"restart":   in.Restart,
			"status":    in.Status,
			"logs":      in.Logs,
		}
		action, ok := actions[args[0]]
		if !ok {
			return fmt.Errorf("unknown service action %q", args[0])
		}
		return action()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	for _, c := range []*cobra.Command{checkinCmd, improveCmd} {
		c.Flags().Int64("user", 0, "User ID (defaults to ALLOWED_CHAT_ID)")
	}
	checkinCmd.Flags().Bool("weekly", false, "Use the weekly review cadence")

	rootCmd.AddCommand(runCmd, checkinCmd, improveCmd, broadcastCmd, serviceCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds the long-lived components shared by every command.
type app struct {
	db         *db.DB
	classifier coach.Classifier
	coach      *coach.Coach
}

func newApp(ctx context.Context) (*app, error) {
	classifier, err := coach.LoadClassifier(cfg.ClassifierFile)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	gen, err := llm.NewGenerator(ctx, providerConfig(cfg), logger)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	return &app{
		db:         database,
		classifier: classifier,
		coach:      coach.New(database, gen, classifier, cfg.StaleTaskDays, coach.WithLogger(logger)),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		logger.Warn("closing database", zap.Error(err))
	}
}

func providerConfig(c *config.Config) llm.ProviderConfig {
	pc := llm.ProviderConfig{
		Provider:  c.LLMProvider,
		APIKey:    c.APIKey(),
		AuthToken: c.AnthropicToken,
		Model:     c.Model(),
		Timeout:   c.LLMTimeout,
	}
	if c.LLMProvider == llm.ProviderOllama {
		pc.BaseURL = c.OllamaBaseURL
	}
	return pc
}

func schedulerConfig(c *config.Config) scheduler.Config {
	return scheduler.Config{
		CheckinHour:       c.CheckinHour,
		WeeklyReviewDay:   c.WeeklyReviewDay,
		WeeklyReviewHour:  c.WeeklyReviewHour,
		ChoresMorningHour: c.ChoresMorningHour,
		ChoresConfirmHour: c.ChoresConfirmHour,
		ReflectionHour:    c.ReflectionHour,
		AllowedChatID:     c.AllowedChatID,
		Concurrency:       c.BroadcastConcurrency,
	}
}

// transport is a chat connection that can also deliver scheduled messages.
type transport interface {
	Run(ctx context.Context) error
	Send(ctx context.Context, userID int64, r bot.Reply) error
}

func openTransport(h chatHandler) (transport, func(), error) {
	switch {
	case cfg.TelegramToken != "":
		tb, err := telegram.NewBot(cfg.TelegramToken, h, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := tb.RegisterCommands(); err != nil {
			logger.Warn("registering telegram commands", zap.Error(err))
		}
		return tb, func() {}, nil
	case cfg.DiscordToken != "":
		dc, err := discord.NewBot(cfg.DiscordToken, h, logger)
		if err != nil {
			return nil, nil, err
		}
		return dc, func() { _ = dc.Close() }, nil
	default:
		return newREPL(os.Stdin, os.Stdout, h, localChatID()), func() {}, nil
	}
}

func runBot(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []bot.Option{bot.WithLogger(logger)}
	if cfg.AllowedChatID != nil {
		opts = append(opts, bot.WithAllowedChat(*cfg.AllowedChatID))
	}
	h := bot.New(a.db, a.coach, a.classifier, opts...)

	t, closeTransport, err := openTransport(h)
	if err != nil {
		return err
	}
	defer closeTransport()

	sched := scheduler.New(a.db, a.coach, t, schedulerConfig(cfg), scheduler.WithLogger(logger))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	logger.Info("bot is running, press Ctrl+C to exit")
	err = t.Run(ctx)
	logger.Info("shutting down")
	return err
}

func runBroadcast(ctx context.Context, job string) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	t, closeTransport, err := openTransport(bot.New(a.db, a.coach, a.classifier, bot.WithLogger(logger)))
	if err != nil {
		return err
	}
	defer closeTransport()

	return scheduler.New(a.db, a.coach, t, schedulerConfig(cfg), scheduler.WithLogger(logger)).RunJob(ctx, job)
}

func printMessage(cmd *cobra.Command, render func(ctx context.Context, a *app, userID int64) (string, error)) error {
	userID, _ := cmd.Flags().GetInt64("user")
	if userID == 0 {
		userID = localChatID()
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	msg, err := render(cmd.Context(), a, userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}

func localChatID() int64 {
	if cfg.AllowedChatID != nil {
		return *cfg.AllowedChatID
	}
	return localUserID
}

func jobName(arg string) (string, error) {
	switch strings.ToLower(arg) {
	case "daily", "checkin":
		return scheduler.JobDaily, nil
	case "weekly", "review":
		return scheduler.JobWeekly, nil
	case "chores", "chores-morning":
		return scheduler.JobChoresMorning, nil
	case "chores-confirm":
		return scheduler.JobChoresConfirm, nil
	case "reflection":
		return scheduler.JobReflection, nil
	default:
		return "", fmt.Errorf("unknown job %q (want daily, weekly, chores, chores-confirm or reflection)", arg)
	}
}
