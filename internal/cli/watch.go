package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/redtape/internal/alert"
	"github.com/ppiankov/redtape/internal/batch"
)

var (
	watchConfig       string
	watchProfile      string
	watchInbox        string
	watchOutbox       string
	watchState        string
	watchPoll         bool
	watchPollInterval time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchConfig, "config", "", "Path to run config YAML (default: ~/.redtape/config.yaml)")
	watchCmd.Flags().StringVar(&watchProfile, "profile", "", "Reviewer profile to apply (e.g., strict)")
	watchCmd.Flags().StringVar(&watchInbox, "inbox", "", "Directory watched for incoming case files")
	watchCmd.Flags().StringVar(&watchOutbox, "outbox", "", "Directory receiving outcome files")
	watchCmd.Flags().StringVar(&watchState, "state", "", "Directory for processing state, audit trails, and the PID lock")
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "Poll the inbox instead of using fsnotify (for NFS)")
	watchCmd.Flags().DurationVar(&watchPollInterval, "poll-interval", 0, "Poll interval when --poll is set")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the inbox watch service",
	Long:  "Watches the inbox directory and adjudicates case files as they arrive.\nOutcomes land in the outbox, audit trails under the state directory.\nOn startup, orphaned cases from a previous run become failed outcomes.",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	dirs := batch.DefaultDirConfig()
	if watchInbox != "" {
		dirs.Inbox = watchInbox
	}
	if watchOutbox != "" {
		dirs.Outbox = watchOutbox
	}
	if watchState != "" {
		dirs.State = watchState
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, cfg, cleanup, err := buildEngine(ctx, watchConfig, watchProfile, dirs.AuditDir())
	if err != nil {
		return err
	}
	defer cleanup()

	svc, err := batch.NewService(batch.ServiceConfig{
		Dirs:         dirs,
		Engine:       eng,
		PollMode:     watchPoll,
		PollInterval: watchPollInterval,
		Alerts:       alert.NewDispatcher(cfg.Alerts),
	})
	if err != nil {
		return fmt.Errorf("failed to create watch service: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down watch service...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "redtape watch service running")
	fmt.Fprintf(os.Stderr, "  inbox:  %s\n", dirs.Inbox)
	fmt.Fprintf(os.Stderr, "  outbox: %s\n", dirs.Outbox)
	fmt.Fprintf(os.Stderr, "  state:  %s\n", dirs.State)
	if watchProfile != "" {
		fmt.Fprintf(os.Stderr, "  profile: %s\n", watchProfile)
	}
	if len(cfg.Alerts) > 0 {
		fmt.Fprintf(os.Stderr, "  alerts: %d webhook destination(s)\n", len(cfg.Alerts))
	}

	return svc.Run(ctx)
}
