package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ppiankov/redtape/internal/alert"
)

// ServiceConfig holds full watch service configuration.
type ServiceConfig struct {
	Dirs         DirConfig
	Engine       Engine
	PollMode     bool
	PollInterval time.Duration

	// Alerts is passed through to the processor. Nil disables alerting.
	Alerts *alert.Dispatcher
}

// Service watches the inbox directory and adjudicates cases as they arrive.
type Service struct {
	cfg       ServiceConfig
	processor *Processor
}

// NewService creates a watch service with validated configuration.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Dirs.Inbox == "" || cfg.Dirs.Outbox == "" || cfg.Dirs.State == "" {
		return nil, fmt.Errorf("inbox, outbox, and state directories are required")
	}
	if cfg.Engine.Provider == nil || cfg.Engine.Payor == nil {
		return nil, fmt.Errorf("provider and payor oracles are required")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = pollDefault
	}

	processor := NewProcessor(ProcessorConfig{
		Dirs:   cfg.Dirs,
		Engine: cfg.Engine,
		Alerts: cfg.Alerts,
	})

	return &Service{
		cfg:       cfg,
		processor: processor,
	}, nil
}

// Run starts the service. Blocks until ctx is cancelled. On startup it
// recovers orphaned cases and processes any files already in the inbox.
func (s *Service) Run(ctx context.Context) error {
	if err := EnsureDirs(s.cfg.Dirs); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	// Acquire PID file lock to prevent duplicate instances.
	pidPath := filepath.Join(s.cfg.Dirs.State, "watch.pid")
	if err := acquirePIDLock(pidPath); err != nil {
		return fmt.Errorf("acquire PID lock: %w", err)
	}
	defer func() { _ = os.Remove(pidPath) }()

	// Cases stuck in processing were interrupted mid-negotiation.
	if err := s.recoverOrphans(); err != nil {
		return fmt.Errorf("recover orphans: %w", err)
	}

	handler := func(path string) {
		if err := s.processor.Process(ctx, path); err != nil {
			fmt.Fprintf(os.Stderr, "watch: process %s: %v\n", filepath.Base(path), err)
		}
	}

	// Process any files that arrived while the service was down.
	if err := ScanExisting(s.cfg.Dirs.Inbox, handler); err != nil {
		return fmt.Errorf("scan existing: %w", err)
	}

	if s.cfg.PollMode {
		pw := NewPollWatcher(s.cfg.Dirs.Inbox, handler, s.cfg.PollInterval)
		return pw.Run(ctx)
	}

	w := NewInboxWatcher(s.cfg.Dirs.Inbox, handler)
	return w.Run(ctx)
}

// recoverOrphans writes failed outcomes for cases left in processing by
// a crash or restart. A partial audit trail, when one exists, is kept
// and referenced so the interrupted negotiation can still be replayed.
func (s *Service) recoverOrphans() error {
	procDir := s.cfg.Dirs.ProcessingDir()
	entries, err := os.ReadDir(procDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !isCaseFile(e.Name()) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		out := failedOutcome(id, "interrupted: case was processing when the service stopped")
		trail := filepath.Join(s.cfg.Dirs.AuditDir(), id+".audit.jsonl")
		if _, err := os.Stat(trail); err == nil {
			out.AuditLog = trail
		}
		if err := s.processor.finish(out); err != nil {
			fmt.Fprintf(os.Stderr, "watch: recover orphan %s: %v\n", id, err)
		}
		_ = os.Remove(filepath.Join(procDir, e.Name()))
	}
	return nil
}

// acquirePIDLock writes the current PID to the file and checks for stale locks.
func acquirePIDLock(path string) error {
	// Check for an existing PID file.
	if data, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err == nil {
			// Check if the process is still running.
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("another watch service is running (PID %d)", pid)
				}
			}
		}
		// Stale PID file, remove it.
		_ = os.Remove(path)
	}

	// Write our PID.
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600)
}
