package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"sniffer/internal/capture"
	"sniffer/internal/config"
	"sniffer/internal/daemon"
	"sniffer/internal/history"
	"sniffer/internal/logging"
	"sniffer/internal/preflight"
	"sniffer/internal/workflow"
)

type runOptions struct {
	pcapFile string
	device   string
	noWait   bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture requests and save matching assets until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSniffer(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.pcapFile, "pcap", "", "Replay frames from a capture file instead of a live device")
	cmd.Flags().StringVar(&opts.device, "device", "", "Capture device name (overrides capture.device)")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Exit without waiting for Enter")
	return cmd
}

func runSniffer(cmd *cobra.Command, ctx *commandContext, opts runOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logger.Error("open history", logging.Error(err))
		return err
	}
	defer store.Close()

	source, device, err := openSource(cmd, ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer source.Close()

	var lister capture.Lister
	if opts.pcapFile == "" {
		lister = ctx.lister
	}
	logPreflight(logger, preflight.RunAll(signalCtx, cfg, lister))

	components, err := workflow.DefaultComponents(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("build components: %w", err)
	}
	manager := workflow.NewManager(cfg, source, components, logger)

	var daemonOpts []daemon.Option
	if device != "" {
		daemonOpts = append(daemonOpts, daemon.WithDevice(device))
	}
	d, err := daemon.New(cfg, manager, logger, daemonOpts...)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	out := cmd.OutOrStdout()
	if device != "" {
		fmt.Fprintf(out, "Listening on %s for %s (Ctrl+C to stop)\n", device, cfg.Capture.TargetHost)
	} else {
		fmt.Fprintf(out, "Replaying %s\n", opts.pcapFile)
	}

	started := time.Now()
	runErr := d.Run(signalCtx)
	if errors.Is(runErr, daemon.ErrAlreadyRunning) {
		return fmt.Errorf("%w (lock %s)", runErr, cfg.LockPath())
	}

	printSummary(out, manager.Stats(), source, time.Since(started))

	if runErr == nil && !opts.noWait && opts.pcapFile == "" && isInteractive(cmd.InOrStdin()) {
		fmt.Fprint(out, "Press Enter to exit...")
		_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	}
	return runErr
}

// openSource returns the frame source and, for live capture, the device name.
func openSource(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, opts runOptions, logger *slog.Logger) (*capture.PcapSource, string, error) {
	if opts.pcapFile != "" {
		path, err := config.ExpandPath(opts.pcapFile)
		if err != nil {
			return nil, "", fmt.Errorf("resolve capture file: %w", err)
		}
		source, err := capture.OpenFile(path)
		if err != nil {
			return nil, "", err
		}
		logger.Info("replaying capture file", logging.String("path", path))
		return source, "", nil
	}

	devices, err := ctx.lister.Devices()
	if err != nil {
		return nil, "", err
	}
	localIP, err := capture.LocalIPv4()
	if err != nil {
		logger.Debug("local address unavailable", logging.Error(err))
	}

	preferred := strings.TrimSpace(opts.device)
	if preferred == "" {
		preferred = cfg.Capture.Device
	}
	selector := capture.ConsoleSelector{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	dev, method, err := capture.SelectDevice(devices, localIP, preferred, selector)
	if err != nil {
		return nil, "", fmt.Errorf("select capture device: %w", err)
	}
	logger.Info("capture device selected",
		logging.String("device", dev.Name),
		logging.String("method", string(method)),
		logging.String("local_ip", localIP),
	)

	source, err := capture.OpenLive(capture.LiveOptions{
		Device:        dev.Name,
		SnapshotLen:   cfg.Capture.SnapshotLen,
		Promiscuous:   cfg.Capture.Promiscuous,
		PacketTimeout: time.Duration(cfg.Capture.PacketTimeout) * time.Millisecond,
		BPFFilter:     cfg.Capture.BPFFilter,
	})
	if err != nil {
		return nil, "", err
	}
	return source, dev.Name, nil
}

func logPreflight(logger *slog.Logger, results []preflight.Result) {
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight passed", logging.String("check", r.Name), logging.String("detail", r.Detail))
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldImpact, "capture continues; affected assets may fail"),
		)
	}
}

func printSummary(out io.Writer, stats workflow.Stats, source *capture.PcapSource, elapsed time.Duration) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Ran for %s\n", elapsed.Round(time.Second))
	fmt.Fprintf(out, "Frames: %d  Requests: %d  Saved: %d  Skipped: %d  Failed: %d\n",
		stats.Frames, stats.Matches, stats.Saved, stats.Skipped, stats.Failed)
	if stats.TagFailures > 0 {
		fmt.Fprintf(out, "Tagging failures: %d\n", stats.TagFailures)
	}
	capStats, err := source.Stats()
	if err != nil {
		fmt.Fprintf(out, "Capture statistics unavailable: %v\n", err)
		return
	}
	if capStats.Received == 0 && capStats.Dropped == 0 {
		fmt.Fprintf(out, "Frames read: %d\n", capStats.FramesDelivered)
		return
	}
	fmt.Fprintf(out, "Packets received: %d  dropped: %d  interface drops: %d\n",
		capStats.Received, capStats.Dropped, capStats.InterfaceDrops)
}

func isInteractive(in io.Reader) bool {
	file, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
