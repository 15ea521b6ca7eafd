// zerocheck
// Verifies that a disk has been wiped: samples random sectors for zero-fill, or asks the
// drive whether a secure erase / sanitize completed.
// Cobra CLI + tcell fullscreen sample map. One glyph per group of sectors.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"zerocheck/blockdev"
	"zerocheck/check"
	"zerocheck/config"
	"zerocheck/erase"
	"zerocheck/execute"
	"zerocheck/logger"
	"zerocheck/retrodfrg"
	"zerocheck/sampler"
)

// app carries what every command needs. Fields left nil are filled from the
// configuration in prepare.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	runner execute.Runner

	stdin          io.Reader
	stdout, stderr io.Writer
	logOut         io.Writer
	logFile        *os.File

	configFile string
	exitCode   int
}

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		for _, h := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "hint: %s\n", h)
		}
		os.Exit(2)
	}
}

func (a *app) prepare(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.runner == nil {
		a.runner = execute.Exec{Timeout: cfg.ToolTimeout}
	}

	a.logOut = a.stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		a.logFile, a.logOut = f, f
	}
	ctx := logger.AddLoggerToContext(cmd.Context(), cfg.LogLevel, a.logOut)
	cmd.SetContext(ctx)
	if cfg.File != "" {
		logger.FromContext(ctx).Debug().Str("file", cfg.File).Msg("configuration loaded")
	}
	return nil
}

// close releases the log file opened by prepare.
func (a *app) close() error {
	if a.logFile == nil {
		return nil
	}
	err := a.logFile.Close()
	a.logFile = nil
	return errors.Wrap(err, "close log file")
}

func (a *app) lister() blockdev.Lister {
	return blockdev.Lister{Runner: a.runner, Lsblk: a.cfg.Tools.Lsblk}
}

// useTUI decides whether a sampling run gets the full-screen view.
func (a *app) useTUI() bool {
	switch a.cfg.UI {
	case config.UITUI:
		return true
	case config.UIPlain:
		return false
	}
	f, ok := a.stdout.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// warnMounted prints the filesystems of the target disk that are still mounted. Sampling a
// mounted disk is harmless but its result is meaningless for an erase audit.
func (a *app) warnMounted(ctx context.Context, device string) {
	mounts, err := blockdev.MountedPartitions(ctx, device)
	if err != nil {
		logger.FromContext(ctx).Debug().Err(err).Msg("mount table unavailable")
		return
	}
	if len(mounts) == 0 {
		return
	}
	fmt.Fprintf(a.stderr, "warning: %s has mounted filesystems:\n", device)
	for _, m := range mounts {
		fmt.Fprintf(a.stderr, "  %-18s on %-24s (%s)\n", m.Device, m.MountPoint, m.FSType)
	}
}

// runCheck performs one check with progress display and returns its report. SIGINT,
// SIGTERM and the stop keys of the full-screen view cancel the run.
func (a *app) runCheck(ctx context.Context, req check.Request) check.Report {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.warnMounted(ctx, req.Device)

	opts := []sampler.Option{sampler.WithDelay(a.cfg.Delay)}
	if a.cfg.Seed != 0 {
		opts = append(opts, sampler.WithSeed(a.cfg.Seed))
	}
	c := &check.Checker{Verifier: a.cfg.Verifier(a.runner), Options: opts}

	if !req.Level.Sampling() {
		return c.Run(ctx, req)
	}

	if a.useTUI() {
		ui, err := retrodfrg.NewUI()
		if err == nil {
			defer ui.Close()
			ui.OnStop(cancel)
			// The screen belongs to the UI; keep logs off it unless they go to a file.
			if a.cfg.LogFile == "" {
				nop := zerolog.Nop()
				ctx = logger.WithLogger(ctx, &nop)
			}
			m := retrodfrg.NewSampleMap(ui, req.Device, req.Level.String())
			rep := c.Run(ctx, req, sampler.WithObserver(a.logged(ctx, m)))
			if !ui.IsStopped() {
				_ = retrodfrg.WaitWithStop(ui, 2*time.Second)
			}
			return rep
		}
		logger.FromContext(ctx).Warn().Err(err).Msg("full-screen view unavailable, using plain progress")
	}
	return c.Run(ctx, req, sampler.WithObserver(a.logged(ctx, newLineProgress(a.stderr))))
}

// logged adds periodic progress records when logs go to a file.
func (a *app) logged(ctx context.Context, obs sampler.Observer) sampler.Observer {
	if a.cfg.LogFile == "" {
		return obs
	}
	return sampler.Multi(obs, &sampler.LogObserver{Log: logger.FromContext(ctx)})
}

func (a *app) finish(rep check.Report) {
	fmt.Fprint(a.stdout, renderReport(rep))
	a.exitCode = rep.ExitCode()
}

// interactive is the menu-driven session: pick a disk, pick a level, check, report.
func (a *app) interactive(ctx context.Context, noWait bool) error {
	p := newPrompter(a.stdin, a.stdout)
	if !noWait {
		defer p.waitEnter("Press Enter to exit.")
	}

	fmt.Fprintln(a.stdout, "zerocheck: disk zero-fill and SSD erase verification")
	devs, err := a.lister().List(ctx)
	if err != nil {
		return err
	}
	if len(devs) == 0 {
		fmt.Fprintln(a.stdout, "No disks found.")
		a.exitCode = 2
		return nil
	}

	d, err := selectDisk(p, devs)
	if err != nil {
		return err
	}
	level, err := selectLevel(p, d)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info().Str("device", d.Path).Stringer("level", level).Msg("check selected")

	req := check.Request{
		Device:  d.Path,
		Level:   level,
		Sectors: d.Sectors(),
		Family:  erase.FamilyFromTransport(d.Transport),
	}
	a.finish(a.runCheck(ctx, req))
	return nil
}

func newRootCmd(a *app) *cobra.Command {
	var noWait bool
	root := &cobra.Command{
		Use:   "zerocheck",
		Short: "Verify that a disk has been erased",
		Long: "Sample random sectors of a disk for zero-fill, or ask an SSD whether a secure erase " +
			"or sanitize completed. Without a subcommand an interactive session starts.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.interactive(cmd.Context(), noWait)
		},
	}
	root.Flags().BoolVar(&noWait, "no-wait", false, "exit without waiting for Enter")

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default: zerocheck.yaml in ., ~/.config/zerocheck, /etc/zerocheck)")
	pf.String("log-level", "info", "debug|info|warn|error|off")
	pf.String("log-file", "", "write logs to this file instead of stderr")
	pf.String("ui", config.UIAuto, "progress display: auto|tui|plain")
	pf.Duration("delay", time.Millisecond, "pause between samples")
	pf.Uint64("seed", 0, "random seed for sector selection (0 = random)")
	for key, flag := range map[string]string{
		"log_level": "log-level",
		"log_file":  "log-file",
		"ui":        "ui",
		"delay":     "delay",
		"seed":      "seed",
	} {
		must(a.v.BindPFlag(key, pf.Lookup(flag)))
	}

	root.AddCommand(newCheckCmd(a), newVerifyEraseCmd(a), newDeviceCmd(a))
	return root
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		device, levelStr, familyStr string
		sectors                     int64
	)
	cmd := &cobra.Command{
		Use:   "check --device <path> [--level fast|standard|deep|ssd]",
		Short: "Check one device or image non-interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			level, err := check.ParseLevel(levelStr)
			if err != nil {
				return err
			}
			family, err := erase.ParseFamily(familyStr)
			if err != nil {
				return err
			}
			if sectors < 0 {
				return errors.New("--sectors must not be negative")
			}
			a.finish(a.runCheck(cmd.Context(), check.Request{Device: device, Level: level, Sectors: sectors, Family: family}))
			return nil
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "block device or image file (e.g. /dev/sdb, disk.img)")
	cmd.Flags().StringVar(&levelStr, "level", "standard", "fast|standard|deep|ssd or 1-4")
	cmd.Flags().Int64Var(&sectors, "sectors", 0, "sector count override (default: read from the device)")
	cmd.Flags().StringVar(&familyStr, "family", "", "sata|nvme for --level ssd (default: from device name)")
	_ = cmd.MarkFlagRequired("device")
	return cmd
}

func newVerifyEraseCmd(a *app) *cobra.Command {
	var device, familyStr string
	cmd := &cobra.Command{
		Use:   "verify-erase --device <path>",
		Short: "Ask the drive whether a secure erase or sanitize completed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			family, err := erase.ParseFamily(familyStr)
			if err != nil {
				return err
			}
			a.finish(a.runCheck(cmd.Context(), check.Request{Device: device, Level: check.SsdSanitize, Family: family}))
			return nil
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "drive to query (e.g. /dev/sda, /dev/nvme0n1)")
	cmd.Flags().StringVar(&familyStr, "family", "", "sata|nvme (default: from device name)")
	_ = cmd.MarkFlagRequired("device")
	return cmd
}

func newDeviceCmd(a *app) *cobra.Command {
	deviceCmd := &cobra.Command{
		Use:   "device",
		Short: "Device related utilities (safe, read-only)",
	}

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List whole disks with size, media type and transport",
		RunE: func(cmd *cobra.Command, _ []string) error {
			devs, err := a.lister().List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.stdout, devs)
			}
			printDevices(a.stdout, devs)
			return nil
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	var infoPath string
	var infoJSON bool
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show size, serial and mounts of a mount point or device (read-only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(infoPath) == "" {
				return errors.New("--path is required")
			}
			d, err := blockdev.Describe(cmd.Context(), infoPath)
			if err != nil {
				return err
			}
			if infoJSON {
				return writeJSON(a.stdout, d)
			}
			printDetails(a.stdout, d)
			return nil
		},
	}
	infoCmd.Flags().StringVar(&infoPath, "path", "", "mount point (e.g. /media/usb) or device path (e.g. /dev/sdb)")
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "print JSON")
	_ = infoCmd.MarkFlagRequired("path")

	deviceCmd.AddCommand(listCmd, infoCmd)
	return deviceCmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDevices(w io.Writer, devs []blockdev.Device) {
	fmt.Fprintf(w, "OS: %s\n", runtime.GOOS)
	fmt.Fprintln(w, "This is a SAFE, read-only listing.")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-16s  %-10s  %-7s  %-5s  %-20s  %s\n", "Path", "Size", "Type", "Tran", "Serial", "Model")
	if len(devs) == 0 {
		fmt.Fprintln(w, "  <none detected>")
		return
	}
	for _, d := range devs {
		fmt.Fprintf(w, "  %-16s  %-10s  %-7s  %-5s  %-20s  %s\n", d.Path, d.HumanSize(), d.Kind, orDash(d.Transport), orDash(d.Serial), d.Model)
	}
}

func printDetails(w io.Writer, d blockdev.Details) {
	fmt.Fprintln(w, "Path info")
	fmt.Fprintf(w, "  Input:   %s\n", d.Input)
	fmt.Fprintf(w, "  Device:  %s\n", d.Device)
	if d.MountPoint != "" {
		fmt.Fprintf(w, "  Mounted: %s\n", d.MountPoint)
	}
	fmt.Fprintf(w, "  Whole:   %s\n", d.Whole)
	if d.SizeBytes >= 0 {
		fmt.Fprintf(w, "  Size:    %s (%d sectors)\n", blockdev.Device{SizeBytes: d.SizeBytes}.HumanSize(), d.Sectors())
	}
	if d.Serial != "" {
		fmt.Fprintf(w, "  Serial:  %s\n", d.Serial)
	}
	for _, m := range d.Mounts {
		fmt.Fprintf(w, "  Mount:   %s on %s (%s)\n", m.Device, m.MountPoint, m.FSType)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func main() {
	a := &app{v: viper.New(), stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	root := newRootCmd(a)
	err := root.ExecuteContext(context.Background())
	if cerr := a.close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", cerr)
	}
	must(err)
	os.Exit(a.exitCode)
}
