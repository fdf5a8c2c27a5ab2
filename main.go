package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	log "xmtest/logger"
	"xmtest/pkg/cmdtrace"
	"xmtest/pkg/config"
	"xmtest/pkg/domain"
	"xmtest/pkg/pedestal"
	"xmtest/pkg/scenario"
	"xmtest/pkg/scenario/sedf"
	"xmtest/pkg/tracer"
)

type options struct {
	configFile string
	toolstack  string
	workDir    string
	logLevel   string
	verbose    bool
	strict     bool
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	exitCode := 0
	root := newRootCommand(&exitCode)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		return 2
	}
	return exitCode
}

func newRootCommand(exitCode *int) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "xm-test",
		Short:         "Run Xen toolstack regression scenarios",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default: discovered under /etc/xm-test)")
	root.PersistentFlags().StringVar(&opts.toolstack, "toolstack", "", "toolstack binary to drive (xm, xl or a path)")
	root.PersistentFlags().StringVar(&opts.workDir, "workdir", "", "directory for rendered domain configs")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "print toolstack diagnostics on failure")
	root.PersistentFlags().BoolVar(&opts.strict, "strict", false, "fail scenarios this host cannot run instead of skipping them")

	root.AddCommand(newRunCommand(opts, exitCode), newListCommand())
	return root
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [pattern...]",
		Short: "List the available scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := scenario.Select(allScenarios(nil), args)
			if err != nil {
				return err
			}
			for _, s := range selected {
				fmt.Fprintln(cmd.OutOrStdout(), s.ID())
			}
			return nil
		},
	}
}

func newRunCommand(opts *options, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "run [pattern...]",
		Short: "Run scenarios matching the patterns (all when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := log.Init(&cfg.Log); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			shutdown, err := tracer.Setup(ctx, tracer.Config{
				ServiceName: cfg.Trace.Service,
				Endpoint:    cfg.Trace.Endpoint,
				Insecure:    cfg.Trace.Insecure,
			})
			if err != nil {
				log.WithError(err).Warn("tracing disabled")
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.WithError(err).Warn("failed to flush traces")
				}
			}()

			ctrl, err := newController(cfg)
			if err != nil {
				return err
			}

			selected, err := scenario.Select(allScenarios(ctrl), args)
			if err != nil {
				return err
			}
			if len(selected) == 0 {
				return fmt.Errorf("no scenario matches %v", args)
			}

			runner := &scenario.Runner{Verbose: cfg.Verbose, Strict: cfg.Strict}
			rep := runner.Run(ctx, selected)
			printReport(cmd.OutOrStdout(), rep)
			*exitCode = rep.ExitCode()
			return nil
		},
	}
}

func loadConfig(opts *options) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.configFile != "" {
		cfg, err = config.LoadFiles(opts.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}

	if opts.toolstack != "" {
		cfg.Toolstack.Binary = opts.toolstack
	}
	if opts.workDir != "" {
		cfg.Domain.WorkDir = opts.workDir
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.verbose {
		cfg.Verbose = true
	}
	if opts.strict {
		cfg.Strict = true
	}
	return cfg, nil
}

func newController(cfg config.Config) (*domain.Controller, error) {
	kind, path, err := pedestal.DetectToolstack(cfg.Toolstack.Binary)
	if err != nil {
		return nil, err
	}
	if err := pedestal.CheckXen(); err != nil {
		log.WithError(err).Warnf("assuming %s talks to a remote or simulated hypervisor", path)
	}
	log.WithField("toolstack", kind.String()).WithField("path", path).Debug("toolstack selected")

	ts := pedestal.NewToolstack(kind, path, cmdtrace.NewRunner(cfg.Toolstack.Timeout))
	defaults := domain.Config{
		MemoryMB: cfg.Domain.MemoryMB,
		VCPUs:    cfg.Domain.VCPUs,
		Kernel:   cfg.Domain.Kernel,
		Ramdisk:  cfg.Domain.Ramdisk,
		Root:     cfg.Domain.Root,
		CPUs:     cfg.Domain.CPUs,
	}
	return domain.NewController(ts, cfg.Domain.WorkDir, defaults), nil
}

// allScenarios is the explicit registry; ctrl may be nil when only the names
// are needed.
func allScenarios(ctrl *domain.Controller) []scenario.Scenario {
	var all []scenario.Scenario
	all = append(all, sedf.Scenarios(ctrl)...)
	return all
}

func printReport(w io.Writer, rep scenario.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range rep.Results {
		msg := r.Message
		if r.CleanupErr != nil {
			msg += fmt.Sprintf(" (cleanup: %v)", r.CleanupErr)
		}
		fmt.Fprintf(tw, "%s:\t%s\t%s\t%s\n", r.Verdict, r.ID(), r.Duration.Round(1e6), msg)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d passed, %d failed, %d skipped\n", rep.Passed, rep.Failed, rep.Skipped)
}
