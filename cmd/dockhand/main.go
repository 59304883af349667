package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/dockhand"
	"github.com/cuemby/dockhand/pkg/config"
	"github.com/cuemby/dockhand/pkg/events"
	"github.com/cuemby/dockhand/pkg/host"
	"github.com/cuemby/dockhand/pkg/log"
	"github.com/cuemby/dockhand/pkg/metrics"
	"github.com/cuemby/dockhand/pkg/ready"
	"github.com/cuemby/dockhand/pkg/remote"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dockhand",
	Short: "Dockhand - supervise docker containers locally or on a remote peer",
	Long: `Dockhand drives docker containers and the processes inside them
through one uniform host abstraction: start containers, exec commands,
watch output for readiness markers, await exit codes, and stitch
co-networked containers together - against the local docker binary or
a remote dockhand peer.`,
	Version: Version,
}

var (
	flagConfig      string
	flagLogLevel    string
	flagJSONLogs    bool
	flagRemote      string
	flagToken       string
	flagUsername    string
	flagPassword    string
	flagMetricsAddr string
	flagEvents      bool
)

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Dockhand version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to YAML config file")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVar(&flagJSONLogs, "json-logs", false, "Emit JSON logs instead of console output")
	pf.StringVar(&flagRemote, "remote", "", "Base URL of a remote dockhand peer (empty: local docker)")
	pf.StringVar(&flagToken, "token", "", "Bearer token for the remote peer")
	pf.StringVar(&flagUsername, "username", "", "Username for the remote peer")
	pf.StringVar(&flagPassword, "password", "", "Password for the remote peer")
	pf.StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve /metrics, /health, /ready, /live on this address")
	pf.BoolVar(&flagEvents, "events", false, "Log lifecycle events as they happen")
}

// loadConfig merges the YAML file (if any) with command-line
// overrides; flags win.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagJSONLogs {
		cfg.Log.JSON = true
	}
	if flagRemote != "" {
		cfg.Remote.URL = flagRemote
	}
	if flagToken != "" {
		cfg.Remote.Token = flagToken
	}
	if flagUsername != "" {
		cfg.Remote.Username = flagUsername
	}
	if flagPassword != "" {
		cfg.Remote.Password = flagPassword
	}
	return cfg, nil
}

func initLogging(cfg config.Config) {
	log.Init(log.Options{
		Level: cfg.Log.Level,
		JSON:  cfg.Log.JSON,
	})
}

// session is everything a subcommand needs torn down afterwards.
type session struct {
	manager *host.Manager
	cfg     config.Config
	cleanup []func()
}

func (s *session) Close() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	_ = s.manager.Close()
}

// newSession builds the Manager (local or remote per config), wires
// the event feed, and starts the observability server when asked.
func newSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	initLogging(cfg)

	s := &session{cfg: cfg}
	var opts []host.Option

	var broker *events.Broker
	if flagEvents {
		broker = events.NewBroker()
		opts = append(opts, host.WithBroker(broker))
	}

	if cfg.Remote.URL != "" {
		creds := remote.Credentials{
			Token:    cfg.Remote.Token,
			Username: cfg.Remote.Username,
			Password: cfg.Remote.Password,
		}
		s.manager, err = dockhand.NewRemoteManager(ctx, cfg.Remote.URL, creds, opts...)
	} else {
		s.manager, err = dockhand.NewLocalManager(ctx, cfg.Docker.Binary, opts...)
	}
	if err != nil {
		return nil, err
	}

	if broker != nil {
		sub, cancel := broker.Subscribe()
		s.cleanup = append(s.cleanup, cancel)
		go feedEvents(sub)
	}

	if flagMetricsAddr != "" {
		stop := serveObservability(ctx, s.manager, flagMetricsAddr)
		s.cleanup = append(s.cleanup, stop)
	}

	return s, nil
}

func feedEvents(sub events.Subscriber) {
	logger := log.WithComponent("events")
	for ev := range sub {
		logger.Info().
			Str("type", string(ev.Type)).
			Int64("instance", int64(ev.InstanceID)).
			Str("container", ev.ContainerName).
			Msg("lifecycle event")
	}
}

// serveObservability exposes prometheus metrics and health endpoints
// for the lifetime of the command.
func serveObservability(ctx context.Context, m *host.Manager, addr string) func() {
	checker := metrics.NewChecker(Version, "daemon", "session")
	checker.Set("session", true, "")
	checker.Set("daemon", m.CheckDaemon(ctx), "")

	collector := metrics.NewCollector(m)
	collector.Start()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", checker.HealthHandler())
	mux.HandleFunc("/ready", checker.ReadyHandler())
	mux.HandleFunc("/live", checker.LiveHandler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger := log.WithComponent("metrics")
			logger.Error().Err(err).Msg("observability server failed")
		}
	}()

	return func() {
		collector.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

var (
	runName        string
	runTag         string
	runPorts       []string
	runNetwork     string
	runHostname    string
	runEnv         []string
	runVolumes     []string
	runReadyOut    string
	runReadyErr    string
	runKeep        bool
	runTimeout     time.Duration
	runAwaitExit   bool
	runOutputLimit int
)

var runCmd = &cobra.Command{
	Use:   "run IMAGE [IMAGE_ARGS...]",
	Short: "Start a container and wait until it is ready",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if runTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runTimeout)
			defer cancel()
		}

		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		spec := host.RunSpec{
			ContainerName: runName,
			Image:         args[0],
			Version:       runTag,
			Ports:         runPorts,
			Network:       runNetwork,
			Hostname:      runHostname,
			Volumes:       runVolumes,
			Env:           runEnv,
			Args:          args[1:],
		}
		if runKeep {
			keep := false
			spec.CleanContainer = &keep
		}

		opts := host.Options{OutputLimit: outputLimit(runOutputLimit, s.cfg)}
		if runReadyOut != "" {
			opts.StdoutReady = ready.ContainsMarker(runReadyOut)
		}
		if runReadyErr != "" {
			opts.StderrReady = ready.ContainsMarker(runReadyErr)
		}

		runner, err := s.manager.Run(ctx, spec, opts)
		if err != nil {
			return err
		}

		id := "(pending)"
		if cid := runner.ContainerID(); cid != nil {
			id = *cid
		}
		fmt.Printf("Instance:  %d\n", runner.InstanceID())
		fmt.Printf("Container: %s\n", runner.ContainerName())
		fmt.Printf("Image:     %s\n", runner.Image)
		fmt.Printf("ID:        %s\n", id)
		fmt.Printf("Ready:     %v\n", runner.IsReady())

		if runAwaitExit {
			code, err := runner.WaitExit(ctx, nil)
			if err != nil {
				return err
			}
			printOutput(runner.Stdout.Snapshot(), runner.Stderr.Snapshot())
			if code != nil && *code != 0 {
				os.Exit(*code)
			}
		}
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runName, "name", "", "Container name (default: auto-generated)")
	f.StringVar(&runTag, "tag", "", "Image tag")
	f.StringSliceVarP(&runPorts, "publish", "p", nil, "Port mapping host:container (repeatable)")
	f.StringVar(&runNetwork, "network", "", "Docker network to join")
	f.StringVar(&runHostname, "hostname", "", "Hostname inside the network")
	f.StringSliceVarP(&runEnv, "env", "e", nil, "Environment KEY=value (repeatable)")
	f.StringSliceVarP(&runVolumes, "volume", "v", nil, "Volume host:container (repeatable)")
	f.StringVar(&runReadyOut, "ready-stdout", "", "Stdout marker that means the container is ready")
	f.StringVar(&runReadyErr, "ready-stderr", "", "Stderr marker that means the container is ready")
	f.BoolVar(&runKeep, "keep", false, "Keep the container after exit (no --rm)")
	f.DurationVar(&runTimeout, "timeout", 0, "Overall deadline for start plus readiness")
	f.BoolVar(&runAwaitExit, "wait-exit", false, "Block until the container exits and print its output")
	f.IntVar(&runOutputLimit, "output-limit", 0, "Retained output lines per stream")
	rootCmd.AddCommand(runCmd)
}

var (
	execOutputLimit int
)

var execCmd = &cobra.Command{
	Use:   "exec NAME CMD [ARGS...]",
	Short: "Run a command inside a running container and print its output",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		process, err := s.manager.Exec(ctx, args[0], args[1], args[2:], host.Options{
			OutputLimit: outputLimit(execOutputLimit, s.cfg),
		})
		if err != nil {
			return err
		}

		code, err := process.WaitExit(ctx, nil)
		if err != nil {
			return err
		}
		printOutput(process.Stdout.Snapshot(), process.Stderr.Snapshot())
		if code != nil && *code != 0 {
			os.Exit(*code)
		}
		return nil
	},
}

func init() {
	execCmd.Flags().IntVar(&execOutputLimit, "output-limit", 0, "Retained output lines per stream")
	rootCmd.AddCommand(execCmd)
}

var commandCmd = &cobra.Command{
	Use:   "cmd CMD [ARGS...]",
	Short: "Run a bare docker sub-command through the host",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		process, err := s.manager.Command(ctx, args[0], args[1:], host.Options{})
		if err != nil {
			return err
		}

		code, err := process.WaitExit(ctx, nil)
		if err != nil {
			return err
		}
		printOutput(process.Stdout.Snapshot(), process.Stderr.Snapshot())
		if code != nil && *code != 0 {
			os.Exit(*code)
		}
		return nil
	},
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List containers on the host",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		process, err := s.manager.Command(ctx, "ps", append([]string{"-a"}, args...), host.Options{})
		if err != nil {
			return err
		}
		if _, err := process.WaitExit(ctx, nil); err != nil {
			return err
		}
		printOutput(process.Stdout.Snapshot(), process.Stderr.Snapshot())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commandCmd)
	rootCmd.AddCommand(psCmd)
}

var stopTime time.Duration

var stopCmd = &cobra.Command{
	Use:   "stop NAME",
	Short: "Stop a container by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		timeout := stopTime
		if timeout <= 0 {
			timeout = s.cfg.StopTimeout()
		}
		if err := s.manager.StopByName(ctx, args[0], timeout); err != nil {
			return err
		}
		fmt.Printf("Stopped %s\n", args[0])
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the docker daemon answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if !s.manager.CheckDaemon(ctx) {
			return fmt.Errorf("docker daemon is not answering")
		}
		fmt.Println("Daemon OK")
		return nil
	},
}

var idCmd = &cobra.Command{
	Use:   "id NAME",
	Short: "Resolve a container's ID from its name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := s.manager.ContainerIDByName(ctx, args[0])
		if err != nil {
			return err
		}
		if id == "" {
			return fmt.Errorf("no container named %s", args[0])
		}
		fmt.Println(id)
		return nil
	},
}

func init() {
	stopCmd.Flags().DurationVar(&stopTime, "time", 0, "Grace period before the daemon kills the container")
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(idCmd)
}

func outputLimit(flagValue int, cfg config.Config) int {
	if flagValue > 0 {
		return flagValue
	}
	return cfg.Stream.LineCapacity
}

func printOutput(stdout, stderr []string) {
	if len(stdout) > 0 {
		fmt.Println(strings.Join(stdout, "\n"))
	}
	if len(stderr) > 0 {
		fmt.Fprintln(os.Stderr, strings.Join(stderr, "\n"))
	}
}
