// Command kernel runs the causal-reasoning kernel: it seeds a System,
// optionally reloads persisted models and composite states, then drives
// the outer loop either against a connected transport collaborator or,
// with none configured, against a closed-loop demo that narrates each
// planned command to the log (generalized from the teacher's
// cmd/example, which was a thin main calling straight into library
// demo functions).
package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gitrdm/causalkernel/internal/logging"
	"github.com/gitrdm/causalkernel/pkg/kernel"
	"github.com/gitrdm/causalkernel/pkg/seed"
	"github.com/gitrdm/causalkernel/pkg/store"
	"github.com/gitrdm/causalkernel/pkg/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		seedName   string
		listen     string
		persist    string
	)

	cmd := &cobra.Command{
		Use:   "kernel",
		Short: "Run the causal-reasoning kernel's outer loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			var lvl slog.Level
			if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("log-level: %w", err)
			}
			logging.Init(lvl)

			cfg, err := loadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if seedName != "" {
				cfg.Seed = seedName
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if persist != "" {
				cfg.Persist = persist
			}

			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&seedName, "seed", "", "seed function name (overrides config)")
	cmd.Flags().StringVar(&listen, "listen", "", "TCP address to accept a transport collaborator on (empty runs the demo loop)")
	cmd.Flags().StringVar(&persist, "persist", "", "badger directory for persisted models/composite-states (empty is in-memory)")

	return cmd
}

func run(cfg cliConfig) error {
	seedFn, ok := seed.Registry[cfg.Seed]
	if !ok {
		return fmt.Errorf("unknown seed %q", cfg.Seed)
	}

	sys := kernel.NewSystem(cfg.kernelConfig())
	seedFn(sys)

	st, err := store.Open(cfg.Persist)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if models, err := st.LoadModels(); err != nil {
		return fmt.Errorf("load models: %w", err)
	} else {
		for id, m := range models {
			sys.Models[id] = m
		}
	}
	if csts, err := st.LoadCsts(); err != nil {
		return fmt.Errorf("load composite states: %w", err)
	} else {
		for id, c := range csts {
			sys.Csts[id] = c
		}
	}

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	var obs kernel.Observer
	var emit kernel.Emitter
	if cfg.Listen != "" {
		ln, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		defer ln.Close()
		logging.L().Info("waiting for transport collaborator", "addr", cfg.Listen)
		conn, _, err := transport.Accept(ln, transport.StartMessage{})
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		defer conn.Close()
		obs, emit = conn, conn
	} else {
		d := &demoLoop{sys: sys}
		obs, emit = d, d
	}

	kernel.Run(sys, obs, emit, stop)

	if err := st.SaveModels(sys.Models); err != nil {
		return fmt.Errorf("save models: %w", err)
	}
	if err := st.SaveCsts(sys.Csts); err != nil {
		return fmt.Errorf("save composite states: %w", err)
	}
	return nil
}

// demoLoop stands in for a transport collaborator when --listen is
// unset: it reports no externally-observed change each tick and logs
// whatever command the planner emits, so the binary is runnable without
// a connected controller (the teacher's cmd/example demonstrated the
// library the same way, by calling straight into it with no external
// process).
type demoLoop struct {
	sys *kernel.System
}

func (d *demoLoop) Observe() map[kernel.EntityVariableKey]kernel.Value {
	return nil
}

func (d *demoLoop) Emit(cmd *kernel.Command) {
	if cmd == nil {
		logging.L().Info("tick: no_action")
		return
	}
	logging.L().Info("tick: planned command", "name", cmd.Name, "entity", cmd.Entity, "params", cmd.Params)
}
