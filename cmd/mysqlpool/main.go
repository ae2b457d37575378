// mysqlpool is a small operator tool around the pool: it builds one
// from a config file and runs a health probe, a statement, or a stats
// snapshot against it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stephnangue/mysqlpool/config"
	"github.com/stephnangue/mysqlpool/logger"
	"github.com/stephnangue/mysqlpool/pool"
)

var (
	flagConfig   string
	flagLogLevel string

	rootCmd = &cobra.Command{
		Use:   "mysqlpool",
		Short: "Client-side MySQL connection pool utility",
		Long: `mysqlpool builds a connection pool from a config file (.ini, .yaml or
.hcl, selected by extension) and runs one-shot operations against it.`,
		SilenceUsage: true,
	}
)

func newPool() (*pool.Pool, error) {
	log := logger.New(&logger.Config{
		Level:  logger.ParseLevel(flagLogLevel),
		Format: logger.ConsoleFormat,
		Output: os.Stderr,
	})
	return pool.Open(flagConfig, pool.WithLogger(log))
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Borrow a session and probe server liveness",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPool()
		if err != nil {
			return err
		}
		defer p.Close()

		h, err := p.Acquire()
		if err != nil {
			return err
		}
		defer h.Close()

		if !h.Session().Healthy() {
			return fmt.Errorf("server did not answer ping")
		}
		fmt.Println("ok")
		return nil
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <statement>",
	Short: "Borrow a session and run a single statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPool()
		if err != nil {
			return err
		}
		defer p.Close()

		h, err := p.Acquire()
		if err != nil {
			return err
		}
		defer h.Close()

		result, err := h.Query(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("ok: %d row(s) affected\n", result.AffectedRows)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a snapshot of the pool counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPool()
		if err != nil {
			return err
		}
		defer p.Close()

		s := p.Stats()
		fmt.Printf("total=%d idle=%d borrowed=%d max=%d\n",
			s.Total, s.Idle, s.Borrowed, s.MaxSize)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c",
		config.DefaultPath, "config file (.ini, .yaml or .hcl)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level",
		"info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
