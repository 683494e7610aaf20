package cmd

import (
	"errors"
	"fmt"
	"os"

	"Lyra/config"
	"Lyra/logger"
	"Lyra/server"

	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitNoAction    = 3 // nothing to talk to, e.g. the daemon is not running
	ExitIOError     = 4
	ExitPlayerError = 5
)

var version = "0.3.0"

var cfg *config.Config

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

var errNotRunning = errors.New("server not running")

var rootCmd = &cobra.Command{
	Use:   "lyra",
	Short: "Lyra drives a music player from a weighted playlist.",
	Long: `Lyra keeps a ranked playlist, picks songs by weighted random choice and
drives mocp or MPD. Without arguments it asks a running daemon for the next song
if nothing is playing, which is what the player's OnStop hook calls.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogFile,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAge,
			Compress:   true,
		})
		if err := cfg.Validate(); err != nil {
			return withCode(ExitUsage, err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := server.Say(cfg.SocketPath, server.CmdPing)
		if err != nil {
			return withCode(ExitIOError, err)
		}
		if !ok {
			cmd.Usage()
			return withCode(ExitNoAction, nil)
		}
		if _, err := server.Say(cfg.SocketPath, server.CmdSoftNext); err != nil {
			return withCode(ExitIOError, err)
		}
		return nil
	},
}

// Execute executes the root command.
func Execute() {
	err := rootCmd.Execute()
	logger.Sync()
	if err == nil {
		return
	}

	code := ExitFailure
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
		err = ee.err
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		cmd.Usage()
		return withCode(ExitUsage, err)
	})
}
