package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"Lyra/core/mplayer"

	"github.com/spf13/cobra"
)

var mplayerFIFO string

var mplayerCmd = &cobra.Command{
	Use:   "mplayer",
	Short: "Control mplayer in slave mode",
}

var mplayerSendCmd = &cobra.Command{
	Use:   "send CMD...",
	Short: "Write a slave command into a running mplayer's FIFO",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if mplayerFIFO == "" {
			return withCode(ExitUsage, errors.New("--fifo is required"))
		}
		m := mplayer.New(mplayer.Options{Mode: mplayer.ModeFIFO, FIFO: mplayerFIFO})
		if _, err := m.Do(strings.Join(args, " ")); err != nil {
			if errors.Is(err, mplayer.ErrFIFOMissing) || errors.Is(err, mplayer.ErrNoReader) {
				return withCode(ExitNoAction, err)
			}
			return withCode(ExitIOError, err)
		}
		return nil
	},
}

var mplayerPlayCmd = &cobra.Command{
	Use:   "play FILE...",
	Short: "Play files, reading slave commands from stdin",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := mplayer.Options{Path: cfg.MPlayerPath, Mode: mplayer.ModePipe}
		if mplayerFIFO != "" {
			opts.Mode = mplayer.ModeFIFO
			opts.FIFO = mplayerFIFO
		}
		m := mplayer.New(opts)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if err := m.Start(ctx, args...); err != nil {
			return withCode(ExitPlayerError, err)
		}

		exited := make(chan error, 1)
		go func() { exited <- m.Wait(context.Background()) }()

		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		for {
			select {
			case err := <-exited:
				fmt.Print(m.Output())
				return err
			case line, ok := <-lines:
				if !ok {
					return m.Quit(ctx)
				}
				if strings.TrimSpace(line) == "" {
					continue
				}
				out, err := m.Do(line)
				if err != nil {
					return withCode(ExitPlayerError, err)
				}
				fmt.Print(out)
			}
		}
	},
}

func init() {
	mplayerCmd.PersistentFlags().StringVar(&mplayerFIFO, "fifo", "", "command FIFO (play uses stdin pipes when empty)")
	mplayerCmd.AddCommand(mplayerSendCmd, mplayerPlayCmd)
	rootCmd.AddCommand(mplayerCmd)
}
