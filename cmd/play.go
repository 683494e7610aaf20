package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"Lyra/config"
	"Lyra/core/notify"
	"Lyra/core/player"
	"Lyra/core/playlist"
	"Lyra/logger"
	"Lyra/server"

	"github.com/spf13/cobra"
)

var foreground bool

var playCmd = &cobra.Command{
	Use:     "play",
	Aliases: []string{"p"},
	Short:   "Start the playlist daemon",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		running, err := server.Running(cfg.SocketPath)
		if err != nil {
			return withCode(ExitIOError, err)
		}
		if running {
			fmt.Println("server already running")
			return nil
		}
		if !foreground {
			return detach()
		}
		return runDaemon(cmd.Context(), cfg)
	},
}

// detach starts the daemon again in its own session and returns.
func detach() error {
	self, err := os.Executable()
	if err != nil {
		return err
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return withCode(ExitIOError, err)
	}
	defer devnull.Close()

	c := exec.Command(self, "play", "--foreground")
	c.Stdin = devnull
	c.Stdout = devnull
	c.Stderr = devnull
	c.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := c.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	fmt.Printf("daemon started (pid %d)\n", c.Process.Pid)
	return c.Process.Release()
}

func runDaemon(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPlayer(cfg)
	if cfg.Player == config.PlayerMocp {
		self, err := os.Executable()
		if err != nil {
			return err
		}
		changed, err := player.ConfigureMocp(cfg.MocpConfig, self)
		if err != nil {
			logger.Warn("failed to install mocp OnStop hook", logger.ErrorField(err))
		} else if changed {
			logger.Info("installed mocp OnStop hook", logger.String("config", cfg.MocpConfig))
		}
	}
	if err := player.Connect(ctx, p); err != nil {
		return withCode(ExitPlayerError, err)
	}

	store, fileStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return withCode(ExitIOError, err)
	}
	defer closeStore()

	pl := playlist.New(store, playlist.WithImport(cfg.MocpPlaylistFile))
	if err := pl.Load(ctx); err != nil {
		return withCode(ExitIOError, err)
	}
	logger.Info("playlist loaded", logger.Int("songs", pl.Len()), logger.Int("points", pl.Points()))

	notifier := notify.New(cfg.UseNotify, "Lyra started")
	defer notifier.Close()
	if cfg.NotifyOnStartup {
		if err := notifier.Show(ctx); err != nil {
			logger.Warn("failed to show notification", logger.ErrorField(err))
		}
	}

	recorder, closeHistory := openHistory(cfg)
	defer closeHistory()

	opts := []server.DaemonOption{server.WithNotifier(notifier), server.WithHistory(recorder)}
	var hub *server.Hub
	if cfg.HTTPAddr != "" {
		hub = server.NewHub()
		go hub.Run(ctx)
		opts = append(opts, server.WithHub(hub))
	}
	d := server.NewDaemon(pl, p, opts...)

	ln, err := server.Listen(cfg.SocketPath)
	if err != nil {
		return withCode(ExitIOError, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if fileStore != nil {
		go func() {
			err := playlist.Watch(ctx, fileStore, func() {
				logger.Info("playlist changed on disk")
				d.Dispatch(ctx, server.CmdRefresh)
			})
			if err != nil {
				logger.Warn("playlist watcher stopped", logger.ErrorField(err))
			}
		}()
	}
	if sw, ok := p.(player.StopWatcher); ok {
		go func() {
			err := sw.Watch(ctx, func() {
				// 失败时 Dispatch 会停掉 daemon，Run 随之返回
				d.Dispatch(ctx, server.CmdSoftNext)
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn("player watcher stopped", logger.ErrorField(err))
			}
		}()
	}
	if cfg.HTTPAddr != "" {
		api := server.NewAPI(d, hub)
		go func() {
			if err := api.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
				logger.Error("HTTP control stopped", logger.ErrorField(err))
			}
		}()
	}

	logger.Info("daemon started",
		logger.String("socket", cfg.SocketPath),
		logger.String("player", cfg.Player),
		logger.Bool("notify", cfg.UseNotify),
		logger.Bool("http", cfg.HTTPAddr != ""))
	if err := d.Run(ctx, ln); err != nil {
		return withCode(ExitPlayerError, err)
	}
	logger.Info("daemon stopped")
	return nil
}

// sayCommand returns a command that sends cmd to the daemon.
func sayCommand(use, short string, cmd server.Command, aliases ...string) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Aliases: aliases,
		Short:   short,
		Args:    cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ok, err := server.Say(cfg.SocketPath, cmd)
			if err != nil {
				return withCode(ExitIOError, err)
			}
			if !ok {
				return withCode(ExitNoAction, errNotRunning)
			}
			return nil
		},
	}
}

var quitCmd = &cobra.Command{
	Use:     "quit",
	Aliases: []string{"q"},
	Short:   "Stop the daemon and the player",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := server.Say(cfg.SocketPath, server.CmdQuit)
		if err != nil {
			return withCode(ExitIOError, err)
		}
		if ok {
			return nil
		}
		// no daemon, stop the player ourselves
		err = newPlayer(cfg).Shutdown(cmd.Context())
		if err != nil && !errors.Is(err, player.ErrNotRunning) {
			return withCode(ExitPlayerError, err)
		}
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:     "add FILE|-",
	Aliases: []string{"a"},
	Short:   "Add the songs listed in FILE (one per line, - for stdin)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return withCode(ExitIOError, err)
			}
			defer f.Close()
			r = f
		}

		ctx := cmd.Context()
		store, _, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return withCode(ExitIOError, err)
		}
		defer closeStore()

		pl := playlist.New(store, playlist.WithImport(cfg.MocpPlaylistFile))
		if err := pl.Load(ctx); err != nil {
			return withCode(ExitIOError, err)
		}
		added, err := addSongs(ctx, pl, r)
		if err != nil {
			return withCode(ExitIOError, err)
		}
		fmt.Printf("added %d songs\n", added)

		if _, err := server.Say(cfg.SocketPath, server.CmdRefresh); err != nil {
			logger.Warn("failed to notify daemon", logger.ErrorField(err))
		}
		return nil
	},
}

// addSongs adds every file named in r. Files that cannot be added are logged
// and skipped.
func addSongs(ctx context.Context, pl *playlist.Playlist, r io.Reader) (int, error) {
	added := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		file := strings.TrimSpace(scanner.Text())
		if file == "" {
			continue
		}
		err := pl.Add(ctx, file)
		switch {
		case err == nil:
			added++
		case errors.Is(err, playlist.ErrDuplicate), errors.Is(err, playlist.ErrNotFile):
			logger.Warn("skipping", logger.String("file", file), logger.ErrorField(err))
		default:
			return added, err
		}
	}
	return added, scanner.Err()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("lyra", version)
	},
}

func init() {
	playCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "stay in the terminal instead of detaching")

	rootCmd.AddCommand(
		playCmd,
		sayCommand("next", "Play another song", server.CmdNext, "n"),
		sayCommand("up", "Rank the current song up", server.CmdUp, "u"),
		sayCommand("down", "Rank the current song down", server.CmdDown, "d"),
		sayCommand("exit", "Stop the daemon, keep the player running", server.CmdExit, "x"),
		quitCmd,
		addCmd,
		versionCmd,
	)
}
