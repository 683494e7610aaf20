package cmd

import (
	"errors"
	"fmt"

	"Lyra/config"
	"Lyra/storage"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back the playlist file up to MinIO",
	Long:  `Push, pull and list copies of the playlist file in the configured MinIO bucket.`,
}

func openBackup() (*storage.Backup, error) {
	if cfg.PlaylistBackend != config.BackendFile {
		return nil, withCode(ExitUsage, errors.New("backups need the file playlist backend"))
	}
	b, err := storage.NewBackup(cfg)
	if err != nil {
		return nil, withCode(ExitUsage, err)
	}
	return b, nil
}

var backupPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the playlist file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackup()
		if err != nil {
			return err
		}
		key, err := b.Push(cmd.Context(), cfg.PlaylistFile)
		if err != nil {
			return withCode(ExitIOError, err)
		}
		fmt.Printf("%s -> %s/%s\n", cfg.PlaylistFile, cfg.MinioBucket, key)
		return nil
	},
}

var backupPullCmd = &cobra.Command{
	Use:   "pull [NAME]",
	Short: "Restore the playlist file, optionally from another backup",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackup()
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		key, err := b.Pull(cmd.Context(), cfg.PlaylistFile, name)
		if err != nil {
			return withCode(ExitIOError, err)
		}
		fmt.Printf("%s/%s -> %s\n", cfg.MinioBucket, key, cfg.PlaylistFile)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored backups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackup()
		if err != nil {
			return err
		}
		objects, stats, err := b.List(cmd.Context())
		if err != nil {
			return withCode(ExitIOError, err)
		}
		for _, obj := range objects {
			fmt.Printf("%-40s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("%d backups, %s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupPushCmd, backupPullCmd, backupListCmd)
	rootCmd.AddCommand(backupCmd)
}
