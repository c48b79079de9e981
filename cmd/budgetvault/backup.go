package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teamvault/budgetvault/internal/backup"
)

var backupShowURL bool

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Upload the local ledger to backup storage",
	Long:  "Upload the local database file to the configured S3-compatible bucket. With --url, also print a pre-signed link for restoring on another device.",
	RunE:  runBackup,
}

func init() {
	backupCmd.Flags().BoolVar(&backupShowURL, "url", false, "Print a pre-signed download URL after uploading")
}

func runBackup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	uploader, err := backup.NewUploader(a.cfg.Backup)
	if err != nil {
		return err
	}
	if _, ok := uploader.(*backup.NoopUploader); ok {
		return errors.New("backup storage is not configured")
	}

	ctx := context.Background()
	owner := a.ownerID()

	if err := uploader.Upload(ctx, owner, a.cfg.Database.Path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Backup uploaded")

	if backupShowURL {
		url, expiry, err := uploader.PresignedURL(ctx, owner)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Download (valid until %s):\n%s\n", expiry.Format("15:04 MST"), url)
	}
	return nil
}
