package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagUploadActivate bool
	flagDownloadOut    string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <machine-id> <index.json>",
	Short: "Register an index document as a new version for a machine",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		svc, cleanup, err := newService()
		if err != nil {
			return err
		}
		defer cleanup()

		v, err := svc.CreateVersion(cmd.Context(), args[0], raw)
		if err != nil {
			return err
		}
		fmt.Printf("Created version %s for %s (%d chunks, %d errors)\n",
			v.VersionID, v.MachineID, v.TotalChunks, v.TotalErrors)

		if flagUploadActivate {
			if _, err := svc.Activate(cmd.Context(), v.MachineID, v.VersionID); err != nil {
				return err
			}
			fmt.Printf("Activated %s\n", v.VersionID)
		}
		return nil
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate <machine-id> <version-id>",
	Short: "Make a version the machine's active index",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService()
		if err != nil {
			return err
		}
		defer cleanup()

		v, err := svc.Activate(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Activated %s for %s\n", v.VersionID, v.MachineID)
		return nil
	},
}

var versionsCmd = &cobra.Command{
	Use:   "versions <machine-id>",
	Short: "List index versions for a machine, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService()
		if err != nil {
			return err
		}
		defer cleanup()

		list, err := svc.ListVersions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Printf("No versions for %s\n", args[0])
			return nil
		}
		for _, v := range list {
			marker := " "
			if v.IsActive {
				marker = "*"
			}
			fmt.Printf("%s %s  %s  %6d chunks  %5d errors\n",
				marker, v.VersionID, v.CreatedAt.Format(time.RFC3339), v.TotalChunks, v.TotalErrors)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <machine-id> <version-id>",
	Short: "Delete a version; if it was active, the newest remaining one takes over",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := svc.Delete(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[1])
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <machine-id> <version-id>",
	Short: "Fetch a version's stored index document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService()
		if err != nil {
			return err
		}
		defer cleanup()

		raw, v, err := svc.Download(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if flagDownloadOut == "" || flagDownloadOut == "-" {
			_, err = os.Stdout.Write(raw)
			return err
		}
		if err := os.WriteFile(flagDownloadOut, raw, 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (version %s of %s)\n", flagDownloadOut, v.VersionID, v.MachineID)
		return nil
	},
}

func init() {
	uploadCmd.Flags().BoolVar(&flagUploadActivate, "activate", false, "activate the version after upload")
	downloadCmd.Flags().StringVar(&flagDownloadOut, "out", "", "output path (default stdout)")
	rootCmd.AddCommand(uploadCmd, activateCmd, versionsCmd, deleteCmd, downloadCmd)
}
