package cmd

import (
	"errors"
	"fmt"
	"os"

	"blob-uploader/core/config"
	"blob-uploader/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errUsage signals that the positional arguments are missing.
var errUsage = errors.New("usage")

// NewRootCmd builds the uploader command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blob-uploader <provider> <identity> <credential>",
		Short: "Upload a file to blob storage and read it back",
		Long: `blob-uploader puts a local file into a blob storage container, waits until the
provider reports it as existing and available, retrieves it, prints its metadata
and deletes the container again.

Providers: aws-s3, s3, minio, google-cloud-storage, transient, filesystem.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 3 {
				return errUsage
			}
			return nil
		},
		RunE:          runUpload,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.String("file", "", "Local file to upload")
	flags.String("container", "", "Container to upload into")
	flags.Duration("poll-interval", 0, "Delay between two polls")
	flags.Duration("poll-timeout", 0, "Maximum time to wait for the blob (0 disables)")
	flags.Uint64("max-attempts", 0, "Maximum number of polls per wait (0 is unlimited)")
	flags.String("endpoint", "", "Storage endpoint override")
	flags.String("region", "", "Storage region")

	for name, key := range map[string]string{
		"file":          "upload.file",
		"container":     "upload.container",
		"poll-interval": "upload.poll.interval",
		"poll-timeout":  "upload.poll.timeout",
		"max-attempts":  "upload.poll.max_attempts",
		"endpoint":      "storage.endpoint",
		"region":        "storage.region",
	} {
		// the flags are registered above, so binding cannot fail
		_ = config.BindFlag(flags, name, key)
	}

	return cmd
}

func Execute() {
	os.Exit(run(NewRootCmd()))
}

// run executes cmd and maps its outcome to a process exit code.
func run(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}

	if errors.Is(err, errUsage) {
		fmt.Fprintf(cmd.OutOrStdout(), "\nUsage: %s <provider> <identity> <credential>\n", cmd.Name())
		return 1
	}

	// We default to console format to match user expectations (CLI tool)
	// We use "debug" level configuration to get ISO8601 timestamps (DevConfig) instead of Epoch (ProdConfig)
	cfg := &logger.Config{
		Level:  "debug",
		Format: "console",
	}

	l, logErr := logger.New(cfg)
	if logErr == nil {
		l.Error("command failed", zap.Error(err))
		_ = l.Sync()
	} else {
		// Absolute fallback if logger creation fails (rare)
		fmt.Fprintln(cmd.ErrOrStderr(), err)
	}
	return 1
}
