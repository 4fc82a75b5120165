package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"blob-uploader/core/config"
	"blob-uploader/core/logger"
	"blob-uploader/core/storage"
	"blob-uploader/core/telemetry"
	"blob-uploader/feature/upload"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// openContext is replaced in tests to observe storage access.
var openContext = storage.Open

func runUpload(cmd *cobra.Command, args []string) (err error) {
	provider, identity, credential := args[0], args[1], args[2]

	// 1. Load Configuration
	cfg, err := config.LoadConfig(".", cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize Logger
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logg.Sync()
	logg = logger.WithRunID(logg, uuid.NewString())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Tracing
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if serr := shutdown(context.WithoutCancel(ctx)); serr != nil {
			logg.Warn("Failed to flush traces", zap.Error(serr))
		}
	}()

	// 4. Open Storage Context
	sc, err := openContext(ctx, provider, identity, credential, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage context: %w", err)
	}
	logg.Debug("Storage context opened", zap.String("provider", provider))

	// 5. Run the workflow; the context is released whatever the outcome
	wf := upload.NewWorkflow(sc, cfg.Upload, logg, upload.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()))
	defer func() {
		if cerr := wf.Cleanup(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("failed to close storage context: %w", cerr))
		}
	}()

	return wf.UploadFile(ctx, cfg.Upload.File)
}
