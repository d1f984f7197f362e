package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"vinreport-workers/internal/app"
	"vinreport-workers/internal/common/config"
	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/models"
)

type generateOptions struct {
	configFile string
	paramsFile string
	logLevel   string
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Validate parameters and produce the report once",
		Long: `Validate a parameters file against the report rules, then return the
cached report or generate it, and print the artifact path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(opts.configFile)
			if err != nil {
				return err
			}
			log := logger.NewStructured(opts.logLevel, "console")
			return runGenerate(cmd.Context(), cfg, opts.paramsFile, cmd.OutOrStdout(), log)
		},
	}
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "configs/config.yaml", "configuration file")
	cmd.Flags().StringVarP(&opts.paramsFile, "json", "j", "", "file with the request parameters")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
	_ = cmd.MarkFlagRequired("json")
	return cmd
}

func runGenerate(ctx context.Context, cfg *config.Config, paramsFile string, out io.Writer, log logger.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	raw, err := os.ReadFile(paramsFile)
	if err != nil {
		return fmt.Errorf("read params: %w", err)
	}
	params, err := models.ParseParams(raw)
	if err != nil {
		return err
	}

	pipeline, err := app.BuildPipeline(ctx, cfg, false, log)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	if err := pipeline.Rules.Report.Validate(params); err != nil {
		return err
	}

	artifact, err := pipeline.Orchestrator.GetArtifact(ctx, params)
	if err != nil {
		return err
	}

	state := "generated"
	if artifact.Cached {
		state = "cached"
	}
	fmt.Fprintf(out, "%s (%s, %d bytes)\n", artifact.Path, state, artifact.Size)
	return nil
}
