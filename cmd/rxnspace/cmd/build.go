package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/rxnspace/internal/config"
	"github.com/withObsrvr/rxnspace/internal/metrics"
	"github.com/withObsrvr/rxnspace/internal/runner"
)

var (
	buildDir            string
	buildOutput         string
	buildFormat         string
	buildCompression    string
	buildIndexLabel     string
	buildDataset        string
	buildSeparator      string
	buildAllowSeparator bool
	buildWorkers        int
	buildMaxEntries     int
	buildOverwrite      bool
	buildMetricsAddr    string
)

var buildCmd = &cobra.Command{
	Use:   "build [component.csv...]",
	Short: "Build and publish a reaction space",
	Long: "Reads one CSV per reaction component (identifier in the first column, numeric features in the rest),\n" +
		"enumerates every combination in component order and writes the reaction space.\n" +
		"Components given as arguments replace those in the config file.\n\n" +
		"An existing output is never replaced silently. If the manifest next to it (or the checkpoint,\n" +
		"when checkpointing is enabled) shows it was built from the same inputs and settings and the\n" +
		"file is unchanged, the build is skipped. Otherwise the build fails unless --overwrite is set.",
	Example: "  rxnspace build reactant1.csv reactant2.csv\n" +
		"  rxnspace build --dir ./screen --format parquet halides.csv amines.csv.zst",
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVarP(&buildDir, "dir", "d", "", "Directory to read components from and write the output to")
	f.StringVarP(&buildOutput, "output", "o", "", "Output filename (default reaction_space.csv)")
	f.StringVar(&buildFormat, "format", "", "Output format: csv, parquet")
	f.StringVar(&buildCompression, "compression", "", "Output compression: none, zstd (csv); none, snappy, zstd (parquet)")
	f.StringVar(&buildIndexLabel, "index-label", "", "Header of the identifier column")
	f.StringVar(&buildDataset, "dataset", "", "Dataset name, used as output subdirectory and lineage key")
	f.StringVar(&buildSeparator, "separator", "", "Separator joining component identifiers (default \".\")")
	f.BoolVar(&buildAllowSeparator, "allow-separator", false, "Accept identifiers that contain the separator")
	f.IntVarP(&buildWorkers, "workers", "w", 0, "Goroutines filling the reaction space")
	f.IntVar(&buildMaxEntries, "max-entries", 0, "Refuse to build more entries than this (0 = unlimited)")
	f.BoolVar(&buildOverwrite, "overwrite", false, "Replace an existing output")
	f.StringVar(&buildMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while building")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	applyBuildFlags(cmd, &cfg)
	if err := validate(cfg); err != nil {
		return err
	}
	log := setupLogging(cfg)

	if cfg.Metrics.Enabled {
		metrics.Init("rxnspace")
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
		log.Info("serving metrics", "address", cfg.Metrics.Address)
	}

	ctx := cmd.Context()
	r, err := runner.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warn("close runner", "error", err)
		}
	}()

	res, err := r.Run(ctx)
	if errors.Is(err, runner.ErrSpaceExists) {
		fmt.Fprintln(cmd.OutOrStdout(), "reaction space is up to date")
		return nil
	}
	if err != nil {
		if ctx.Err() != nil {
			slog.Info("build interrupted")
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d reactions x %d features to %s\n",
		res.Entries, res.Schema.Width(), res.Publish.OutputURI)
	return nil
}

// applyBuildFlags overlays the flags the user set on cfg.
func applyBuildFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("dir") {
		cfg.Source.Dir = buildDir
		cfg.Storage.Dir = buildDir
	}
	if f.Changed("output") {
		cfg.Output.Filename = buildOutput
	}
	if f.Changed("format") {
		cfg.Output.Format = buildFormat
	}
	if f.Changed("compression") {
		cfg.Output.Compression = buildCompression
	}
	if f.Changed("index-label") {
		cfg.Output.IndexLabel = buildIndexLabel
	}
	if f.Changed("dataset") {
		cfg.Space.Dataset = buildDataset
	}
	if f.Changed("separator") {
		cfg.Space.Separator = buildSeparator
	}
	if f.Changed("allow-separator") {
		cfg.Space.AllowSeparator = buildAllowSeparator
	}
	if f.Changed("workers") {
		cfg.Space.Workers = buildWorkers
	}
	if f.Changed("max-entries") {
		cfg.Space.MaxEntries = buildMaxEntries
	}
	if f.Changed("overwrite") {
		cfg.Storage.AllowOverwrite = buildOverwrite
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = buildMetricsAddr
	}
}
