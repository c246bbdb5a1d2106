package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mlforge/internal/config"
	"mlforge/internal/dataset"
	"mlforge/internal/stats"
	"mlforge/internal/storage/sqlite"
	"mlforge/internal/trainer"
)

var (
	// Global flags
	cfgPath string
	verbose bool
	dbPath  string
	tag     string

	// train flags
	epochs    int
	batchSize int
	seed      int64
	logEvery  int

	// import flags
	importWorkers int

	// stats flags
	filterName string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mlforge",
	Short: "mlforge trains a dense classifier over samples stored in SQLite",
	Long: `mlforge is a small training pipeline: samples are imported from CSV
into a SQLite store, preprocessed (z-score scaling, outlier removal,
train/val/test split), and used to train a feed-forward network whose
results are persisted back to the store.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the network on stored samples",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.ApplyOverrides(config.Overrides{
			DBPath:    dbPath,
			Tag:       tag,
			Epochs:    epochs,
			BatchSize: batchSize,
			Seed:      seed,
			LogEvery:  logEvery,
		})
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		result, err := trainer.Run(cmd.Context(), trainer.Deps{Store: store, Logger: logger}, cfg)
		if err != nil {
			return err
		}

		fmt.Printf("run %s: loss=%.4f val_acc=%.3f test_acc=%.3f\n",
			result.RunID, result.FinalLoss, result.ValAccuracy, result.TestAccuracy)
		if len(result.Confusion) > 0 {
			fmt.Println("confusion matrix (rows=true, cols=predicted):")
			for _, row := range result.Confusion {
				for _, v := range row {
					fmt.Printf("%6d", v)
				}
				fmt.Println()
			}
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <csv> [csv...]",
	Short: "Import CSV sample files into the store",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.ApplyOverrides(config.Overrides{DBPath: dbPath, Tag: tag})
		if cfg.DBPath == "" {
			return fmt.Errorf("db path must be set via config or --db")
		}

		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		workers := importWorkers
		if workers <= 0 {
			workers = cfg.NumWorkers
		}
		n, err := dataset.ImportCSV(cmd.Context(), store, args, cfg.Tag, workers)
		if err != nil {
			return err
		}
		logger.Info("import complete", zap.Int("samples", n), zap.String("tag", cfg.Tag))
		fmt.Printf("imported %d samples\n", n)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <csv>",
	Short: "Print summary statistics for a one-column CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := stats.FromCSV(args[0])
		if err != nil {
			return err
		}

		data := p.ApplyFilter(filterName)
		summary, err := stats.Summarize(cmd.Context(), data)
		if err != nil {
			return err
		}
		filtered := stats.NewProcessor(p.Name())
		filtered.AddAll(data)
		mean, _ := filtered.Mean()
		median, _ := filtered.Median()

		fmt.Printf("count=%d min=%g max=%g sum=%g\n",
			summary.Count, summary.Min, summary.Max, summary.Sum)
		fmt.Printf("mean=%g median=%g stddev=%g\n", mean, median, stats.StdDev(data))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "configs/demo.yaml", "Path to YAML config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Override SQLite database path")
	rootCmd.PersistentFlags().StringVar(&tag, "tag", "", "Override sample tag")

	trainCmd.Flags().IntVar(&epochs, "epochs", 0, "Number of training epochs")
	trainCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Minibatch size (0 = full batch)")
	trainCmd.Flags().Int64Var(&seed, "seed", 0, "PRNG seed")
	trainCmd.Flags().IntVar(&logEvery, "log-every", 0, "Log every N epochs")

	importCmd.Flags().IntVar(&importWorkers, "workers", 0, "Number of CSV parse workers")

	statsCmd.Flags().StringVar(&filterName, "filter", "", "Named filter to apply before summarizing")

	rootCmd.AddCommand(trainCmd, importCmd, statsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
