package main

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/df07/go-gravlens/pkg/assembler"
	"github.com/df07/go-gravlens/pkg/catalog"
	"github.com/df07/go-gravlens/pkg/config"
	"github.com/df07/go-gravlens/pkg/core"
)

var (
	verbose     bool
	configPath  string
	catalogPath string
	epochName   string
	outPath     string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gravlens",
	Short: "Gravitational lensing ray-tracing engine",
	Long: `gravlens traces light backward through the curved spacetime of a
massive lens and assembles a per-pixel lensing field: deflection,
magnification, shear, convergence, and lensed spectra.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Assemble a lensing field and save a magnification map",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, cat, err := loadInputs()
		if err != nil {
			return err
		}

		if epochName != "" {
			epoch, err := catalog.EpochByName(epochName)
			if err != nil {
				return err
			}
			cfg.Features = catalog.AtmosphereFeatures(cfg.Features, epoch)
			logger.Info("using historical epoch",
				zap.String("epoch", epoch.Name),
				zap.Float64("years_ago", epoch.YearsAgo),
				zap.String("description", epoch.Description))
		}

		asm, err := assembler.New(cfg, cat, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		field, stats, err := asm.Assemble(ctx)
		if err != nil {
			return err
		}

		path := outPath
		if path == "" {
			path = filepath.Join("output",
				fmt.Sprintf("lensing_%s.png", time.Now().Format("2006-01-02_15-04-05")))
		}
		if err := saveMagnificationMap(field, path); err != nil {
			return err
		}

		fmt.Printf("Field %s assembled in %v\n", field.RunID, stats.Elapsed.Round(time.Millisecond))
		fmt.Printf("  traced %d rays with %d workers\n", stats.Traced, stats.Workers)
		fmt.Printf("  escaped %d, captured %d, occluded %d\n", stats.Escaped, stats.Captured, stats.Occluded)
		fmt.Printf("  caustic pixels %d, degraded pixels %d\n", stats.Caustics, stats.Degraded)
		fmt.Printf("Magnification map saved as %s\n", path)
		return nil
	},
}

var bodiesCmd = &cobra.Command{
	Use:   "bodies",
	Short: "List the catalog's solar bodies and the built-in epochs",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cat, err := loadInputs()
		if err != nil {
			return err
		}

		fmt.Printf("Catalog %q, lens %.3g solar masses at %.3g ly\n",
			cat.Name, cat.Lens.MassSolar, cat.Lens.DistanceLy)
		for _, b := range cat.Bodies {
			kind := "transparent"
			if b.Opaque {
				kind = "opaque"
			}
			fmt.Printf("  %-10s %s  angular radius %.2e rad, %.0f K, %d signature bands\n",
				b.ID, kind, b.AngularRadius, b.Temperature, len(b.Signature))
		}

		fmt.Println("Epochs:")
		for _, e := range catalog.Epochs() {
			fmt.Printf("  %-12s %8.2g years ago: %s\n", e.Name, e.YearsAgo, e.Description)
		}
		return nil
	},
}

func loadInputs() (config.Config, catalog.Catalog, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, catalog.Catalog{}, err
		}
	}

	cat := catalog.M87()
	if catalogPath != "" {
		var err error
		if cat, err = catalog.Load(catalogPath); err != nil {
			return cfg, cat, err
		}
	}
	return cfg, cat, nil
}

// saveMagnificationMap writes the field's signed magnification as a
// log-scaled grayscale PNG.
func saveMagnificationMap(field *core.LensingField, path string) error {
	maxMag := 0.0
	for y := 0; y < field.Height; y++ {
		for x := 0; x < field.Width; x++ {
			if m := math.Abs(field.At(x, y).Magnification); m > maxMag {
				maxMag = m
			}
		}
	}

	img := image.NewGray(image.Rect(0, 0, field.Width, field.Height))
	for y := 0; y < field.Height; y++ {
		for x := 0; x < field.Width; x++ {
			img.Pix[y*img.Stride+x] = grayLevel(field.At(x, y).Magnification, maxMag)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return png.Encode(file, img)
}

// grayLevel maps a magnification onto 0..255 with a log response, so the
// huge dynamic range near caustics does not wash out the rest of the field.
func grayLevel(mag, maxMag float64) uint8 {
	if maxMag <= 0 {
		return 0
	}
	v := math.Log1p(math.Abs(mag)) / math.Log1p(maxMag)
	if v > 1 {
		v = 1
	}
	return uint8(v * 255)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Render configuration YAML (default: built-in)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalog YAML (default: built-in M87)")

	renderCmd.Flags().StringVarP(&epochName, "epoch", "e", "", "Historical Earth epoch for the atmospheric features")
	renderCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output PNG path (default: output/lensing_<timestamp>.png)")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(bodiesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
