package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/azbuka-poster/internal/alphabet"
	"github.com/yungbote/azbuka-poster/internal/cards"
	"github.com/yungbote/azbuka-poster/internal/clients/gcp"
	"github.com/yungbote/azbuka-poster/internal/clients/openai"
	"github.com/yungbote/azbuka-poster/internal/config"
	"github.com/yungbote/azbuka-poster/internal/pkg/logger"
)

const usageText = `Usage: coordinator <command> [flags]

Commands:
  generate   generate card images for the alphabet
  status     show which letters already have cards
  cleanup    delete all generated files

Flags for generate:
  -resume LETTER   start from this letter
  -limit N         process at most N pairs
  -config FILE     load letter/word pairs from a YAML or JSON file

Flags for cleanup:
  -confirm         skip the interactive prompt
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usageText)
		os.Exit(2)
	}

	_ = godotenv.Load()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.Load(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "generate":
		err = runGenerate(ctx, log, cfg, os.Args[2:])
	case "status":
		err = runStatus(log, cfg)
	case "cleanup":
		err = runCleanup(log, cfg, os.Args[2:])
	default:
		fmt.Printf("unknown command %q\n\n%s", os.Args[1], usageText)
		stop()
		log.Sync()
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", "command", os.Args[1], "error", err)
		stop()
		log.Sync()
		os.Exit(1)
	}
}

func loadPairs(path string) ([]alphabet.Pair, error) {
	if path == "" {
		return alphabet.Default(), nil
	}
	return alphabet.LoadPairsFile(path)
}

func runGenerate(ctx context.Context, log *logger.Logger, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	resume := fs.String("resume", "", "start from this letter")
	limit := fs.Int("limit", 0, "process at most N pairs")
	pairsFile := fs.String("config", "", "letter/word pairs file (YAML or JSON)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	pairs, err := loadPairs(*pairsFile)
	if err != nil {
		return err
	}

	store, err := cards.NewStore(log, cfg.StorageDir)
	if err != nil {
		return err
	}

	ai, err := openai.NewClient(log, openai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.ImageModel,
		Size:       cfg.ImageSize,
		Quality:    cfg.ImageQuality,
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.HTTPMaxRetries,
	})
	if err != nil {
		return err
	}

	var ocr gcp.OCR
	if v, verr := gcp.NewVision(log, cfg.OCRLanguages); verr != nil {
		log.Warn("ocr client unavailable, text validation will be skipped", "error", verr)
	} else {
		ocr = v
		defer v.Close()
	}

	validator := cards.NewValidator(log, ocr, cards.ValidatorConfig{
		MinBytes:        cfg.MinImageBytes,
		MaxBytes:        cfg.MaxImageBytes,
		MinDim:          cfg.MinImageDim,
		SquareTolerance: cfg.SquareTolerance,
	})
	gen := cards.NewAdaptiveGenerator(log, ai, validator, store, cards.GeneratorInfo{
		Model:        cfg.ImageModel,
		ImageSize:    cfg.ImageSize,
		ImageQuality: cfg.ImageQuality,
	})
	coord, err := cards.NewBatchCoordinator(log, gen, store, cfg.OutputDir, cfg.RateLimit, cfg.MaxAttempts)
	if err != nil {
		return err
	}

	selected := coord.SelectPairs(pairs, *resume, *limit)
	start := time.Now()
	results := coord.Run(ctx, selected)
	duration := time.Since(start)

	reportPath, rerr := coord.WriteReport(results, selected, duration)
	if rerr != nil {
		log.Error("write report failed", "error", rerr)
	}

	summary := cards.Summarize(results, duration, cfg.RateLimit)
	fmt.Printf("\nBatch complete: %d/%d successful (%d cached, %d failed) in %.1fs\n",
		summary.Successful, summary.Total, summary.Cached, summary.Failed, summary.DurationSeconds)
	if reportPath != "" {
		fmt.Printf("Report: %s\n", reportPath)
	}
	if ctx.Err() != nil {
		fmt.Printf("Interrupted after %d of %d pairs; rerun with -resume to continue\n",
			len(results), len(selected))
	}

	// Individual pair failures are recorded in the report, not the exit code.
	return rerr
}

func runStatus(log *logger.Logger, cfg config.Config) error {
	store, err := cards.NewStore(log, cfg.StorageDir)
	if err != nil {
		return err
	}
	coord, err := cards.NewBatchCoordinator(log, nil, store, cfg.OutputDir, 0, 0)
	if err != nil {
		return err
	}
	st, err := coord.Status(alphabet.Default())
	if err != nil {
		return err
	}
	fmt.Printf("Generated: %d/%d (%.1f%%)\n", st.GeneratedCount, st.Total, st.Completion)
	if len(st.MissingLetters) > 0 {
		fmt.Printf("Missing: %s\n", strings.Join(st.MissingLetters, " "))
	}
	return nil
}

func runCleanup(log *logger.Logger, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	confirm := fs.Bool("confirm", false, "skip the interactive prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*confirm {
		fmt.Printf("Delete all files under %s? [y/N] ", cfg.StorageDir)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if ans := strings.ToLower(strings.TrimSpace(line)); ans != "y" && ans != "yes" {
			fmt.Println("Aborted")
			return nil
		}
	}

	store, err := cards.NewStore(log, cfg.StorageDir)
	if err != nil {
		return err
	}
	coord, err := cards.NewBatchCoordinator(log, nil, store, cfg.OutputDir, 0, 0)
	if err != nil {
		return err
	}
	n, err := coord.Cleanup()
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d files\n", n)
	return nil
}
