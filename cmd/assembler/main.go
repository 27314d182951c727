package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yungbote/azbuka-poster/internal/alphabet"
	"github.com/yungbote/azbuka-poster/internal/cards"
	"github.com/yungbote/azbuka-poster/internal/config"
	"github.com/yungbote/azbuka-poster/internal/pkg/logger"
	"github.com/yungbote/azbuka-poster/internal/poster"
)

const usageText = `Usage: assembler <command> [flags]

Commands:
  assemble   compose generated cards into the poster grid
  scan       list which letters have a generated card
  preview    render a small contact sheet of generated cards

Flags for assemble:
  -title TEXT      poster title (default "Русский Алфавит")

Flags for preview:
  -max N           preview at most N cards (default 10)
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
	case "assemble":
		err = runAssemble(ctx, log, cfg, os.Args[2:])
	case "scan":
		err = runScan(log, cfg)
	case "preview":
		err = runPreview(ctx, log, cfg, os.Args[2:])
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

func newAssembler(log *logger.Logger, cfg config.Config) (*poster.Assembler, error) {
	store, err := cards.NewStore(log, cfg.StorageDir)
	if err != nil {
		return nil, err
	}
	layout := poster.Layout{
		Cols:        cfg.GridCols,
		Rows:        cfg.GridRows,
		CellSize:    cfg.CellSize,
		Margin:      cfg.Margin,
		CellPadding: cfg.CellPadding,
	}
	return poster.NewAssembler(log, store, cfg.OutputDir, layout, alphabet.Default(), cfg.FontPath)
}

func runAssemble(ctx context.Context, log *logger.Logger, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("assemble", flag.ExitOnError)
	title := fs.String("title", "Русский Алфавит", "poster title")
	if err := fs.Parse(args); err != nil {
		return err
	}

	asm, err := newAssembler(log, cfg)
	if err != nil {
		return err
	}
	path, report, err := asm.Assemble(ctx, *title)
	if err != nil {
		return err
	}
	fmt.Printf("Poster: %s (%s)\n", path, report.PosterInfo.Dimensions)
	fmt.Printf("Cells: %d images, %d placeholders, %d empty\n",
		report.AssemblyStats.AvailableImages,
		report.AssemblyStats.PlaceholderImages,
		report.AssemblyStats.EmptyCells)
	return nil
}

func runScan(log *logger.Logger, cfg config.Config) error {
	asm, err := newAssembler(log, cfg)
	if err != nil {
		return err
	}
	res, err := asm.Scan()
	if err != nil {
		return err
	}
	fmt.Printf("Available: %d/%d\n", len(res.Available), res.Total)
	if len(res.Missing) > 0 {
		fmt.Printf("Missing: %s\n", strings.Join(res.Missing, " "))
	}
	return nil
}

func runPreview(ctx context.Context, log *logger.Logger, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	max := fs.Int("max", 10, "preview at most N cards")
	if err := fs.Parse(args); err != nil {
		return err
	}

	asm, err := newAssembler(log, cfg)
	if err != nil {
		return err
	}
	path, err := asm.Preview(ctx, *max)
	if err != nil {
		return err
	}
	fmt.Printf("Preview: %s\n", path)
	return nil
}
