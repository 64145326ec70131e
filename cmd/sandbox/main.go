// Command sandbox is a console driver for the item lifecycle controller.
// It exercises the full flow against a running backend: load the item list,
// optionally upload an asset (which triggers the enrichment pipeline), then
// run a similarity search.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"design-sandbox-be/internal/entity"
	"design-sandbox-be/internal/pkg/logger"
	"design-sandbox-be/pkg/gateway"
	"design-sandbox-be/pkg/lifecycle"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

type consoleNotifier struct{}

func (consoleNotifier) Toast(level string, msg string) {
	switch level {
	case lifecycle.ToastError:
		color.Red("  ✗ %s", msg)
	case lifecycle.ToastSuccess:
		color.Green("  ✓ %s", msg)
	default:
		color.Cyan("  · %s", msg)
	}
}

func (consoleNotifier) StateChanged(field string, value interface{}) {
	switch field {
	case "pipeline_status", "search_space":
		color.Yellow("  [state] %s = %v", field, value)
	}
}

type consoleConfirmer struct {
	in *bufio.Reader
}

func (c consoleConfirmer) Confirm(_ context.Context, msg string) (bool, error) {
	color.Yellow("%s [y/N] ", msg)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func main() {
	var (
		baseURL  = flag.String("base-url", "http://localhost:3000/api", "backend API base URL")
		upload   = flag.String("upload", "", "path of an asset to upload")
		category = flag.String("category", "", "category filter")
		query    = flag.String("query", "", "search query to run after loading")
		space    = flag.String("space", "full", "search space: briefing or full")
	)
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}
	token := os.Getenv("SANDBOX_TOKEN")

	gw := gateway.NewHTTPGateway(*baseURL, func() (string, error) {
		if token == "" {
			return "", fmt.Errorf("SANDBOX_TOKEN is not set")
		}
		return token, nil
	})

	ctrl := lifecycle.NewController(
		gw,
		consoleNotifier{},
		consoleConfirmer{in: bufio.NewReader(os.Stdin)},
		logger.NewNopLogger(),
	)

	ctx := context.Background()

	if err := ctrl.SetSearchSpace(entity.SearchSpace(*space)); err != nil {
		log.Fatalf("Invalid search space: %v", err)
	}

	color.White("Loading items...")
	if *category != "" {
		ctrl.SetCategoryFilter(ctx, *category)
	} else {
		ctrl.Load(ctx)
	}
	printItems(ctrl)

	if *upload != "" {
		color.White("Uploading %s...", *upload)
		file, err := os.Open(*upload)
		if err != nil {
			log.Fatalf("Cannot open asset: %v", err)
		}
		defer file.Close()

		item, err := ctrl.Upload(ctx, lifecycle.UploadRequest{
			CategoryId: *category,
			Title:      strings.TrimSuffix(filepath.Base(*upload), filepath.Ext(*upload)),
			FileName:   filepath.Base(*upload),
			File:       file,
		})
		if err != nil {
			os.Exit(1)
		}
		color.Green("Uploaded item %s (pipeline: %s)", item.Id, ctrl.PipelineStatus())
	}

	if *query != "" {
		color.White("Searching %q...", *query)
		ctrl.Search(ctx, *query, lifecycle.SearchModeQuery)
		printItems(ctrl)
	}
}

func printItems(ctrl *lifecycle.Controller) {
	items := ctrl.Visible()
	for _, it := range items {
		line := fmt.Sprintf("  %s  %s", it.Id, it.Title)
		if it.Score > 0 {
			line += fmt.Sprintf("  (%.2f)", it.Score)
		}
		fmt.Println(line)
	}
	color.White("%d visible, %d cached", len(items), len(ctrl.AllItems()))

	counts := ctrl.CountsByKey()
	if len(counts) > 0 {
		var parts []string
		for key, n := range counts {
			parts = append(parts, fmt.Sprintf("%s=%d", key, n))
		}
		color.White("counts: %s", strings.Join(parts, " "))
	}
}
