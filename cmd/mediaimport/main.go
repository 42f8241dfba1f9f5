package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/media"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/uploader"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/workers"
)

func main() {
	apiURL := flag.String("api", envOr("FREECIPIES_API", "http://localhost:8080"), "content API base URL")
	token := flag.String("token", "", "bearer token (prompted when omitted)")
	format := flag.String("format", "webp", "encode format for sized variants: webp or avif")
	quality := flag.Int("quality", 0, "encode quality 1-100 (0 uses the server default)")
	altText := flag.String("alt", "", "alt text applied to every uploaded image")
	credit := flag.String("credit", "", "credit line applied to every uploaded image")
	original := flag.Bool("original", false, "also upload the untouched source file")
	flag.Usage = printUsage
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	apiToken := *token
	if apiToken == "" {
		apiToken = os.Getenv("FREECIPIES_TOKEN")
	}
	if apiToken == "" {
		var err error
		apiToken, err = promptToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
			os.Exit(1)
		}
	}
	if apiToken == "" {
		fmt.Fprintln(os.Stderr, "Error: a token is required")
		os.Exit(1)
	}

	if err := media.InitVips(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: libvips is required: %v\n", err)
		os.Exit(1)
	}
	defer media.ShutdownVips()

	pipeline := media.NewPipeline(workers.ForCPU(8))
	defer pipeline.Stop()

	client := uploader.New(uploader.Options{
		BaseURL:  strings.TrimRight(*apiURL, "/"),
		Token:    apiToken,
		Format:   media.ParseFormat(*format),
		Quality:  *quality,
		Pipeline: pipeline,
	})

	failures := 0
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		if err := importFile(ctx, client, path, *altText, *credit, *original); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			failures++
		}
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed\n", failures, len(files))
		os.Exit(1)
	}
}

func importFile(ctx context.Context, client *uploader.Client, path, altText, credit string, includeOriginal bool) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	baseName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	alt := altText
	if alt == "" {
		alt = strings.ReplaceAll(baseName, "-", " ")
	}

	record, err := client.Upload(ctx, source, uploader.Params{
		BaseName:        baseName,
		Name:            baseName,
		AltText:         alt,
		Credit:          credit,
		IncludeOriginal: includeOriginal,
		SourceMime:      mime.TypeByExtension(filepath.Ext(path)),
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s -> media %d (%s)\n", path, record.ID, record.URL)
	return nil
}

func promptToken() (string, error) {
	fmt.Fprint(os.Stderr, "API token: ")
	token, err := term.ReadPassword(syscall.Stdin)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(token)), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("Freecipies media import")
	fmt.Println("")
	fmt.Println("Usage: mediaimport [flags] <image file> [...]")
	fmt.Println("")
	fmt.Println("Flags:")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Println("  FREECIPIES_API   - API base URL (default: http://localhost:8080)")
	fmt.Println("  FREECIPIES_TOKEN - Bearer token, instead of the prompt")
}
