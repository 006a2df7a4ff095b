// Command classify submits one image to the classification service and prints
// the verdict the way the result view shows it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anvishah1/ForReal/internal/classifier"
	"github.com/anvishah1/ForReal/internal/logging"
	"github.com/anvishah1/ForReal/internal/upload"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	baseURL := fs.String("url", envOr("CLASSIFIER_URL", classifier.DefaultBaseURL), "classification service base URL")
	file := fs.String("file", "", "image to analyze")
	timeout := fs.Duration("timeout", classifier.DefaultTimeout, "request timeout")
	verbose := fs.Bool("v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" && fs.NArg() > 0 {
		*file = fs.Arg(0)
	}
	if *file == "" {
		fmt.Fprintln(stderr, "usage: classify [-url URL] [-timeout D] [-v] -file IMAGE")
		return 2
	}

	logger, err := logging.NewConsoleLogger(*verbose)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	client := classifier.New(*baseURL, &http.Client{Timeout: *timeout}, logger)
	bundle, err := classifyFile(context.Background(), client, *file, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	printResult(stdout, bundle)
	return 0
}

func classifyFile(ctx context.Context, c upload.Classifier, path string, logger *zap.Logger) (upload.Bundle, error) {
	f, err := upload.FromPath(path)
	if err != nil {
		return upload.Bundle{}, err
	}

	sess := upload.NewSession(uuid.NewString(), c, logger)
	outcome, err := sess.Select(f)
	if err != nil {
		return upload.Bundle{}, err
	}
	if !outcome.Accepted() {
		return upload.Bundle{}, errors.New(outcome.Rejection.Message())
	}

	if _, err := sess.Submit(ctx); err != nil {
		return upload.Bundle{}, errors.New(classifier.UserMessage(err))
	}
	return sess.Handoff()
}

func printResult(w io.Writer, bundle upload.Bundle) {
	r := bundle.Result
	fmt.Fprintf(w, "%s\n", r.Verdict())
	fmt.Fprintf(w, "file:        %s\n", bundle.Filename)
	fmt.Fprintf(w, "confidence:  %s\n", percent(r.ConfidencePercent))
	fmt.Fprintf(w, "ai:          %s\n", percent(r.ProbAIPercent))
	fmt.Fprintf(w, "real:        %s\n", percent(r.ProbRealPercent))
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
