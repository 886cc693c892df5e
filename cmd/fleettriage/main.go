package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleettriage/fleettriage/internal/api"
	"github.com/fleettriage/fleettriage/internal/chat"
	"github.com/fleettriage/fleettriage/internal/chat/providers"
	"github.com/fleettriage/fleettriage/internal/config"
	terrors "github.com/fleettriage/fleettriage/internal/errors"
	"github.com/fleettriage/fleettriage/internal/history"
	"github.com/fleettriage/fleettriage/internal/kb"
	"github.com/fleettriage/fleettriage/internal/logging"
	"github.com/fleettriage/fleettriage/internal/triage"
	"github.com/fleettriage/fleettriage/pkg/reporting"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "fleettriage",
	Short:   "fleettriage - IT fleet triage and troubleshooting service",
	Long:    `fleettriage scores machine fleets for critical conditions and answers troubleshooting questions from a knowledge base`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fleettriage %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

var analyzeOpts struct {
	dropNA     bool
	fillNA     string
	dedupe     bool
	topN       int
	withCharts bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dataset.csv>",
	Short: "Run a fleet analysis offline and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		var renderer triage.Renderer
		if analyzeOpts.withCharts {
			renderer = reporting.NewPDFRenderer()
		}

		analyzer := triage.NewAnalyzer(nil, renderer)
		result, err := analyzer.Analyze(cmd.Context(), f, triage.Options{
			DropNA:           analyzeOpts.dropNA,
			FillNA:           analyzeOpts.fillNA,
			RemoveDuplicates: analyzeOpts.dedupe,
			TopN:             analyzeOpts.topN,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token <token>",
	Short: "Print the bcrypt hash of an API token for API_TOKEN_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Println(string(hash))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeOpts.dropNA, "drop-na", false, "drop rows with missing values")
	analyzeCmd.Flags().StringVar(&analyzeOpts.fillNA, "fill-na", "", "fill missing values: mean, median, or mode")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.dedupe, "remove-duplicates", false, "drop duplicate rows")
	analyzeCmd.Flags().IntVar(&analyzeOpts.topN, "top-n", 0, "number of top critical machines to report")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.withCharts, "charts", false, "render the PDF report artifact")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(hashTokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// noopSearcher stands in when the knowledge base is unavailable; every
// query is a miss and the router falls back to the generator.
type noopSearcher struct{}

func (noopSearcher) Search(context.Context, string, int, float64) (kb.Result, error) {
	return kb.Result{}, nil
}

func runServer() {
	logging.Init(logging.Config{
		Format:    "auto",
		Level:     "info",
		Component: "fleettriage",
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Reinitialize with configured level and format
	logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "fleettriage",
	})

	log.Info().
		Str("version", Version).
		Str("addr", cfg.ListenAddr()).
		Msg("Starting fleettriage")

	hist, err := history.NewStore(filepath.Join(cfg.DataPath, "runs.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open analysis history")
	}
	defer hist.Close()

	analyzer := triage.NewAnalyzer(nil, reporting.NewPDFRenderer())

	gen := providers.NewOpenAIClient(cfg.GeneratorAPIKey, cfg.GeneratorModel, cfg.GeneratorURL, cfg.GeneratorTimeout)

	var searcher chat.Searcher = noopSearcher{}
	retriever, kbWatcher, err := buildRetriever(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.KBPath).Msg("Knowledge base is invalid")
	}
	if retriever != nil {
		searcher = retriever
	}
	if kbWatcher != nil {
		if err := kbWatcher.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start knowledge base watcher")
		}
		defer kbWatcher.Stop()
	}

	sessions := chat.NewStore(cfg.SessionMaxAge)
	stopSweeper := make(chan struct{})
	sessions.StartSweeper(stopSweeper, cfg.SessionSweepEvery)
	defer close(stopSweeper)

	chatRouter := chat.NewRouter(sessions, searcher, gen, kb.DefaultThreshold)

	handler := api.NewRouter(cfg,
		api.NewTriageHandlers(analyzer, hist, cfg.TopCriticalDefaultN),
		api.NewChatHandlers(chatRouter),
		Version,
	)

	srv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	logging.Shutdown()
}

// buildRetriever indexes the configured knowledge base. An absent file or
// an embedder failure leaves retrieval disabled and the chat falls back
// to the generator alone, but an invalid file (missing columns, no valid
// rows) is returned as an error: serving with a silently broken knowledge
// base would masquerade as a working chatbot.
func buildRetriever(cfg *config.Config) (*kb.Retriever, *kb.Watcher, error) {
	if _, err := os.Stat(cfg.KBPath); os.IsNotExist(err) {
		log.Warn().Str("path", cfg.KBPath).Msg("Knowledge base file not found, retrieval disabled")
		return nil, nil, nil
	}

	entries, err := kb.LoadEntries(cfg.KBPath)
	if err != nil {
		return nil, nil, err
	}

	embedder := kb.NewOpenAIEmbedder(cfg.EmbedderAPIKey, cfg.EmbedderModel, cfg.EmbedderURL, cfg.GeneratorTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	retriever, err := kb.NewRetriever(ctx, embedder, entries)
	if err != nil {
		if errors.Is(err, terrors.ErrInvalidInput) {
			return nil, nil, err
		}
		log.Warn().Err(err).Msg("Failed to index knowledge base, retrieval disabled")
		return nil, nil, nil
	}

	if !cfg.KBWatch {
		return retriever, nil, nil
	}
	watcher, err := kb.NewWatcher(retriever, cfg.KBPath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create knowledge base watcher")
		return retriever, nil, nil
	}
	return retriever, watcher, nil
}
