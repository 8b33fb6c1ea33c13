package main

import (
	"fmt"
	"log"
	"os"

	"github.com/thoughttotable/backend/config"
	httpDelivery "github.com/thoughttotable/backend/internal/delivery/http"
	"github.com/thoughttotable/backend/internal/domain"
	"github.com/thoughttotable/backend/internal/infrastructure/cache"
	"github.com/thoughttotable/backend/internal/infrastructure/cost"
	"github.com/thoughttotable/backend/internal/infrastructure/extraction"
	"github.com/thoughttotable/backend/internal/infrastructure/retailer"
	"github.com/thoughttotable/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debug := cfg.Server.Environment == "development"

	log.Printf("Starting ThoughtToTable Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Initialize infrastructure dependencies
	searchCache := cache.NewMemoryCache()
	log.Printf("Search cache TTL: %s", cfg.Cache.TTL)

	extractionClient := extraction.NewClient(cfg.Extraction.BaseURL, cfg.Extraction.Timeout)
	if debug {
		extractionClient.SetDebug(true)
		log.Printf("Extraction client debug mode enabled")
	}
	log.Printf("Extraction service: %s", cfg.Extraction.BaseURL)

	metrics := retailer.NewMetrics()

	// Each cart run gets its own browser session; the factory defers the
	// Chrome launch until a run actually starts.
	retailerConfig := retailer.Config{
		BaseURL:           cfg.Retailer.BaseURL,
		Headless:          cfg.Retailer.Headless,
		NavigationTimeout: cfg.Retailer.NavigationTimeout,
		MaxResults:        cfg.Retailer.MaxResults,
		RequestsPerMinute: cfg.Retailer.RequestsPerMinute,
		Debug:             debug,
	}
	gatewayFactory := func() (domain.RetailerGateway, error) {
		return retailer.New(retailerConfig, metrics), nil
	}

	log.Printf("Retailer: %s (headless=%v, max_results=%d, rpm=%d)",
		cfg.Retailer.BaseURL, cfg.Retailer.Headless, cfg.Retailer.MaxResults, cfg.Retailer.RequestsPerMinute)

	// Initialize usecase layer
	builder := usecase.NewShoppingListBuilder(
		cost.NewHeuristicEstimator(),
		usecase.BuilderConfig{EnableDebugLogging: cfg.Matching.EnableDebugLogging},
	)

	runner := usecase.NewWorkflowRunner(gatewayFactory, searchCache, usecase.RunnerConfig{
		Workflow: usecase.WorkflowConfig{
			LoginTimeout:       cfg.Workflow.LoginTimeout,
			SearchConcurrency:  cfg.Workflow.SearchConcurrency,
			AddConcurrency:     cfg.Workflow.AddConcurrency,
			EnableDebugLogging: cfg.Matching.EnableDebugLogging,
		},
		Matcher: usecase.MatcherConfig{
			MinConfidence:       cfg.Matching.MinConfidence,
			EnableFuzzyMatching: cfg.Matching.EnableFuzzyMatching,
			FuzzyEditDistance:   cfg.Matching.FuzzyEditDistance,
			CacheTTL:            cfg.Cache.TTL,
			EnableDebugLogging:  cfg.Matching.EnableDebugLogging,
		},
	})

	log.Printf("Matching: confidence=%.2f, fuzzy=%v, debug=%v",
		cfg.Matching.MinConfidence,
		cfg.Matching.EnableFuzzyMatching,
		cfg.Matching.EnableDebugLogging)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(extractionClient, builder, runner, metrics.Registry)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
