// Package main provides the anhakit analysis HTTP server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/anhalab/anhakit/internal/adapter/catalog"
	"github.com/anhalab/anhakit/internal/adapter/paths"
	"github.com/anhalab/anhakit/internal/adapter/store"
	"github.com/anhalab/anhakit/internal/adapter/store/nemo"
	httpHandler "github.com/anhalab/anhakit/internal/http"
	"github.com/anhalab/anhakit/internal/log"
	"github.com/anhalab/anhakit/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("anha-server version %s\n", version)
		return
	}

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Load configuration from environment.
	port := getEnv("PORT", "8080")

	log.Infow("starting analysis API server",
		"port", port,
		"data_path", os.Getenv(paths.EnvData),
		"mask_path", os.Getenv(paths.EnvMask),
	)

	// Wire the analysis front: real catalog, NetCDF datasets, cached masks.
	analysis := usecase.NewAnalysis(
		catalog.Catalog{},
		nemo.Opener{},
		func(dir string) store.MaskSource { return nemo.NewMaskStore(dir) },
	)

	// Setup router.
	router := httpHandler.SetupRouter(analysis)

	// Start server.
	addr := fmt.Sprintf(":%s", port)
	log.Infow("server listening", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("anhakit analysis server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  anha-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println("  -debug         Enable debug logging")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  DATA_PATH               Simulation output directory (when not on an analysis host)")
	fmt.Println("  MASK_PATH               Directory holding ANHA4_mask.nc (when not on an analysis host)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Serve a local copy of a run")
	fmt.Println("  DATA_PATH=/data/ANHA4-WJM004-S MASK_PATH=/data/masks anha-server")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health           Health check")
	fmt.Println("  GET /v1/regions       List predefined analysis regions")
	fmt.Println("  GET /v1/files         List simulation files for a run")
	fmt.Println("  GET /v1/stats         Spatial statistics of one snapshot")
	fmt.Println("  GET /v1/timeseries    Per-snapshot statistics table (format=csv supported)")
	fmt.Println("  GET /v1/climatology   Time series with day-of-year anomaly bands (format=csv supported)")
	fmt.Println()
}
