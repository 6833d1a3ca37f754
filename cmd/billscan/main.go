package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/fairshare/billscan/internal/extract"
	"github.com/fairshare/billscan/internal/receipt"
	"github.com/fairshare/billscan/internal/vision"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("billscan")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "billscan.db", "Database file path")
		storagePath    = fs.StringLong("storage", "./receipts", "Storage directory path")
		recognizerType = fs.StringLong("recognizer", "gemini", "Text recognizer: 'gemini' or 'tesseract'")
		detectorType   = fs.StringLong("detector", "gemini", "Rectangle detector: 'gemini' or 'remote'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		tessLanguage   = fs.StringLong("tesseract-lang", "eng", "Tesseract language code")
		detectorURL    = fs.StringLong("detector-url", "http://localhost:9470", "Remote detector base URL")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("BILLSCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize database
	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// The recognizer- and detector-backed Gemini client is shared when both
	// concerns point at Gemini, so only one API client gets created.
	var gemini *vision.Gemini
	needGemini := *recognizerType == "gemini" || *detectorType == "gemini"
	if needGemini {
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini...", "model", *geminiModel)
		gemini, err = vision.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
	}

	// Initialize text recognizer based on type
	var recognizer vision.TextRecognizer
	switch *recognizerType {
	case "gemini":
		recognizer = gemini
	case "tesseract":
		slog.Info("Initializing Tesseract recognizer...", "language", *tessLanguage)
		recognizer, err = vision.NewTesseract(*tessLanguage)
		if err != nil {
			slog.Error("Failed to initialize Tesseract", "error", err)
			os.Exit(1)
		}
		defer recognizer.Close()
	default:
		slog.Error("Invalid recognizer type", "type", *recognizerType, "valid", "gemini or tesseract")
		os.Exit(1)
	}

	// Initialize rectangle detector based on type
	var detector vision.RectangleDetector
	switch *detectorType {
	case "gemini":
		detector = gemini
	case "remote":
		slog.Info("Initializing remote detector...", "url", *detectorURL)
		detector, err = vision.NewRemoteDetector(*detectorURL)
		if err != nil {
			slog.Error("Failed to initialize remote detector", "error", err)
			os.Exit(1)
		}
		defer detector.Close()
	default:
		slog.Error("Invalid detector type", "type", *detectorType, "valid", "gemini or remote")
		os.Exit(1)
	}

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize service
	pipeline := extract.NewPipeline(detector, recognizer)
	receiptService := receipt.NewService(db, pipeline, store)

	// Initialize server
	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
