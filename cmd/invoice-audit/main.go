package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"invoice-audit/internal/discovery"
	"invoice-audit/internal/parts"
	"invoice-audit/internal/processing"
	"invoice-audit/internal/scanning"
	"invoice-audit/internal/validation"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("invoice-audit")
	var (
		dbPath        = fs.StringLong("db", "parts.db", "Parts price list database path")
		auditPath     = fs.StringLong("audit-log", "audit.log", "Discovery audit log path")
		configPath    = fs.StringLong("config", "", "TOML file overriding validation thresholds")
		rulesPath     = fs.StringLong("rules", "", "YAML file with custom business rules")
		extractorType = fs.StringLong("extractor", "pdf", "Text extractor: 'pdf', 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set INVOICE_AUDIT_GEMINI_KEY)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		policy        = fs.StringLong("policy", "", "Unknown part policy: 'skip' or 'defer' (default: interactive prompt when on a terminal, skip otherwise)")
		promptTimeout = fs.DurationLong("prompt-timeout", 0, "Give up on an unanswered prompt after this long (treated as skip)")
		watchDir      = fs.StringLong("watch", "", "Watch a directory and validate invoices as they arrive")
		showStats     = fs.BoolLong("stats", "Print price list statistics after the run")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_AUDIT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	files := fs.GetArgs()
	if len(files) == 0 && *watchDir == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: no invoice files given and --watch not set")
		os.Exit(1)
	}

	cfg := validation.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = validation.LoadConfig(*configPath)
		if err != nil {
			slog.Error("Failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Opening parts database...", "path", *dbPath)
	store, err := parts.NewBoltStore(*dbPath)
	if err != nil {
		slog.Error("Failed to open parts database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	extractor, err := buildExtractor(*extractorType, *geminiKey, *geminiModel, *ollamaURL, *ollamaModel)
	if err != nil {
		slog.Error("Failed to initialize extractor", "error", err)
		os.Exit(1)
	}
	defer extractor.Close()

	audit, err := discovery.NewFileAuditLog(*auditPath)
	if err != nil {
		slog.Error("Failed to open audit log", "error", err)
		os.Exit(1)
	}
	defer audit.Close()

	decider, err := buildDecider(*policy, *promptTimeout)
	if err != nil {
		slog.Error("Failed to configure unknown part policy", "error", err)
		os.Exit(1)
	}

	service := processing.NewService(extractor, store, decider, audit, cfg)
	if *rulesPath != "" {
		rules, err := validation.LoadRules(*rulesPath)
		if err != nil {
			slog.Error("Failed to load custom rules", "path", *rulesPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Loaded custom rules", "count", rules.Len())
		service.UseRules(rules)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch, runErr := runBatch(ctx, service, files, *watchDir)

	sink := processing.NewSummaryWriter(os.Stdout)
	if batch != nil {
		if err := sink.Consume(batch); err != nil {
			slog.Error("Failed to write summary", "error", err)
		}
	}

	if *showStats {
		printStats(store)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("Run failed", "error", runErr)
		os.Exit(1)
	}
	if batch != nil && (batch.InvalidInvoices > 0 || batch.FailedExtractions > 0) {
		os.Exit(2)
	}
}

func runBatch(ctx context.Context, service *processing.Service, files []string, watchDir string) (*validation.BatchResult, error) {
	if watchDir != "" {
		watcher, err := processing.NewWatcher(service)
		if err != nil {
			return nil, err
		}
		defer watcher.Stop()
		return watcher.Watch(ctx, watchDir)
	}

	inputs := make([]processing.Input, 0, len(files))
	for _, path := range files {
		input, err := processing.InputFromFile(path)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return service.ProcessBatch(ctx, inputs)
}

func buildExtractor(kind, geminiKey, geminiModel, ollamaURL, ollamaModel string) (scanning.Extractor, error) {
	switch kind {
	case "pdf":
		return scanning.NewFitz(), nil
	case "gemini":
		if geminiKey == "" {
			geminiKey = os.Getenv("GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini extractor...", "model", geminiModel)
		return scanning.NewGemini(geminiKey, geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", ollamaURL, "model", ollamaModel)
		return scanning.NewOllama(ollamaURL, ollamaModel)
	default:
		return nil, fmt.Errorf("invalid extractor type %q, want pdf, gemini or ollama", kind)
	}
}

func buildDecider(policy string, promptTimeout time.Duration) (discovery.Decider, error) {
	switch policy {
	case "skip":
		return discovery.NewPolicyDecider(discovery.ActionSkip), nil
	case "defer":
		return discovery.NewPolicyDecider(discovery.ActionDefer), nil
	case "":
		if !discovery.StdinIsTerminal() {
			slog.Info("Stdin is not a terminal, unknown parts will be skipped")
			return discovery.NewPolicyDecider(discovery.ActionSkip), nil
		}
		prompt := discovery.NewTerminalDecider(os.Stdin, os.Stderr)
		prompt.Timeout = promptTimeout
		return prompt, nil
	default:
		return nil, fmt.Errorf("invalid policy %q, want skip or defer", policy)
	}
}

func printStats(store parts.Store) {
	stats, err := store.Stats()
	if err != nil {
		slog.Error("Failed to compute price statistics", "error", err)
		return
	}
	if stats.Count == 0 {
		fmt.Println("\nprice list is empty")
		return
	}
	fmt.Printf("\nprice list: %d active parts, prices %.2f-%.2f, average %.2f\n",
		stats.Count, stats.Min, stats.Max, stats.Average)
}
