// ABOUTME: Entry point for the ragchat server
// ABOUTME: Serves the browser chat UI and routes turns to agent webhooks

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/nosta/ragchat/internal/agent"
	"github.com/nosta/ragchat/internal/config"
	"github.com/nosta/ragchat/internal/controller"
	"github.com/nosta/ragchat/internal/docs"
	"github.com/nosta/ragchat/internal/feedback"
	"github.com/nosta/ragchat/internal/session"
	"github.com/nosta/ragchat/internal/store"
	"github.com/nosta/ragchat/internal/web"
	"github.com/nosta/ragchat/internal/webhook"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                       _           _
 _ __ __ _  __ _  ___| |__   __ _| |_
| '__/ _' |/ _' |/ __| '_ \ / _' | __|
| | | (_| | (_| | (__| | | | (_| | |_
|_|  \__,_|\__, |\___|_| |_|\__,_|\__|
           |___/
`

// getConfigPath returns the path to the ragchat config file.
// Priority: RAGCHAT_CONFIG env var > XDG_CONFIG_HOME/ragchat/ragchat.yaml > ~/.config/ragchat/ragchat.yaml
func getConfigPath() string {
	if envPath := os.Getenv("RAGCHAT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "ragchat.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "ragchat", "ragchat.yaml")
}

// getDataPath returns the path to the ragchat data directory.
// Priority: XDG_DATA_HOME/ragchat > ~/.local/share/ragchat
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "ragchat")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: ragchat <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the chat server")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check server health")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	fmt.Println()

	logger.Info("starting ragchat",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer sqlStore.Close()

	sessions := session.NewManager(sqlStore, logger)
	webhooks := webhook.NewClient(sessions, cfg.Webhook.Timeout, logger)

	catalog := agent.DefaultCatalog()
	if len(cfg.Agents) > 0 {
		catalog = catalog[:0]
		for _, a := range cfg.Agents {
			catalog = append(catalog, agent.Agent{
				ID:           a.ID,
				Name:         a.Name,
				Endpoint:     a.Endpoint,
				Icon:         a.Icon,
				AccessSecret: a.AccessSecret,
			})
		}
	}
	registry := agent.NewRegistry(catalog)

	directory := buildDirectory(cfg, logger)

	var feedbackClient controller.FeedbackSubmitter
	if cfg.Feedback.URL != "" {
		feedbackClient = feedback.NewClient(cfg.Feedback.URL, cfg.Feedback.APIKey, logger)
	}

	ctrl := controller.New(sessions, sqlStore, registry, webhooks, directory,
		cfg.Webhook.DefaultEndpoint, logger)
	if err := ctrl.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrapping controller: %w", err)
	}

	server := web.New(cfg.Server.HTTPAddr, ctrl, feedbackClient, logger)
	return server.Start(ctx)
}

// buildDirectory wires the document directory: a remote service when one is
// configured, otherwise the seed catalog served locally.
func buildDirectory(cfg *config.Config, logger *slog.Logger) docs.Directory {
	if cfg.Documents.URL != "" {
		table := cfg.Documents.Table
		if table == "" {
			table = "documents"
		}
		return docs.NewRESTDirectory(cfg.Documents.URL, cfg.Documents.APIKey, table, logger)
	}

	seed := make([]docs.Document, 0, len(cfg.Documents.Seed))
	for _, d := range cfg.Documents.Seed {
		seed = append(seed, docs.Document{
			ID:      d.ID,
			Name:    d.Name,
			Size:    d.Size,
			Kind:    d.Kind,
			Summary: d.Summary,
			Content: d.Content,
			URL:     d.URL,
		})
	}
	return docs.NewStaticDirectory(seed)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("ragchat configuration setup")
	fmt.Println("===========================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "ragchat.db")

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	fmt.Println("\n--- Webhook Configuration ---")
	defaultEndpoint := prompt(reader, "Default webhook endpoint", "http://localhost:5678/webhook/chat")
	timeout := prompt(reader, "Webhook timeout", "120s")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# ragchat configuration\n")
	cfg.WriteString("# Generated by ragchat init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("webhook:\n")
	cfg.WriteString(fmt.Sprintf("  default_endpoint: %q\n", defaultEndpoint))
	cfg.WriteString(fmt.Sprintf("  timeout: %q\n", timeout))
	cfg.WriteString("\n")

	cfg.WriteString("# Declare agents here to replace the built-in catalog, e.g.\n")
	cfg.WriteString("# agents:\n")
	cfg.WriteString("#   - id: legal\n")
	cfg.WriteString("#     name: Legal\n")
	cfg.WriteString("#     icon: \"⚖️\"\n")
	cfg.WriteString("#     endpoint: http://localhost:5678/webhook/legal\n")
	cfg.WriteString("#     access_secret: ${LEGAL_AGENT_SECRET}\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", logFormat))

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("\nConfiguration written to %s\n", outputFile)
	fmt.Println("Start the server with: ragchat serve")
	return nil
}

func prompt(reader *bufio.Reader, question, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", question, defaultValue)
	} else {
		fmt.Printf("%s: ", question)
	}

	answer, err := reader.ReadString('\n')
	if err != nil {
		return defaultValue
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return defaultValue
	}
	return answer
}
