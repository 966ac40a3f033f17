package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/vidya/internal/exam"
	"github.com/pavelanni/vidya/internal/handler"
	appI18n "github.com/pavelanni/vidya/internal/i18n"
	"github.com/pavelanni/vidya/internal/llm"
	"github.com/pavelanni/vidya/internal/model"
	"github.com/pavelanni/vidya/internal/store"
	"github.com/pavelanni/vidya/internal/tutor"
)

//go:generate templ generate

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vidya",
		Short: "AI tutoring and exam paper generation for schools",
	}

	serve := serveCmd()
	root.AddCommand(serve, generateCmd(), askCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `vidya --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String(llm.KeyBaseURL, llm.DefaultBaseURL, "OpenAI-compatible API base URL")
	f.String(llm.KeyAPIKey, "", "API key for LLM (or set VIDYA_LLM_KEY)")
	f.String(llm.KeyModel, llm.DefaultModel, "LLM model name")
	f.StringToString(llm.KeyHeaders, nil, "Extra HTTP headers sent to the LLM API (key=value)")
	f.Duration("llm-timeout", 0, "Timeout for one LLM request (0 = until the client disconnects)")
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "vidya.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Default UI language (en, hi)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /vidya)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set VIDYA_ADMIN_PASSWORD)")
	addLLMFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an exam paper and print it as JSON",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.String("board", string(exam.BoardCBSE), "Curriculum board (CBSE, State, ICSE, IB, IGCSE)")
	f.Int("grade", 10, "Grade/class (1-12)")
	f.String("subject", "", "Subject (required)")
	f.StringSlice("chapters", nil, "Chapters in scope (repeatable, empty = all)")
	f.StringSlice("topics", nil, "Topics in scope (repeatable, empty = all)")
	f.Int("duration", 180, "Duration in minutes")
	f.Int("total-marks", 80, "Total marks")
	f.String("difficulty", exam.DefaultDifficultyTarget, "Difficulty target")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLLMFlags(cmd)
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask the tutor a question and print the explanation",
		RunE:  runAsk,
	}
	f := cmd.Flags()
	f.Int("grade", 10, "Grade/class (1-12)")
	f.String("subject", "", "Subject (required)")
	f.String("topic", "", "Topic")
	f.String("question", "", "Question (required)")
	f.String("language", tutor.DefaultLanguage, "Explanation language")
	f.String("attachment", "", "Path to a text file with reference material")
	addLLMFlags(cmd)
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export student progress as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "vidya.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	addLogFlags(cmd)
	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("VIDYA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("vidya")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/vidya")
	v.AddConfigPath("/etc/vidya")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func newLLMClient(v *viper.Viper) *llm.Client {
	var opts []llm.Option
	if d := v.GetDuration("llm-timeout"); d > 0 {
		opts = append(opts, llm.WithTimeout(d))
	}
	return llm.New(opts...)
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin account if no accounts exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if n, err := db.CleanupExpiredSessions(); err != nil {
		slog.Warn("failed to clean up expired sessions", "error", err)
	} else if n > 0 {
		slog.Info("removed expired sessions", "count", n)
	}

	lang := v.GetString("lang")
	catalog, err := appI18n.New(lang)
	if err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// The key is resolved per request, so a server without one still starts
	// and reports the missing configuration on the AI pages.
	if cfg, err := llm.Resolve(v); err != nil {
		slog.Warn("LLM not configured; AI features will report setup instructions")
	} else {
		slog.Info("LLM configured", "llm", cfg)
	}
	client := newLLMClient(v)

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	appCfg := model.AppConfig{
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
	}

	h, err := handler.New(db, exam.NewGenerator(v, client), tutor.New(v, client), catalog, appCfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(catalog.Middleware)

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"base_path", basePath,
		"secure_cookies", appCfg.SecureCookies,
	)
	return http.ListenAndServe(addr, r)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)
	cmd.SilenceUsage = true

	req := exam.GenerationRequest{
		Board:            exam.Board(v.GetString("board")),
		Grade:            v.GetInt("grade"),
		Subject:          v.GetString("subject"),
		Chapters:         v.GetStringSlice("chapters"),
		Topics:           v.GetStringSlice("topics"),
		DurationMinutes:  v.GetInt("duration"),
		TotalMarks:       v.GetInt("total-marks"),
		DifficultyTarget: v.GetString("difficulty"),
		Timestamp:        time.Now(),
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	res := exam.NewGenerator(v, newLLMClient(v)).Generate(cmd.Context(), req)
	if !res.Success {
		fmt.Fprintln(os.Stderr, res.Err.Message)
		if res.Err.RawResponse != "" {
			fmt.Fprintln(os.Stderr, "\nRaw response:")
			fmt.Fprintln(os.Stderr, res.Err.RawResponse)
		}
		return fmt.Errorf("generation failed: %s", res.Err.Kind)
	}
	slog.Info("generated", "result", res.String())
	return writeJSON(v.GetString("output"), res.Data)
}

func runAsk(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)
	cmd.SilenceUsage = true

	p := tutor.Params{
		Grade:    v.GetInt("grade"),
		Subject:  v.GetString("subject"),
		Topic:    v.GetString("topic"),
		Question: v.GetString("question"),
		Language: v.GetString("language"),
	}
	if path := v.GetString("attachment"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
		p.Attachment = tutor.Attachment{Name: path, Text: string(data)}
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid question: %w", err)
	}

	answer, err := tutor.New(v, newLLMClient(v)).Ask(cmd.Context(), p)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportProgress()
	if err != nil {
		return fmt.Errorf("export progress: %w", err)
	}
	slog.Info("exported progress", "students", len(export.Students))
	return writeJSON(v.GetString("output"), export)
}

// writeJSON writes v as indented JSON to path, or stdout for "" and "-".
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	var w io.Writer
	if path == "" || path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)
	return nil
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.AccountCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or VIDYA_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateAccount(model.Account{
		Username:     "admin",
		PasswordHash: string(hash),
		IsAdmin:      true,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}

	slog.Info("seeded default admin account", "username", "admin")
	return nil
}
