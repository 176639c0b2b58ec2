package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zen-systems/quillflow/pkg/adapter"
	"github.com/zen-systems/quillflow/pkg/config"
	"github.com/zen-systems/quillflow/pkg/content"
	"github.com/zen-systems/quillflow/pkg/pipeline"
	"github.com/zen-systems/quillflow/pkg/quality"
	"github.com/zen-systems/quillflow/pkg/search"
	"github.com/zen-systems/quillflow/pkg/versions"
	"github.com/zen-systems/quillflow/pkg/worker"
)

var (
	configFile string
	storeFlag  string
	mockFlag   bool
	verbose    bool
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("[quillflow] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "quillflow",
		Short: "Multi-stage AI content pipeline with quality scoring and versioning",
		Long: `Quillflow researches, outlines, writes, edits, fact-checks and optimizes
	content through a pipeline of LLM stages, scores the result and keeps every
	generated version per subject.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to routing config file")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "version store: sqlite path or \"memory\" (default from config)")
	rootCmd.PersistentFlags().BoolVar(&mockFlag, "mock", false, "register the mock adapter")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log stage progress")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(stagesCmd())
	return rootCmd
}

func generateCmd() *cobra.Command {
	var subject string
	var contentType string
	var keyword string
	var pipelineFile string
	var outFile string
	var evidenceDir string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate content for a subject",
		Long: `Runs the content pipeline for one subject. The final artifact is printed
	(or written to --out), followed by run statistics, the quality report
	and the saved version number.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(subject) == "" {
				return fmt.Errorf("--subject is required")
			}

			svc, store, cfg, err := buildService(pipelineFile, evidenceDir)
			if err != nil {
				return err
			}
			defer store.Close()

			outcome, err := svc.Generate(cmd.Context(), content.Request{
				Subject:     subject,
				ContentType: contentType,
				Keyword:     keyword,
			})
			if err != nil {
				reportFailure(cmd.ErrOrStderr(), outcome, err)
				return err
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(outcome.Artifact()+"\n"), 0644); err != nil {
					return fmt.Errorf("write %s: %w", outFile, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", outFile)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), outcome.Artifact())
				fmt.Fprintln(cmd.OutOrStdout())
			}

			printRun(cmd.ErrOrStderr(), outcome.Run)
			printQuality(cmd.ErrOrStderr(), outcome.Quality)
			printVersion(cmd.ErrOrStderr(), outcome, cfg)
			return nil
		},
	}
	cmd.Flags().StringVarP(&subject, "subject", "s", "", "subject to write about (required)")
	cmd.Flags().StringVarP(&contentType, "type", "t", content.DefaultContentType, "content type, e.g. \"Blog Post\" or \"Newsletter\"")
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "target SEO keyword (defaults to the subject)")
	cmd.Flags().StringVarP(&pipelineFile, "file", "f", "", "pipeline manifest (defaults to the built-in content pipeline)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write the artifact to a file")
	cmd.Flags().StringVar(&evidenceDir, "evidence", "", "write run evidence under this directory")
	return cmd
}

func batchCmd() *cobra.Command {
	var subjectsFile string
	var contentType string
	var pipelineFile string
	var parallel int

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate content for several subjects",
		Long:  "Reads one subject per line (blank lines and # comments are skipped) and runs them concurrently.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if subjectsFile == "" {
				return fmt.Errorf("--subjects-file is required")
			}
			subjects, err := readSubjects(subjectsFile)
			if err != nil {
				return err
			}
			if len(subjects) == 0 {
				return fmt.Errorf("%s lists no subjects", subjectsFile)
			}

			svc, store, cfg, err := buildService(pipelineFile, "")
			if err != nil {
				return err
			}
			defer store.Close()
			if parallel <= 0 {
				parallel = cfg.Parallel
			}

			reqs := make([]content.Request, 0, len(subjects))
			for _, s := range subjects {
				reqs = append(reqs, content.Request{Subject: s, ContentType: contentType})
			}
			items := svc.GenerateBatch(cmd.Context(), reqs, parallel)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SUBJECT\tSTATUS\tSCORE\tGRADE\tVERSION")
			failed := 0
			for _, item := range items {
				if item.Err != nil {
					failed++
					fmt.Fprintf(w, "%s\tfailed: %v\t-\t-\t-\n", item.Request.Subject, item.Err)
					continue
				}
				version := "-"
				if item.Outcome.Version > 0 {
					version = fmt.Sprintf("v%d", item.Outcome.Version)
				}
				fmt.Fprintf(w, "%s\tok\t%.1f\t%s\t%s\n", item.Request.Subject, item.Outcome.Quality.Overall, item.Outcome.Quality.Grade, version)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d subjects failed", failed, len(items))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&subjectsFile, "subjects-file", "", "file with one subject per line (required)")
	cmd.Flags().StringVarP(&contentType, "type", "t", content.DefaultContentType, "content type for every subject")
	cmd.Flags().StringVarP(&pipelineFile, "file", "f", "", "pipeline manifest (defaults to the built-in content pipeline)")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent runs (default from config)")
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [subject]",
		Short: "List saved versions for a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No versions saved for %q.\n", args[0])
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tCREATED\tWORDS")
			for _, e := range entries {
				fmt.Fprintf(w, "v%d\t%s\t%d\n", e.Version, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.WordCount)
			}
			return w.Flush()
		},
	}
}

func showCmd() *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "show [subject]",
		Short: "Print a saved version (latest by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.Get(cmd.Context(), args[0], version)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s v%d (%d words, sha256 %s)\n", rec.Subject, rec.Version, rec.WordCount, rec.ContentHash[:12])
			fmt.Fprintln(cmd.OutOrStdout(), rec.Content)
			return nil
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "version number (default latest)")
	return cmd
}

func scoreCmd() *cobra.Command {
	var keyword string

	cmd := &cobra.Command{
		Use:   "score [file]",
		Short: "Score an existing markdown file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			printQuality(cmd.OutOrStdout(), quality.Score(string(data), keyword))
			return nil
		},
	}
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "target SEO keyword")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [pipeline.yaml]",
		Short: "Validate a pipeline manifest",
		Long:  "Validates pipeline YAML without executing, and checks routed models against the model aliases.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := pipeline.LoadManifest(args[0]); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if errs := cfg.Aliases.ValidateRoutingConfig(cfg.RoutingConfig); len(errs) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Found %d routing errors:\n", len(errs))
				for _, err := range errs {
					fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", err)
				}
				return fmt.Errorf("validation failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Pipeline manifest is valid.")
			return nil
		},
	}
}

func stagesCmd() *cobra.Command {
	var pipelineFile string

	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List pipeline stages, roles and predecessors",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(pipelineFile)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tSTAGE\tROLE\tAFTER\tROUTE\tSEARCH")
			for i, s := range p.Stages {
				route := cfg.RoutingConfig.Route(s.TaskType)
				if s.Adapter != "" {
					route = config.RouteTarget{Adapter: s.Adapter, Model: s.Model}
				}
				after := "-"
				if len(s.After) > 0 {
					after = strings.Join(s.After, ", ")
				}
				searches := "no"
				if s.Search != "" {
					searches = "yes"
					if s.RequireSearch {
						searches = "required"
					}
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s/%s\t%s\n", i+1, s.Name, s.Role, after, route.Adapter, route.Model, searches)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&pipelineFile, "file", "f", "", "pipeline manifest (defaults to the built-in content pipeline)")
	return cmd
}

func buildService(pipelineFile, evidenceDir string) (*content.Service, versions.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	p, err := loadPipeline(pipelineFile)
	if err != nil {
		return nil, nil, nil, err
	}
	w, err := createWorker(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if evidenceDir == "" {
		evidenceDir = cfg.EvidenceDir
	}

	opts := []content.Option{
		content.WithStageTimeout(cfg.StageTimeout),
		content.WithEvidenceDir(evidenceDir),
	}
	if verbose {
		opts = append(opts, content.WithLogger(log.Printf))
	}
	svc, err := content.NewService(p, w, store, opts...)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	return svc, store, cfg, nil
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadWithRoutingFile(configFile)
	}
	return config.Load()
}

func loadPipeline(path string) (*pipeline.Pipeline, error) {
	if path == "" {
		return pipeline.DefaultContent(), nil
	}
	return pipeline.LoadManifest(path)
}

func openStore(cfg *config.Config) (versions.Store, error) {
	path := cfg.StorePath
	if storeFlag != "" {
		path = storeFlag
	}
	if path == "memory" {
		return versions.NewMemStore(), nil
	}
	return versions.OpenSQLite(path)
}

func createWorker(cfg *config.Config) (*worker.Worker, error) {
	adapters, err := createAdapters(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create adapters: %w", err)
	}

	opts := []worker.Option{
		worker.WithRouting(cfg.RoutingConfig),
		worker.WithAliases(cfg.Aliases),
	}
	if tavily := search.NewTavily(search.WithTavilyAPIKey(cfg.TavilyAPIKey)); tavily.Available() {
		opts = append(opts, worker.WithSearcher(tavily))
	} else if verbose {
		log.Println("web search disabled (TAVILY_API_KEY not set)")
	}
	if verbose {
		opts = append(opts, worker.WithLogger(log.Printf))
	}
	return worker.New(adapters, opts...)
}

// createAdapters initializes adapters for every configured API key.
func createAdapters(cfg *config.Config) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.DeepSeekAPIKey != "" {
		a, err := adapter.NewDeepSeekAdapter(cfg.DeepSeekAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create deepseek adapter: %w", err)
		}
		adapters = append(adapters, a)
	}

	if cfg.AnthropicAPIKey != "" {
		a, err := adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic adapter: %w", err)
		}
		adapters = append(adapters, a)
	}

	if cfg.OpenAIAPIKey != "" {
		a, err := adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai adapter: %w", err)
		}
		adapters = append(adapters, a)
	}

	if cfg.GoogleAPIKey != "" {
		a, err := adapter.NewGoogleAdapter(cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google adapter: %w", err)
		}
		adapters = append(adapters, a)
	}

	if mockFlag {
		adapters = append(adapters, adapter.NewMockAdapter())
	}

	if len(adapters) == 0 {
		return nil, errors.New("no adapters configured: set DEEPSEEK_API_KEY (or another provider key) or pass --mock")
	}
	return adapters, nil
}

func readSubjects(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var subjects []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		subjects = append(subjects, line)
	}
	return subjects, scanner.Err()
}

func reportFailure(w io.Writer, outcome *content.Outcome, err error) {
	var failure *pipeline.StageFailure
	if errors.As(err, &failure) && outcome != nil && outcome.Run != nil {
		fmt.Fprintf(w, "Stage %q failed after %d of %d stages completed: %v\n",
			failure.Stage, outcome.Run.StagesCompleted, outcome.Run.TotalStages, failure.Err)
		if outcome.Run.EvidenceDir != "" {
			fmt.Fprintf(w, "Evidence: %s\n", outcome.Run.EvidenceDir)
		}
		return
	}
	fmt.Fprintf(w, "Generation failed: %v\n", err)
}

func printRun(w io.Writer, run *pipeline.RunResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run %s: %d/%d stages in %s\n", run.RunID, run.StagesCompleted, run.TotalStages, run.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(tw, "STAGE\tROUTE\tWORDS\tTOKENS\tDURATION")
	for _, s := range run.Stages {
		fmt.Fprintf(tw, "%s\t%s/%s\t%d\t%d\t%s\n", s.Name, s.Adapter, s.Model, s.Words, s.Usage.TotalTokens, s.Duration.Round(time.Millisecond))
	}
	if run.EvidenceDir != "" {
		fmt.Fprintf(tw, "Evidence: %s\n", run.EvidenceDir)
	}
	_ = tw.Flush()
}

func printQuality(w io.Writer, report quality.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Quality: %.1f (%s)\n", report.Overall, report.Grade)
	fmt.Fprintf(tw, "  readability\t%.0f\n", report.Scores.Readability)
	fmt.Fprintf(tw, "  structure\t%.0f\n", report.Scores.Structure)
	fmt.Fprintf(tw, "  engagement\t%.0f\n", report.Scores.Engagement)
	fmt.Fprintf(tw, "  seo\t%.0f\n", report.Scores.SEO)
	fmt.Fprintf(tw, "  completeness\t%.0f\n", report.Scores.Completeness)
	for _, r := range report.Recommendations {
		fmt.Fprintf(tw, "  - %s\n", r)
	}
	_ = tw.Flush()
}

func printVersion(w io.Writer, outcome *content.Outcome, cfg *config.Config) {
	switch {
	case outcome.StorageErr != nil:
		fmt.Fprintf(w, "Version not saved: %v\n", outcome.StorageErr)
	case outcome.Version > 0:
		store := cfg.StorePath
		if storeFlag != "" {
			store = storeFlag
		}
		fmt.Fprintf(w, "Saved version %d to %s\n", outcome.Version, store)
	}
}
