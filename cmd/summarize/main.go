// Command summarize asks an LLM to summarize the files of a directory and,
// with -interactive, answers follow-up questions about them.
//
// The model is reached through an OpenAI compatible API; the token is read
// from OPENAI_API_KEY.
//
//	summarize -dir ./internal -pattern '**/*.go' -interactive
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"gopkg.in/yaml.v3"

	"github.com/rickchristie/think"
	"github.com/rickchristie/think/agents/lcg"
	"github.com/rickchristie/think/events"
	"github.com/rickchristie/think/loggers"
	"github.com/rickchristie/think/observer"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorBold  = "\033[1m"
	colorDim   = "\033[2m"
)

type options struct {
	dir         string
	pattern     string
	exclude     string
	configPath  string
	model       string
	baseURL     string
	logFormat   string
	maxBytes    int
	maxTurns    int
	interactive bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%sError: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	fs.StringVar(&opts.dir, "dir", ".", "directory to summarize")
	fs.StringVar(&opts.pattern, "pattern", "**/*", "files to include, with ** support")
	fs.StringVar(&opts.exclude, "exclude", ".git/**,**/node_modules/**", "comma separated patterns the agent may not read")
	fs.StringVar(&opts.configPath, "config", "", "think config file (.yaml, .yml or .toml)")
	fs.StringVar(&opts.model, "model", "gpt-4o-mini", "model name")
	fs.StringVar(&opts.baseURL, "base-url", "", "OpenAI compatible API base URL")
	fs.StringVar(&opts.logFormat, "log", "none", "session log format: none, yaml or slog")
	fs.IntVar(&opts.maxBytes, "max-bytes", 32*1024, "maximum bytes returned per file read")
	fs.IntVar(&opts.maxTurns, "max-turns", 40, "maximum model calls per session")
	fs.BoolVar(&opts.interactive, "interactive", false, "ask follow-up questions after the summary")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	switch opts.logFormat {
	case "none", "yaml", "slog":
	default:
		return options{}, fmt.Errorf("unknown log format %q", opts.logFormat)
	}
	return opts, nil
}

// newDispatcher wires the session subscribers for the chosen log format.
func newDispatcher(format string, w io.Writer) (*events.Registry, error) {
	registry := events.NewRegistry()

	obs, err := observer.New()
	if err != nil {
		return nil, err
	}
	registry.Subscribe(obs)

	switch format {
	case "yaml":
		registry.Subscribe(loggers.NewYAML(w))
	case "slog":
		registry.Subscribe(loggers.NewSlog(slog.New(slog.NewTextHandler(w, nil))))
	}
	return registry, nil
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func run() error {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := think.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	openaiOpts := []openai.Option{openai.WithModel(opts.model)}
	if opts.baseURL != "" {
		openaiOpts = append(openaiOpts, openai.WithBaseURL(opts.baseURL))
	}
	llm, err := openai.New(openaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}

	dispatcher, err := newDispatcher(opts.logFormat, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create observer: %w", err)
	}

	agent := lcg.NewAgent(llm).
		WithMaxTurns(opts.maxTurns).
		WithCallOptions(llms.WithTemperature(0))
	engine, err := think.New(agent,
		think.WithConfig(cfg),
		think.WithDispatcher(dispatcher),
	)
	if err != nil {
		return err
	}

	ws := &workspace{
		fsys:     os.DirFS(opts.dir),
		pattern:  opts.pattern,
		exclude:  splitPatterns(opts.exclude),
		maxBytes: opts.maxBytes,
		engine:   engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("%sSummarizing %s ...%s\n", colorDim, opts.dir, colorReset)
	summary, session, err := ws.summarize(ctx)
	if err != nil {
		return err
	}
	if err := printSummary(os.Stdout, summary, session.Stats(), agent.Usage()); err != nil {
		return err
	}

	if !opts.interactive {
		return nil
	}
	return chat(ctx, ws, summary)
}

func printSummary(w io.Writer, summary FileSummary, stats think.SessionStats, usage lcg.Usage) error {
	fmt.Fprintf(w, "\n%s%s%s\n\n", colorBold, summary.Overview, colorReset)
	for _, note := range summary.Files {
		fmt.Fprintf(w, "  %s%s%s\n    %s\n", colorCyan, note.Path, colorReset, note.Summary)
	}
	fmt.Fprintf(w, "\n%s", colorDim)
	defer fmt.Fprint(w, colorReset)

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(map[string]any{"stats": stats, "usage": usage})
}

// chat answers questions until the user quits or interrupts.
func chat(ctx context.Context, ws *workspace, summary FileSummary) error {
	rl, err := readline.New(colorCyan + "question> " + colorReset)
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%sAsk about the files. Type 'q' to quit.%s\n", colorDim, colorReset)
	for {
		input, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Printf("%sGoodbye!%s\n", colorGreen, colorReset)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		switch input {
		case "":
			continue
		case "q", "Q", "quit", "exit":
			fmt.Printf("%sGoodbye!%s\n", colorGreen, colorReset)
			return nil
		}

		answer, err := ws.ask(ctx, summary, input)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("%sError: %v%s\n", colorRed, err, colorReset)
			continue
		}
		fmt.Printf("%s\n\n", answer)
	}
}
