package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nulzo/llm-bridge/internal/cli"
	"github.com/nulzo/llm-bridge/internal/config"
	"github.com/nulzo/llm-bridge/internal/gateway"
	"github.com/nulzo/llm-bridge/internal/platform/logger"
	"github.com/nulzo/llm-bridge/internal/platform/otel"
	"github.com/nulzo/llm-bridge/internal/resolver"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

var appVersion = "v0.1.0"

const usage = `bridge - a normalized front door to LLM providers

Usage:
  bridge chat      -provider <id> [-model <id>] [-think] <prompt>
  bridge stream    -provider <id> [-model <id>] [-think] <prompt>
  bridge models    -provider <id>
  bridge ping      -provider <id>
  bridge providers
  bridge version

Providers are configured through the environment (OPENAI_API_KEY,
ANTHROPIC_API_KEY, GOOGLE_API_KEY, OLLAMA_BASE_URL, COMPAT_BASE_URL).
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logger.Initialize(logger.DefaultConfig())
	defer logger.Sync()
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Getenv("BRIDGE_TRACE") != "" {
		shutdown, err := otel.InitTracer("llm-bridge", log, os.Stderr)
		if err != nil {
			log.Warn("tracing unavailable", zap.Error(err))
		} else {
			defer func() {
				_ = shutdown(context.Background())
			}()
		}
	}

	env, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	svc := gateway.New(resolver.New(resolver.NewMemoryStore(), env), log)

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "chat":
		err = runChat(ctx, svc, args, false)
	case "stream":
		err = runChat(ctx, svc, args, true)
	case "models":
		err = runModels(ctx, svc, args)
	case "ping":
		err = runPing(ctx, svc, args)
	case "providers":
		for _, p := range svc.Providers() {
			fmt.Printf("%s %s\n", cli.Arrow(), p)
		}
	case "version":
		fmt.Println("bridge", appVersion)
		cli.CheckForUpdates(appVersion)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", cli.CrossMark(), err)
		os.Exit(1)
	}
}

func providerFlags(name string) (*flag.FlagSet, *string, *string, *bool) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	provider := fs.String("provider", "", "provider id")
	model := fs.String("model", "", "model id override")
	think := fs.Bool("think", false, "enable reasoning and show the trace")
	return fs, provider, model, think
}

func runChat(ctx context.Context, svc *gateway.Service, args []string, stream bool) error {
	fs, provider, model, think := providerFlags("chat")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *provider == "" {
		return fmt.Errorf("-provider is required")
	}

	prompt := ""
	if fs.NArg() > 0 {
		prompt = fs.Arg(0)
	} else {
		// fall back to stdin so prompts can be piped in
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			prompt += scanner.Text() + "\n"
		}
	}
	if prompt == "" {
		return fmt.Errorf("no prompt given")
	}

	req := &gateway.Request{
		UserID:   "local",
		Provider: *provider,
		Model:    *model,
		Messages: []schema.ChatMessage{{Role: schema.RoleUser, Content: prompt}},
	}
	if *think {
		req.Thinking = &schema.ThinkingOptions{Enabled: true, IncludeInOutput: true}
	}

	if stream {
		return streamChat(ctx, svc, req)
	}

	resp, err := svc.Chat(ctx, req)
	if err != nil {
		return err
	}
	if resp.Thinking != nil && *think {
		fmt.Println(cli.Style(resp.Thinking.Content, cli.Dim))
	}
	fmt.Println(resp.Content)
	return nil
}

func streamChat(ctx context.Context, svc *gateway.Service, req *gateway.Request) error {
	ch, err := svc.StreamChat(ctx, req)
	if err != nil {
		return err
	}
	inThinking := false
	for res := range ch {
		if res.Err != nil {
			fmt.Println()
			return res.Err
		}
		frag := res.Fragment
		if frag.Thinking != nil && frag.Thinking.Content != "" {
			inThinking = true
			fmt.Print(cli.Style(frag.Thinking.Content, cli.Dim))
			continue
		}
		if frag.Content != "" {
			if inThinking {
				fmt.Println()
				inThinking = false
			}
			fmt.Print(frag.Content)
		}
	}
	fmt.Println()
	return nil
}

func runModels(ctx context.Context, svc *gateway.Service, args []string) error {
	fs, provider, _, _ := providerFlags("models")
	asJSON := fs.Bool("json", false, "print as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *provider == "" {
		return fmt.Errorf("-provider is required")
	}

	models, err := svc.ListModels(ctx, "local", *provider)
	if err != nil {
		return err
	}
	if *asJSON {
		cli.PrettyPrint(models)
		return nil
	}
	for _, m := range models {
		if m.DisplayName != "" && m.DisplayName != m.ID {
			fmt.Printf("%s %s %s\n", cli.Arrow(), m.ID, cli.Style("("+m.DisplayName+")", cli.Dim))
		} else {
			fmt.Printf("%s %s\n", cli.Arrow(), m.ID)
		}
	}
	return nil
}

func runPing(ctx context.Context, svc *gateway.Service, args []string) error {
	fs, provider, _, _ := providerFlags("ping")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *provider == "" {
		return fmt.Errorf("-provider is required")
	}

	if err := svc.TestConnection(ctx, "local", *provider); err != nil {
		return err
	}
	fmt.Printf("%s %s is reachable\n", cli.CheckMark(), *provider)
	return nil
}
