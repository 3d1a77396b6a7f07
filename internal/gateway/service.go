package gateway

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/internal/resolver"
	"github.com/nulzo/llm-bridge/pkg/schema"

	_ "github.com/nulzo/llm-bridge/internal/llm/anthropic"
	_ "github.com/nulzo/llm-bridge/internal/llm/compat"
	_ "github.com/nulzo/llm-bridge/internal/llm/google"
	_ "github.com/nulzo/llm-bridge/internal/llm/ollama"
	_ "github.com/nulzo/llm-bridge/internal/llm/openai"
	_ "github.com/nulzo/llm-bridge/internal/llm/responses"
)

// Request is one normalized completion request. Provider and UserID drive
// config resolution; Model and Thinking, when set, override the resolved
// config for this call only.
type Request struct {
	UserID   string
	Provider string
	Model    string
	Messages []schema.ChatMessage
	Thinking *schema.ThinkingOptions
}

// Service is the single entry point callers use. It resolves configuration,
// routes to the right adapter, applies reasoning preparation, and reports
// latency and usage.
type Service struct {
	resolver  *resolver.Resolver
	log       *zap.Logger
	tracer    trace.Tracer
	providers map[string]llm.Provider
}

func New(res *resolver.Resolver, log *zap.Logger) *Service {
	providers := make(map[string]llm.Provider)
	for _, name := range llm.Names() {
		p, err := llm.New(name)
		if err != nil {
			// Names() only lists registered ids
			panic(err)
		}
		providers[name] = p
	}
	return &Service{
		resolver:  res,
		log:       log,
		tracer:    otel.Tracer("llm-bridge/gateway"),
		providers: providers,
	}
}

// Providers lists every adapter id the service can dispatch to.
func (s *Service) Providers() []string {
	return llm.Names()
}

// prepare resolves the effective config and adapter for a request and runs
// reasoning preparation over the conversation.
func (s *Service) prepare(ctx context.Context, req *Request) (llm.Provider, *schema.GenerationConfig, []schema.ChatMessage, error) {
	cfg, err := s.resolver.Resolve(ctx, req.UserID, req.Provider)
	if err != nil {
		return nil, nil, nil, err
	}
	if req.Model != "" {
		cfg.Model = req.Model
	}
	if req.Thinking != nil {
		cfg.Thinking = *req.Thinking
	}
	if err := resolver.ValidateConfig(cfg); err != nil {
		return nil, nil, nil, err
	}

	adapterID := resolver.AdapterFor(cfg)
	prov, ok := s.providers[adapterID]
	if !ok {
		return nil, nil, nil, fmt.Errorf("no adapter for provider %q", adapterID)
	}

	msgs := req.Messages
	if thinker, ok := llm.Thinker(adapterID); ok {
		msgs = thinker.PrepareMessages(msgs)
		if v := thinker.ValidateConfig(cfg); len(v.Warnings) > 0 {
			s.log.Warn("thinking configuration warnings",
				zap.String("provider", adapterID),
				zap.String("model", cfg.Model),
				zap.Strings("warnings", v.Warnings))
		}
	}
	return prov, cfg, msgs, nil
}

// Chat performs one blocking completion.
func (s *Service) Chat(ctx context.Context, req *Request) (*schema.ChatResponse, error) {
	ctx, span := s.tracer.Start(ctx, "gateway.Chat",
		trace.WithAttributes(attribute.String("llm.provider", req.Provider)))
	defer span.End()

	prov, cfg, msgs, err := s.prepare(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("llm.model", cfg.Model))

	start := time.Now()
	resp, err := prov.Chat(ctx, msgs, cfg)
	elapsed := time.Since(start)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("chat failed",
			zap.String("provider", prov.Name()),
			zap.String("model", cfg.Model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}

	fields := []zap.Field{
		zap.String("provider", prov.Name()),
		zap.String("model", resp.Model),
		zap.Duration("elapsed", elapsed),
	}
	if resp.Usage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			zap.Int("reasoning_tokens", resp.Usage.ReasoningTokens))
		span.SetAttributes(attribute.Int("llm.usage.total_tokens", resp.Usage.TotalTokens))
	}
	s.log.Info("chat completed", fields...)
	return resp, nil
}

// StreamChat starts an incremental completion. The returned channel follows
// the adapter contract: one fragment per increment, exactly one Done.
func (s *Service) StreamChat(ctx context.Context, req *Request) (<-chan schema.StreamResult, error) {
	ctx, span := s.tracer.Start(ctx, "gateway.StreamChat",
		trace.WithAttributes(attribute.String("llm.provider", req.Provider)))

	prov, cfg, msgs, err := s.prepare(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	span.SetAttributes(attribute.String("llm.model", cfg.Model))

	start := time.Now()
	inner, err := prov.Stream(ctx, msgs, cfg)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}

	ch := make(chan schema.StreamResult)
	go func() {
		defer close(ch)
		defer span.End()

		fragments := 0
		failed := false
		for res := range inner {
			if res.Err != nil {
				failed = true
				span.SetStatus(codes.Error, res.Err.Error())
				s.log.Error("stream failed",
					zap.String("provider", prov.Name()),
					zap.String("model", cfg.Model),
					zap.Error(res.Err))
			}
			if res.Fragment != nil {
				fragments++
			}
			select {
			case ch <- res:
			case <-ctx.Done():
				return
			}
		}

		if failed {
			return
		}
		s.log.Info("stream completed",
			zap.String("provider", prov.Name()),
			zap.String("model", cfg.Model),
			zap.Int("fragments", fragments),
			zap.Duration("elapsed", time.Since(start)))
	}()
	return ch, nil
}

// TestConnection checks the resolved credentials against the upstream.
func (s *Service) TestConnection(ctx context.Context, userID, provider string) error {
	ctx, span := s.tracer.Start(ctx, "gateway.TestConnection",
		trace.WithAttributes(attribute.String("llm.provider", provider)))
	defer span.End()

	cfg, err := s.resolver.Resolve(ctx, userID, provider)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	adapterID := resolver.AdapterFor(cfg)
	prov, ok := s.providers[adapterID]
	if !ok {
		return fmt.Errorf("no adapter for provider %q", adapterID)
	}
	if err := prov.TestConnection(ctx, cfg); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// ListModels enumerates the conversational models reachable with the
// resolved credentials.
func (s *Service) ListModels(ctx context.Context, userID, provider string) ([]schema.ModelInfo, error) {
	ctx, span := s.tracer.Start(ctx, "gateway.ListModels",
		trace.WithAttributes(attribute.String("llm.provider", provider)))
	defer span.End()

	cfg, err := s.resolver.Resolve(ctx, userID, provider)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	adapterID := resolver.AdapterFor(cfg)
	prov, ok := s.providers[adapterID]
	if !ok {
		return nil, fmt.Errorf("no adapter for provider %q", adapterID)
	}
	models, err := prov.Models(ctx, cfg)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return models, nil
}
