// Copyright (C) 2026 Arbiter AI (dev@arbiterai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sys/unix"

	"github.com/ArbiterAI/ArbiterCore/services/verdict/datatypes"
)

const (
	// defaultOpenAIModel is used when no model is configured.
	defaultOpenAIModel = "gpt-4o-mini"

	// rubricMemoLimit bounds the per-strategy response memo. One analysis
	// touches at most five sides, so the memo only needs to cover a few
	// recent analyses.
	rubricMemoLimit = 64
)

var memguardInitOnce sync.Once

// initMemguard arms memguard's interrupt handler and checks that the
// process may lock enough memory for key storage. Insufficient limits are
// logged, not fatal: the enclave still works, the pages may just swap.
func initMemguard(log *slog.Logger) {
	memguardInitOnce.Do(func() {
		memguard.CatchInterrupt()

		var rlimit unix.Rlimit
		if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlimit); err != nil {
			log.Warn("could not read RLIMIT_MEMLOCK", slog.Any("error", err))
			return
		}
		if rlimit.Cur != unix.RLIM_INFINITY && rlimit.Cur < 64*1024 {
			log.Warn("mlock limit is low; key pages may be swappable",
				slog.Uint64("limit_bytes", rlimit.Cur))
		}
	})
}

// OpenAIConfig configures the OpenAI-backed scoring strategy.
type OpenAIConfig struct {
	// APIKey is required. It is moved into a memguard enclave at
	// construction and never logged.
	APIKey string

	// Model defaults to gpt-4o-mini.
	Model string

	// BaseURL overrides the API endpoint, for proxies and compatible
	// servers.
	BaseURL string

	Logger *slog.Logger
}

// OpenAIStrategy scores sides with a chat completion against a fixed JSON
// rubric. Responses are memoized per (content, mode) so Score and Annotate
// share one completion. Any transport or parse failure is surfaced as a
// computation failure; no fallback scores are invented.
type OpenAIStrategy struct {
	key     *memguard.Enclave
	model   string
	baseURL string
	log     *slog.Logger

	mu   sync.Mutex
	memo map[string]rubricResponse
}

// NewOpenAIStrategy builds the strategy. It fails when no API key is
// configured rather than degrading silently.
func NewOpenAIStrategy(cfg OpenAIConfig) (*OpenAIStrategy, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai strategy selected but no API key configured", ErrComputation)
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	initMemguard(cfg.Logger)

	return &OpenAIStrategy{
		key:     memguard.NewEnclave([]byte(cfg.APIKey)),
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		log:     cfg.Logger.With(slog.String("strategy", "openai"), slog.String("model", cfg.Model)),
		memo:    make(map[string]rubricResponse),
	}, nil
}

// Name identifies the strategy in logs and config.
func (s *OpenAIStrategy) Name() string { return "openai" }

// rubricResponse is the JSON shape the model is instructed to return.
type rubricResponse struct {
	Clarity             float64  `json:"clarity"`
	EvidenceQuality     float64  `json:"evidenceQuality"`
	LogicalConsistency  float64  `json:"logicalConsistency"`
	EmotionalEscalation float64  `json:"emotionalEscalation"`
	Fairness            float64  `json:"fairness"`
	Summary             string   `json:"summary"`
	Claims              []string `json:"claims"`
	EvidenceProvided    []string `json:"evidenceProvided"`
	EmotionalStatements []string `json:"emotionalStatements"`
	LogicalStatements   []string `json:"logicalStatements"`
	FlaggedAssumptions  []string `json:"flaggedAssumptions"`
}

const rubricSystemPrompt = `You are a dispute analyst. Score the given side of a dispute on five independent dimensions, each 0-10 with one decimal place: clarity, evidenceQuality, logicalConsistency, emotionalEscalation, fairness. Also produce: a one-sentence summary; claims quoting up to 5 positions the side asserts; evidenceProvided, emotionalStatements and logicalStatements each quoting up to 3 sentences that read as evidence, emotion, or reasoning; and (only in strict evidence mode) flaggedAssumptions listing claims treated as fact without support. Respond with a single JSON object using exactly those field names and no other text.`

// Score returns the five rubric dimensions for one side.
func (s *OpenAIStrategy) Score(ctx context.Context, side datatypes.Side, mode datatypes.EvidenceMode) (datatypes.SideScores, error) {
	r, err := s.rubric(ctx, side, mode)
	if err != nil {
		return datatypes.SideScores{}, err
	}
	return datatypes.SideScores{
		Clarity:             clampScore(r.Clarity),
		EvidenceQuality:     clampScore(r.EvidenceQuality),
		LogicalConsistency:  clampScore(r.LogicalConsistency),
		EmotionalEscalation: clampScore(r.EmotionalEscalation),
		Fairness:            clampScore(r.Fairness),
	}, nil
}

// Annotate returns the textual layer from the same memoized completion.
func (s *OpenAIStrategy) Annotate(ctx context.Context, side datatypes.Side, mode datatypes.EvidenceMode) (SideAnnotations, error) {
	r, err := s.rubric(ctx, side, mode)
	if err != nil {
		return SideAnnotations{}, err
	}
	ann := SideAnnotations{
		Summary:             r.Summary,
		Claims:              r.Claims,
		EvidenceProvided:    r.EvidenceProvided,
		EmotionalStatements: r.EmotionalStatements,
		LogicalStatements:   r.LogicalStatements,
	}
	if mode == datatypes.EvidenceStrict {
		ann.FlaggedAssumptions = r.FlaggedAssumptions
	}
	return ann, nil
}

// rubric fetches (or replays) the model's reading of one side.
func (s *OpenAIStrategy) rubric(ctx context.Context, side datatypes.Side, mode datatypes.EvidenceMode) (rubricResponse, error) {
	key := memoKey(side.Content, string(mode))

	s.mu.Lock()
	if cached, ok := s.memo[key]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	prompt := fmt.Sprintf("Evidence mode: %s\nSide label: %s\nSide statement:\n%s", mode, side.Label, side.Content)

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return rubricResponse{}, err
	}

	var r rubricResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &r); err != nil {
		return rubricResponse{}, fmt.Errorf("%w: rubric response was not valid JSON: %v", ErrComputation, err)
	}

	s.mu.Lock()
	if len(s.memo) >= rubricMemoLimit {
		s.memo = make(map[string]rubricResponse)
	}
	s.memo[key] = r
	s.mu.Unlock()
	return r, nil
}

// complete performs one chat completion. The API key leaves its enclave
// only for the duration of the request.
func (s *OpenAIStrategy) complete(ctx context.Context, prompt string) (string, error) {
	buf, err := s.key.Open()
	if err != nil {
		return "", fmt.Errorf("%w: opening key enclave: %v", ErrComputation, err)
	}
	defer buf.Destroy()

	clientCfg := openai.DefaultConfig(buf.String())
	if s.baseURL != "" {
		clientCfg.BaseURL = s.baseURL
	}
	client := openai.NewClientWithConfig(clientCfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rubricSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		s.log.Error("chat completion failed", slog.Any("error", err))
		return "", fmt.Errorf("%w: %v", ErrComputation, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: model returned no choices", ErrComputation)
	}
	return resp.Choices[0].Message.Content, nil
}

// memoKey hashes content so raw dispute text never keys a map.
func memoKey(content, mode string) string {
	sum := sha256.Sum256([]byte(mode + "\x00" + content))
	return hex.EncodeToString(sum[:])
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// in one despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
