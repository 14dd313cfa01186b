package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const storytellerSystemPrompt = `You are the narrator of a medieval werewolf game. Given the bare facts of a round, tell a short atmospheric story about them in 2-3 sentences. Be gothic and dramatic, fitting for a village plagued by werewolves. Never reveal anyone's hidden role.`

// Storyteller turns round facts into flavor text. onChunk receives
// each streamed text fragment.
type Storyteller interface {
	Tell(ctx context.Context, facts []string, onChunk func(string)) (string, error)
}

// globalStoryteller is nil when no provider is configured (feature
// disabled). The engine never depends on it.
var globalStoryteller Storyteller

type llmStoryteller struct {
	llm          llms.Model
	systemPrompt string
	callOpts     []llms.CallOption
}

func (s *llmStoryteller) Tell(ctx context.Context, facts []string, onChunk func(string)) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, s.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman,
			"What just happened:\n"+strings.Join(facts, "\n")+
				"\n\nNarrate it in 2-3 sentences."),
	}

	var fullText strings.Builder
	opts := append(s.callOpts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		text := string(chunk)
		fullText.WriteString(text)
		if onChunk != nil {
			onChunk(text)
		}
		return nil
	}))

	_, err := s.llm.GenerateContent(ctx, messages, opts...)
	return strings.TrimSpace(fullText.String()), err
}

// buildCallOpts builds LLM call options from the config.
func buildCallOpts(cfg AppConfig) []llms.CallOption {
	var opts []llms.CallOption
	if cfg.StorytellerTemperature != "" {
		if f, err := strconv.ParseFloat(cfg.StorytellerTemperature, 64); err == nil {
			opts = append(opts, llms.WithTemperature(f))
			log.Printf("Storyteller: temperature=%.2f", f)
		} else {
			log.Printf("Storyteller: invalid temperature %q: %v", cfg.StorytellerTemperature, err)
		}
	}
	return opts
}

// initStoryteller sets up the global storyteller from config.
func initStoryteller(cfg AppConfig) {
	provider := cfg.StorytellerProvider
	model := cfg.StorytellerModel
	callOpts := buildCallOpts(cfg)

	var llm llms.Model
	var err error
	switch provider {
	case "":
		log.Printf("Storyteller: disabled (set storyteller_provider to enable)")
		return
	case "ollama":
		llm, err = ollama.New(ollama.WithModel(model), ollama.WithServerURL(cfg.StorytellerOllamaURL))
	case "openai":
		llm, err = openai.New(openai.WithModel(model))
	case "claude":
		llm, err = anthropic.New(anthropic.WithModel(model))
	case "gemini":
		llm, err = googleai.New(context.Background(), googleai.WithDefaultModel(model))
	case "openai-compatible":
		if cfg.StorytellerURL == "" {
			log.Printf("Storyteller: storyteller_url is required for openai-compatible provider")
			return
		}
		opts := []openai.Option{openai.WithModel(model), openai.WithBaseURL(cfg.StorytellerURL)}
		if cfg.StorytellerAPIKey != "" {
			opts = append(opts, openai.WithToken(cfg.StorytellerAPIKey))
		}
		llm, err = openai.New(opts...)
	default:
		log.Printf("Storyteller: unknown provider %q", provider)
		return
	}
	if err != nil {
		log.Printf("Storyteller: failed to init %s (%s): %v", provider, model, err)
		return
	}

	globalStoryteller = &llmStoryteller{llm: llm, systemPrompt: storytellerSystemPrompt, callOpts: callOpts}
	log.Printf("Storyteller: %s model=%s", provider, model)
}

// maybeNarrate streams a story about a resolution to the game's lobby.
// Returns immediately; chunks arrive as "story" events. Skipped when
// no storyteller is configured or the round had nothing to tell.
func maybeNarrate(h *Hub, gameID string, res ResolutionResult) {
	if globalStoryteller == nil {
		return
	}
	facts := narrationFacts(res)
	if len(facts) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		lobbyID := h.lobbyFor(gameID)
		_, err := globalStoryteller.Tell(ctx, facts, func(chunk string) {
			h.sendToLobby(lobbyID, WSEvent{Event: "story", GameID: gameID, Round: res.Round, Chunk: chunk})
		})
		if err != nil {
			log.Printf("maybeNarrate: storyteller error for game %s: %v", gameID, err)
		}
	}()
}

// narrationFacts renders the public effects of a resolution as bare
// fact lines for the storyteller prompt. Reveals never reach it.
func narrationFacts(res ResolutionResult) []string {
	var facts []string
	for _, e := range res.Effects {
		switch e.Kind {
		case EffectEliminated:
			facts = append(facts, fmt.Sprintf("round %d, %s: %s died", res.Round, res.Phase, e.Player))
		case EffectProtected:
			facts = append(facts, fmt.Sprintf("round %d: %s was attacked but survived", res.Round, e.Player))
		case EffectNoLynch:
			facts = append(facts, fmt.Sprintf("round %d: the village could not agree, nobody was hanged", res.Round))
		}
	}
	return facts
}
