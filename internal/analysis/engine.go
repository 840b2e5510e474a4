package analysis

import (
	"context"
	"log/slog"
	"time"

	"spyglass/internal/collector"
	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/services"
	"spyglass/internal/services/llm"
)

// Engine turns collected profile data into an analysis Result. When an AI
// client is configured it asks the model first and falls back to the
// deterministic heuristics on any failure; the heuristics never error on
// non-empty data, so analysis of usable data always produces a result.
type Engine struct {
	client *llm.Client
	cfg    *config.Config
	logger *slog.Logger
}

// New builds an engine. The client may be nil or unconfigured, which keeps
// the engine heuristic-only.
func New(client *llm.Client, cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{client: client, cfg: cfg, logger: logger}
}

// AIConfigured reports whether the engine will consult the AI provider.
func (e *Engine) AIConfigured() bool {
	return e.client.Configured()
}

// Analyze produces the analysis document for collected data.
func (e *Engine) Analyze(ctx context.Context, data *collector.CollectedData) (*Result, error) {
	if data.Empty() {
		return nil, services.Wrap(services.ErrValidation, "analysis", "analyze", "no usable data collected", nil)
	}

	result := e.baseResult(data)
	if e.client.Configured() {
		modelJudgment, err := e.consultModel(ctx, data)
		if err != nil {
			e.logger.Warn("ai analysis failed, falling back to heuristics",
				logging.String(logging.FieldPlatform, data.Platform),
				logging.String(logging.FieldIdentifier, data.Identifier),
				logging.Error(err))
		} else {
			result.Source = SourceAI
			result.Sentiment = modelJudgment.Sentiment
			result.Authenticity = modelJudgment.Authenticity
			result.Themes = modelJudgment.Themes
			return result, nil
		}
	}

	result.Source = SourceHeuristic
	result.Sentiment = heuristicSentiment(data)
	result.Authenticity = heuristicAuthenticity(data)
	result.Themes = heuristicThemes(data)
	return result, nil
}

// baseResult fills the factual envelope both analysis paths share.
func (e *Engine) baseResult(data *collector.CollectedData) *Result {
	result := &Result{
		GeneratedAt: time.Now().UTC(),
		Platform:    data.Platform,
		Identifier:  data.Identifier,
		Depth:       data.Depth,
		Sources: Sources{
			Succeeded: data.SucceededSources(),
		},
	}
	for _, failure := range data.Failures {
		result.Sources.Failed = append(result.Sources.Failed, SourceNote{
			Source: failure.Source,
			Kind:   failure.Kind,
			Detail: failure.Detail,
		})
	}
	result.Profile.Platforms = data.PlatformsSeen()
	if primary := data.Primary; primary != nil {
		result.Profile.DisplayName = primary.DisplayName
		result.Profile.Bio = primary.Bio
		result.Profile.Verified = primary.Verified
		result.Profile.FollowerCount = primary.FollowerCount
		result.Profile.FollowingCount = primary.FollowingCount
		result.Profile.PostCount = primary.PostCount
		result.Profile.EngagementRate = primary.EngagementRate
	}
	return result
}

func (e *Engine) consultModel(ctx context.Context, data *collector.CollectedData) (*judgment, error) {
	evidence, err := buildEvidence(data, e.maxSummaryPosts())
	if err != nil {
		return nil, err
	}
	content, err := e.client.CompleteJSON(ctx, analysisSystemPrompt, evidence)
	if err != nil {
		return nil, err
	}
	var modelJudgment judgment
	if err := llm.DecodeLLMJSON(content, &modelJudgment); err != nil {
		return nil, err
	}
	if err := modelJudgment.validate(); err != nil {
		return nil, err
	}
	return &modelJudgment, nil
}

func (e *Engine) maxSummaryPosts() int {
	if e.cfg != nil && e.cfg.Analysis.MaxSummaryPosts > 0 {
		return e.cfg.Analysis.MaxSummaryPosts
	}
	return 25
}
