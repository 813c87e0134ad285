package ragchat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/hansard-backend/internal/clients/gcp"
	"github.com/yungbote/hansard-backend/internal/clients/llm"
	"github.com/yungbote/hansard-backend/internal/clients/pinecone"
	"github.com/yungbote/hansard-backend/internal/clients/redis"
	"github.com/yungbote/hansard-backend/internal/data/repos/catalog"
	"github.com/yungbote/hansard-backend/internal/domain"
	"github.com/yungbote/hansard-backend/internal/pkg/dbctx"
	apperrors "github.com/yungbote/hansard-backend/internal/pkg/errors"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
	"github.com/yungbote/hansard-backend/internal/utils"
)

const (
	embedBatchSize    = 100
	embedBatchTimeout = 60 * time.Second

	chatTemperature = 0.3
	chatMaxTokens   = 500

	defaultTopK = 5
	maxTopK     = 10
)

type ChatRequest struct {
	TranscriptID string `json:"transcript_id"`
	Question     string `json:"question"`
	MaxResults   int    `json:"max_results,omitempty"`
}

type BulkItem struct {
	TranscriptID string              `json:"transcript_id"`
	Status       *domain.EmbedStatus `json:"status,omitempty"`
	Error        string              `json:"error,omitempty"`
}

type Service interface {
	EmbedSession(ctx context.Context, transcriptID string, force bool) (*domain.EmbedStatus, error)
	BulkEmbed(ctx context.Context, transcriptIDs []string, force bool) []BulkItem
	SessionStatus(ctx context.Context, transcriptID string) (*domain.EmbedStatus, error)
	Chat(ctx context.Context, req ChatRequest) (*domain.ChatAnswer, error)
	ChatStream(ctx context.Context, req ChatRequest, onStart func(model string, citations int), onDelta func(delta string)) (*domain.ChatAnswer, error)
}

type service struct {
	log      *logger.Logger
	store    gcp.ObjectStore
	cache    redis.KV
	embedder *llm.EmbedChain
	chat     []llm.Provider
	vectors  pinecone.VectorStore
	runs     catalog.PipelineRunRepo

	answerTTL time.Duration
}

// NewService wires the chat pipeline. chatProviders are tried in order for
// answer generation; nil entries are skipped.
func NewService(
	log *logger.Logger,
	store gcp.ObjectStore,
	cache redis.KV,
	embedder *llm.EmbedChain,
	chatProviders []llm.Provider,
	vectors pinecone.VectorStore,
	runs catalog.PipelineRunRepo,
) Service {
	kept := make([]llm.Provider, 0, len(chatProviders))
	for _, p := range chatProviders {
		if p != nil {
			kept = append(kept, p)
		}
	}
	return &service{
		log:       log.With("service", "RagChatService"),
		store:     store,
		cache:     cache,
		embedder:  embedder,
		chat:      kept,
		vectors:   vectors,
		runs:      runs,
		answerTTL: time.Duration(utils.GetEnvAsInt("CHAT_ANSWER_TTL_SECONDS", 3600, log)) * time.Second,
	}
}

func (s *service) EmbedSession(ctx context.Context, transcriptID string, force bool) (*domain.EmbedStatus, error) {
	start := time.Now()

	if strings.TrimSpace(transcriptID) == "" {
		return nil, apperrors.BadRequest("transcript id required")
	}
	if !s.embedder.Configured() {
		return nil, apperrors.Configuration("no embedding provider configured")
	}

	if !force {
		if status := s.embedStatus(ctx, transcriptID); status.Embedded {
			s.log.Debug("session already embedded", "transcript_id", transcriptID, "chunks", status.ChunkCount)
			return status, nil
		}
	}

	var transcript domain.ProcessedTranscript
	if err := s.store.GetJSON(ctx, domain.ProcessedObjectKey(transcriptID), &transcript); err != nil {
		return nil, err
	}
	if len(transcript.Segments) == 0 {
		return nil, apperrors.BadRequest(fmt.Sprintf("transcript %s has no segments to embed", transcriptID))
	}

	chunks := BuildChunks(&transcript)
	provider, err := s.embedChunks(ctx, chunks)
	if err != nil {
		s.recordRun(ctx, transcriptID, err, start, nil)
		return nil, err
	}

	if err := s.upsertChunks(ctx, chunks); err != nil {
		s.recordRun(ctx, transcriptID, err, start, nil)
		return nil, err
	}

	status := &domain.EmbedStatus{
		Embedded:   true,
		ChunkCount: len(chunks),
		EmbeddedAt: time.Now().UTC(),
		Provider:   provider.Name(),
		Dimension:  provider.Dimension(),
	}
	// The embedded marker has no TTL; it is the session's admission ticket.
	if err := s.cache.SetJSON(ctx, domain.KVEmbedded(transcriptID), status, 0); err != nil {
		markErr := apperrors.Store("persist embedded marker", err)
		s.recordRun(ctx, transcriptID, markErr, start, nil)
		return nil, markErr
	}

	s.recordRun(ctx, transcriptID, nil, start, map[string]any{
		"chunk_count": len(chunks),
		"provider":    provider.Name(),
	})
	return status, nil
}

// embedChunks fills embeddings in place. All batches of one session go
// through the provider that served the first batch.
func (s *service) embedChunks(ctx context.Context, chunks []domain.Chunk) (llm.Embedder, error) {
	var provider llm.Embedder
	for offset := 0; offset < len(chunks); offset += embedBatchSize {
		end := offset + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]
		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Text
		}

		batchCtx, cancel := context.WithTimeout(ctx, embedBatchTimeout)
		var (
			vecs [][]float32
			err  error
		)
		if provider == nil {
			vecs, provider, err = s.embedder.Embed(batchCtx, texts)
		} else {
			vecs, err = provider.Embed(batchCtx, texts)
		}
		cancel()
		if err != nil {
			return nil, apperrors.Upstream("embed transcript chunks", err)
		}
		for i := range batch {
			batch[i].Embedding = vecs[i]
		}
	}
	return provider, nil
}

func (s *service) upsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	vectors := make([]pinecone.Vector, 0, len(chunks))
	for _, c := range chunks {
		vectors = append(vectors, pinecone.Vector{
			ID:     c.ChunkID,
			Values: c.Embedding,
			Metadata: map[string]any{
				"transcript_id":    c.TranscriptID,
				"speaker":          c.Speaker,
				"text":             c.Text,
				"chunk_index":      c.Index,
				"section_title":    c.SectionTitle,
				"subsection_title": c.SubsectionTitle,
				"word_count":       c.WordCount,
			},
		})
	}
	if err := s.vectors.Upsert(ctx, pinecone.NamespaceChunks, vectors); err != nil {
		return apperrors.Upstream("upsert chunk vectors", err)
	}
	return nil
}

func (s *service) BulkEmbed(ctx context.Context, transcriptIDs []string, force bool) []BulkItem {
	out := make([]BulkItem, 0, len(transcriptIDs))
	for _, id := range transcriptIDs {
		item := BulkItem{TranscriptID: id}
		status, err := s.EmbedSession(ctx, id, force)
		if err != nil {
			item.Error = err.Error()
		} else {
			item.Status = status
		}
		out = append(out, item)
	}
	return out
}

func (s *service) SessionStatus(ctx context.Context, transcriptID string) (*domain.EmbedStatus, error) {
	if strings.TrimSpace(transcriptID) == "" {
		return nil, apperrors.BadRequest("transcript id required")
	}
	return s.embedStatus(ctx, transcriptID), nil
}

func (s *service) embedStatus(ctx context.Context, transcriptID string) *domain.EmbedStatus {
	var status domain.EmbedStatus
	hit, err := s.cache.GetJSON(ctx, domain.KVEmbedded(transcriptID), &status)
	if err != nil {
		s.log.Warn("embedded marker read failed", "transcript_id", transcriptID, "error", err)
	}
	if !hit {
		return &domain.EmbedStatus{Embedded: false}
	}
	status.Embedded = true
	return &status
}

func (s *service) Chat(ctx context.Context, req ChatRequest) (*domain.ChatAnswer, error) {
	return s.chatInternal(ctx, req, nil, nil)
}

// ChatStream runs the identical retrieval, then streams generated text
// through onDelta. onStart fires once before the first fragment with the
// producing model and the citation count, so transports can commit headers.
func (s *service) ChatStream(ctx context.Context, req ChatRequest, onStart func(model string, citations int), onDelta func(delta string)) (*domain.ChatAnswer, error) {
	return s.chatInternal(ctx, req, onStart, onDelta)
}

func (s *service) chatInternal(ctx context.Context, req ChatRequest, onStart func(model string, citations int), onDelta func(delta string)) (*domain.ChatAnswer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, apperrors.BadRequest("question required")
	}
	if strings.TrimSpace(req.TranscriptID) == "" {
		return nil, apperrors.BadRequest("transcript id required")
	}

	status := s.embedStatus(ctx, req.TranscriptID)
	if !status.Embedded {
		return nil, apperrors.NotReady(fmt.Sprintf("session %s is not embedded yet", req.TranscriptID))
	}

	cacheKey := answerCacheKey(req.TranscriptID, question)
	if onDelta == nil {
		var cached domain.ChatAnswer
		if hit, err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	sources, err := s.retrieve(ctx, req, status.Provider)
	if err != nil {
		return nil, err
	}

	announced := false
	announce := func(model string, citations int) {
		if onStart != nil && !announced {
			announced = true
			onStart(model, citations)
		}
	}

	if len(sources) == 0 {
		answer := &domain.ChatAnswer{
			TranscriptID: req.TranscriptID,
			Answer:       noContextAnswer,
			Citations:    []domain.ChatCitation{},
		}
		if onDelta != nil {
			announce("", 0)
			onDelta(answer.Answer)
		}
		return answer, nil
	}

	answer := &domain.ChatAnswer{
		TranscriptID: req.TranscriptID,
		Citations:    citationsFrom(sources),
	}

	userPrompt := buildUserPrompt(buildContext(sources), question)
	text, model, genErr := s.generate(ctx, userPrompt, len(answer.Citations), announce, onDelta)
	if genErr != nil {
		// Retrieval succeeded; hand the caller the evidence with an honest
		// failure message instead of a bare error.
		s.log.Error("answer generation failed", "transcript_id", req.TranscriptID, "error", genErr)
		answer.Answer = "I found relevant excerpts but could not generate an answer right now. Please try again."
		if onDelta != nil {
			announce("", len(answer.Citations))
			onDelta(answer.Answer)
		}
		return answer, nil
	}

	answer.Answer = text
	answer.Model = model
	if onDelta == nil {
		if err := s.cache.SetJSON(ctx, cacheKey, answer, s.answerTTL); err != nil {
			s.log.Warn("answer cache write failed", "transcript_id", req.TranscriptID, "error", err)
		}
	}
	return answer, nil
}

// retrieve embeds the question with the session's embedding provider and
// queries the chunk index filtered to this transcript.
func (s *service) retrieve(ctx context.Context, req ChatRequest, providerName string) ([]retrieved, error) {
	embedder := s.embedder.Named(providerName)
	if embedder == nil {
		embedder = s.embedder.Primary()
	}
	if embedder == nil {
		return nil, apperrors.Configuration("no embedding provider configured")
	}

	vecs, err := embedder.Embed(ctx, []string{req.Question})
	if err != nil {
		return nil, apperrors.Upstream("embed question", err)
	}

	topK := req.MaxResults
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	matches, err := s.vectors.QueryMatches(ctx, pinecone.NamespaceChunks, vecs[0], topK, map[string]any{
		"transcript_id": req.TranscriptID,
	})
	if err != nil {
		return nil, apperrors.Upstream("chunk vector search", err)
	}

	sources := make([]retrieved, 0, len(matches))
	for _, m := range matches {
		src := retrieved{Score: m.Score}
		if v, ok := m.Metadata["text"].(string); ok {
			src.Text = v
		}
		if v, ok := m.Metadata["speaker"].(string); ok {
			src.Speaker = v
		}
		if v, ok := m.Metadata["section_title"].(string); ok {
			src.SectionTitle = v
		}
		if strings.TrimSpace(src.Text) == "" {
			continue
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// generate tries each chat provider in order; streaming when onDelta is set.
func (s *service) generate(ctx context.Context, userPrompt string, citations int, announce func(model string, citations int), onDelta func(delta string)) (string, string, error) {
	if len(s.chat) == 0 {
		return "", "", apperrors.Configuration("no chat provider configured")
	}
	opts := llm.GenerateOptions{Temperature: chatTemperature, MaxOutputTokens: chatMaxTokens}

	var lastErr error
	for _, p := range s.chat {
		var (
			text string
			err  error
		)
		if onDelta != nil {
			model := p.Model()
			streamDelta := func(delta string) {
				announce(model, citations)
				onDelta(delta)
			}
			text, err = p.StreamText(ctx, chatSystemPrompt, userPrompt, opts, streamDelta)
		} else {
			text, err = p.GenerateText(ctx, chatSystemPrompt, userPrompt, opts)
		}
		if err == nil {
			return text, p.Model(), nil
		}
		lastErr = err
		s.log.Warn("chat provider failed, trying next", "provider", p.Name(), "error", err)
	}
	return "", "", apperrors.Upstream("all chat providers failed", lastErr)
}

func answerCacheKey(transcriptID, question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return fmt.Sprintf("chat:answer:%s:%s", transcriptID, hex.EncodeToString(sum[:])[:16])
}

func (s *service) recordRun(ctx context.Context, transcriptID string, runErr error, start time.Time, detail map[string]any) {
	if s.runs == nil {
		return
	}
	run := &domain.PipelineRun{
		Pipeline:     domain.PipelineEmbed,
		TranscriptID: transcriptID,
		Status:       domain.RunStatusSucceeded,
		DurationMS:   time.Since(start).Milliseconds(),
	}
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.Error = runErr.Error()
	}
	if detail != nil {
		if b, err := json.Marshal(detail); err == nil {
			run.Detail = datatypes.JSON(b)
		}
	}
	if err := s.runs.Create(dbctx.Context{Ctx: ctx}, run); err != nil {
		s.log.Warn("pipeline run insert failed", "pipeline", domain.PipelineEmbed, "error", err)
	}
}
