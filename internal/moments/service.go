package moments

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
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
	defaultMinScore   = 5.0
	defaultMaxResults = 20
	hardMaxResults    = 50

	extractionMaxTokens = 3000

	batchConcurrency = 4
)

// extractionModel is the candidate-proposal surface; the OpenAI client
// satisfies it, tests stub it.
type extractionModel interface {
	Model() string
	GenerateJSON(ctx context.Context, system string, user string, opts llm.GenerateOptions) (string, error)
}

type BatchItem struct {
	TranscriptID string                   `json:"transcript_id"`
	Result       *domain.ExtractionResult `json:"result,omitempty"`
	Error        string                   `json:"error,omitempty"`
}

type Service interface {
	Extract(ctx context.Context, transcriptID string, criteria *domain.ExtractionCriteria) (*domain.ExtractionResult, error)
	ExtractBatch(ctx context.Context, transcriptIDs []string, criteria *domain.ExtractionCriteria) []BatchItem
	Analyze(quote, topic, tone string) domain.QuoteAnalysis
	Search(ctx context.Context, query string, limit int) ([]domain.MomentSearchHit, error)
}

type service struct {
	log       *logger.Logger
	store     gcp.ObjectStore
	cache     redis.KV
	extractor extractionModel
	embedder  *llm.EmbedChain
	vectors   pinecone.VectorStore
	runs      catalog.PipelineRunRepo

	embedMoments bool
	momentsTTL   time.Duration
}

func NewService(
	log *logger.Logger,
	store gcp.ObjectStore,
	cache redis.KV,
	extractor extractionModel,
	embedder *llm.EmbedChain,
	vectors pinecone.VectorStore,
	runs catalog.PipelineRunRepo,
) Service {
	return &service{
		log:          log.With("service", "MomentService"),
		store:        store,
		cache:        cache,
		extractor:    extractor,
		embedder:     embedder,
		vectors:      vectors,
		runs:         runs,
		embedMoments: utils.GetEnvAsBool("EMBED_MOMENTS", true, log),
		momentsTTL:   time.Duration(utils.GetEnvAsInt("MOMENTS_TTL_SECONDS", 3600, log)) * time.Second,
	}
}

func (s *service) Extract(ctx context.Context, transcriptID string, criteria *domain.ExtractionCriteria) (*domain.ExtractionResult, error) {
	start := time.Now()

	if strings.TrimSpace(transcriptID) == "" {
		return nil, apperrors.BadRequest("transcript id required")
	}
	if s.extractor == nil {
		return nil, apperrors.Configuration("no extraction model configured")
	}
	crit := normalizeCriteria(criteria)

	transcript, err := s.loadTranscript(ctx, transcriptID)
	if err != nil {
		return nil, err
	}

	result := &domain.ExtractionResult{
		TranscriptID: transcriptID,
		Moments:      []domain.Moment{},
		ProcessedAt:  time.Now().UTC(),
		Model:        s.extractor.Model(),
	}

	if len(transcript.Segments) > 0 {
		response, llmErr := s.extractor.GenerateJSON(ctx, extractionSystemPrompt, buildExtractionPrompt(transcript), llm.GenerateOptions{
			Temperature:     0.7,
			MaxOutputTokens: extractionMaxTokens,
		})
		if llmErr != nil {
			upErr := apperrors.Upstream("moment extraction model call failed", llmErr)
			s.recordRun(ctx, transcriptID, upErr, start, nil)
			return nil, upErr
		}

		candidates := parseCandidates(response, transcript.Segments[len(transcript.Segments)-1].Index)
		result.Moments = s.buildMoments(transcript, candidates, crit)
	}

	if s.embedMoments {
		s.embedQuotes(ctx, result.Moments)
	}

	result.Stats = computeStats(result.Moments)
	if len(result.Moments) > 0 {
		top := result.Moments[0]
		result.TopMoment = &top
	}

	if _, err := s.store.PutJSON(ctx, domain.MomentsObjectKey(transcriptID), result, map[string]string{
		"transcript_id": transcriptID,
	}); err != nil {
		storeErr := apperrors.Store("persist extraction result", err)
		s.recordRun(ctx, transcriptID, storeErr, start, nil)
		return nil, storeErr
	}

	// Index and cache failures are logged and swallowed; the JSON artifact
	// is the source of truth.
	s.indexMoments(ctx, transcriptID, result.Moments)
	if err := s.cache.SetJSON(ctx, domain.KVMoments(transcriptID), result, s.momentsTTL); err != nil {
		s.log.Warn("moments cache write failed", "transcript_id", transcriptID, "error", err)
	}

	s.recordRun(ctx, transcriptID, nil, start, map[string]any{
		"moment_count": len(result.Moments),
		"model":        result.Model,
	})
	return result, nil
}

func (s *service) ExtractBatch(ctx context.Context, transcriptIDs []string, criteria *domain.ExtractionCriteria) []BatchItem {
	out := make([]BatchItem, len(transcriptIDs))
	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, id := range transcriptIDs {
		g.Go(func() error {
			item := BatchItem{TranscriptID: id}
			res, err := s.Extract(ctx, id, criteria)
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Result = res
			}
			out[i] = item
			return nil
		})
	}
	g.Wait()
	return out
}

func (s *service) Analyze(quote, topic, tone string) domain.QuoteAnalysis {
	return AnalyzeQuote(quote, topic, tone, 0, false, false)
}

func (s *service) Search(ctx context.Context, query string, limit int) ([]domain.MomentSearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.BadRequest("query required")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	if !s.embedder.Configured() {
		return nil, apperrors.Configuration("no embedding provider configured")
	}

	vecs, _, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, apperrors.Upstream("embed search query", err)
	}

	matches, err := s.vectors.QueryMatches(ctx, pinecone.NamespaceMoments, vecs[0], limit, nil)
	if err != nil {
		return nil, apperrors.Upstream("moment vector search", err)
	}

	hits := make([]domain.MomentSearchHit, 0, len(matches))
	for _, m := range matches {
		hit := domain.MomentSearchHit{
			MomentID: m.ID,
			Score:    m.Score,
		}
		if v, ok := m.Metadata["transcript_id"].(string); ok {
			hit.TranscriptID = v
		}
		if v, ok := m.Metadata["quote"].(string); ok {
			hit.Quote = v
		}
		if v, ok := m.Metadata["speaker"].(string); ok {
			hit.Speaker = v
		}
		if v, ok := m.Metadata["topic"].(string); ok {
			hit.Topic = v
		}
		if v, ok := m.Metadata["virality_score"].(float64); ok {
			hit.ViralityScore = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// -------------------- internals --------------------

func normalizeCriteria(criteria *domain.ExtractionCriteria) domain.ExtractionCriteria {
	crit := domain.ExtractionCriteria{MinScore: defaultMinScore, MaxResults: defaultMaxResults}
	if criteria != nil {
		if criteria.MinScore > 0 {
			crit.MinScore = criteria.MinScore
		}
		if criteria.MaxResults > 0 {
			crit.MaxResults = criteria.MaxResults
		}
		crit.Topics = criteria.Topics
		crit.Speakers = criteria.Speakers
	}
	if crit.MaxResults > hardMaxResults {
		crit.MaxResults = hardMaxResults
	}
	return crit
}

func (s *service) loadTranscript(ctx context.Context, transcriptID string) (*domain.ProcessedTranscript, error) {
	var cached domain.ProcessedTranscript
	hit, err := s.cache.GetJSON(ctx, domain.KVProcessed(transcriptID), &cached)
	if err != nil {
		s.log.Warn("processed cache read failed", "transcript_id", transcriptID, "error", err)
	}
	if hit {
		return &cached, nil
	}

	var stored domain.ProcessedTranscript
	if err := s.store.GetJSON(ctx, domain.ProcessedObjectKey(transcriptID), &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *service) buildMoments(t *domain.ProcessedTranscript, candidates []candidate, crit domain.ExtractionCriteria) []domain.Moment {
	type scored struct {
		cand     candidate
		analysis domain.QuoteAnalysis
		firstIdx int
	}

	accepted := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		analysis := AnalyzeQuote(c.Quote, c.Topic, c.EmotionalTone, c.AIScore, c.HasContradiction, c.AffectsEverydayLife)
		if analysis.Score < crit.MinScore {
			continue
		}
		if !allowlisted(c.Topic, crit.Topics) || !allowlisted(c.Speaker, crit.Speakers) {
			continue
		}
		first := c.SegmentIndices[0]
		for _, idx := range c.SegmentIndices {
			if idx < first {
				first = idx
			}
		}
		accepted = append(accepted, scored{cand: c, analysis: analysis, firstIdx: first})
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		a, b := accepted[i], accepted[j]
		if a.analysis.Score != b.analysis.Score {
			return a.analysis.Score > b.analysis.Score
		}
		if a.cand.AIScore != b.cand.AIScore {
			return a.cand.AIScore > b.cand.AIScore
		}
		if a.firstIdx != b.firstIdx {
			return a.firstIdx < b.firstIdx
		}
		return len(a.cand.Quote) < len(b.cand.Quote)
	})

	if len(accepted) > crit.MaxResults {
		accepted = accepted[:crit.MaxResults]
	}

	now := time.Now().UTC()
	out := make([]domain.Moment, 0, len(accepted))
	for rank, sc := range accepted {
		c := sc.cand

		minIdx, maxIdx := c.SegmentIndices[0], c.SegmentIndices[0]
		for _, idx := range c.SegmentIndices {
			if idx < minIdx {
				minIdx = idx
			}
			if idx > maxIdx {
				maxIdx = idx
			}
		}

		segmentIDs := make([]string, 0, len(c.SegmentIndices))
		sectionTitle := ""
		for _, idx := range c.SegmentIndices {
			if seg := t.SegmentByIndex(idx); seg != nil {
				segmentIDs = append(segmentIDs, seg.ID)
				if sectionTitle == "" {
					sectionTitle = seg.SectionTitle
				}
			}
		}

		contextBefore, contextAfter := "", ""
		if seg := t.SegmentByIndex(minIdx - 1); seg != nil {
			contextBefore = seg.Text
		}
		if seg := t.SegmentByIndex(maxIdx + 1); seg != nil {
			contextAfter = seg.Text
		}

		out = append(out, domain.Moment{
			MomentID:          fmt.Sprintf("%s-moment-%d", t.TranscriptID, rank),
			Quote:             strings.TrimSpace(c.Quote),
			Speaker:           c.Speaker,
			TimestampRange:    timestampRange(t, minIdx, maxIdx),
			ContextBefore:     contextBefore,
			ContextAfter:      contextAfter,
			ViralityScore:     sc.analysis.Score,
			AIScore:           c.AIScore,
			WhyViral:          c.WhyViral,
			Topic:             c.Topic,
			EmotionalTone:     c.EmotionalTone,
			TargetDemographic: c.TargetDemographic,
			SectionTitle:      sectionTitle,
			TranscriptID:      t.TranscriptID,
			SegmentIDs:        segmentIDs,
			SegmentIndices:    c.SegmentIndices,
			CreatedAt:         now,
		})
	}
	return out
}

func timestampRange(t *domain.ProcessedTranscript, minIdx, maxIdx int) string {
	first, last := "", ""
	if seg := t.SegmentByIndex(minIdx); seg != nil {
		first = seg.Timestamp
	}
	if seg := t.SegmentByIndex(maxIdx); seg != nil {
		last = seg.Timestamp
	}
	if first == "" {
		return last
	}
	if last == "" || last == first {
		return first
	}
	return first + " - " + last
}

func allowlisted(value string, allow []string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}

// embedQuotes attaches quote embeddings in place. Provider failure degrades
// the moments (empty embedding) instead of dropping them.
func (s *service) embedQuotes(ctx context.Context, ms []domain.Moment) {
	if len(ms) == 0 || !s.embedder.Configured() {
		return
	}
	quotes := make([]string, len(ms))
	for i := range ms {
		quotes[i] = ms[i].Quote
	}
	vecs, provider, err := s.embedder.Embed(ctx, quotes)
	if err != nil {
		s.log.Warn("moment embedding failed; continuing without vectors", "error", err)
		return
	}
	for i := range ms {
		ms[i].Embedding = vecs[i]
	}
	s.log.Debug("moments embedded", "count", len(ms), "provider", provider.Name())
}

func (s *service) indexMoments(ctx context.Context, transcriptID string, ms []domain.Moment) {
	if s.vectors == nil {
		return
	}
	vectors := make([]pinecone.Vector, 0, len(ms))
	for _, m := range ms {
		if len(m.Embedding) == 0 {
			continue
		}
		vectors = append(vectors, pinecone.Vector{
			ID:     m.MomentID,
			Values: m.Embedding,
			Metadata: map[string]any{
				"transcript_id":  m.TranscriptID,
				"speaker":        m.Speaker,
				"topic":          m.Topic,
				"virality_score": m.ViralityScore,
				"quote":          m.Quote,
			},
		})
	}
	if len(vectors) == 0 {
		return
	}
	if err := s.vectors.Upsert(ctx, pinecone.NamespaceMoments, vectors); err != nil {
		s.log.Warn("moment vector upsert failed", "transcript_id", transcriptID, "error", err)
	}
}

func computeStats(ms []domain.Moment) domain.ExtractionStats {
	stats := domain.ExtractionStats{
		Total:     len(ms),
		ByTopic:   map[string]int{},
		BySpeaker: map[string]int{},
		ByTone:    map[string]int{},
	}
	sum := 0.0
	for _, m := range ms {
		stats.ByTopic[m.Topic]++
		stats.BySpeaker[m.Speaker]++
		stats.ByTone[m.EmotionalTone]++
		sum += m.ViralityScore
	}
	if len(ms) > 0 {
		stats.MeanScore = sum / float64(len(ms))
	}
	return stats
}

func (s *service) recordRun(ctx context.Context, transcriptID string, runErr error, start time.Time, detail map[string]any) {
	if s.runs == nil {
		return
	}
	run := &domain.PipelineRun{
		Pipeline:     domain.PipelineMoments,
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
		s.log.Warn("pipeline run insert failed", "pipeline", domain.PipelineMoments, "error", err)
	}
}
