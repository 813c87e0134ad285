package videomatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"gorm.io/datatypes"

	"github.com/yungbote/hansard-backend/internal/clients/gcp"
	"github.com/yungbote/hansard-backend/internal/clients/redis"
	"github.com/yungbote/hansard-backend/internal/clients/youtube"
	"github.com/yungbote/hansard-backend/internal/data/repos/catalog"
	"github.com/yungbote/hansard-backend/internal/domain"
	"github.com/yungbote/hansard-backend/internal/ingestion"
	"github.com/yungbote/hansard-backend/internal/pkg/dbctx"
	apperrors "github.com/yungbote/hansard-backend/internal/pkg/errors"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
	"github.com/yungbote/hansard-backend/internal/utils"
)

const (
	minConfidence    = 5.0
	searchMaxResults = 10

	windowBefore = 2 * 24 * time.Hour
	windowAfter  = 3 * 24 * time.Hour

	// Quota exhaustion has no authoritative reset time on this catalog;
	// callers get a flat hint.
	quotaRetryAfter = 30 * time.Second
)

type MatchRequest struct {
	TranscriptID string   `json:"transcript_id"`
	SittingDate  string   `json:"sitting_date,omitempty"`
	Speakers     []string `json:"speakers,omitempty"`
	ChannelID    string   `json:"channel_id,omitempty"`
}

type FindTimestampRequest struct {
	TranscriptID string `json:"transcript_id"`
	Quote        string `json:"quote"`
}

type Service interface {
	Match(ctx context.Context, req MatchRequest) (*domain.VideoMatch, error)
	GetMatch(ctx context.Context, transcriptID string) (*domain.VideoMatch, error)
	FindTimestamp(ctx context.Context, req FindTimestampRequest) (*domain.TimestampEstimate, error)
}

type service struct {
	log     *logger.Logger
	catalog youtube.Client
	store   gcp.ObjectStore
	cache   redis.KV
	runs    catalog.PipelineRunRepo

	defaultChannel string
	matchTTL       time.Duration
}

func NewService(
	log *logger.Logger,
	videoCatalog youtube.Client,
	store gcp.ObjectStore,
	cache redis.KV,
	runs catalog.PipelineRunRepo,
) Service {
	return &service{
		log:            log.With("service", "VideoMatchService"),
		catalog:        videoCatalog,
		store:          store,
		cache:          cache,
		runs:           runs,
		defaultChannel: utils.GetEnv("YOUTUBE_CHANNEL_ID", "", log),
		matchTTL:       time.Duration(utils.GetEnvAsInt("VIDEO_MATCH_TTL_SECONDS", 86400, log)) * time.Second,
	}
}

func (s *service) Match(ctx context.Context, req MatchRequest) (*domain.VideoMatch, error) {
	start := time.Now()

	if strings.TrimSpace(req.TranscriptID) == "" {
		return nil, apperrors.BadRequest("transcript id required")
	}
	if s.catalog == nil {
		return nil, apperrors.Configuration("video catalog client not configured")
	}

	sittingDate := req.SittingDate
	if strings.TrimSpace(sittingDate) == "" && len(req.TranscriptID) >= 10 {
		// Transcript ids lead with the ISO sitting date.
		sittingDate = req.TranscriptID[:10]
	}
	iso, err := ingestion.CanonicalDate(sittingDate)
	if err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return nil, apperrors.BadRequest(fmt.Sprintf("invalid sitting date %q", sittingDate))
	}

	channel := req.ChannelID
	if strings.TrimSpace(channel) == "" {
		channel = s.defaultChannel
	}

	best, bestCriteria, err := s.findBest(ctx, channel, date, req.Speakers)
	if err != nil {
		s.recordRun(ctx, req.TranscriptID, err, start, nil)
		return nil, err
	}
	if best == nil {
		noMatch := apperrors.NotFound(fmt.Sprintf("no video match above confidence %.1f for %s", minConfidence, iso))
		s.recordRun(ctx, req.TranscriptID, noMatch, start, nil)
		return nil, noMatch
	}

	score, _ := scoreCandidate(*best, date, req.Speakers)
	match := &domain.VideoMatch{
		TranscriptID:      req.TranscriptID,
		VideoID:           best.VideoID,
		URL:               watchURL(best.VideoID),
		Title:             best.Title,
		ChannelID:         best.ChannelID,
		DurationSeconds:   best.DurationSeconds,
		PublishedAt:       best.PublishedAt,
		Confidence:        score,
		MatchCriteria:     bestCriteria,
		CaptionsAvailable: best.CaptionsAvailable,
		CreatedAt:         time.Now().UTC(),
	}

	if _, err := s.store.PutJSON(ctx, domain.VideoMatchObjectKey(req.TranscriptID), match, map[string]string{
		"transcript_id":    match.TranscriptID,
		"video_id":         match.VideoID,
		"confidence_score": fmt.Sprintf("%.2f", match.Confidence),
	}); err != nil {
		storeErr := apperrors.Store("persist video match", err)
		s.recordRun(ctx, req.TranscriptID, storeErr, start, nil)
		return nil, storeErr
	}

	if err := s.cache.SetJSON(ctx, domain.KVVideoMatch(req.TranscriptID), match, s.matchTTL); err != nil {
		s.log.Warn("video match cache write failed", "transcript_id", req.TranscriptID, "error", err)
	}

	s.recordRun(ctx, req.TranscriptID, nil, start, map[string]any{
		"video_id":   match.VideoID,
		"confidence": match.Confidence,
	})
	return match, nil
}

// findBest searches the window, resolves details and picks the top candidate.
// A nil result with nil error means nothing cleared the confidence floor.
func (s *service) findBest(ctx context.Context, channel string, date time.Time, speakers []string) (*youtube.VideoDetail, []string, error) {
	query := fmt.Sprintf("Parliament %s", date.Format("2 January 2006"))
	after := date.Add(-windowBefore)
	before := date.Add(windowAfter)

	hits, err := s.catalog.Search(ctx, channel, query, after, before, searchMaxResults)
	if err != nil {
		return nil, nil, mapCatalogError("video catalog search", err)
	}
	if len(hits) == 0 {
		return nil, nil, nil
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.VideoID)
	}
	details, err := s.catalog.VideoDetails(ctx, ids)
	if err != nil {
		return nil, nil, mapCatalogError("video catalog details", err)
	}
	if len(details) == 0 {
		return nil, nil, nil
	}

	type scored struct {
		detail   youtube.VideoDetail
		score    float64
		criteria []string
		dayDiff  int
	}
	candidates := make([]scored, 0, len(details))
	for _, d := range details {
		score, criteria := scoreCandidate(d, date, speakers)
		candidates = append(candidates, scored{
			detail:   d,
			score:    score,
			criteria: criteria,
			dayDiff:  calendarDayDiff(d.PublishedAt, date),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.dayDiff != b.dayDiff {
			return a.dayDiff < b.dayDiff
		}
		return a.detail.DurationSeconds > b.detail.DurationSeconds
	})

	top := candidates[0]
	if top.score < minConfidence {
		s.log.Info("best candidate below confidence floor",
			"video_id", top.detail.VideoID, "score", top.score)
		return nil, nil, nil
	}
	return &top.detail, top.criteria, nil
}

func (s *service) GetMatch(ctx context.Context, transcriptID string) (*domain.VideoMatch, error) {
	if strings.TrimSpace(transcriptID) == "" {
		return nil, apperrors.BadRequest("transcript id required")
	}

	var cached domain.VideoMatch
	hit, err := s.cache.GetJSON(ctx, domain.KVVideoMatch(transcriptID), &cached)
	if err != nil {
		s.log.Warn("video match cache read failed", "transcript_id", transcriptID, "error", err)
	}
	if hit {
		return &cached, nil
	}

	var stored domain.VideoMatch
	if err := s.store.GetJSON(ctx, domain.VideoMatchObjectKey(transcriptID), &stored); err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, domain.KVVideoMatch(transcriptID), &stored, s.matchTTL); err != nil {
		s.log.Warn("video match cache rehydrate failed", "transcript_id", transcriptID, "error", err)
	}
	return &stored, nil
}

// FindTimestamp estimates where a quote occurs in the matched video from the
// quote segment's proportional position in the transcript.
func (s *service) FindTimestamp(ctx context.Context, req FindTimestampRequest) (*domain.TimestampEstimate, error) {
	quote := strings.TrimSpace(req.Quote)
	if quote == "" {
		return nil, apperrors.BadRequest("quote required")
	}

	match, err := s.GetMatch(ctx, req.TranscriptID)
	if err != nil {
		return nil, err
	}

	var transcript domain.ProcessedTranscript
	if err := s.store.GetJSON(ctx, domain.ProcessedObjectKey(req.TranscriptID), &transcript); err != nil {
		return nil, err
	}
	if len(transcript.Segments) == 0 {
		return nil, apperrors.NotFound(fmt.Sprintf("transcript %s has no segments", req.TranscriptID))
	}

	needle := strings.ToLower(quote)
	segment := -1
	for i, seg := range transcript.Segments {
		if strings.Contains(strings.ToLower(seg.Text), needle) {
			segment = i
			break
		}
	}
	if segment < 0 {
		return nil, apperrors.NotFound("quote not found in transcript")
	}

	fraction := float64(transcript.Segments[segment].Index) / float64(len(transcript.Segments))
	offset := int64(fraction * float64(match.DurationSeconds))

	return &domain.TimestampEstimate{
		TranscriptID:  req.TranscriptID,
		VideoID:       match.VideoID,
		OffsetSeconds: offset,
		URL:           fmt.Sprintf("%s&t=%ds", match.URL, offset),
		SegmentID:     transcript.Segments[segment].ID,
		Fraction:      fraction,
	}, nil
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// mapCatalogError translates catalog API failures into the shared taxonomy.
// Quota and rate errors carry a retry-after hint.
func mapCatalogError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == 429 || (gerr.Code == 403 && quotaReason(gerr)) {
			return apperrors.RateLimited(op+": catalog quota exceeded", quotaRetryAfter)
		}
	}
	return apperrors.Upstream(op, err)
}

func quotaReason(gerr *googleapi.Error) bool {
	for _, e := range gerr.Errors {
		if strings.Contains(e.Reason, "quota") || strings.Contains(e.Reason, "rateLimit") {
			return true
		}
	}
	return false
}

func (s *service) recordRun(ctx context.Context, transcriptID string, runErr error, start time.Time, detail map[string]any) {
	if s.runs == nil {
		return
	}
	run := &domain.PipelineRun{
		Pipeline:     domain.PipelineVideoMatch,
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
		s.log.Warn("pipeline run insert failed", "pipeline", domain.PipelineVideoMatch, "error", err)
	}
}
