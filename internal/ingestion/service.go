package ingestion

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/hansard-backend/internal/clients/gcp"
	"github.com/yungbote/hansard-backend/internal/clients/hansard"
	"github.com/yungbote/hansard-backend/internal/clients/redis"
	"github.com/yungbote/hansard-backend/internal/data/repos/catalog"
	"github.com/yungbote/hansard-backend/internal/domain"
	"github.com/yungbote/hansard-backend/internal/pkg/dbctx"
	apperrors "github.com/yungbote/hansard-backend/internal/pkg/errors"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
	"github.com/yungbote/hansard-backend/internal/utils"
)

// IngestRequest carries exactly one of the three input forms.
type IngestRequest struct {
	SittingDate string             `json:"sitting_date,omitempty"`
	RawURL      string             `json:"raw_url,omitempty"`
	RawHansard  *domain.RawHansard `json:"raw_hansard,omitempty"`

	TranscriptID string `json:"transcript_id,omitempty"`
	SkipStore    bool   `json:"skip_store,omitempty"`
	ForceRefresh bool   `json:"force_refresh,omitempty"`
}

type Service interface {
	Ingest(ctx context.Context, req IngestRequest) (*domain.IngestResult, error)
	GetTranscript(ctx context.Context, transcriptID string) (*domain.ProcessedTranscript, error)
	ListTranscripts(ctx context.Context, limit, offset int) ([]*domain.TranscriptRecord, int64, error)
}

type service struct {
	log     *logger.Logger
	fetcher hansard.Client
	store   gcp.ObjectStore
	cache   redis.KV
	records catalog.TranscriptRecordRepo
	runs    catalog.PipelineRunRepo

	rawTTL       time.Duration
	processedTTL time.Duration
}

func NewService(
	log *logger.Logger,
	fetcher hansard.Client,
	store gcp.ObjectStore,
	cache redis.KV,
	records catalog.TranscriptRecordRepo,
	runs catalog.PipelineRunRepo,
) Service {
	return &service{
		log:          log.With("service", "IngestionService"),
		fetcher:      fetcher,
		store:        store,
		cache:        cache,
		records:      records,
		runs:         runs,
		rawTTL:       time.Duration(utils.GetEnvAsInt("HANSARD_RAW_TTL_SECONDS", 86400, log)) * time.Second,
		processedTTL: time.Duration(utils.GetEnvAsInt("TRANSCRIPT_PROCESSED_TTL_SECONDS", 86400, log)) * time.Second,
	}
}

func (s *service) Ingest(ctx context.Context, req IngestRequest) (*domain.IngestResult, error) {
	start := time.Now()

	forms := 0
	if req.SittingDate != "" {
		forms++
	}
	if req.RawURL != "" {
		forms++
	}
	if req.RawHansard != nil {
		forms++
	}
	if forms != 1 {
		return nil, apperrors.BadRequest("exactly one of sitting_date, raw_url, raw_hansard is required")
	}

	var (
		raw    *domain.RawHansard
		cached bool
	)

	switch {
	case req.SittingDate != "":
		iso, err := CanonicalDate(req.SittingDate)
		if err != nil {
			return nil, err
		}
		raw, cached, err = s.loadRaw(ctx, iso, req.ForceRefresh)
		if err != nil {
			s.recordRun(ctx, "", err, start, nil)
			return nil, err
		}
	case req.RawURL != "":
		fetched, err := s.fetcher.FetchURL(ctx, req.RawURL)
		if err != nil {
			s.recordRun(ctx, "", err, start, nil)
			return nil, err
		}
		if err := ValidateRawHansard(fetched); err != nil {
			return nil, err
		}
		raw = fetched
	default:
		// Inline documents fail validation as a caller error, not an
		// upstream one.
		if err := ValidateRawHansard(req.RawHansard); err != nil {
			return nil, apperrors.BadRequest(err.Error())
		}
		raw = req.RawHansard
	}

	iso, err := CanonicalDate(raw.Metadata.SittingDate)
	if err != nil {
		return nil, apperrors.Malformed("metadata.sitting_date is not a recognized date", err)
	}

	transcriptID := req.TranscriptID
	if transcriptID == "" {
		transcriptID = TranscriptID(iso, raw.Metadata.ParliamentNo, raw.Metadata.SessionNo)
	}

	if !req.ForceRefresh {
		var prior domain.ProcessedTranscript
		hit, cacheErr := s.cache.GetJSON(ctx, domain.KVProcessed(transcriptID), &prior)
		if cacheErr != nil {
			s.log.Warn("processed cache read failed", "transcript_id", transcriptID, "error", cacheErr)
		}
		if hit {
			return s.resultFrom(&prior, true, start, !req.SkipStore), nil
		}
	}

	processed := s.process(transcriptID, iso, raw)

	var rawURI, processedURI string
	if !req.SkipStore {
		rawKey := domain.RawObjectKey(iso, transcriptID)
		processedKey := domain.ProcessedObjectKey(transcriptID)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			uri, err := s.store.PutJSON(gctx, rawKey, raw, map[string]string{
				"transcript_id": transcriptID,
				"sitting_date":  iso,
			})
			rawURI = uri
			return err
		})
		g.Go(func() error {
			uri, err := s.store.PutJSON(gctx, processedKey, processed, map[string]string{
				"transcript_id": transcriptID,
			})
			processedURI = uri
			return err
		})
		if err := g.Wait(); err != nil {
			storeErr := apperrors.Store("persist transcript artifacts", err)
			s.recordRun(ctx, transcriptID, storeErr, start, nil)
			return nil, storeErr
		}
	}

	s.writeCaches(ctx, iso, transcriptID, raw, processed)
	s.upsertCatalog(ctx, processed, raw, rawURI, processedURI)
	s.recordRun(ctx, transcriptID, nil, start, map[string]any{
		"segment_count": len(processed.Segments),
		"cached_raw":    cached,
	})

	res := s.resultFrom(processed, cached, start, !req.SkipStore)
	res.RawURI = rawURI
	res.ProcessedURI = processedURI
	return res, nil
}

// loadRaw consults the raw KV entry before going upstream.
func (s *service) loadRaw(ctx context.Context, iso string, force bool) (*domain.RawHansard, bool, error) {
	if !force {
		var cachedRaw domain.RawHansard
		hit, err := s.cache.GetJSON(ctx, domain.KVRawHansard(iso), &cachedRaw)
		if err != nil {
			s.log.Warn("raw cache read failed", "sitting_date", iso, "error", err)
		}
		if hit {
			if err := ValidateRawHansard(&cachedRaw); err == nil {
				return &cachedRaw, true, nil
			}
			// Stale or corrupt entry: drop and refetch.
			_ = s.cache.Delete(ctx, domain.KVRawHansard(iso))
		}
	}

	fetched, err := s.fetcher.FetchReport(ctx, UpstreamDate(iso))
	if err != nil {
		return nil, false, err
	}
	if err := ValidateRawHansard(fetched); err != nil {
		return nil, false, err
	}
	return fetched, false, nil
}

func (s *service) process(transcriptID, iso string, raw *domain.RawHansard) *domain.ProcessedTranscript {
	segments := ParseSections(transcriptID, raw.Sections)

	speakers := make([]string, 0, 8)
	seenSpeakers := map[string]bool{}
	topics := make([]string, 0, 8)
	seenTopics := map[string]bool{}
	totalWords, totalChars := 0, 0
	for _, seg := range segments {
		if seg.Speaker != "" && !seenSpeakers[seg.Speaker] {
			seenSpeakers[seg.Speaker] = true
			speakers = append(speakers, seg.Speaker)
		}
		if seg.SectionTitle != "" && !seenTopics[seg.SectionTitle] {
			seenTopics[seg.SectionTitle] = true
			topics = append(topics, seg.SectionTitle)
		}
		totalWords += seg.WordCount
		totalChars += seg.CharCount
	}

	attendance := make([]string, 0, len(raw.Attendance))
	for _, rec := range raw.Attendance {
		if rec.Name != "" {
			attendance = append(attendance, rec.Name)
		}
	}

	out := &domain.ProcessedTranscript{
		TranscriptID: transcriptID,
		SittingDate:  iso,
		DisplayDate:  raw.Metadata.DisplayDate,
		Segments:     segments,
		Speakers:     speakers,
		Topics:       topics,
		Attendance:   attendance,
		TotalWords:   totalWords,
		TotalChars:   totalChars,
		ProcessedAt:  time.Now().UTC(),
	}
	if raw.Metadata.ParliamentNo != nil {
		out.ParliamentNo = *raw.Metadata.ParliamentNo
	}
	if raw.Metadata.SessionNo != nil {
		out.SessionNo = *raw.Metadata.SessionNo
	}
	return out
}

// writeCaches is advisory: failures are logged, never returned.
func (s *service) writeCaches(ctx context.Context, iso, transcriptID string, raw *domain.RawHansard, processed *domain.ProcessedTranscript) {
	if err := s.cache.SetJSON(ctx, domain.KVRawHansard(iso), raw, s.rawTTL); err != nil {
		s.log.Warn("raw cache write failed", "sitting_date", iso, "error", err)
	}
	if err := s.cache.SetJSON(ctx, domain.KVProcessed(transcriptID), processed, s.processedTTL); err != nil {
		s.log.Warn("processed cache write failed", "transcript_id", transcriptID, "error", err)
	}
}

func (s *service) upsertCatalog(ctx context.Context, processed *domain.ProcessedTranscript, raw *domain.RawHansard, rawURI, processedURI string) {
	if s.records == nil {
		return
	}
	rec := &domain.TranscriptRecord{
		TranscriptID: processed.TranscriptID,
		SittingDate:  processed.SittingDate,
		DisplayDate:  processed.DisplayDate,
		ParliamentNo: processed.ParliamentNo,
		SessionNo:    processed.SessionNo,
		SegmentCount: len(processed.Segments),
		SpeakerCount: len(processed.Speakers),
		TotalWords:   processed.TotalWords,
		RawURI:       rawURI,
		ProcessedURI: processedURI,
	}
	if err := s.records.Upsert(dbctx.Context{Ctx: ctx}, rec); err != nil {
		s.log.Warn("catalog upsert failed", "transcript_id", processed.TranscriptID, "error", err)
	}
}

func (s *service) recordRun(ctx context.Context, transcriptID string, runErr error, start time.Time, detail map[string]any) {
	if s.runs == nil {
		return
	}
	run := &domain.PipelineRun{
		Pipeline:     domain.PipelineIngest,
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
		s.log.Warn("pipeline run insert failed", "pipeline", domain.PipelineIngest, "error", err)
	}
}

func (s *service) resultFrom(t *domain.ProcessedTranscript, cached bool, start time.Time, withURIs bool) *domain.IngestResult {
	res := &domain.IngestResult{
		TranscriptID: t.TranscriptID,
		SittingDate:  t.SittingDate,
		DisplayDate:  t.DisplayDate,
		Speakers:     t.Speakers,
		Topics:       t.Topics,
		SegmentCount: len(t.Segments),
		TotalWords:   t.TotalWords,
		Cached:       cached,
		ProcessingMS: time.Since(start).Milliseconds(),
	}
	if withURIs {
		res.RawURI = s.store.URI(domain.RawObjectKey(t.SittingDate, t.TranscriptID))
		res.ProcessedURI = s.store.URI(domain.ProcessedObjectKey(t.TranscriptID))
	}
	return res
}

func (s *service) GetTranscript(ctx context.Context, transcriptID string) (*domain.ProcessedTranscript, error) {
	if transcriptID == "" {
		return nil, apperrors.BadRequest("transcript id required")
	}
	var out domain.ProcessedTranscript
	if err := s.store.GetJSON(ctx, domain.ProcessedObjectKey(transcriptID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) ListTranscripts(ctx context.Context, limit, offset int) ([]*domain.TranscriptRecord, int64, error) {
	if s.records == nil {
		return []*domain.TranscriptRecord{}, 0, nil
	}
	return s.records.List(dbctx.Context{Ctx: ctx}, limit, offset)
}
