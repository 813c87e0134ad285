package videomatch

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/yungbote/hansard-backend/internal/clients/youtube"
	"github.com/yungbote/hansard-backend/internal/domain"
	apperrors "github.com/yungbote/hansard-backend/internal/pkg/errors"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

type stubCatalog struct {
	hits    []youtube.SearchHit
	details []youtube.VideoDetail

	searchErr  error
	detailsErr error

	searchCalls int
	lastChannel string
	lastQuery   string
	lastAfter   time.Time
	lastBefore  time.Time
}

func (s *stubCatalog) Search(ctx context.Context, channelID, query string, after, before time.Time, maxResults int64) ([]youtube.SearchHit, error) {
	s.searchCalls++
	s.lastChannel = channelID
	s.lastQuery = query
	s.lastAfter = after
	s.lastBefore = before
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.hits, nil
}

func (s *stubCatalog) VideoDetails(ctx context.Context, ids []string) ([]youtube.VideoDetail, error) {
	if s.detailsErr != nil {
		return nil, s.detailsErr
	}
	return s.details, nil
}

type memStore struct {
	objects  map[string][]byte
	metadata map[string]map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, metadata: map[string]map[string]string{}}
}

func (m *memStore) PutJSON(ctx context.Context, key string, val any, metadata map[string]string) (string, error) {
	raw, err := json.Marshal(val)
	if err != nil {
		return "", err
	}
	m.objects[key] = raw
	m.metadata[key] = metadata
	return "gs://test-bucket/" + key, nil
}

func (m *memStore) GetJSON(ctx context.Context, key string, out any) error {
	raw, ok := m.objects[key]
	if !ok {
		return apperrors.NotFound(key)
	}
	return json.Unmarshal(raw, out)
}

func (m *memStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	out := []string{}
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memStore) URI(key string) string { return "gs://test-bucket/" + key }

type memKV struct {
	entries map[string][]byte
}

func newMemKV() *memKV { return &memKV{entries: map[string][]byte{}} }

func (m *memKV) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		delete(m.entries, key)
		return false, nil
	}
	return true, nil
}

func (m *memKV) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memKV) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func (m *memKV) Close() error { return nil }

func sitting(t *testing.T, iso string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", iso)
	if err != nil {
		t.Fatalf("parse %s: %v", iso, err)
	}
	return d
}

func newTestService(t *testing.T, cat *stubCatalog, store *memStore, kv *memKV) Service {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewService(log, cat, store, kv, nil)
}

func TestMatchTieBreakPrefersCloserDate(t *testing.T) {
	day := sitting(t, "2024-07-02")
	cat := &stubCatalog{
		hits: []youtube.SearchHit{{VideoID: "vid-a"}, {VideoID: "vid-b"}},
		details: []youtube.VideoDetail{
			{
				VideoID:         "vid-a",
				Title:           "Parliament Sitting Highlights",
				Description:     "Full parliament session",
				PublishedAt:     day,
				DurationSeconds: 3 * 3600,
			},
			{
				VideoID:         "vid-b",
				Title:           "Parliament Sitting Highlights",
				Description:     "Full parliament session",
				PublishedAt:     day.Add(24 * time.Hour),
				DurationSeconds: 4 * 3600,
				IsLivestream:    true,
			},
		},
	}
	store := newMemStore()
	svc := newTestService(t, cat, store, newMemKV())

	match, err := svc.Match(context.Background(), MatchRequest{TranscriptID: "2024-07-02-p14-s3", SittingDate: "02-07-2024"})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	// Both candidates score 8.5; the same-day one wins.
	if match.VideoID != "vid-a" {
		t.Errorf("video id = %q, want vid-a", match.VideoID)
	}
	if match.Confidence != 8.5 {
		t.Errorf("confidence = %v, want 8.5", match.Confidence)
	}
	want := []string{FactorSameDay, FactorTitleKeyword, FactorLongDuration, FactorDescriptionKeyword}
	if len(match.MatchCriteria) != len(want) {
		t.Fatalf("criteria = %v, want %v", match.MatchCriteria, want)
	}
	for i := range want {
		if match.MatchCriteria[i] != want[i] {
			t.Errorf("criteria[%d] = %q, want %q", i, match.MatchCriteria[i], want[i])
		}
	}
	if match.URL != "https://www.youtube.com/watch?v=vid-a" {
		t.Errorf("url = %q", match.URL)
	}

	meta := store.metadata[domain.VideoMatchObjectKey("2024-07-02-p14-s3")]
	if meta["video_id"] != "vid-a" || meta["transcript_id"] != "2024-07-02-p14-s3" {
		t.Errorf("artifact metadata = %v", meta)
	}
}

func TestMatchSearchWindow(t *testing.T) {
	day := sitting(t, "2024-07-02")
	cat := &stubCatalog{}
	svc := newTestService(t, cat, newMemStore(), newMemKV())

	_, err := svc.Match(context.Background(), MatchRequest{TranscriptID: "2024-07-02-p14-s3"})
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("empty catalog should yield not_found, got %v", err)
	}
	if cat.searchCalls != 1 {
		t.Fatalf("search calls = %d", cat.searchCalls)
	}
	if !cat.lastAfter.Equal(day.Add(-2 * 24 * time.Hour)) {
		t.Errorf("window start = %v", cat.lastAfter)
	}
	if !cat.lastBefore.Equal(day.Add(3 * 24 * time.Hour)) {
		t.Errorf("window end = %v", cat.lastBefore)
	}
	if !strings.Contains(cat.lastQuery, "Parliament") || !strings.Contains(cat.lastQuery, "2 July 2024") {
		t.Errorf("query = %q", cat.lastQuery)
	}
}

func TestMatchRejectsBelowFloor(t *testing.T) {
	day := sitting(t, "2024-07-02")
	cat := &stubCatalog{
		hits: []youtube.SearchHit{{VideoID: "vid-weak"}},
		details: []youtube.VideoDetail{{
			VideoID:         "vid-weak",
			Title:           "Unrelated clip",
			PublishedAt:     day.Add(48 * time.Hour),
			DurationSeconds: 120,
		}},
	}
	store := newMemStore()
	svc := newTestService(t, cat, store, newMemKV())

	_, err := svc.Match(context.Background(), MatchRequest{TranscriptID: "2024-07-02-p14-s3"})
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("kind = %v, want not_found", apperrors.KindOf(err))
	}
	if len(store.objects) != 0 {
		t.Errorf("rejected match persisted: %v", store.objects)
	}
}

func TestMatchSpeakerMention(t *testing.T) {
	day := sitting(t, "2024-07-02")
	cat := &stubCatalog{
		hits: []youtube.SearchHit{{VideoID: "vid-a"}},
		details: []youtube.VideoDetail{{
			VideoID:         "vid-a",
			Title:           "Parliament Sitting",
			Description:     "Exchange with Minister Tan on healthcare",
			PublishedAt:     day,
			DurationSeconds: 7200,
		}},
	}
	svc := newTestService(t, cat, newMemStore(), newMemKV())

	match, err := svc.Match(context.Background(), MatchRequest{
		TranscriptID: "2024-07-02-p14-s3",
		Speakers:     []string{"Minister Tan"},
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	found := false
	for _, c := range match.MatchCriteria {
		if c == FactorSpeakerMention {
			found = true
		}
	}
	if !found {
		t.Errorf("speaker mention not credited: %v", match.MatchCriteria)
	}
}

func TestMatchInvalidDate(t *testing.T) {
	svc := newTestService(t, &stubCatalog{}, newMemStore(), newMemKV())
	_, err := svc.Match(context.Background(), MatchRequest{TranscriptID: "x", SittingDate: "2024/07/02"})
	if !apperrors.IsKind(err, apperrors.KindBadRequest) {
		t.Errorf("kind = %v, want bad_request", apperrors.KindOf(err))
	}
}

func TestMatchDateFromTranscriptID(t *testing.T) {
	cat := &stubCatalog{}
	svc := newTestService(t, cat, newMemStore(), newMemKV())

	_, err := svc.Match(context.Background(), MatchRequest{TranscriptID: "2024-07-02-p14-s3"})
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("err = %v", err)
	}
	if cat.searchCalls != 1 {
		t.Errorf("date not derived from transcript id")
	}
}

func TestMatchQuotaError(t *testing.T) {
	cat := &stubCatalog{searchErr: &googleapi.Error{Code: 429, Message: "quota"}}
	svc := newTestService(t, cat, newMemStore(), newMemKV())

	_, err := svc.Match(context.Background(), MatchRequest{TranscriptID: "2024-07-02-p14-s3"})
	if !apperrors.IsKind(err, apperrors.KindRateLimit) {
		t.Fatalf("kind = %v, want rate_limit", apperrors.KindOf(err))
	}
	if appErr := apperrors.AsError(err); appErr == nil || appErr.RetryAfter <= 0 {
		t.Errorf("missing retry-after hint: %v", err)
	}
}

func TestGetMatchRehydratesCache(t *testing.T) {
	store := newMemStore()
	kv := newMemKV()
	match := &domain.VideoMatch{TranscriptID: "2024-07-02-p14-s3", VideoID: "vid-a", Confidence: 8.5}
	if _, err := store.PutJSON(context.Background(), domain.VideoMatchObjectKey(match.TranscriptID), match, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := newTestService(t, &stubCatalog{}, store, kv)

	got, err := svc.GetMatch(context.Background(), match.TranscriptID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if got.VideoID != "vid-a" {
		t.Errorf("video id = %q", got.VideoID)
	}
	if _, ok := kv.entries[domain.KVVideoMatch(match.TranscriptID)]; !ok {
		t.Error("cache not rehydrated from store hit")
	}
}

func TestGetMatchNotFound(t *testing.T) {
	svc := newTestService(t, &stubCatalog{}, newMemStore(), newMemKV())
	_, err := svc.GetMatch(context.Background(), "missing-id")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("kind = %v, want not_found", apperrors.KindOf(err))
	}
}

func TestFindTimestampProportional(t *testing.T) {
	store := newMemStore()
	match := &domain.VideoMatch{
		TranscriptID:    "2024-07-02-p14-s3",
		VideoID:         "vid-a",
		URL:             "https://www.youtube.com/watch?v=vid-a",
		DurationSeconds: 3600,
	}
	transcript := &domain.ProcessedTranscript{
		TranscriptID: match.TranscriptID,
		Segments: []domain.Segment{
			{ID: match.TranscriptID + "-0", Index: 0, Text: "Opening."},
			{ID: match.TranscriptID + "-1", Index: 1, Text: "Early debate."},
			{ID: match.TranscriptID + "-2", Index: 2, Text: "The premiums will not rise this year."},
			{ID: match.TranscriptID + "-3", Index: 3, Text: "Adjournment."},
		},
	}
	ctx := context.Background()
	if _, err := store.PutJSON(ctx, domain.VideoMatchObjectKey(match.TranscriptID), match, nil); err != nil {
		t.Fatalf("seed match: %v", err)
	}
	if _, err := store.PutJSON(ctx, domain.ProcessedObjectKey(match.TranscriptID), transcript, nil); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}
	svc := newTestService(t, &stubCatalog{}, store, newMemKV())

	est, err := svc.FindTimestamp(ctx, FindTimestampRequest{
		TranscriptID: match.TranscriptID,
		Quote:        "premiums will not rise",
	})
	if err != nil {
		t.Fatalf("find timestamp: %v", err)
	}
	if est.SegmentID != match.TranscriptID+"-2" {
		t.Errorf("segment id = %q", est.SegmentID)
	}
	if est.Fraction != 0.5 {
		t.Errorf("fraction = %v, want 0.5", est.Fraction)
	}
	if est.OffsetSeconds != 1800 {
		t.Errorf("offset = %d, want 1800", est.OffsetSeconds)
	}
	if est.URL != "https://www.youtube.com/watch?v=vid-a&t=1800s" {
		t.Errorf("url = %q", est.URL)
	}
}

func TestFindTimestampQuoteNotFound(t *testing.T) {
	store := newMemStore()
	match := &domain.VideoMatch{TranscriptID: "id-1", VideoID: "vid-a", DurationSeconds: 3600}
	transcript := &domain.ProcessedTranscript{
		TranscriptID: "id-1",
		Segments:     []domain.Segment{{ID: "id-1-0", Index: 0, Text: "Opening."}},
	}
	ctx := context.Background()
	if _, err := store.PutJSON(ctx, domain.VideoMatchObjectKey("id-1"), match, nil); err != nil {
		t.Fatalf("seed match: %v", err)
	}
	if _, err := store.PutJSON(ctx, domain.ProcessedObjectKey("id-1"), transcript, nil); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}
	svc := newTestService(t, &stubCatalog{}, store, newMemKV())

	_, err := svc.FindTimestamp(ctx, FindTimestampRequest{TranscriptID: "id-1", Quote: "never said"})
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("kind = %v, want not_found", apperrors.KindOf(err))
	}
}
