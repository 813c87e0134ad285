package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/hansard-backend/internal/domain"
	apperrors "github.com/yungbote/hansard-backend/internal/pkg/errors"
	"github.com/yungbote/hansard-backend/internal/pkg/logger"
)

type stubFetcher struct {
	report *domain.RawHansard
	err    error
	calls  int
}

func (f *stubFetcher) FetchReport(ctx context.Context, sittingDate string) (*domain.RawHansard, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *stubFetcher) FetchURL(ctx context.Context, rawURL string) (*domain.RawHansard, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

type memStore struct {
	objects map[string][]byte
	puts    int
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) PutJSON(ctx context.Context, key string, val any, metadata map[string]string) (string, error) {
	raw, err := json.Marshal(val)
	if err != nil {
		return "", err
	}
	m.objects[key] = raw
	m.puts++
	return m.URI(key), nil
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

func testRaw() *domain.RawHansard {
	p, s := 14, 3
	return &domain.RawHansard{
		Metadata: domain.RawMetadata{
			ParliamentNo: &p,
			SessionNo:    &s,
			SittingDate:  "02-07-2024",
			DisplayDate:  "Tuesday, 2 July 2024",
		},
		Sections: []domain.RawSection{
			{
				PageNo:  1,
				Title:   "Oral Answers",
				Type:    "OA",
				Content: `<h6>1.30 pm</h6><p><strong>Speaker A:</strong> Hello world.</p><p>Continuing remark.</p><p><strong>Speaker B:</strong> Reply.</p>`,
			},
		},
		Attendance: []domain.AttendanceRecord{{Name: "Speaker A", Present: true}},
	}
}

func newTestService(t *testing.T, fetcher *stubFetcher, store *memStore, kv *memKV) Service {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewService(log, fetcher, store, kv, nil, nil)
}

func TestIngestInlineRaw(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, &stubFetcher{}, store, newMemKV())

	res, err := svc.Ingest(context.Background(), IngestRequest{RawHansard: testRaw()})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.TranscriptID != "2024-07-02-p14-s3" {
		t.Errorf("transcript id = %q", res.TranscriptID)
	}
	if res.SegmentCount != 2 {
		t.Errorf("segment count = %d", res.SegmentCount)
	}
	if len(res.Speakers) != 2 || res.Speakers[0] != "Speaker A" || res.Speakers[1] != "Speaker B" {
		t.Errorf("speakers = %v", res.Speakers)
	}
	if res.Cached {
		t.Error("inline ingest reported cached")
	}
	if res.RawURI == "" || res.ProcessedURI == "" {
		t.Errorf("missing artifact URIs: %q, %q", res.RawURI, res.ProcessedURI)
	}

	var processed domain.ProcessedTranscript
	if err := store.GetJSON(context.Background(), domain.ProcessedObjectKey(res.TranscriptID), &processed); err != nil {
		t.Fatalf("processed artifact missing: %v", err)
	}
	if processed.Segments[0].Text != "Hello world. Continuing remark." {
		t.Errorf("segment text = %q", processed.Segments[0].Text)
	}
}

func TestIngestIdempotent(t *testing.T) {
	svc := newTestService(t, &stubFetcher{}, newMemStore(), newMemKV())

	first, err := svc.Ingest(context.Background(), IngestRequest{RawHansard: testRaw(), ForceRefresh: true})
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := svc.Ingest(context.Background(), IngestRequest{RawHansard: testRaw(), ForceRefresh: true})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if first.TranscriptID != second.TranscriptID {
		t.Errorf("ids differ: %q vs %q", first.TranscriptID, second.TranscriptID)
	}
	if first.SegmentCount != second.SegmentCount || first.TotalWords != second.TotalWords {
		t.Errorf("reruns disagree: %+v vs %+v", first, second)
	}
}

func TestIngestCachedRefetch(t *testing.T) {
	fetcher := &stubFetcher{report: testRaw()}
	svc := newTestService(t, fetcher, newMemStore(), newMemKV())

	first, err := svc.Ingest(context.Background(), IngestRequest{SittingDate: "02-07-2024"})
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Cached {
		t.Error("first ingest reported cached")
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetcher calls after first ingest = %d", fetcher.calls)
	}

	second, err := svc.Ingest(context.Background(), IngestRequest{SittingDate: "02-07-2024"})
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Cached {
		t.Error("second ingest not reported cached")
	}
	if fetcher.calls != 1 {
		t.Errorf("upstream called on cache hit: calls = %d", fetcher.calls)
	}
}

func TestIngestForceRefreshBypassesCache(t *testing.T) {
	fetcher := &stubFetcher{report: testRaw()}
	svc := newTestService(t, fetcher, newMemStore(), newMemKV())

	if _, err := svc.Ingest(context.Background(), IngestRequest{SittingDate: "02-07-2024"}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	res, err := svc.Ingest(context.Background(), IngestRequest{SittingDate: "02-07-2024", ForceRefresh: true})
	if err != nil {
		t.Fatalf("forced ingest: %v", err)
	}
	if res.Cached {
		t.Error("forced ingest reported cached")
	}
	if fetcher.calls != 2 {
		t.Errorf("fetcher calls = %d, want 2", fetcher.calls)
	}
}

func TestIngestInputFormValidation(t *testing.T) {
	svc := newTestService(t, &stubFetcher{report: testRaw()}, newMemStore(), newMemKV())

	cases := []IngestRequest{
		{},
		{SittingDate: "02-07-2024", RawURL: "https://example.com/report.json"},
		{SittingDate: "not-a-date"},
	}
	for i, req := range cases {
		_, err := svc.Ingest(context.Background(), req)
		if !apperrors.IsKind(err, apperrors.KindBadRequest) {
			t.Errorf("case %d: kind = %v, want bad_request (err=%v)", i, apperrors.KindOf(err), err)
		}
	}
}

func TestIngestRejectsProcessedForm(t *testing.T) {
	svc := newTestService(t, &stubFetcher{}, newMemStore(), newMemKV())

	// A processed document decoded as raw has no metadata block.
	res, err := svc.Ingest(context.Background(), IngestRequest{RawHansard: testRaw()})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	processedJSON, _ := json.Marshal(domain.ProcessedTranscript{TranscriptID: res.TranscriptID, SittingDate: res.SittingDate})
	var asRaw domain.RawHansard
	_ = json.Unmarshal(processedJSON, &asRaw)

	_, err = svc.Ingest(context.Background(), IngestRequest{RawHansard: &asRaw})
	if !apperrors.IsKind(err, apperrors.KindBadRequest) {
		t.Errorf("kind = %v, want bad_request", apperrors.KindOf(err))
	}
}

func TestIngestSkipStore(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, &stubFetcher{}, store, newMemKV())

	res, err := svc.Ingest(context.Background(), IngestRequest{RawHansard: testRaw(), SkipStore: true})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if store.puts != 0 {
		t.Errorf("objects written despite skip_store: %d", store.puts)
	}
	if res.RawURI != "" || res.ProcessedURI != "" {
		t.Errorf("URIs reported despite skip_store: %q, %q", res.RawURI, res.ProcessedURI)
	}
}

func TestIngestEmptyTranscript(t *testing.T) {
	raw := testRaw()
	raw.Sections = []domain.RawSection{}
	svc := newTestService(t, &stubFetcher{}, newMemStore(), newMemKV())

	res, err := svc.Ingest(context.Background(), IngestRequest{RawHansard: raw})
	if err != nil {
		t.Fatalf("ingest of empty transcript: %v", err)
	}
	if res.SegmentCount != 0 {
		t.Errorf("segment count = %d", res.SegmentCount)
	}
}

func TestIngestUpstreamFailure(t *testing.T) {
	fetcher := &stubFetcher{err: apperrors.Upstream("hansard fetch failed after 4 attempts", fmt.Errorf("http 502"))}
	svc := newTestService(t, fetcher, newMemStore(), newMemKV())

	_, err := svc.Ingest(context.Background(), IngestRequest{SittingDate: "02-07-2024"})
	if !apperrors.IsKind(err, apperrors.KindUpstream) {
		t.Errorf("kind = %v, want upstream", apperrors.KindOf(err))
	}
}

func TestGetTranscript(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, &stubFetcher{}, store, newMemKV())

	res, err := svc.Ingest(context.Background(), IngestRequest{RawHansard: testRaw()})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	got, err := svc.GetTranscript(context.Background(), res.TranscriptID)
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	if got.TranscriptID != res.TranscriptID || len(got.Segments) != 2 {
		t.Errorf("unexpected transcript: %+v", got)
	}

	_, err = svc.GetTranscript(context.Background(), "missing-id")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Errorf("kind = %v, want not_found", apperrors.KindOf(err))
	}
}
