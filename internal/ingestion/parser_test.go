package ingestion

import (
	"strings"
	"testing"

	"github.com/yungbote/hansard-backend/internal/domain"
)

func section(content string) domain.RawSection {
	return domain.RawSection{
		PageNo:  1,
		Title:   "Oral Answers",
		Type:    "OA",
		Content: content,
	}
}

func TestParseSectionsCanonical(t *testing.T) {
	segs := ParseSections("2024-07-02-p14-s3", []domain.RawSection{
		section(`<h6>1.30 pm</h6><p><strong>Speaker A:</strong> Hello world.</p><p>Continuing remark.</p><p><strong>Speaker B:</strong> Reply.</p>`),
	})
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segs), segs)
	}

	first := segs[0]
	if first.ID != "2024-07-02-p14-s3-0" {
		t.Errorf("first segment id = %q", first.ID)
	}
	if first.Speaker != "Speaker A" {
		t.Errorf("first speaker = %q", first.Speaker)
	}
	if first.Text != "Hello world. Continuing remark." {
		t.Errorf("first text = %q", first.Text)
	}
	if first.Timestamp != "1.30 pm" {
		t.Errorf("first timestamp = %q", first.Timestamp)
	}
	if first.WordCount != 4 {
		t.Errorf("first word count = %d", first.WordCount)
	}

	second := segs[1]
	if second.ID != "2024-07-02-p14-s3-1" {
		t.Errorf("second segment id = %q", second.ID)
	}
	if second.Speaker != "Speaker B" {
		t.Errorf("second speaker = %q", second.Speaker)
	}
	if second.Text != "Reply." {
		t.Errorf("second text = %q", second.Text)
	}
	if second.Timestamp != "1.30 pm" {
		t.Errorf("second timestamp = %q", second.Timestamp)
	}
	if second.WordCount != 1 {
		t.Errorf("second word count = %d", second.WordCount)
	}
}

func TestParseSectionsColonOutsideLabel(t *testing.T) {
	segs := ParseSections("t", []domain.RawSection{
		section(`<p><strong>Mr Tan</strong>: Point of order.</p>`),
	})
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Speaker != "Mr Tan" {
		t.Errorf("speaker = %q", segs[0].Speaker)
	}
	if segs[0].Text != "Point of order." {
		t.Errorf("text = %q", segs[0].Text)
	}
}

func TestParseSectionsDiscardsOrphanParagraphs(t *testing.T) {
	segs := ParseSections("t", []domain.RawSection{
		section(`<p>Narration before any speaker.</p><p><strong>A:</strong> First.</p>`),
	})
	if len(segs) != 1 {
		t.Fatalf("expected orphan paragraph to be dropped, got %d segments", len(segs))
	}
	if segs[0].Text != "First." {
		t.Errorf("text = %q", segs[0].Text)
	}
}

func TestParseSectionsKeepsShortInterjections(t *testing.T) {
	segs := ParseSections("t", []domain.RawSection{
		section(`<p><strong>A:</strong> A long opening statement about policy.</p><p>No.</p>`),
	})
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if !strings.HasSuffix(segs[0].Text, " No.") {
		t.Errorf("short continuation was dropped: %q", segs[0].Text)
	}
}

func TestParseSectionsWhitespaceAndEntities(t *testing.T) {
	segs := ParseSections("t", []domain.RawSection{
		section("<p><strong>A:</strong>  The Minister &amp; I\n\n  agree. </p>"),
	})
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	text := segs[0].Text
	if text != "The Minister & I agree." {
		t.Errorf("text = %q", text)
	}
	if strings.Contains(text, "  ") {
		t.Errorf("text contains a whitespace run: %q", text)
	}
}

func TestParseSectionsStripsNestedTags(t *testing.T) {
	segs := ParseSections("t", []domain.RawSection{
		section(`<p><strong>A:</strong> The <em>real</em> issue is <span>cost</span>.</p>`),
	})
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Text != "The real issue is cost." {
		t.Errorf("text = %q", segs[0].Text)
	}
}

func TestParseSectionsSubsectionHeading(t *testing.T) {
	segs := ParseSections("t", []domain.RawSection{
		section(`<h4>Ministerial Statement</h4><p><strong>A:</strong> Statement text.</p>`),
	})
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].SubsectionTitle != "Ministerial Statement" {
		t.Errorf("subsection = %q", segs[0].SubsectionTitle)
	}
	if segs[0].Timestamp != "" {
		t.Errorf("non-timestamp heading leaked into timestamp: %q", segs[0].Timestamp)
	}
}

func TestParseSectionsIndicesSpanSections(t *testing.T) {
	segs := ParseSections("t", []domain.RawSection{
		section(`<p><strong>A:</strong> One.</p>`),
		section(`<p><strong>B:</strong> Two.</p>`),
	})
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].Index != 0 || segs[1].Index != 1 {
		t.Errorf("indices do not span sections: %d, %d", segs[0].Index, segs[1].Index)
	}
	if segs[0].ID != "t-0" || segs[1].ID != "t-1" {
		t.Errorf("ids = %q, %q", segs[0].ID, segs[1].ID)
	}
}

func TestParseSectionsContinuationDoesNotCrossSections(t *testing.T) {
	segs := ParseSections("t", []domain.RawSection{
		section(`<p><strong>A:</strong> One.</p>`),
		section(`<p>Orphan in the next section.</p>`),
	})
	if len(segs) != 1 {
		t.Fatalf("continuation crossed a section boundary: %d segments", len(segs))
	}
	if segs[0].Text != "One." {
		t.Errorf("text = %q", segs[0].Text)
	}
}

func TestParseSectionsTimestampPatterns(t *testing.T) {
	cases := map[string]bool{
		"1.30 pm":  true,
		"12.05 am": true,
		"12.00noon": true,
		"Ministerial Statement": false,
		"130 pm": false,
	}
	for heading, isTimestamp := range cases {
		segs := ParseSections("t", []domain.RawSection{
			section(`<h6>` + heading + `</h6><p><strong>A:</strong> Text.</p>`),
		})
		if len(segs) != 1 {
			t.Fatalf("heading %q: expected 1 segment, got %d", heading, len(segs))
		}
		gotTimestamp := segs[0].Timestamp != ""
		if gotTimestamp != isTimestamp {
			t.Errorf("heading %q: timestamp attached = %v, want %v", heading, gotTimestamp, isTimestamp)
		}
	}
}

func TestParseSectionsEmptyContent(t *testing.T) {
	segs := ParseSections("t", []domain.RawSection{section(""), section("   ")})
	if len(segs) != 0 {
		t.Fatalf("expected no segments from empty sections, got %d", len(segs))
	}
}
