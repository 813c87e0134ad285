package ragchat

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/hansard-backend/internal/domain"
)

const (
	chunkMaxTokens     = 500
	chunkOverlapTokens = 50
	chunkMinTokens     = 100
)

// estimateTokens approximates token count as ceil(chars/4), chars counted as
// code points.
func estimateTokens(text string) int {
	chars := utf8.RuneCountInString(text)
	return (chars + 3) / 4
}

// BuildChunks slices a transcript into overlapping retrieval chunks. Segment
// text is rendered as "speaker: text"; a chunk closes once it holds at least
// the minimum tokens and the next segment would push it past the maximum. The
// next chunk is seeded with the tail of the previous one so retrieval never
// loses a boundary-straddling statement.
func BuildChunks(t *domain.ProcessedTranscript) []domain.Chunk {
	var chunks []domain.Chunk

	text := ""
	chunkSpeaker, chunkSection, chunkSubsection := "", "", ""
	curSpeaker, curSection, curSubsection := "", "", ""

	flush := func() {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return
		}
		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ChunkID:         fmt.Sprintf("%s_%d", t.TranscriptID, idx),
			TranscriptID:    t.TranscriptID,
			Index:           idx,
			Text:            trimmed,
			Speaker:         chunkSpeaker,
			SectionTitle:    chunkSection,
			SubsectionTitle: chunkSubsection,
			WordCount:       len(strings.Fields(trimmed)),
			TokenEstimate:   estimateTokens(trimmed),
		})
	}

	for _, seg := range t.Segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		piece := seg.Text
		if seg.Speaker != "" {
			piece = seg.Speaker + ": " + seg.Text
		}

		if text != "" &&
			estimateTokens(text+" "+piece) > chunkMaxTokens &&
			estimateTokens(text) >= chunkMinTokens {
			flush()
			text = overlapSuffix(text, chunkOverlapTokens)
			chunkSpeaker, chunkSection, chunkSubsection = curSpeaker, curSection, curSubsection
		}

		if text == "" {
			if chunkSpeaker == "" && len(chunks) == 0 {
				chunkSpeaker, chunkSection, chunkSubsection = seg.Speaker, seg.SectionTitle, seg.SubsectionTitle
			}
			text = piece
		} else {
			text += " " + piece
		}

		if seg.Speaker != "" {
			curSpeaker = seg.Speaker
		}
		curSection = seg.SectionTitle
		curSubsection = seg.SubsectionTitle
	}

	flush()
	return chunks
}

// overlapSuffix returns the trailing words of text amounting to roughly the
// requested token count.
func overlapSuffix(text string, overlapTokens int) string {
	if overlapTokens <= 0 {
		return ""
	}
	words := strings.Fields(text)
	suffix := ""
	for i := len(words) - 1; i >= 0; i-- {
		candidate := words[i]
		if suffix != "" {
			candidate = words[i] + " " + suffix
		}
		if estimateTokens(candidate) > overlapTokens {
			break
		}
		suffix = candidate
	}
	return suffix
}
