package ragchat

import (
	"fmt"
	"strings"

	"github.com/yungbote/hansard-backend/internal/domain"
)

const chatSystemPrompt = `You answer questions about a Singapore Parliament sitting using only the provided transcript excerpts.
Rules:
- Answer only from the provided context. If the context does not cover the question, say so.
- Name the speakers when the context identifies them.
- Never invent facts, figures or attributions.
- Use direct quotes sparingly, and only when they are in the context.
- Be concise.`

const noContextAnswer = "I could not find any relevant information in this parliamentary session to answer that question."

const citationTextLimit = 200

// retrieved is one scored chunk pulled back from the vector index.
type retrieved struct {
	Text         string
	Speaker      string
	SectionTitle string
	Score        float64
}

// buildContext labels the retrieved chunks as numbered sources, descending by
// retrieval score (the order matches the returned citations).
func buildContext(sources []retrieved) string {
	var sb strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&sb, "--- Source %d (Confidence: %.1f%%) ---\n", i+1, src.Score*100)
		speaker := src.Speaker
		if speaker == "" {
			speaker = "Unknown Speaker"
		}
		fmt.Fprintf(&sb, "[%s]\n", speaker)
		if src.SectionTitle != "" {
			fmt.Fprintf(&sb, "Section: %s\n", src.SectionTitle)
		}
		sb.WriteString(src.Text)
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}

func buildUserPrompt(contextBlock, question string) string {
	return fmt.Sprintf("Context from the parliamentary transcript:\n\n%s\n\nQuestion: %s", contextBlock, question)
}

func citationsFrom(sources []retrieved) []domain.ChatCitation {
	out := make([]domain.ChatCitation, 0, len(sources))
	for _, src := range sources {
		text := src.Text
		if runes := []rune(text); len(runes) > citationTextLimit {
			text = string(runes[:citationTextLimit]) + "..."
		}
		out = append(out, domain.ChatCitation{
			Text:         text,
			Speaker:      src.Speaker,
			SectionTitle: src.SectionTitle,
			Confidence:   src.Score,
		})
	}
	return out
}
