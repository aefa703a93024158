package ollama

import (
	"fmt"
	"strings"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

const maxEntryChars = 2000

func buildInsightPrompt(docs []domain.Document) string {
	var entries strings.Builder
	for idx, doc := range docs {
		text := strings.TrimSpace(doc.Text)
		if len(text) > maxEntryChars {
			text = text[:maxEntryChars]
		}
		fmt.Fprintf(&entries, "[%d] %s\n%s\n\n", idx+1, doc.CreatedAt.Format("2006-01-02"), text)
	}

	return `You read a person's recent journal entries and reflect them back.
Return a strict JSON object with keys:
summary (string, two to four sentences, second person, no diagnosis),
themes (array of one to five short lowercase theme labels such as "stress" or "gratitude").
No markdown, no extra keys.

Entries, newest first:
` + entries.String()
}
