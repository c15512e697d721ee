package normalize

import (
	"encoding/json"
	"strings"

	"robin/internal/domain"
)

// knowledgeHeader is the banner the service prefixes to text-form knowledge.
const knowledgeHeader = "Relevant Trading Knowledge:"

// DecodeKnowledge turns a knowledge_context blob into snippets. The service
// sends either a single newline-separated string or an array of strings or
// {text, source} objects. Unusable entries are skipped.
func DecodeKnowledge(raw json.RawMessage) []domain.KnowledgeSnippet {
	if isNull(raw) {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return splitKnowledge(text)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []domain.KnowledgeSnippet
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, splitKnowledge(s)...)
			continue
		}
		var obj struct {
			Text     string `json:"text"`
			Content  string `json:"content"`
			Source   string `json:"source"`
			Metadata struct {
				Text   string `json:"text"`
				Source string `json:"source"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		snippet := domain.KnowledgeSnippet{
			Text:   firstNonEmpty(obj.Text, obj.Content, obj.Metadata.Text),
			Source: firstNonEmpty(obj.Source, obj.Metadata.Source),
		}
		if snippet.Text = strings.TrimSpace(snippet.Text); snippet.Text != "" {
			out = append(out, snippet)
		}
	}
	return out
}

func splitKnowledge(text string) []domain.KnowledgeSnippet {
	var out []domain.KnowledgeSnippet
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == knowledgeHeader {
			continue
		}
		out = append(out, domain.KnowledgeSnippet{Text: line})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
