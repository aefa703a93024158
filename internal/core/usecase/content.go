package usecase

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

func encodeContent(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode artifact content: %w", err)
	}
	return string(raw), nil
}

// DecodeInsight parses the stored content of an insights artifact.
func DecodeInsight(content string) (domain.Insight, error) {
	var insight domain.Insight
	if err := json.Unmarshal([]byte(content), &insight); err != nil {
		return domain.Insight{}, fmt.Errorf("decode insight content: %w", err)
	}
	return insight, nil
}

// DecodePromptSet parses the stored content of a prompts artifact.
func DecodePromptSet(content string) (domain.PromptSet, error) {
	var set domain.PromptSet
	if err := json.Unmarshal([]byte(content), &set); err != nil {
		return domain.PromptSet{}, fmt.Errorf("decode prompt set content: %w", err)
	}
	return set, nil
}
