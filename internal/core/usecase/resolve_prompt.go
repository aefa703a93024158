package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/ports"
)

type triggerSink interface {
	MaybeTriggerBackgroundGeneration(ctx context.Context, userID string, event domain.TriggerEvent)
}

type ResolvePromptUseCase struct {
	prompts   ports.PromptStore
	scheduler triggerSink
	now       func() time.Time
}

func NewResolvePromptUseCase(prompts ports.PromptStore, scheduler triggerSink) *ResolvePromptUseCase {
	return &ResolvePromptUseCase{
		prompts:   prompts,
		scheduler: scheduler,
		now:       time.Now,
	}
}

// ResolvePrompt marks a served prompt as answered. Resolving the last outstanding
// prompt fires a prompts_resolved trigger; the scheduler still applies its gate.
func (uc *ResolvePromptUseCase) ResolvePrompt(ctx context.Context, userID, promptID string) error {
	userID = strings.TrimSpace(userID)
	promptID = strings.TrimSpace(promptID)
	if userID == "" || promptID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "resolve prompt", errors.New("user_id and prompt_id are required"))
	}

	if err := uc.prompts.ResolvePrompt(ctx, userID, promptID, uc.now().UTC()); err != nil {
		return fmt.Errorf("resolve prompt: %w", err)
	}

	remaining, err := uc.prompts.CountOutstanding(ctx, userID)
	if err != nil {
		return fmt.Errorf("count outstanding prompts: %w", err)
	}
	if remaining == 0 {
		uc.scheduler.MaybeTriggerBackgroundGeneration(ctx, userID, domain.EventPromptsResolved)
	}
	return nil
}

func (uc *ResolvePromptUseCase) ListOutstanding(ctx context.Context, userID string) ([]domain.PromptAssignment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list outstanding prompts", errors.New("user_id is required"))
	}
	prompts, err := uc.prompts.ListOutstanding(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list outstanding prompts: %w", err)
	}
	return prompts, nil
}
