package domain

import "time"

type TriggerEvent string

const (
	EventDocumentCreated TriggerEvent = "document_created"
	EventPromptsResolved TriggerEvent = "prompts_resolved"
	EventManualRefresh   TriggerEvent = "manual_refresh"
)

func (e TriggerEvent) Valid() bool {
	switch e {
	case EventDocumentCreated, EventPromptsResolved, EventManualRefresh:
		return true
	default:
		return false
	}
}

type TrackerPhase string

const (
	PhaseIdle       TrackerPhase = "idle"
	PhaseChecking   TrackerPhase = "checking"
	PhaseGenerating TrackerPhase = "generating"
	PhaseCooldown   TrackerPhase = "cooldown"
)

type GenerationStrategy string

const (
	StrategyRanker GenerationStrategy = "ranker"
	StrategyHybrid GenerationStrategy = "hybrid"
)

// TrackerState is the durable per-user scheduling record. InFlight doubles as the
// exclusive generation lock; LockAcquiredAt lets a restarted process detect stuck
// locks.
type TrackerState struct {
	UserID                 string             `json:"user_id"`
	LastGenerationAt       *time.Time         `json:"last_generation_at,omitempty"`
	LastSourceDocCountMark int                `json:"last_source_doc_count_mark"`
	InFlight               bool               `json:"in_flight"`
	LockAcquiredAt         *time.Time         `json:"lock_acquired_at,omitempty"`
	Strategy               GenerationStrategy `json:"strategy"`
}

// Phase reports where the tracker sits in its lifecycle at now.
func (s TrackerState) Phase(now time.Time, cooldown time.Duration) TrackerPhase {
	if s.InFlight {
		return PhaseGenerating
	}
	if s.LastGenerationAt != nil && now.Sub(*s.LastGenerationAt) < cooldown {
		return PhaseCooldown
	}
	return PhaseIdle
}

type Trigger struct {
	UserID     string       `json:"user_id"`
	Event      TriggerEvent `json:"event"`
	OccurredAt time.Time    `json:"occurred_at"`
}

type SchedulerPolicy struct {
	Threshold          int                `json:"threshold"`
	Cooldown           time.Duration      `json:"cooldown"`
	OracleTimeout      time.Duration      `json:"oracle_timeout"`
	LockStaleAfter     time.Duration      `json:"lock_stale_after"`
	MinSourceDocuments int                `json:"min_source_documents"`
	RecentDocuments    int                `json:"recent_documents"`
	Strategy           GenerationStrategy `json:"strategy"`
	Rank               RankOptions        `json:"rank"`
}

type GenerationOutcome struct {
	UserID         string       `json:"user_id"`
	Event          TriggerEvent `json:"event"`
	Generated      bool         `json:"generated"`
	Reason         string       `json:"reason,omitempty"`
	SourceDocCount int          `json:"source_doc_count"`
}
