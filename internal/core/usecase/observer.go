package usecase

import (
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/ports"
)

type noopObserver struct{}

func (noopObserver) ObserveTrigger(domain.TriggerEvent, string) {}
func (noopObserver) StartGeneration() {}
func (noopObserver) FinishGeneration(time.Duration, error) {}
func (noopObserver) ObserveCacheLookup(domain.ArtifactType, string) {}
func (noopObserver) ObserveRank(time.Duration, int) {}

func observerOrNoop(o ports.GenerationObserver) ports.GenerationObserver {
	if o == nil {
		return noopObserver{}
	}
	return o
}
