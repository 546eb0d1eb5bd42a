package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/idrk/project-data-sync/internal/loader"
	"github.com/idrk/project-data-sync/internal/transform"
)

// Outcome is how the run went for one family.
type Outcome string

const (
	OutcomeLoaded  Outcome = "loaded"
	OutcomeDryRun  Outcome = "dry-run"
	OutcomeEmpty   Outcome = "empty"
	OutcomeTimeout Outcome = "timeout"
	OutcomeFailed  Outcome = "failed"
)

type FamilyResult struct {
	Family      transform.Family
	Outcome     Outcome
	Responses   int
	Transformed int
	Loaded      int
	Failed      []*loader.LoadError
	Err         error
}

type Summary struct {
	RunID    uuid.UUID
	Started  time.Time
	Duration time.Duration
	Families []*FamilyResult
}

// Result returns the result of family, or nil when it did not run.
func (s *Summary) Result(family transform.Family) *FamilyResult {
	for _, r := range s.Families {
		if r.Family == family {
			return r
		}
	}
	return nil
}

func (s *Summary) ConsultationsLoaded() int {
	return s.loaded(transform.FamilyConsultations)
}

func (s *Summary) ProjectsLoaded() int {
	return s.loaded(transform.FamilyProjects)
}

func (s *Summary) loaded(family transform.Family) int {
	if r := s.Result(family); r != nil {
		return r.Loaded
	}
	return 0
}
