package manifest

import (
	"context"
	"fmt"

	"github.com/athena68/tb-performance-tests/internal/scenario"
)

// Record stores a plan as a new run: the run row, every entity in plan
// order, then the finish stamp. The run's Scenario defaults to the plan's.
func Record(ctx context.Context, repo Repository, run *Run, plan *scenario.Plan) error {
	if run.Scenario == "" {
		run.Scenario = plan.Scenario
	}
	if err := repo.CreateRun(ctx, run); err != nil {
		return err
	}

	entities := make([]Entity, 0, len(plan.Entities))
	for i, e := range plan.Entities {
		rec := Entity{
			RunID:      run.ID,
			Seq:        i + 1,
			Name:       e.Name,
			Level:      string(e.Level),
			Type:       e.Type,
			Label:      e.Label,
			Parent:     e.Parent,
			Attributes: e.Attributes,
		}
		if e.Err != nil {
			rec.Error = e.Err.Error()
		}
		entities = append(entities, rec)
	}
	if err := repo.AddEntities(ctx, entities); err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return repo.FinishRun(ctx, run.ID)
}
