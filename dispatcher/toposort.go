package dispatcher

import (
	"sort"

	"github.com/agendo/engine/types"
)

// topologicalSort orders plan steps so every step appears strictly after
// all of its dependencies. The sort is depth-first: each step's
// dependencies are visited before the step itself. Steps are visited in
// descending priority order so higher-priority roots surface first among
// independent steps.
//
// A dependency chain that revisits a step already on the current path is
// a cycle; it is reported as a CIRCULAR_DEPENDENCY error naming the
// offending step, before any step executes.
func topologicalSort(steps []*ExecutionStep) ([]*ExecutionStep, error) {
	byID := make(map[string]*ExecutionStep, len(steps))
	for _, step := range steps {
		byID[step.ID] = step
	}

	roots := make([]*ExecutionStep, len(steps))
	copy(roots, steps)
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].Priority > roots[j].Priority
	})

	var (
		sorted   = make([]*ExecutionStep, 0, len(steps))
		done     = make(map[string]bool, len(steps))
		visiting = make(map[string]bool, len(steps))
	)

	var visit func(step *ExecutionStep) error
	visit = func(step *ExecutionStep) error {
		if done[step.ID] {
			return nil
		}
		if visiting[step.ID] {
			return types.Errorf(types.ErrCircularDependency,
				"circular dependency detected at step %s", step.ID)
		}
		visiting[step.ID] = true

		for _, depID := range step.Dependencies {
			dep, ok := byID[depID]
			if !ok {
				// Dependencies always reference plan-local steps; an
				// unknown id means the dependent call was skipped at
				// plan build and the edge is moot.
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		delete(visiting, step.ID)
		done[step.ID] = true
		sorted = append(sorted, step)
		return nil
	}

	for _, step := range roots {
		if err := visit(step); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}
