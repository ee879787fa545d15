package stack

import (
	"fmt"
	"sort"
	"strings"
)

// Stage is one deployment round. Its Resources are provisioned together by the
// provisioning engine; its Steps run once those resources exist, and gate the
// next stage.
type Stage struct {
	Index     int
	Resources []string
	Steps     []string
}

// Stages partitions the stack into deployment rounds. A resource lands in the
// first stage after every step it (transitively) depends on; a step runs after
// the stage that provisions its requirements. A stack without steps has one
// stage.
func (s *Stack) Stages() ([]Stage, error) {
	discovered, err := s.Discovered()
	if err != nil {
		return nil, err
	}
	for _, step := range s.steps {
		for _, req := range step.Requires() {
			if _, ok := s.entries[req]; !ok {
				return nil, fmt.Errorf("step %s requires %s: %w", step.Name(), req, ErrUnknownDependency)
			}
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)
	level := make(map[string]int)
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case visiting:
			return cycleError(path, id)
		}
		state[id] = visiting
		path = append(path, id)

		lvl := 0
		if step, isStep := s.stepIndex[id]; isStep {
			for _, req := range step.Requires() {
				if err := visit(req); err != nil {
					return err
				}
				lvl = max(lvl, level[req])
			}
		} else {
			for _, dep := range discovered[id].Dependencies {
				if err := visit(dep); err != nil {
					return err
				}
				if _, isStep := s.stepIndex[dep]; isStep {
					lvl = max(lvl, level[dep]+1)
				} else {
					lvl = max(lvl, level[dep])
				}
			}
		}

		path = path[:len(path)-1]
		state[id] = done
		level[id] = lvl
		return nil
	}

	ids := append(s.Names(), stepNames(s.steps)...)
	sort.Strings(ids)
	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	maxLevel := 0
	for _, id := range s.order {
		maxLevel = max(maxLevel, level[id])
	}
	stages := make([]Stage, maxLevel+1)
	for i := range stages {
		stages[i].Index = i
	}
	for _, id := range s.order {
		l := level[id]
		stages[l].Resources = append(stages[l].Resources, id)
	}
	for _, step := range s.steps {
		l := level[step.Name()]
		stages[l].Steps = append(stages[l].Steps, step.Name())
	}
	return stages, nil
}

// ResourcesThrough returns every resource provisioned in stages 0..index.
func ResourcesThrough(stages []Stage, index int) map[string]bool {
	include := make(map[string]bool)
	for i := 0; i <= index && i < len(stages); i++ {
		for _, id := range stages[i].Resources {
			include[id] = true
		}
	}
	return include
}

func stepNames(steps []Step) []string {
	names := make([]string, len(steps))
	for i, step := range steps {
		names[i] = step.Name()
	}
	return names
}

func cycleError(path []string, closing string) error {
	start := 0
	for i, id := range path {
		if id == closing {
			start = i
			break
		}
	}
	cycle := append(append([]string(nil), path[start:]...), closing)
	return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " → "))
}
