package schedule

import (
	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/model"
)

// edge is a weighted arc in the dependency graph. The weight is the
// duration of the task the edge enters; edges from the source and into
// the sink carry weight zero.
type edge struct {
	to     int
	weight int
}

// depGraph is the ephemeral network model built for one scheduling
// run: one node per schedulable task plus a synthetic source (node 0)
// and sink (highest node).
type depGraph struct {
	adjacency map[int][]edge
	taskNode  map[int64]int
	nodeTask  map[int]int64
	sink      int
}

// nodeCount returns the number of nodes including source and sink.
func (g *depGraph) nodeCount() int {
	return g.sink + 1
}

// empty reports whether the graph holds no tasks at all.
func (g *depGraph) empty() bool {
	return g.sink <= 1
}

// buildGraph converts a task list into the network model. Tasks
// without an id or a positive duration cannot be scheduled and are
// skipped with a warning. Node numbers follow input order starting at
// 1; predecessors referencing unknown tasks are ignored.
func buildGraph(logger *zap.Logger, tasks []*model.Task) *depGraph {
	g := &depGraph{
		adjacency: make(map[int][]edge),
		taskNode:  make(map[int64]int),
		nodeTask:  make(map[int]int64),
	}

	node := 1
	for _, task := range tasks {
		if task.ID == 0 || task.Duration <= 0 {
			logger.Warn("Skipping unschedulable task",
				zap.Int64("task_id", task.ID),
				zap.String("name", task.Name),
				zap.Int("duration", task.Duration))
			continue
		}
		g.taskNode[task.ID] = node
		g.nodeTask[node] = task.ID
		node++
	}

	g.sink = node
	for i := 0; i <= g.sink; i++ {
		g.adjacency[i] = nil
	}

	// Tasks that appear in someone's predecessor list have dependents
	// and therefore no edge into the sink.
	hasDependents := make(map[int64]bool)
	for _, task := range tasks {
		if _, ok := g.taskNode[task.ID]; !ok {
			continue
		}
		for _, predID := range task.Predecessors {
			hasDependents[predID] = true
		}
	}

	for _, task := range tasks {
		taskN, ok := g.taskNode[task.ID]
		if !ok {
			continue
		}

		wired := false
		for _, predID := range task.Predecessors {
			predN, known := g.taskNode[predID]
			if !known {
				logger.Warn("Predecessor references unknown task",
					zap.Int64("task_id", task.ID),
					zap.Int64("predecessor_id", predID))
				continue
			}
			g.adjacency[predN] = append(g.adjacency[predN], edge{to: taskN, weight: task.Duration})
			wired = true
		}
		if !wired {
			g.adjacency[sourceNode] = append(g.adjacency[sourceNode], edge{to: taskN, weight: 0})
		}

		if !hasDependents[task.ID] {
			g.adjacency[taskN] = append(g.adjacency[taskN], edge{to: g.sink, weight: 0})
		}
	}

	return g
}

// hasCycle reports whether the graph contains a directed cycle. The
// traversal keeps an explicit stack so user-supplied graphs cannot
// blow the call stack.
func (g *depGraph) hasCycle() bool {
	const (
		white = iota // unvisited
		gray         // on the current path
		black        // fully explored
	)

	state := make([]int, g.nodeCount())

	for start := 0; start < g.nodeCount(); start++ {
		if state[start] != white {
			continue
		}

		type frame struct {
			node int
			next int
		}
		stack := []frame{{node: start}}
		state[start] = gray

		for len(stack) > 0 {
			top := len(stack) - 1
			node := stack[top].node
			edges := g.adjacency[node]

			if stack[top].next < len(edges) {
				neighbor := edges[stack[top].next].to
				stack[top].next++
				switch state[neighbor] {
				case gray:
					return true
				case white:
					state[neighbor] = gray
					stack = append(stack, frame{node: neighbor})
				}
				continue
			}

			state[node] = black
			stack = stack[:top]
		}
	}

	return false
}
