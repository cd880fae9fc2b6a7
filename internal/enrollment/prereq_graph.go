package enrollment

import "github.com/noah-isme/kanvas-api/internal/models"

// PrereqGraph is the course level prerequisite relation: an edge points from a
// course to a course it requires.
type PrereqGraph struct {
	edges map[int64][]int64
}

func NewPrereqGraph(edges []models.CourseEdge) *PrereqGraph {
	g := &PrereqGraph{edges: make(map[int64][]int64, len(edges))}
	for _, e := range edges {
		g.edges[e.CourseID] = append(g.edges[e.CourseID], e.PrereqCourseID)
	}
	return g
}

// WouldCycle reports whether adding course -> prereq closes a loop, which is
// the case when prereq already depends on course, directly or transitively.
func (g *PrereqGraph) WouldCycle(course, prereq int64) bool {
	if course == prereq {
		return true
	}
	seen := map[int64]bool{prereq: true}
	stack := []int64{prereq}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.edges[n] {
			if next == course {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}
