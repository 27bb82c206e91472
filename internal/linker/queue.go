package linker

import (
	"fmt"
	"strings"

	"pgshape/internal/catalog"
)

// CycleError reports a dependency cycle among schema objects, naming
// every member.
type CycleError struct {
	Members []catalog.Identifier
}

func (e *CycleError) Error() string {
	names := make([]string, len(e.Members))
	for i, id := range e.Members {
		names[i] = id.String()
	}
	return fmt.Sprintf("dependency cycle: %s", strings.Join(names, " -> "))
}

// Queue is the append-only execution order over schema objects. Iterating
// Items yields every added object exactly once, with all of an object's
// dependencies strictly before the object itself. Adding an object that
// is already present is a no-op.
type Queue struct {
	items   []*catalog.Object
	present map[*catalog.Object]bool
}

// NewQueue returns an empty execution queue.
func NewQueue() *Queue {
	return &Queue{present: make(map[*catalog.Object]bool)}
}

// Items returns the queued objects in dependency-first order.
func (q *Queue) Items() []*catalog.Object {
	out := make([]*catalog.Object, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of queued objects.
func (q *Queue) Len() int {
	return len(q.items)
}

// queueFrame is an explicit DFS stack entry: the object and the index of
// the next dependency to descend into.
type queueFrame struct {
	obj  *catalog.Object
	next int
}

// Add appends obj and its transitive dependencies in post-order, using an
// explicit worklist rather than recursion. A back-edge to an in-progress
// object means the schema is cyclic; the cycle's members are reported and
// the queue is left unchanged for the objects not yet appended.
func (q *Queue) Add(obj *catalog.Object) error {
	if q.present[obj] {
		return nil
	}

	onStack := make(map[*catalog.Object]bool)
	stack := []queueFrame{{obj: obj}}
	onStack[obj] = true

	for len(stack) > 0 {
		frame := &stack[len(stack)-1]

		if frame.next < len(frame.obj.Dependencies) {
			dep := frame.obj.Dependencies[frame.next]
			frame.next++
			if q.present[dep] {
				continue
			}
			if onStack[dep] {
				return &CycleError{Members: cycleMembers(stack, dep)}
			}
			stack = append(stack, queueFrame{obj: dep})
			onStack[dep] = true
			continue
		}

		q.present[frame.obj] = true
		q.items = append(q.items, frame.obj)
		delete(onStack, frame.obj)
		stack = stack[:len(stack)-1]
	}
	return nil
}

// cycleMembers extracts the stack segment from the first occurrence of
// the back-edge target through the top of the stack.
func cycleMembers(stack []queueFrame, target *catalog.Object) []catalog.Identifier {
	var members []catalog.Identifier
	collecting := false
	for _, frame := range stack {
		if frame.obj == target {
			collecting = true
		}
		if collecting {
			members = append(members, frame.obj.ID)
		}
	}
	return members
}

// BuildQueue links nothing itself; it assumes Link has populated the
// dependency edges and produces the full execution order, walking the
// catalog in insertion order so unrelated objects keep a stable relative
// position.
func BuildQueue(cat *catalog.Catalog) (*Queue, error) {
	q := NewQueue()
	for _, obj := range cat.Objects() {
		if err := q.Add(obj); err != nil {
			return nil, err
		}
	}
	return q, nil
}
