package executor

import (
	"container/heap"
	"time"
)

type entry struct {
	name string
	task Task
	due  time.Time
	seq  uint64
}

// taskQueue is a min-heap on (due, seq).
type taskQueue []*entry

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x any) { *q = append(*q, x.(*entry)) }

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

func (q *taskQueue) push(e *entry) { heap.Push(q, e) }

func (q *taskQueue) pop() *entry { return heap.Pop(q).(*entry) }

// peek returns the earliest entry, or nil.
func (q taskQueue) peek() *entry {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

// dropAfter removes every entry due after cutoff and returns how many were dropped.
func (q *taskQueue) dropAfter(cutoff time.Time) int {
	kept := (*q)[:0]
	dropped := 0
	for _, e := range *q {
		if e.due.After(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(*q); i++ {
		(*q)[i] = nil
	}
	*q = kept
	heap.Init(q)
	return dropped
}
