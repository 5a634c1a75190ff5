package predict

// linearSearchMax is the queue length up to which insertion points are found
// by a linear scan rather than a binary search.
const linearSearchMax = 60

// boundedQueue is a priority queue holding at most maxSize items, highest
// priority first. Items of equal priority keep their insertion order.
type boundedQueue[T any] struct {
	maxSize    int
	items      []T
	priorities []float64
	// threshold is 0 until the queue is full, then the lowest priority in
	// it. Items at or below the threshold are rejected.
	threshold float64
}

func newBoundedQueue[T any](maxSize int) *boundedQueue[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &boundedQueue[T]{
		maxSize:    maxSize,
		items:      make([]T, 0, maxSize),
		priorities: make([]float64, 0, maxSize),
	}
}

// add inserts item by priority and reports whether it was kept.
func (q *boundedQueue[T]) add(item T, priority float64) bool {
	if len(q.items) == q.maxSize {
		if priority <= q.threshold {
			return false
		}
		q.items = q.items[:len(q.items)-1]
		q.priorities = q.priorities[:len(q.priorities)-1]
	}

	index := q.insertionPoint(priority)

	var zero T
	q.items = append(q.items, zero)
	copy(q.items[index+1:], q.items[index:])
	q.items[index] = item

	q.priorities = append(q.priorities, 0)
	copy(q.priorities[index+1:], q.priorities[index:])
	q.priorities[index] = priority

	q.updateThreshold()
	return true
}

func (q *boundedQueue[T]) insertionPoint(priority float64) int {
	n := len(q.priorities)
	if n > linearSearchMax {
		start, end := 0, n
		for start != end {
			mid := (start + end) / 2
			if priority > q.priorities[mid] {
				end = mid
			} else {
				start = mid + 1
			}
		}
		return start
	}
	for i, p := range q.priorities {
		if priority > p {
			return i
		}
	}
	return n
}

// remove pops the highest priority item.
func (q *boundedQueue[T]) remove() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	q.priorities = q.priorities[1:]
	q.updateThreshold()
	return item, true
}

func (q *boundedQueue[T]) removeAt(i int) {
	q.items = append(q.items[:i], q.items[i+1:]...)
	q.priorities = append(q.priorities[:i], q.priorities[i+1:]...)
	q.updateThreshold()
}

func (q *boundedQueue[T]) updateThreshold() {
	if len(q.priorities) >= q.maxSize {
		q.threshold = q.priorities[q.maxSize-1]
	} else {
		q.threshold = 0
	}
}

func (q *boundedQueue[T]) len() int {
	return len(q.items)
}
