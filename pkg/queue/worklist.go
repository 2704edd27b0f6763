package queue

import (
	"container/heap"
	"sync"
)

// SitemapItem is a sitemap URL waiting to be resolved
type SitemapItem struct {
	URL   string
	Depth int // 0 for a root sitemap, +1 per index level
}

type worklistEntry struct {
	item  SitemapItem
	seq   uint64 // Insertion order, breaks depth ties
	index int
}

// worklistHeap implements heap.Interface ordered by depth, then insertion sequence
type worklistHeap []*worklistEntry

func (h worklistHeap) Len() int { return len(h) }

func (h worklistHeap) Less(i, j int) bool {
	if h[i].item.Depth != h[j].item.Depth {
		return h[i].item.Depth < h[j].item.Depth
	}
	return h[i].seq < h[j].seq
}

func (h worklistHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *worklistHeap) Push(x any) {
	entry := x.(*worklistEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *worklistHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*h = old[:n-1]
	return entry
}

// Worklist is a non-blocking priority queue of sitemaps. Shallower sitemaps come first;
// sitemaps at the same depth come out in the order they were added.
type Worklist struct {
	mu   sync.Mutex
	h    worklistHeap
	next uint64
}

// NewWorklist creates an empty worklist
func NewWorklist() *Worklist {
	w := &Worklist{}
	heap.Init(&w.h)
	return w
}

// Push adds a sitemap to the worklist
func (w *Worklist) Push(item SitemapItem) {
	w.mu.Lock()
	defer w.mu.Unlock()
	heap.Push(&w.h, &worklistEntry{item: item, seq: w.next})
	w.next++
}

// Pop removes the next sitemap. Returns false when the worklist is empty.
func (w *Worklist) Pop() (SitemapItem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.h) == 0 {
		return SitemapItem{}, false
	}
	return heap.Pop(&w.h).(*worklistEntry).item, true
}

// Len returns the number of queued sitemaps
func (w *Worklist) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.h)
}
