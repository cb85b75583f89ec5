package transport

import (
	"sync"
	"testing"
)

func TestQueue_FIFO(t *testing.T) {
	var q Queue[int]
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop on empty queue succeeded")
	}
	for i := range 3 {
		q.Push(i)
	}
	if q.Len() != 3 {
		t.Errorf("Len() = %d, want 3", q.Len())
	}
	if v, ok := q.Pop(); !ok || v != 0 {
		t.Errorf("Pop() = %d, %v, want 0, true", v, ok)
	}
	rest := q.Drain()
	if len(rest) != 2 || rest[0] != 1 || rest[1] != 2 {
		t.Errorf("Drain() = %v, want [1 2]", rest)
	}
	if q.Len() != 0 {
		t.Errorf("Len() after drain = %d", q.Len())
	}
}

func TestQueue_ConcurrentPush(t *testing.T) {
	var q Queue[int]
	var wg sync.WaitGroup
	for p := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 250 {
				q.Push(p*1000 + i)
			}
		}()
	}
	wg.Wait()

	items := q.Drain()
	if len(items) != 1000 {
		t.Fatalf("drained %d items, want 1000", len(items))
	}
	// per producer order is preserved
	last := map[int]int{}
	for _, v := range items {
		p, i := v/1000, v%1000
		if prev, ok := last[p]; ok && i != prev+1 {
			t.Fatalf("producer %d: %d after %d", p, i, prev)
		}
		last[p] = i
	}
}
