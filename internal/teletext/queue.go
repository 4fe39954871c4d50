package teletext

import "sync"

// pageInfo is a request to render one received page.
type pageInfo struct {
	pgno  int
	subno int
}

// pageQueue is the FIFO of pages waiting to be rendered. The page event
// handler and the chain function both touch it; the engine does not
// promise to deliver events on the chain goroutine, so every access holds
// the lock. The lock is never held while a page is fetched or drawn.
type pageQueue struct {
	mu    sync.Mutex
	items []pageInfo
}

func (q *pageQueue) push(pi pageInfo) {
	q.mu.Lock()
	q.items = append(q.items, pi)
	q.mu.Unlock()
}

// pop removes the oldest request.
func (q *pageQueue) pop() (pageInfo, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return pageInfo{}, false
	}
	pi := q.items[0]
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return pi, true
}

// clear drops all requests and returns how many there were.
func (q *pageQueue) clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

func (q *pageQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
