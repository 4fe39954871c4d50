package vbi

import "github.com/golang/groupcache/lru"

// DefaultCacheSize bounds the number of cached sub-pages. A full service
// carries at most 800 pages; rotating sub-pages push it beyond that.
const DefaultCacheSize = 2048

type pageKey struct {
	pgno  int
	subno int
}

// pageCache stores the most recently completed version of every
// page/sub-page and tracks pages lent out by FetchVTPage.
type pageCache struct {
	pages       *lru.Cache
	latest      map[int]int
	outstanding int
}

func newPageCache(size int) *pageCache {
	pc := &pageCache{
		pages:  lru.New(size),
		latest: make(map[int]int),
	}
	pc.pages.OnEvicted = func(key lru.Key, _ interface{}) {
		k := key.(pageKey)
		if sub, ok := pc.latest[k.pgno]; ok && sub == k.subno {
			delete(pc.latest, k.pgno)
		}
	}
	return pc
}

func (pc *pageCache) store(rp *rawPage) {
	pc.pages.Add(pageKey{rp.pgno, rp.subno}, rp)
	pc.latest[rp.pgno] = rp.subno
}

func (pc *pageCache) lookup(pgno, subno int) (*rawPage, bool) {
	if subno == AnySubno {
		sub, ok := pc.latest[pgno]
		if !ok {
			return nil, false
		}
		subno = sub
	}
	v, ok := pc.pages.Get(pageKey{pgno, subno})
	if !ok {
		return nil, false
	}
	return v.(*rawPage), true
}

// borrow counts a page handed out; the returned func gives it back.
func (pc *pageCache) borrow() func() {
	pc.outstanding++
	return func() { pc.outstanding-- }
}

func (pc *pageCache) len() int {
	return pc.pages.Len()
}

func (pc *pageCache) clear() {
	pc.pages.Clear()
	pc.latest = make(map[int]int)
}
