package crawl

// frontier is a breadth-first work list that remembers every URL it has
// accepted. Order of acceptance is the crawl result order.
type frontier struct {
	seen  map[string]struct{}
	order []string
	next  int
	limit int
}

func newFrontier(limit int) *frontier {
	return &frontier{seen: make(map[string]struct{}), limit: limit}
}

// push accepts u unless it was seen before or the frontier is full.
func (f *frontier) push(u string) bool {
	if _, dup := f.seen[u]; dup || f.full() {
		return false
	}
	f.seen[u] = struct{}{}
	f.order = append(f.order, u)
	return true
}

func (f *frontier) full() bool {
	return f.limit > 0 && len(f.order) >= f.limit
}

// pop returns the next unvisited URL.
func (f *frontier) pop() (string, bool) {
	if f.next >= len(f.order) {
		return "", false
	}
	u := f.order[f.next]
	f.next++
	return u, true
}

func (f *frontier) urls() []string {
	return append([]string(nil), f.order...)
}
