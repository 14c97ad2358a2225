package vm

// ReferenceCounter tracks the items reachable from one engine.
//
// An item is tracked from the moment it is first referenced by a
// stack, a slot or a tracked compound item. Every reference removal
// buffers the item as a candidate; Collect then frees the candidates
// that are no longer reachable, including unreachable cycles, by
// synchronous trial deletion.
type ReferenceCounter struct {
	count      int // distinct tracked items
	rootRefs   int // references from stacks, slots and the engine
	candidates []Item
}

// NewReferenceCounter returns an empty counter.
func NewReferenceCounter() *ReferenceCounter {
	return new(ReferenceCounter)
}

// Count collects garbage and returns the number of live items.
func (rc *ReferenceCounter) Count() int {
	rc.Collect()
	return rc.count
}

// RootRefs returns the number of references held by stacks, slots
// and the engine itself.
func (rc *ReferenceCounter) RootRefs() int {
	return rc.rootRefs
}

// track starts counting it, and adopts the children of a compound.
func (rc *ReferenceCounter) track(it Item) {
	h := it.hdr()
	if h.tracked {
		return
	}
	h.tracked = true
	h.color = black
	rc.count++
	if p := counter(it); p != nil && *p == nil {
		*p = rc
		forEachChild(it, rc.addParent)
	}
}

func (rc *ReferenceCounter) addRoot(it Item) {
	rc.track(it)
	it.hdr().stackRefs++
	rc.rootRefs++
}

func (rc *ReferenceCounter) removeRoot(it Item) {
	it.hdr().stackRefs--
	rc.rootRefs--
	rc.buffer(it)
}

func (rc *ReferenceCounter) addParent(it Item) {
	rc.track(it)
	it.hdr().parentRefs++
}

func (rc *ReferenceCounter) removeParent(it Item) {
	it.hdr().parentRefs--
	rc.buffer(it)
}

// buffer records it as a possible root of garbage.
func (rc *ReferenceCounter) buffer(it Item) {
	h := it.hdr()
	if h.buffered {
		return
	}
	h.buffered = true
	h.color = purple
	rc.candidates = append(rc.candidates, it)
}

// Collect frees every candidate that is no longer reachable from a
// root, together with whatever only it kept alive.
func (rc *ReferenceCounter) Collect() {
	if len(rc.candidates) == 0 {
		return
	}
	roots := rc.candidates[:0]
	for _, it := range rc.candidates {
		h := it.hdr()
		if h.tracked && h.stackRefs == 0 && h.color == purple {
			roots = append(roots, it)
			continue
		}
		h.buffered = false
		if h.color == purple {
			h.color = black
		}
	}
	for _, it := range roots {
		rc.markGray(it)
	}
	for _, it := range roots {
		rc.scan(it)
	}
	for _, it := range roots {
		it.hdr().buffered = false
		rc.collectWhite(it)
	}
	for i := range rc.candidates {
		rc.candidates[i] = nil
	}
	rc.candidates = rc.candidates[:0]
}

// markGray subtracts the references internal to the subgraph
// rooted at it.
func (rc *ReferenceCounter) markGray(it Item) {
	h := it.hdr()
	if h.color == gray {
		return
	}
	h.color = gray
	forEachChild(it, func(c Item) {
		c.hdr().parentRefs--
		rc.markGray(c)
	})
}

// scan whitens what has no external references and restores the
// rest.
func (rc *ReferenceCounter) scan(it Item) {
	h := it.hdr()
	if h.color != gray {
		return
	}
	if h.refs() > 0 {
		rc.scanBlack(it)
		return
	}
	h.color = white
	forEachChild(it, rc.scan)
}

func (rc *ReferenceCounter) scanBlack(it Item) {
	it.hdr().color = black
	forEachChild(it, func(c Item) {
		ch := c.hdr()
		ch.parentRefs++
		if ch.color != black {
			rc.scanBlack(c)
		}
	})
}

func (rc *ReferenceCounter) collectWhite(it Item) {
	h := it.hdr()
	if h.color != white || h.buffered {
		return
	}
	h.color = black
	forEachChild(it, rc.collectWhite)
	rc.free(it)
}

func (rc *ReferenceCounter) free(it Item) {
	h := it.hdr()
	if !h.tracked {
		return
	}
	h.tracked = false
	rc.count--
	if p := counter(it); p != nil {
		*p = nil
	}
}
