package channels

import "sync/atomic"

// link is the value held in a node's next pointer. A link with removed set
// marks the owning node as logically deleted; the successor recorded in it
// lets any thread finish the physical unlink. Marking allocates a fresh link
// so that logical removal and append contend on a single CAS point: an
// append racing with the removal of the current tail fails its CAS and
// retries against the corrected tail.
type link[W any] struct {
	next    *listNode[W]
	removed bool
}

// listNode is the intrusive part of a queued waiter. owner points back at
// the waiter embedding the node; it is set once before the node is linked.
type listNode[W any] struct {
	next  atomic.Pointer[link[W]]
	prev  atomic.Pointer[listNode[W]]
	owner *W
}

// waiterList is a doubly-linked FIFO of parked waiters with a sentinel head.
// Appends are serialized by the owning channel's buffer lock; removals run
// lock-free from any goroutine (waiter cancellation, close drain), so every
// traversal tolerates and helps unlink marked nodes. prev pointers are hints
// repaired during traversal; next pointers carry the list's truth.
//
// The linearization point of an append is the CAS installing the node into
// the tail's next link; of a removal, the CAS replacing the node's own next
// link with a marked copy. A marked node's next link is never changed again,
// which keeps concurrent traversals on a stable chain.
type waiterList[W any] struct {
	head listNode[W]
}

func (l *waiterList[W]) init() {
	l.head.next.Store(&link[W]{next: &l.head})
	l.head.prev.Store(&l.head)
}

// empty reports whether the list holds no live node.
func (l *waiterList[W]) empty() bool { return l.first() == nil }

// first returns the head-most node that has not been removed, or nil.
func (l *waiterList[W]) first() *listNode[W] {
	n := l.head.next.Load().next
	for n != &l.head {
		ln := n.next.Load()
		if !ln.removed {
			return n
		}
		n = ln.next
	}
	return nil
}

// nextLive returns the first non-removed node after n, or nil.
func (l *waiterList[W]) nextLive(n *listNode[W]) *listNode[W] {
	m := n.next.Load().next
	for m != &l.head {
		ml := m.next.Load()
		if !ml.removed {
			return m
		}
		m = ml.next
	}
	return nil
}

// findTail walks the list from the head, physically unlinking marked nodes
// on the way, and returns the last live node (the sentinel when the list is
// empty). A failed unlink CAS means the predecessor itself got marked; the
// walk restarts from the head.
func (l *waiterList[W]) findTail() *listNode[W] {
	pred := &l.head
	for {
		pl := pred.next.Load()
		if pl.removed {
			pred = &l.head
			continue
		}
		cur := pl.next
		if cur == &l.head {
			l.head.prev.Store(pred)
			return pred
		}
		cl := cur.next.Load()
		if cl.removed {
			if !pred.next.CompareAndSwap(pl, &link[W]{next: cl.next}) {
				pred = &l.head
			}
			continue
		}
		cur.prev.Store(pred)
		pred = cur
	}
}

// addLast appends n. The caller serializes appends (buffer lock); the CAS
// loop is still required because a lock-free removal may be racing on the
// current tail.
func (l *waiterList[W]) addLast(n *listNode[W]) {
	for {
		t := l.findTail()
		tl := t.next.Load()
		if tl.removed || tl.next != &l.head {
			continue
		}
		n.next.Store(&link[W]{next: &l.head})
		n.prev.Store(t)
		if t.next.CompareAndSwap(tl, &link[W]{next: n}) {
			l.head.prev.Store(n)
			return
		}
	}
}

// addLastIf appends n only when cond holds. The caller must hold the lock
// that serializes appends with mutations of the state cond reads; the
// check-then-append pair is atomic under that lock.
func (l *waiterList[W]) addLastIf(n *listNode[W], cond func() bool) bool {
	if !cond() {
		return false
	}
	l.addLast(n)
	return true
}

// remove logically deletes n and helps unlink it physically. It returns
// false when n was never linked or is already removed. Safe to call from any
// goroutine, any number of times.
func (l *waiterList[W]) remove(n *listNode[W]) bool {
	for {
		ln := n.next.Load()
		if ln == nil || ln.removed {
			return false
		}
		if n.next.CompareAndSwap(ln, &link[W]{next: ln.next, removed: true}) {
			l.findTail()
			return true
		}
	}
}
