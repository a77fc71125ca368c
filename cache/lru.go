package cache

// lruNode is a node in a doubly-linked LRU list.
// The node stores its key for O(1) deletion from the shard map.
type lruNode struct {
	key  string
	size int
	prev *lruNode
	next *lruNode
}

// lruList orders entries from most (head) to least (tail) recently used.
// It is not thread-safe; the owning shard synchronizes access.
type lruList struct {
	head *lruNode
	tail *lruNode
	len  int
}

func (l *lruList) pushFront(n *lruNode) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.len++
}

func (l *lruList) moveToFront(n *lruNode) {
	if n == l.head {
		return
	}
	l.remove(n)
	l.pushFront(n)
}

func (l *lruList) remove(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	l.len--
}

// oldest returns the least recently used node, or nil.
func (l *lruList) oldest() *lruNode {
	return l.tail
}
