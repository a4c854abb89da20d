// Package registry keeps an ordered, reorderable list of keyed items such as
// the genes and parameters being compared side by side.
package registry

const none = -1

type node[K comparable, V any] struct {
	key  K
	data V
	prev int
	next int
}

// Registry is a doubly-linked list stored in an arena. Nodes refer to each
// other by arena index and released slots are reused. Lookups by key or
// position are linear.
type Registry[K comparable, V any] struct {
	keyOf func(V) K
	nodes []node[K, V]
	free  []int
	head  int
	tail  int
	count int
}

// New returns an empty registry that derives node keys with keyOf.
func New[K comparable, V any](keyOf func(V) K) *Registry[K, V] {
	return &Registry[K, V]{keyOf: keyOf, head: none, tail: none}
}

func (r *Registry[K, V]) alloc(item V) int {
	n := node[K, V]{key: r.keyOf(item), data: item, prev: none, next: none}
	r.count++
	if l := len(r.free); l > 0 {
		i := r.free[l-1]
		r.free = r.free[:l-1]
		r.nodes[i] = n
		return i
	}
	r.nodes = append(r.nodes, n)
	return len(r.nodes) - 1
}

// Count returns the number of items.
func (r *Registry[K, V]) Count() int { return r.count }

// Append adds item at the tail.
func (r *Registry[K, V]) Append(item V) {
	r.linkTail(r.alloc(item))
}

// Prepend adds item at the head.
func (r *Registry[K, V]) Prepend(item V) {
	i := r.alloc(item)
	if r.head == none {
		r.head, r.tail = i, i
		return
	}
	r.nodes[i].next = r.head
	r.nodes[r.head].prev = i
	r.head = i
}

// InsertAfter adds item after the node at index. An index past the end
// appends.
func (r *Registry[K, V]) InsertAfter(item V, index int) {
	cursor := r.nodeAt(index)
	i := r.alloc(item)
	if cursor == none || cursor == r.tail {
		r.linkTail(i)
		return
	}
	next := r.nodes[cursor].next
	r.nodes[i].prev = cursor
	r.nodes[i].next = next
	r.nodes[next].prev = i
	r.nodes[cursor].next = i
}

// Remove deletes the item with key and returns the remaining count.
func (r *Registry[K, V]) Remove(key K) int {
	if i := r.find(key); i != none {
		r.unlink(i)
		var zero node[K, V]
		r.nodes[i] = zero
		r.free = append(r.free, i)
		r.count--
	}
	return r.count
}

// MoveTo moves the item with key in front of the item currently at index,
// or to the tail when index is past the end. It reports whether key exists.
func (r *Registry[K, V]) MoveTo(key K, index int) bool {
	i := r.find(key)
	if i == none {
		return false
	}
	successor := r.nodeAt(index)
	if successor == i {
		return true
	}
	r.unlink(i)
	if successor == none {
		r.linkTail(i)
		return true
	}
	prev := r.nodes[successor].prev
	r.nodes[i].prev = prev
	r.nodes[i].next = successor
	if prev == none {
		r.head = i
	} else {
		r.nodes[prev].next = i
	}
	r.nodes[successor].prev = i
	return true
}

// Find returns the item stored under key.
func (r *Registry[K, V]) Find(key K) (V, bool) {
	if i := r.find(key); i != none {
		return r.nodes[i].data, true
	}
	var zero V
	return zero, false
}

// At returns the item at position index.
func (r *Registry[K, V]) At(index int) (V, bool) {
	if index < 0 {
		var zero V
		return zero, false
	}
	if i := r.nodeAt(index); i != none {
		return r.nodes[i].data, true
	}
	var zero V
	return zero, false
}

// Traverse visits items from head to tail.
func (r *Registry[K, V]) Traverse(visit func(item V, key K)) {
	for i := r.head; i != none; i = r.nodes[i].next {
		visit(r.nodes[i].data, r.nodes[i].key)
	}
}

// Keys returns the keys in list order.
func (r *Registry[K, V]) Keys() []K {
	keys := make([]K, 0, r.count)
	r.Traverse(func(_ V, k K) { keys = append(keys, k) })
	return keys
}

// Clear removes every item and releases the arena.
func (r *Registry[K, V]) Clear() {
	r.nodes, r.free = nil, nil
	r.head, r.tail = none, none
	r.count = 0
}

func (r *Registry[K, V]) find(key K) int {
	for i := r.head; i != none; i = r.nodes[i].next {
		if r.nodes[i].key == key {
			return i
		}
	}
	return none
}

// nodeAt returns the arena index of the node at position index, or none
// when index is past the end. Negative positions resolve to the head.
func (r *Registry[K, V]) nodeAt(index int) int {
	i := r.head
	for n := 0; i != none && n < index; n++ {
		i = r.nodes[i].next
	}
	return i
}

func (r *Registry[K, V]) linkTail(i int) {
	r.nodes[i].next = none
	r.nodes[i].prev = r.tail
	if r.tail == none {
		r.head = i
	} else {
		r.nodes[r.tail].next = i
	}
	r.tail = i
}

func (r *Registry[K, V]) unlink(i int) {
	n := r.nodes[i]
	if n.prev == none {
		r.head = n.next
	} else {
		r.nodes[n.prev].next = n.next
	}
	if n.next == none {
		r.tail = n.prev
	} else {
		r.nodes[n.next].prev = n.prev
	}
	r.nodes[i].prev, r.nodes[i].next = none, none
}
