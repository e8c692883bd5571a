package kinet

// Particle is one live instance of a discrete substance at a position.
// Coordinates are in domain units (millimetres). The particle holds a
// non-owning link to its substance; ownership lies with the SubstanceTable.
// prev/next are the intrusive list links managed by ParticleList.
type Particle struct {
	Substance *Substance
	X, Y, Z   float64

	prev, next *Particle
}

// Next returns the successor of p in its list, or nil at the tail.
func (p *Particle) Next() *Particle {
	return p.next
}

// ParticleList is an intrusive doubly-linked list of particles. Insertion
// prepends at the head and removal unlinks in O(1) given the node, so
// erasing mid-iteration never invalidates other nodes.
type ParticleList struct {
	head *Particle
	size int
}

// Insert prepends p at the head of the list.
func (l *ParticleList) Insert(p *Particle) {
	p.prev = nil
	p.next = l.head
	if l.head != nil {
		l.head.prev = p
	}
	l.head = p
	l.size++
}

// Remove unlinks p from the list using its own links.
// p must currently be linked into this list.
func (l *ParticleList) Remove(p *Particle) {
	if p.prev != nil {
		p.prev.next = p.next
	} else {
		l.head = p.next
	}
	if p.next != nil {
		p.next.prev = p.prev
	}
	p.prev = nil
	p.next = nil
	l.size--
}

// Head returns the first particle, or nil when the list is empty.
func (l *ParticleList) Head() *Particle {
	return l.head
}

// Len returns the number of linked particles.
func (l *ParticleList) Len() int {
	return l.size
}

// ForEach calls fn for every particle from head to tail. fn must not remove
// particles other than the one it was called with.
func (l *ParticleList) ForEach(fn func(*Particle)) {
	for p := l.head; p != nil; {
		next := p.next
		fn(p)
		p = next
	}
}
