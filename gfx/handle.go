package gfx

// ID identifies a resource slot inside a backend Pool. The low 16 bits hold
// the slot index plus one, the high 16 bits the slot generation. The zero
// ID is never handed out.
type ID uint32

func makeID(index int, gen uint16) ID {
	return ID(uint32(gen)<<16 | uint32(index+1))
}

func (id ID) index() int {
	return int(id&0xffff) - 1
}

func (id ID) generation() uint16 {
	return uint16(id >> 16)
}

func (id ID) Valid() bool {
	return id&0xffff != 0
}

type Buffer ID
type Image ID
type Shader ID
type Pipeline ID

func (b Buffer) Valid() bool   { return ID(b).Valid() }
func (i Image) Valid() bool    { return ID(i).Valid() }
func (s Shader) Valid() bool   { return ID(s).Valid() }
func (p Pipeline) Valid() bool { return ID(p).Valid() }

const maxPoolSlots = 0xfffe

type poolSlot[T any] struct {
	gen   uint16
	alive bool
	value T
}

// Pool hands out generation-checked IDs for backend resource records.
// Released slots are reused with a bumped generation, so IDs that refer to
// a released resource never resolve again.
type Pool[T any] struct {
	slots []poolSlot[T]
	free  []int
}

func (p *Pool[T]) Alloc(value T) (ID, error) {
	var index int
	if n := len(p.free); n > 0 {
		index = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		if len(p.slots) >= maxPoolSlots {
			return 0, ErrPoolExhausted
		}
		p.slots = append(p.slots, poolSlot[T]{gen: 1})
		index = len(p.slots) - 1
	}

	slot := &p.slots[index]
	slot.alive = true
	slot.value = value
	return makeID(index, slot.gen), nil
}

func (p *Pool[T]) slot(id ID) *poolSlot[T] {
	index := id.index()
	if index < 0 || index >= len(p.slots) {
		return nil
	}
	slot := &p.slots[index]
	if !slot.alive || slot.gen != id.generation() {
		return nil
	}
	return slot
}

func (p *Pool[T]) Lookup(id ID) (T, bool) {
	slot := p.slot(id)
	if slot == nil {
		var zero T
		return zero, false
	}
	return slot.value, true
}

// Replace overwrites the record behind a live ID.
func (p *Pool[T]) Replace(id ID, value T) bool {
	slot := p.slot(id)
	if slot == nil {
		return false
	}
	slot.value = value
	return true
}

func (p *Pool[T]) Release(id ID) (T, bool) {
	slot := p.slot(id)
	if slot == nil {
		var zero T
		return zero, false
	}

	value := slot.value
	var zero T
	slot.value = zero
	slot.alive = false
	slot.gen++
	if slot.gen == 0 {
		slot.gen = 1
	}
	p.free = append(p.free, id.index())
	return value, true
}

func (p *Pool[T]) Len() int {
	return len(p.slots) - len(p.free)
}

// Each visits live records in slot order.
func (p *Pool[T]) Each(fn func(ID, T)) {
	for index := range p.slots {
		slot := &p.slots[index]
		if slot.alive {
			fn(makeID(index, slot.gen), slot.value)
		}
	}
}
