package orderbook

// PriceLevel is a FIFO queue of resting orders at a single price.
// Orders are chained intrusively and kept in strict sequence order:
// Enqueue only ever appends, so time priority is structural.
type PriceLevel struct {
	Price int64

	head *Order
	tail *Order

	TotalQty   int64
	OrderCount int
}

func (p *PriceLevel) Enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.TotalQty += o.Remaining
	p.OrderCount++
}

// Reduce adjusts the aggregate after the matcher fills qty against the
// head order.
func (p *PriceLevel) Reduce(qty int64) {
	p.TotalQty -= qty
}

// PopHead unlinks the oldest order. The caller owns the returned order.
func (p *PriceLevel) PopHead() *Order {
	o := p.head
	if o == nil {
		return nil
	}

	p.head = o.next
	if p.head != nil {
		p.head.prev = nil
	} else {
		p.tail = nil
	}

	o.next = nil
	o.prev = nil

	p.TotalQty -= o.Remaining
	p.OrderCount--
	return o
}

func (p *PriceLevel) Empty() bool {
	return p.head == nil
}

// Head returns the order with time priority at this level. Read-only.
func (p *PriceLevel) Head() *Order {
	return p.head
}
