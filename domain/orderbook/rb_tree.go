package orderbook

// Red-black tree keyed by price, one node per live price level.
// Insert, delete and best-price lookup are O(log L) in the number of
// distinct levels, which is what keeps the book's Insert bound.

type color uint8

const (
	red color = iota
	black
)

type node struct {
	key    int64
	level  *PriceLevel
	color  color
	left   *node
	right  *node
	parent *node
}

type tree struct {
	root     *node
	sentinel *node // shared black leaf
	size     int
}

func newTree() *tree {
	s := &node{color: black}
	return &tree{
		root:     s,
		sentinel: s,
	}
}

func (t *tree) len() int { return t.size }

func (t *tree) get(price int64) *PriceLevel {
	n := t.root
	for n != t.sentinel {
		if price < n.key {
			n = n.left
		} else if price > n.key {
			n = n.right
		} else {
			return n.level
		}
	}
	return nil
}

// getOrInsert returns the level at price, creating it if absent.
func (t *tree) getOrInsert(price int64) *PriceLevel {
	y := t.sentinel
	x := t.root
	for x != t.sentinel {
		y = x
		if price < x.key {
			x = x.left
		} else if price > x.key {
			x = x.right
		} else {
			return x.level
		}
	}

	lvl := &PriceLevel{Price: price}
	z := &node{
		key:    price,
		level:  lvl,
		color:  red,
		left:   t.sentinel,
		right:  t.sentinel,
		parent: y,
	}

	if y == t.sentinel {
		t.root = z
	} else if z.key < y.key {
		y.left = z
	} else {
		y.right = z
	}
	t.insertFixup(z)
	t.size++
	return lvl
}

func (t *tree) delete(price int64) bool {
	z := t.search(price)
	if z == t.sentinel {
		return false
	}
	t.deleteNode(z)
	t.size--
	return true
}

func (t *tree) min() *PriceLevel {
	n := t.minNode(t.root)
	if n == t.sentinel {
		return nil
	}
	return n.level
}

func (t *tree) max() *PriceLevel {
	n := t.maxNode(t.root)
	if n == t.sentinel {
		return nil
	}
	return n.level
}

func (t *tree) ascend(fn func(*PriceLevel) bool) {
	for n := t.minNode(t.root); n != t.sentinel; n = t.next(n) {
		if !fn(n.level) {
			return
		}
	}
}

func (t *tree) descend(fn func(*PriceLevel) bool) {
	for n := t.maxNode(t.root); n != t.sentinel; n = t.prev(n) {
		if !fn(n.level) {
			return
		}
	}
}

/******************** internal helpers ********************/

func (t *tree) search(price int64) *node {
	n := t.root
	for n != t.sentinel {
		if price < n.key {
			n = n.left
		} else if price > n.key {
			n = n.right
		} else {
			return n
		}
	}
	return t.sentinel
}

func (t *tree) minNode(n *node) *node {
	if n == t.sentinel {
		return t.sentinel
	}
	for n.left != t.sentinel {
		n = n.left
	}
	return n
}

func (t *tree) maxNode(n *node) *node {
	if n == t.sentinel {
		return t.sentinel
	}
	for n.right != t.sentinel {
		n = n.right
	}
	return n
}

func (t *tree) next(n *node) *node {
	if n.right != t.sentinel {
		return t.minNode(n.right)
	}
	p := n.parent
	for p != t.sentinel && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *tree) prev(n *node) *node {
	if n.left != t.sentinel {
		return t.maxNode(n.left)
	}
	p := n.parent
	for p != t.sentinel && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

func (t *tree) leftRotate(x *node) {
	y := x.right
	x.right = y.left
	if y.left != t.sentinel {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.sentinel {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *tree) rightRotate(y *node) {
	x := y.left
	y.left = x.right
	if x.right != t.sentinel {
		x.right.parent = y
	}
	x.parent = y.parent
	if y.parent == t.sentinel {
		t.root = x
	} else if y == y.parent.right {
		y.parent.right = x
	} else {
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

func (t *tree) insertFixup(z *node) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.leftRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rightRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *tree) transplant(u, v *node) {
	if u.parent == t.sentinel {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *tree) deleteNode(z *node) {
	y := z
	yOrigColor := y.color
	var x *node

	if z.left == t.sentinel {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == t.sentinel {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = t.minNode(z.right)
		yOrigColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yOrigColor == black {
		t.deleteFixup(x)
	}
}

func (t *tree) deleteFixup(x *node) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rightRotate(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.leftRotate(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.leftRotate(w)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rightRotate(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}
