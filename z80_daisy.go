// z80_daisy.go - Z80 mode 2 interrupt daisy chain

package main

// InterruptNode is one device's position on the daisy chain.
type InterruptNode struct {
	Name string

	// Enabled is the node's IEI input: no node at or above it is being
	// requested or serviced.
	Enabled bool
	// Requested is set between a request and its acknowledge.
	Requested bool
	// RequestData is the vector byte put on the bus at acknowledge.
	RequestData byte
	// Pending is set from acknowledge until the handler's RETI.
	Pending bool

	chain *DaisyChain
}

// RequestInterrupt asks the CPU for service. It only takes effect when the
// node is enabled and idle, and returns whether it did.
func (n *InterruptNode) RequestInterrupt(data byte) bool {
	if !n.Enabled || n.Requested || n.Pending {
		return false
	}
	n.Requested = true
	n.RequestData = data
	if n.chain != nil {
		n.chain.update()
	}
	return true
}

// Reset returns the node to its idle state.
func (n *InterruptNode) Reset() {
	n.Enabled = true
	n.Requested = false
	n.Pending = false
	n.RequestData = 0
}

// DaisyChain owns the interrupting devices in priority order, highest
// first. The CPU sits in front of element 0.
type DaisyChain struct {
	nodes []*InterruptNode
	irq   bool
}

func NewDaisyChain() *DaisyChain {
	return &DaisyChain{}
}

// Attach appends a node at the lowest priority so far and returns its index.
func (d *DaisyChain) Attach(n *InterruptNode) int {
	n.chain = d
	d.nodes = append(d.nodes, n)
	d.update()
	return len(d.nodes) - 1
}

// IRQ reports whether the interrupt line into the CPU is asserted.
func (d *DaisyChain) IRQ() bool {
	return d.irq
}

// SetIRQ forces the line state. Snapshot restore uses it.
func (d *DaisyChain) SetIRQ(assert bool) {
	d.irq = assert
}

func (d *DaisyChain) Reset() {
	for _, n := range d.nodes {
		n.Reset()
	}
	d.update()
}

// update recomputes every node's enable input from head to tail and the
// CPU's interrupt line.
func (d *DaisyChain) update() {
	open := true
	irq := false
	for _, n := range d.nodes {
		if n.Requested || n.Pending {
			open = false
		}
		if n.Requested {
			irq = true
		}
		n.Enabled = open
	}
	d.irq = irq
}

// Acknowledge runs the CPU's acknowledge cycle. The first node that is
// requested or in service decides: a requested node moves to Pending and
// its vector is returned; a node still in service blocks everything below.
func (d *DaisyChain) Acknowledge() (byte, bool) {
	for _, n := range d.nodes {
		if n.Pending && !n.Requested {
			return 0, false
		}
		if n.Requested {
			n.Requested = false
			n.Pending = true
			d.update()
			return n.RequestData, true
		}
	}
	return 0, false
}

// ReturnFromInterrupt handles RETI: the highest-priority node in service
// leaves it. With nothing in service it does nothing.
func (d *DaisyChain) ReturnFromInterrupt() {
	for _, n := range d.nodes {
		if n.Pending {
			n.Pending = false
			d.update()
			return
		}
	}
}
