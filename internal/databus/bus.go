// Package databus routes per-step execution events from the emulator (or a
// chunk replay) to the counter and input-collector devices that each
// secondary state machine registers, mirroring the pub/sub contract of
// static_data_bus.rs: a small set of well-known bus IDs, payloads routed by
// opcode family, and a pending-transfer queue so a device can itself emit
// derived events without the caller knowing about it.
package databus

// BusID identifies one of the fixed buses a device can subscribe to.
type BusID int

const (
	OperationBusID BusID = iota
	MemBusID
	RomBusID
)

// Event is one payload written to the bus: a step's opcode evaluation or a
// single address-space access.
type Event struct {
	BusID BusID

	Step   uint64
	PC     uint64
	Opcode uint8
	OpType int // zisk.OpType, kept as int to avoid an import cycle risk
	A, B   uint64
	C      uint64
	Flag   bool

	Addr    uint64
	Width   uint64
	IsWrite bool
	Value   uint64
}

// BusDevice consumes events from one or more buses. ProcessData may enqueue
// further events onto pending (e.g. a counter that derives a synthetic
// memory-alignment sub-operation). Its boolean result is folded into
// Write's return value; the bus does not stop delivering later events to a
// device that returned false.
type BusDevice interface {
	ProcessData(busID BusID, ev Event, pending *[]PendingEvent) bool
	OnClose()
}

// PendingEvent is a (bus, event) pair queued by a device for re-routing.
type PendingEvent struct {
	BusID BusID
	Event Event
}

// DataBus dispatches events to devices subscribed by BusID, plus a set of
// "omni" devices that see every event regardless of bus.
type DataBus struct {
	byBus map[BusID][]BusDevice
	omni  []BusDevice
	order []BusDevice // registration order, for OnClose and Devices()

	pending []PendingEvent
}

// New returns an empty bus.
func New() *DataBus {
	return &DataBus{byBus: map[BusID][]BusDevice{}}
}

// Register subscribes d to the given bus.
func (bus *DataBus) Register(id BusID, d BusDevice) {
	bus.byBus[id] = append(bus.byBus[id], d)
	bus.order = append(bus.order, d)
}

// RegisterOmni subscribes d to every event, regardless of BusID.
func (bus *DataBus) RegisterOmni(d BusDevice) {
	bus.omni = append(bus.omni, d)
	bus.order = append(bus.order, d)
}

// Write routes ev to its bus's subscribers and the omni devices, then drains
// any pending events those devices enqueued, in FIFO order. Returns false if
// any device asked the run to stop.
func (bus *DataBus) Write(id BusID, ev Event) bool {
	cont := bus.route(id, ev)
	for len(bus.pending) > 0 {
		next := bus.pending[0]
		bus.pending = bus.pending[1:]
		cont = bus.route(next.BusID, next.Event) && cont
	}
	return cont
}

func (bus *DataBus) route(id BusID, ev Event) bool {
	cont := true
	for _, d := range bus.byBus[id] {
		cont = d.ProcessData(id, ev, &bus.pending) && cont
	}
	for _, d := range bus.omni {
		cont = d.ProcessData(id, ev, &bus.pending) && cont
	}
	return cont
}

// Close calls OnClose on every registered device, in registration order.
func (bus *DataBus) Close() {
	for _, d := range bus.order {
		d.OnClose()
	}
}

// Devices returns every registered device in registration order, for
// collecting final counters after a run.
func (bus *DataBus) Devices() []BusDevice {
	out := make([]BusDevice, len(bus.order))
	copy(out, bus.order)
	return out
}
