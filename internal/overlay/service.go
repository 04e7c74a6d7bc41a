package overlay

// Context bundles a service's two dependencies — the peer it is
// attached to, and the network it runs inside — into a single value
// passed to every Handler/Runner method, instead of threading both
// through every call site.
type Context struct {
	Peer *Peer
	Net  Network
}

// Handler reacts to incoming messages of the Kinds it declares.
// Messages returning an error from HandleMessage are treated as fatal
// to the whole simulation (see Peer.receive) — the same termination
// path spec.md §7 describes for unhandled and mis-sent messages.
type Handler interface {
	Name() string
	Messages() []Kind
	HandleMessage(ctx *Context, m *Message) error
}

// Runner performs periodic, self-scheduled work: Start is called once
// when the service is attached to a running peer, and is responsible
// for scheduling its own repeating ticks via ctx.Net.Scheduler(). This
// mirrors how connection-manager pings, gossip rounds, and disruption
// toggles behave — independent timers, not a single shared event loop
// — without requiring every service to run as a suspendable task.
type Runner interface {
	Name() string
	Start(ctx *Context)
}
