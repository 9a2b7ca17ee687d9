package fault

import (
	"os"
	"sync/atomic"
	"syscall"
)

// ///////////////////////////////////////////////
// Entry State Machine
// ///////////////////////////////////////////////

// Entry states. Each registry entry is a two-state machine once enabled:
// ARMED until its signal fires, FIRED forever after. The armed->fired
// transition happens exactly once per enable cycle via compare-and-swap,
// which is what bounds recursive faults during dump output to a single
// extra delivery: a FIRED entry is never handled again, and its prior
// disposition has already been restored by then.
const (
	stateIdle int32 = iota
	stateArmed
	stateFired
)

// signalDef is one row of the platform's fatal-signal table.
type signalDef struct {
	sig  syscall.Signal
	name string
	// short is the control-protocol name used by the raise command
	// (segv, ill, fpe, bus).
	short string
}

// entry is one monitored fatal signal in the registry. Entries are built
// once per enable cycle and never resized; only the state field mutates
// after construction, and only via atomics.
type entry struct {
	sig  syscall.Signal
	name string
	// header is the precomposed crash header, built at enable time so the
	// crash path writes it without allocating.
	header []byte
	// state is the ARMED/FIRED machine described above.
	state atomic.Int32
	// wasIgnored records whether the signal's disposition was "ignore"
	// before the handler was installed, so Disable and the crash path can
	// restore it.
	wasIgnored bool
}

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

// newRegistry builds the fixed ordered registry from the platform signal
// table. Order is load-bearing: lookup falls back to the last entry.
func newRegistry() []*entry {
	entries := make([]*entry, 0, len(fatalSignals))
	for _, def := range fatalSignals {
		entries = append(entries, &entry{
			sig:    def.sig,
			name:   def.name,
			header: []byte("Fatal fault: " + def.name + "\n\n"),
		})
	}
	return entries
}

// lookup finds the registry entry for a delivered signal. A miss returns
// the last entry (segmentation violation) so the crash path always has a
// name to print; installation only ever covers table entries, so the
// fallback is defensive rather than expected.
func lookup(entries []*entry, sig os.Signal) *entry {
	for _, e := range entries {
		if e.sig == sig {
			return e
		}
	}
	return entries[len(entries)-1]
}

// SignalByName resolves a control-protocol signal name (segv, ill, fpe,
// bus) to the platform signal number. Returns [ErrUnknownSignal] for names
// outside the monitored set on this platform.
func SignalByName(name string) (syscall.Signal, error) {
	for _, def := range fatalSignals {
		if def.short == name {
			return def.sig, nil
		}
	}
	return 0, ErrUnknownSignal
}

// SignalNames returns the control-protocol names of the monitored signals
// on this platform, in registry order.
func SignalNames() []string {
	names := make([]string, 0, len(fatalSignals))
	for _, def := range fatalSignals {
		names = append(names, def.short)
	}
	return names
}
