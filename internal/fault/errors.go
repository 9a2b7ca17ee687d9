package fault

import "errors"

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

// ErrNonPositiveDelay is returned by [Watchdog.Schedule] for a delay of
// zero or less. The watchdog state is untouched when this is returned.
var ErrNonPositiveDelay = errors.New("watchdog delay must be greater than zero")

// ErrUnknownSignal is returned by [SignalByName] lookups for names outside
// the monitored fatal-signal set.
var ErrUnknownSignal = errors.New("unknown fault signal name")
