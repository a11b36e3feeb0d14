package monitor

import "errors"

// ErrNoCheck is reported in Error events when the monitor was built without a
// check function.
var ErrNoCheck = errors.New("monitor: no check function")
