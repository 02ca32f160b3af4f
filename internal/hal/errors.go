package hal

import "errors"

// ErrOutOfRange is returned by SimHAL's flash primitives when an address
// or length falls outside the simulated flash region.
var ErrOutOfRange = errors.New("hal: flash address out of range")
