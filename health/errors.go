package health

import "errors"

var (
	// ErrCheckFailed indicates a check found the dependency unhealthy.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrMonitorNotFound indicates no monitor is registered under a name.
	ErrMonitorNotFound = errors.New("health: monitor not found")

	// ErrUnknownKind indicates a monitor config names an unsupported checker kind.
	ErrUnknownKind = errors.New("health: unknown checker kind")

	// ErrInvalidConfig indicates a monitor config failed validation.
	ErrInvalidConfig = errors.New("health: invalid monitor config")
)
