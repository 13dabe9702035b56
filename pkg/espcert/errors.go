package espcert

import "errors"

var (
	// ErrCommandFailed indicates the console ran the command and it returned non-zero
	ErrCommandFailed = errors.New("espcert: command returned non-zero error code")

	// ErrUnrecognized indicates the firmware has no such console command
	ErrUnrecognized = errors.New("espcert: unrecognized command")

	// ErrTimeout indicates no prompt arrived within the command timeout
	ErrTimeout = errors.New("espcert: timed out waiting for prompt")

	// ErrClosed indicates the connection ended
	ErrClosed = errors.New("espcert: connection closed")

	// ErrConnectionClosed is returned when reading from a closed WebSocket
	ErrConnectionClosed = errors.New("espcert: websocket connection closed")

	// ErrNotStarted indicates a carrier request before Start
	ErrNotStarted = errors.New("espcert: radio not started")
)
