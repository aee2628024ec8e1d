package connection

import "errors"

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already exists")
)

// Conn is a client connection that accepts encoded frames for delivery.
type Conn interface {
	ID() string
	Send(msg []byte) error
	Close() error
}
