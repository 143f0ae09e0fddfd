package notification

import "context"

// Transport opens sessions to a mail relay. The dispatcher dials a new
// session for every attempt and never reuses one after a failure.
type Transport interface {
	Name() string
	Dial(ctx context.Context) (Session, error)
}

// Session is a single connection to the relay. Close is always called, on
// every exit path, once Dial has succeeded.
type Session interface {
	Authenticate(ctx context.Context) error
	Send(ctx context.Context, from string, to []string, msg []byte) error
	Close() error
}
