package sink

import (
	"github.com/bitrise-io/go-httpsink/sink/transport"
	"github.com/bitrise-io/go-utils/v2/log"
)

// Ownership tells whether the sink manages the lifecycle of its transport.
type Ownership int

const (
	// Borrowed transports are supplied by the caller and outlive the session.
	Borrowed Ownership = iota
	// Owned transports are created by Start and closed by Stop.
	Owned
)

func (o Ownership) String() string {
	if o == Owned {
		return "owned"
	}
	return "borrowed"
}

// sessionTransport is the transport of a session tagged with its ownership.
type sessionTransport struct {
	transport.Transport
	ownership Ownership
}

func openTransport(config Config, logger log.Logger) (sessionTransport, error) {
	if config.Transport != nil {
		return sessionTransport{Transport: config.Transport, ownership: Borrowed}, nil
	}

	t, err := transport.NewHTTP(config.transportConfig(), logger)
	if err != nil {
		return sessionTransport{}, err
	}
	return sessionTransport{Transport: t, ownership: Owned}, nil
}

// release closes the transport if the session owns it.
func (t sessionTransport) release() error {
	if t.Transport == nil || t.ownership != Owned {
		return nil
	}
	return t.Close()
}
