package chat

import (
	"PPGate/tools/errs"
)

// Handler reacts to one inbound frame type.
type Handler interface {
	Type() string
	Handle(ctx *Context, f *Inbound, c *Client) error
}

// Context hands handlers the server they run inside.
type Context struct {
	S *Server
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Type()] = h }

// Dispatch routes f to its handler. A type nobody registered is a
// recoverable protocol error, not a reason to drop the connection.
func (d *Dispatcher) Dispatch(ctx *Context, f *Inbound, c *Client) error {
	h, ok := d.handlers[f.Type]
	if !ok {
		return errs.ErrUnknownType.WithDetail("type=" + f.Type)
	}
	return h.Handle(ctx, f, c)
}
