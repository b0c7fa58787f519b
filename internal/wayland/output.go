package wayland

import (
	"github.com/neurlang/wayland/wl"

	"github.com/jmylchreest/wlpanel/internal/compositor"
	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// wl_output events.
const (
	outputGeometry = iota
	outputMode
	outputDone
	outputScale
	outputName
	outputDescription
)

const outputModeCurrent = 0x1

// outputProxy tracks one wl_output and reports it once per done event.
type outputProxy struct {
	wl.BaseProxy
	conn       *conn
	globalName uint32
	pending    toplevel.OutputInfo
	announced  bool
}

func newOutputProxy(c *conn, globalName uint32) *outputProxy {
	o := &outputProxy{conn: c, globalName: globalName, pending: toplevel.OutputInfo{Scale: 1}}
	c.ctx.Register(o)
	return o
}

// ProtocolID implements toplevel.Output.
func (o *outputProxy) ProtocolID() uint32 {
	return uint32(o.Id())
}

// Dispatch implements wl.Dispatcher.
func (o *outputProxy) Dispatch(event *wl.Event) {
	switch uint32(event.Opcode) {
	case outputGeometry:
		o.pending.X = event.Int32()
		o.pending.Y = event.Int32()
		_ = event.Int32() // physical width
		_ = event.Int32() // physical height
		_ = event.Int32() // subpixel
		o.pending.Make = event.String()
		o.pending.Model = event.String()
	case outputMode:
		flags := event.Uint32()
		w, h := event.Int32(), event.Int32()
		if flags&outputModeCurrent != 0 {
			o.pending.Width, o.pending.Height = w, h
		}
	case outputScale:
		o.pending.Scale = event.Int32()
	case outputName:
		o.pending.Name = event.String()
	case outputDescription:
		o.pending.Description = event.String()
	case outputDone:
		kind := toplevel.UpdateUpdate
		if !o.announced {
			kind = toplevel.UpdateAdd
			o.announced = true
		}
		o.conn.events.Send(compositor.OutputEvent{Kind: kind, Output: o, Info: o.pending})
	}
}
