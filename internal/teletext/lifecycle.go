package teletext

import (
	"github.com/zsiec/teletextdec/internal/pipeline"
	"github.com/zsiec/teletextdec/internal/vbi"
)

// start creates the VBI engine for a new stream.
func (d *Decoder) start() {
	d.log.Debug("initializing structures")

	d.demux = vbi.NewDVBPESDemux(d.convert, d.log)
	d.decoder = vbi.NewDecoder(vbi.WithCacheSize(d.cacheSize), vbi.WithLogger(d.log))
	d.decoder.EventHandlerRegister(vbi.EventTTXPage, d.handleEvent)
	d.queue.clear()
}

// stop releases the VBI engine and forgets everything about the stream,
// including pages waiting to be rendered.
func (d *Decoder) stop() {
	d.log.Debug("clearing structures")

	if d.demux != nil {
		d.demux.Delete()
		d.demux = nil
	}
	if d.decoder != nil {
		d.decoder.Delete()
		d.decoder = nil
	}
	if n := d.queue.clear(); n > 0 {
		d.log.Debug("discarded pending pages", "count", n)
	}

	d.inTimestamp = pipeline.ClockTimeNone
	d.inDuration = pipeline.ClockTimeNone
}

// reset forgets the stream after a flush while keeping the engine. An
// element stopped by EOS starts again.
func (d *Decoder) reset() {
	if d.demux == nil {
		d.start()
		return
	}
	d.log.Debug("resetting structures")
	d.demux.Reset()
	d.decoder.Reset()
	if n := d.queue.clear(); n > 0 {
		d.log.Debug("discarded pending pages", "count", n)
	}
	d.inTimestamp = pipeline.ClockTimeNone
	d.inDuration = pipeline.ClockTimeNone
}

// ChangeState implements pipeline.Element. The engine exists between
// PAUSED and READY.
func (d *Decoder) ChangeState(c pipeline.StateChange) pipeline.StateChangeReturn {
	if c == pipeline.ReadyToPaused {
		d.start()
	}

	d.state = c.To

	if c == pipeline.PausedToReady {
		d.stop()
	}
	return pipeline.StateChangeSuccess
}

// State returns the current element state.
func (d *Decoder) State() pipeline.State {
	return d.state
}

// SinkEvent implements pipeline.Element.
func (d *Decoder) SinkEvent(ev *pipeline.Event) bool {
	d.log.Debug("got event", "event", ev.Type.String())

	switch ev.Type {
	case pipeline.EventEOS:
		d.stop()
	case pipeline.EventFlushStop:
		d.reset()
	}
	// Segments and everything else pass through unchanged.
	return d.src.PushEvent(ev)
}

// handleEvent receives page events from the engine. It may be called on
// any goroutine.
func (d *Decoder) handleEvent(ev *vbi.Event) {
	if ev.Type != vbi.EventTTXPage {
		return
	}
	pgno, subno := ev.TTXPage.Pgno, ev.TTXPage.Subno

	if pgno != int(d.pageno.Load()) {
		return
	}
	if want := int(d.subno.Load()); want != -1 && subno != want {
		return
	}

	d.log.Debug("received teletext page", "page", pageLabel(pgno, subno))
	d.queue.push(pageInfo{pgno: pgno, subno: subno})
	d.pagesQueued.Inc()
}
