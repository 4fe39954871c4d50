package teletext

import (
	"github.com/zsiec/teletextdec/internal/pipeline"
	"github.com/zsiec/teletextdec/internal/vbi"
)

// Chain implements pipeline.Element. It feeds buf to the engine and
// renders at most one page that became ready, so a burst of completed
// pages is spread over the following buffers. Chain takes ownership of
// buf.
func (d *Decoder) Chain(buf *pipeline.Buffer) pipeline.FlowReturn {
	defer buf.Unref()

	if d.demux == nil {
		d.log.Debug("buffer received while not started", "state", d.state.String())
		return pipeline.FlowWrongState
	}
	d.buffersIn.Inc()

	d.inTimestamp = buf.PTS
	d.inDuration = buf.Duration

	d.log.Debug("feeding bytes to vbi demuxer", "size", buf.Size())
	if !d.demux.Feed(buf.Data) {
		// The demuxer skips what it cannot parse and keeps going.
		d.feedFailures.Inc()
		d.log.Debug("vbi demuxer rejected part of the buffer", "size", buf.Size())
	}

	pi, ok := d.queue.pop()
	if !ok {
		return pipeline.FlowOK
	}

	label := pageLabel(pi.pgno, pi.subno)
	d.log.Info("fetching teletext page", "page", label)
	page, ok := d.decoder.FetchVTPage(pi.pgno, pi.subno, vbi.Level3p5, vbi.PageRows, false)
	if !ok {
		d.postError(pipeline.DomainResource, pipeline.CodeRead,
			"could not read teletext page", "page "+label+" is not in the cache")
		return pipeline.FlowError
	}
	defer page.Unref()

	return d.pushPage(page)
}

// convert passes sliced lines from the demultiplexer to the page decoder.
// pts is in 90 kHz units.
func (d *Decoder) convert(_ *vbi.DVBDemux, sliced []vbi.Sliced, pts int64) bool {
	d.log.Debug("converting lines", "lines", len(sliced))
	d.decoder.Decode(sliced, float64(pts)/90000)
	return true
}
