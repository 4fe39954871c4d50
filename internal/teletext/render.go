package teletext

import (
	"github.com/zsiec/teletextdec/internal/pipeline"
	"github.com/zsiec/teletextdec/internal/vbi"
)

// pushPage draws page into a new frame and pushes it on the source pad.
func (d *Decoder) pushPage(page *vbi.Page) pipeline.FlowReturn {
	width, height := vbi.ImageSize(page)

	caps := pipeline.NewCaps(pipeline.NewStructure(MediaTypeRGB,
		"width", width,
		"height", height,
		"framerate", pipeline.Fraction{Num: d.rateNum, Den: d.rateDen},
	))
	res := caps.Intersect(d.src.Template())
	if res.IsEmpty() || !d.src.SetCaps(res) {
		d.log.Debug("output format not negotiated", "caps", caps.String())
		return pipeline.FlowNotNegotiated
	}

	size := width * height * 4
	buf, err := d.src.AllocBuffer(size, res)
	if err != nil {
		d.log.Debug("could not allocate buffer", "size", size, "error", err)
		return pipeline.FlowError
	}

	if d.inTimestamp.Valid() {
		buf.PTS = d.inTimestamp
	}
	if d.inDuration.Valid() {
		buf.Duration = d.inDuration
	}

	d.log.Debug("creating image", "rows", page.Rows, "columns", page.Columns)
	if err := vbi.DrawVTPage(page, vbi.PixFmtRGBA32LE, buf.Data, false, true); err != nil {
		buf.Unref()
		d.log.Warn("could not draw page", "error", err)
		return pipeline.FlowError
	}

	d.log.Debug("pushing buffer", "size", size)
	result := d.src.Push(buf)
	if result != pipeline.FlowOK {
		d.pushFailures.Inc()
		d.log.Info("pushing buffer failed", "reason", result.String())
		if result.IsFatal() || result == pipeline.FlowNotLinked {
			d.postError(pipeline.DomainStream, pipeline.CodeFailed,
				"internal data stream error", "stream stopped, reason "+result.String())
			d.src.PushEvent(pipeline.NewEOSEvent())
		}
		return result
	}
	d.pagesRendered.Inc()
	return result
}
