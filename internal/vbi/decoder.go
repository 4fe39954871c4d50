package vbi

import (
	"log/slog"

	"github.com/pkg/errors"
)

// ErrPageNotCached is returned by FetchPage when the requested page has not
// been received or was evicted.
var ErrPageNotCached = errors.New("vbi: page not cached")

// ErrInvalidRows is returned by FetchPage for a row count outside 1..25.
var ErrInvalidRows = errors.New("vbi: invalid row count")

// Decoder assembles teletext packets into pages. Pages in transmission are
// tracked per magazine; a page is complete when the next page header of the
// same magazine (or of any magazine in serial mode) arrives.
type Decoder struct {
	log       *slog.Logger
	cache     *pageCache
	handlers  []handlerEntry
	current   [8]*rawPage
	timestamp float64
	packets   int64
	errors    int64
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithCacheSize bounds the page cache to n sub-pages.
func WithCacheSize(n int) DecoderOption {
	return func(d *Decoder) {
		d.cache = newPageCache(n)
	}
}

// WithLogger sets the logger used for decoder diagnostics.
func WithLogger(log *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		d.log = log.With("component", "vbi-decoder")
	}
}

// NewDecoder creates a teletext decoder with an empty page cache.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		log:   slog.Default().With("component", "vbi-decoder"),
		cache: newPageCache(DefaultCacheSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// EventHandlerRegister adds h for the events in mask.
func (d *Decoder) EventHandlerRegister(mask EventType, h EventHandler) {
	d.handlers = append(d.handlers, handlerEntry{mask: mask, handler: h})
}

// Delete notifies EventClose handlers and drops all decoder state. Pages
// still borrowed stay valid.
func (d *Decoder) Delete() {
	d.send(&Event{Type: EventClose})
	d.handlers = nil
	d.current = [8]*rawPage{}
	d.cache.clear()
}

// Reset forgets pages in transmission and the page cache, as after a
// channel switch.
func (d *Decoder) Reset() {
	d.current = [8]*rawPage{}
	d.cache.clear()
}

// Timestamp returns the sample time passed to the last Decode call.
func (d *Decoder) Timestamp() float64 {
	return d.timestamp
}

// Stats returns the number of teletext packets decoded and rejected for
// uncorrectable address errors.
func (d *Decoder) Stats() (packets, rejected int64) {
	return d.packets, d.errors
}

// Outstanding returns the number of fetched pages not yet released.
func (d *Decoder) Outstanding() int {
	return d.cache.outstanding
}

// CachedPages returns the number of sub-pages in the cache.
func (d *Decoder) CachedPages() int {
	return d.cache.len()
}

// Decode processes sliced lines sampled at timestamp (seconds). Page
// events fire before Decode returns.
func (d *Decoder) Decode(sliced []Sliced, timestamp float64) {
	d.timestamp = timestamp
	for i := range sliced {
		if sliced[i].ID&SlicedTeletextB == 0 {
			continue
		}
		d.decodePacket(sliced[i].Data[:TeletextPacketSize])
	}
}

// FetchVTPage formats a cached page. subno may be AnySubno. The returned
// page must be released with Unref.
func (d *Decoder) FetchVTPage(pgno, subno int, level Level, rows int, navigation bool) (*Page, bool) {
	pg, err := d.FetchPage(pgno, subno, level, rows, navigation)
	return pg, err == nil
}

// FetchPage is FetchVTPage with an error describing the failure.
func (d *Decoder) FetchPage(pgno, subno int, level Level, rows int, navigation bool) (*Page, error) {
	if rows < 1 || rows > PageRows {
		return nil, errors.Wrapf(ErrInvalidRows, "rows %d", rows)
	}
	rp, ok := d.cache.lookup(pgno, subno)
	if !ok {
		return nil, errors.Wrapf(ErrPageNotCached, "page %03x.%02x", pgno, subno)
	}
	pg := format(rp, rows, navigation)
	pg.release = d.cache.borrow()
	return pg, nil
}

func (d *Decoder) decodePacket(p []byte) {
	addr := UnHam16(p[0:2])
	if addr < 0 {
		d.errors++
		return
	}
	d.packets++
	mag := addr & 7
	packet := addr >> 3

	switch {
	case packet == 0:
		d.header(mag, p)
	case packet <= 24:
		d.row(mag, packet, p[2:])
	case packet == 27:
		d.links(mag, p[2:])
	}
}

func (d *Decoder) header(mag int, p []byte) {
	var n [8]int
	for i := range n {
		if n[i] = UnHam84(p[2+i]); n[i] < 0 {
			d.errors++
			return
		}
	}
	units, tens := n[0], n[1]
	subcode := n[2] | (n[3]&7)<<4 | n[4]<<8 | (n[5]&3)<<12

	var flags PageFlags
	if n[3]&8 != 0 {
		flags |= FlagErasePage
	}
	if n[5]&4 != 0 {
		flags |= FlagNewsflash
	}
	if n[5]&8 != 0 {
		flags |= FlagSubtitle
	}
	flags |= PageFlags(n[6]) << 7
	if n[7]&1 != 0 {
		flags |= FlagMagazineSerial
	}
	national := (n[7]>>1&1)<<2 | (n[7]>>2&1)<<1 | n[7]>>3&1

	// A header terminates the page in transmission: on its own magazine in
	// parallel mode, on every magazine in serial mode.
	if flags&FlagMagazineSerial != 0 {
		for m := range d.current {
			d.complete(m)
		}
	} else {
		d.complete(mag)
	}

	if units == 0xF && tens == 0xF {
		// Time filling header.
		return
	}

	magNo := mag
	if magNo == 0 {
		magNo = 8
	}
	pgno := magNo<<8 | tens<<4 | units
	subno := subcode & AnySubno

	var rp *rawPage
	if prev, ok := d.cache.lookup(pgno, subno); ok && flags&FlagErasePage == 0 {
		rp = prev.clone()
		rp.flags, rp.national, rp.received = flags, national, 0
	} else {
		rp = newRawPage(pgno, subno, flags, national)
	}

	for i := 8; i < PageColumns; i++ {
		if c := UnPar8(p[2+i]); c >= 0 {
			rp.rows[0][i] = byte(c)
		}
	}
	rp.received |= 1
	d.current[mag] = rp
}

func (d *Decoder) row(mag, row int, data []byte) {
	rp := d.current[mag]
	if rp == nil {
		return
	}
	for i := 0; i < PageColumns; i++ {
		if c := UnPar8(data[i]); c >= 0 {
			rp.rows[row][i] = byte(c)
		}
	}
	rp.received |= 1 << uint(row)
}

// links decodes packet X/27/0, the editorial links used for FLOF
// navigation.
func (d *Decoder) links(mag int, data []byte) {
	rp := d.current[mag]
	if rp == nil {
		return
	}
	if UnHam84(data[0]) != 0 {
		// Only designation code 0 carries links.
		return
	}
	for i := 0; i < 6; i++ {
		var n [6]int
		ok := true
		for j := range n {
			if n[j] = UnHam84(data[1+i*6+j]); n[j] < 0 {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		units, tens := n[0], n[1]
		if units == 0xF && tens == 0xF {
			continue
		}
		relMag := n[3]>>3 | (n[5]>>2)<<1
		linkMag := (mag ^ relMag) & 7
		if linkMag == 0 {
			linkMag = 8
		}
		rp.links[i] = Link{
			Pgno:  linkMag<<8 | tens<<4 | units,
			Subno: (n[2] | (n[3]&7)<<4 | n[4]<<8 | (n[5]&3)<<12) & AnySubno,
		}
		rp.hasLinks = true
	}
}

// complete stores the page in transmission on mag and reports it.
func (d *Decoder) complete(mag int) {
	rp := d.current[mag]
	if rp == nil {
		return
	}
	d.current[mag] = nil
	d.cache.store(rp)

	d.log.Debug("page complete", "pgno", rp.pgno, "subno", rp.subno)
	d.send(&Event{
		Type: EventTTXPage,
		TTXPage: TTXPageEvent{
			Pgno:  rp.pgno,
			Subno: rp.subno,
			Flags: rp.flags,
		},
	})
}

func (d *Decoder) send(ev *Event) {
	for _, h := range d.handlers {
		if h.mask&ev.Type != 0 {
			h.handler(ev)
		}
	}
}
