package teletext

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/zsiec/teletextdec/internal/pipeline"
	"github.com/zsiec/teletextdec/internal/vbi"
)

// FactoryName is the name the element registers under.
const FactoryName = "teletext"

// Media types of the element's pads.
const (
	MediaTypeTeletext = "private/teletext"
	MediaTypeRGB      = "video/x-raw-rgb"
)

// Defaults for the selected page.
const (
	DefaultPage    = 0x100
	DefaultSubpage = -1
)

// DefaultFrameSize is the size of a rendered full page in bytes.
const DefaultFrameSize = vbi.PageColumns * vbi.CellWidth * vbi.PageRows * vbi.CellHeight * 4

// SinkCaps returns the formats accepted on the sink pad.
func SinkCaps() *pipeline.Caps {
	return pipeline.NewCaps(pipeline.NewStructure(MediaTypeTeletext))
}

// SrcTemplateCaps returns the formats the source pad can produce: 32-bit
// RGBA with any size and frame rate.
func SrcTemplateCaps() *pipeline.Caps {
	return pipeline.NewCaps(pipeline.NewStructure(MediaTypeRGB,
		"bpp", 32,
		"depth", 32,
		"endianness", 4321,
		"red_mask", 0xff000000,
		"green_mask", 0x00ff0000,
		"blue_mask", 0x0000ff00,
		"alpha_mask", 0x000000ff,
		"width", pipeline.IntRange{Min: 1, Max: pipeline.MaxInt},
		"height", pipeline.IntRange{Min: 1, Max: pipeline.MaxInt},
		"framerate", pipeline.FractionRange{
			Min: pipeline.Fraction{Num: 0, Den: 1},
			Max: pipeline.Fraction{Num: pipeline.MaxInt, Den: 1},
		},
	))
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithAllocator sets the allocator for output frames.
func WithAllocator(a pipeline.Allocator) Option {
	return func(d *Decoder) { d.alloc = a }
}

// WithSrcTemplate replaces the source pad template caps.
func WithSrcTemplate(caps *pipeline.Caps) Option {
	return func(d *Decoder) { d.template = caps }
}

// WithCacheSize bounds the number of sub-pages the engine keeps.
func WithCacheSize(n int) Option {
	return func(d *Decoder) { d.cacheSize = n }
}

// WithFrameRate sets the frame rate advertised in the output caps.
func WithFrameRate(num, den int) Option {
	return func(d *Decoder) { d.rateNum, d.rateDen = num, den }
}

// Decoder is the teletext decoder element.
type Decoder struct {
	name string
	id   uuid.UUID
	log  *slog.Logger

	alloc     pipeline.Allocator
	template  *pipeline.Caps
	cacheSize int
	src       pipeline.SrcPad
	bus       *pipeline.Bus
	state     pipeline.State

	// Selected page and sub-page, written by SetProperty from any goroutine.
	pageno atomic.Int32
	subno  atomic.Int32

	inTimestamp pipeline.ClockTime
	inDuration  pipeline.ClockTime
	rateNum     int
	rateDen     int

	demux   *vbi.DVBDemux
	decoder *vbi.Decoder
	queue   pageQueue

	buffersIn     atomic.Int64
	feedFailures  atomic.Int64
	pagesQueued   atomic.Int64
	pagesRendered atomic.Int64
	pushFailures  atomic.Int64
}

// New creates a teletext decoder element in the NULL state.
func New(name string, log *slog.Logger, opts ...Option) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	if name == "" {
		name = FactoryName
	}
	d := &Decoder{
		name:        name,
		id:          uuid.New(),
		template:    SrcTemplateCaps(),
		cacheSize:   vbi.DefaultCacheSize,
		inTimestamp: pipeline.ClockTimeNone,
		inDuration:  pipeline.ClockTimeNone,
		rateNum:     0,
		rateDen:     1,
	}
	d.log = log.With("component", "teletextdec", "element", name, "id", d.id.String())
	d.pageno.Store(DefaultPage)
	d.subno.Store(DefaultSubpage)
	for _, opt := range opts {
		opt(d)
	}
	d.src = pipeline.NewPad("src", d.template, d.alloc)
	return d
}

var (
	_ pipeline.Element      = (*Decoder)(nil)
	_ pipeline.Configurable = (*Decoder)(nil)
)

// Register adds the teletext element factory to reg.
func Register(reg *pipeline.Registry) error {
	return reg.Register(&pipeline.Factory{
		Name: FactoryName,
		Rank: pipeline.RankNone,
		Metadata: pipeline.Metadata{
			LongName:    "Teletext decoder",
			Klass:       "Decoder",
			Description: "Decode PES stream containing teletext information to RGBA stream",
			Author:      "Sebastian Pölsterl",
		},
		Create: func(cfg pipeline.ElementConfig) (pipeline.Element, error) {
			var opts []Option
			if cfg.Allocator != nil {
				opts = append(opts, WithAllocator(cfg.Allocator))
			}
			return New(cfg.Name, cfg.Log, opts...), nil
		},
	})
}

// Name implements pipeline.Element.
func (d *Decoder) Name() string { return d.name }

// ID returns the instance id used in log lines.
func (d *Decoder) ID() uuid.UUID { return d.id }

// SrcPad implements pipeline.Element.
func (d *Decoder) SrcPad() pipeline.SrcPad { return d.src }

// SetBus implements pipeline.Element.
func (d *Decoder) SetBus(bus *pipeline.Bus) { d.bus = bus }

// AcceptCaps reports whether caps can be fed to Chain.
func (d *Decoder) AcceptCaps(caps *pipeline.Caps) bool {
	return caps.CanIntersect(SinkCaps())
}

// Stats are the element counters.
type Stats struct {
	BuffersIn     int64 `json:"buffersIn"`
	FeedFailures  int64 `json:"feedFailures"`
	PagesQueued   int64 `json:"pagesQueued"`
	PagesRendered int64 `json:"pagesRendered"`
	PushFailures  int64 `json:"pushFailures"`
	Pending       int   `json:"pending"`
}

// Stats returns a snapshot of the element counters.
func (d *Decoder) Stats() Stats {
	return Stats{
		BuffersIn:     d.buffersIn.Load(),
		FeedFailures:  d.feedFailures.Load(),
		PagesQueued:   d.pagesQueued.Load(),
		PagesRendered: d.pagesRendered.Load(),
		PushFailures:  d.pushFailures.Load(),
		Pending:       d.queue.len(),
	}
}

func (d *Decoder) postError(domain pipeline.ErrorDomain, code pipeline.ErrorCode, msg, debug string) {
	d.log.Error(msg, "domain", domain.String(), "code", code.String(), "debug", debug)
	if d.bus == nil {
		return
	}
	d.bus.Post(&pipeline.ElementError{
		Source:  d.name,
		Domain:  domain,
		Code:    code,
		Message: msg,
		Debug:   debug,
	})
}

func pageLabel(pgno, subno int) string {
	if subno < 0 {
		return fmt.Sprintf("%03x.*", pgno)
	}
	return fmt.Sprintf("%03x.%02x", pgno, subno)
}
