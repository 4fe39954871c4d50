package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestFlowReturnIsFatal(t *testing.T) {
	t.Parallel()

	fatal := map[FlowReturn]bool{
		FlowOK:            false,
		FlowNotLinked:     false,
		FlowWrongState:    false,
		FlowEOS:           true,
		FlowNotNegotiated: true,
		FlowError:         true,
		FlowNotSupported:  true,
	}
	for ret, want := range fatal {
		if got := ret.IsFatal(); got != want {
			t.Errorf("%s: IsFatal = %v, want %v", ret, got, want)
		}
	}
}

func TestStateChanges(t *testing.T) {
	t.Parallel()

	up := StateChanges(StateNull, StatePlaying)
	if len(up) != 3 || up[0] != NullToReady || up[1] != ReadyToPaused || up[2] != PausedToPlaying {
		t.Errorf("up: got %v", up)
	}
	down := StateChanges(StatePlaying, StateNull)
	if len(down) != 3 || down[0] != PlayingToPaused || down[1] != PausedToReady || down[2] != ReadyToNull {
		t.Errorf("down: got %v", down)
	}
	if len(StateChanges(StatePaused, StatePaused)) != 0 {
		t.Error("expected no transitions")
	}
}

func TestPoolAllocator(t *testing.T) {
	t.Parallel()

	a := NewPoolAllocator(2, 64)
	buf, err := a.Alloc(48)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if buf.Size() != 48 {
		t.Errorf("size: got %d, want 48", buf.Size())
	}
	if buf.PTS.Valid() || buf.Duration.Valid() {
		t.Error("new buffers must be untimed")
	}
	buf.Unref()
	buf.Unref()

	if _, err := a.Alloc(65); errors.Cause(err) != ErrBufferTooLarge {
		t.Errorf("oversized Alloc: got %v, want ErrBufferTooLarge", err)
	}
}

func TestPadPush(t *testing.T) {
	t.Parallel()

	p := NewPad("src", rgbTemplate(), nil)
	if ret := p.Push(NewBuffer(nil)); ret != FlowNotLinked {
		t.Errorf("unlinked push: got %s", ret)
	}
	if p.PushEvent(NewEOSEvent()) {
		t.Error("unlinked event push succeeded")
	}

	var got int
	p.Link(&AppSink{OnBuffer: func(b *Buffer) FlowReturn {
		got += b.Size()
		b.Unref()
		return FlowOK
	}})
	if ret := p.Push(NewBuffer(make([]byte, 7))); ret != FlowOK || got != 7 {
		t.Errorf("linked push: ret %s, got %d bytes", ret, got)
	}
}

func TestPadSetCaps(t *testing.T) {
	t.Parallel()

	p := NewPad("src", rgbTemplate(), nil)
	p.Link(&AppSink{Accept: NewCaps(NewStructure("video/x-raw-rgb", "width", 480))})

	fixed := NewCaps(NewStructure("video/x-raw-rgb", "width", 480, "height", 250))
	if !p.SetCaps(fixed) {
		t.Fatal("SetCaps rejected valid caps")
	}
	if p.Caps() != fixed {
		t.Error("negotiated caps not stored")
	}

	if p.SetCaps(NewCaps(NewStructure("video/x-raw-rgb", "width", 720, "height", 576))) {
		t.Error("peer restriction ignored")
	}
	if p.SetCaps(rgbTemplate()) {
		t.Error("unfixed caps accepted")
	}
	if p.Caps() != fixed {
		t.Error("rejected caps replaced negotiated caps")
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	f := &Factory{
		Name: "identity",
		Rank: RankMarginal,
		Create: func(cfg ElementConfig) (Element, error) {
			return &stubElement{name: cfg.Name}, nil
		},
	}
	if err := r.Register(f); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(f); err == nil {
		t.Error("duplicate Register succeeded")
	}
	if err := r.Register(&Factory{Name: "broken"}); err == nil {
		t.Error("factory without constructor accepted")
	}

	el, err := r.Make("identity", ElementConfig{})
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if el.Name() != "identity" {
		t.Errorf("name: got %q", el.Name())
	}
	if _, err := r.Make("missing", ElementConfig{}); errors.Cause(err) != ErrFactoryNotFound {
		t.Errorf("Make missing: got %v", err)
	}
	if got := r.Factories(); len(got) != 1 || got[0] != f {
		t.Errorf("Factories: got %v", got)
	}
	_, err = r.Make("identity", ElementConfig{Properties: map[string]int{"page": 0x100}})
	if errors.Cause(err) != ErrNotConfigurable {
		t.Errorf("Make with properties: got %v", err)
	}
}

// stubElement forwards buffers and records what happened to it.
type stubElement struct {
	name    string
	src     *Pad
	bus     *Bus
	changes []StateChange
	events  []EventType
	failOn  StateChange
	chain   func(e *stubElement, buf *Buffer) FlowReturn
}

func (e *stubElement) Name() string { return e.name }

func (e *stubElement) SrcPad() SrcPad {
	if e.src == nil {
		e.src = NewPad("src", NewCaps(NewStructure("test/any")), nil)
	}
	return e.src
}

func (e *stubElement) SetBus(b *Bus) { e.bus = b }

func (e *stubElement) ChangeState(c StateChange) StateChangeReturn {
	e.changes = append(e.changes, c)
	if c == e.failOn {
		return StateChangeFailure
	}
	return StateChangeSuccess
}

func (e *stubElement) Chain(buf *Buffer) FlowReturn {
	if e.chain != nil {
		return e.chain(e, buf)
	}
	return e.SrcPad().Push(buf)
}

func (e *stubElement) SinkEvent(ev *Event) bool {
	e.events = append(e.events, ev.Type)
	return e.SrcPad().PushEvent(ev)
}

func feed(bufs ...*Buffer) <-chan *Buffer {
	ch := make(chan *Buffer, len(bufs))
	for _, b := range bufs {
		ch <- b
	}
	close(ch)
	return ch
}

func TestRunnerForwardsUntilEOS(t *testing.T) {
	t.Parallel()

	el := &stubElement{name: "stub"}
	var frames int
	var sawEOS bool
	sink := &AppSink{
		OnBuffer: func(b *Buffer) FlowReturn { frames++; b.Unref(); return FlowOK },
		OnEvent:  func(ev *Event) bool { sawEOS = sawEOS || ev.Type == EventEOS; return true },
	}
	r := NewRunner(el, sink, nil)

	if err := r.Run(context.Background(), feed(NewBuffer(nil), NewBuffer(nil))); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if frames != 2 || !sawEOS {
		t.Errorf("frames %d, eos %v", frames, sawEOS)
	}
	if len(el.changes) != 6 || el.changes[0] != NullToReady || el.changes[5] != ReadyToNull {
		t.Errorf("state changes: %v", el.changes)
	}
	if el.events[0] != EventNewSegment {
		t.Errorf("first event: got %s, want newsegment", el.events[0])
	}
	if st := r.Stats(); st.Chained != 2 || st.State != StateNull {
		t.Errorf("stats: %+v", st)
	}
}

func TestRunnerStopsOnElementError(t *testing.T) {
	t.Parallel()

	el := &stubElement{name: "stub", chain: func(e *stubElement, buf *Buffer) FlowReturn {
		buf.Unref()
		e.bus.Post(&ElementError{Source: e.name, Domain: DomainResource, Code: CodeRead, Message: "gone"})
		return FlowError
	}}
	r := NewRunner(el, &AppSink{}, nil)

	in := make(chan *Buffer, 1)
	in <- NewBuffer(nil)
	err := r.Run(context.Background(), in)

	var ee *ElementError
	if !errors.As(err, &ee) || ee.Domain != DomainResource || ee.Code != CodeRead {
		t.Fatalf("Run: got %v, want resource/read element error", err)
	}
	if last := el.changes[len(el.changes)-1]; last != ReadyToNull {
		t.Errorf("element not torn down, last change %s", last)
	}
}

func TestRunnerAbsorbsRecoverableFlow(t *testing.T) {
	t.Parallel()

	el := &stubElement{name: "stub", chain: func(_ *stubElement, buf *Buffer) FlowReturn {
		buf.Unref()
		return FlowNotNegotiated
	}}
	r := NewRunner(el, &AppSink{}, nil)
	if err := r.Run(context.Background(), feed(NewBuffer(nil), NewBuffer(nil))); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st := r.Stats(); st.Absorbed != 2 {
		t.Errorf("absorbed: got %d, want 2", st.Absorbed)
	}
}

func TestRunnerStateChangeFailure(t *testing.T) {
	t.Parallel()

	el := &stubElement{name: "stub", failOn: ReadyToPaused}
	r := NewRunner(el, &AppSink{}, nil)
	if err := r.Run(context.Background(), feed()); err == nil {
		t.Fatal("expected state change error")
	}
	if last := el.changes[len(el.changes)-1]; last != ReadyToNull {
		t.Errorf("last change: got %s, want READY->NULL", last)
	}
}

func TestRunnerContextCancel(t *testing.T) {
	t.Parallel()

	el := &stubElement{name: "stub"}
	r := NewRunner(el, &AppSink{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, make(chan *Buffer)) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
