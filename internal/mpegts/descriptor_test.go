package mpegts

import (
	"testing"

	"github.com/zsiec/teletextdec/test/tools/tsutil"
)

func TestTeletextPages(t *testing.T) {
	t.Parallel()

	raw := tsutil.TeletextDescriptor("eng", tsutil.TeletextTypeSubtitle, 0x888)
	raw = append(raw, 'f', 'r', 'a', TeletextInitialPage<<3|1, 0x00)
	raw[1] += 5
	ds := parseDescriptors(raw)
	if len(ds) != 1 {
		t.Fatalf("parsed %d descriptors, want 1", len(ds))
	}

	pages, err := TeletextPages(ds[0])
	if err != nil {
		t.Fatal(err)
	}
	want := []TeletextPage{
		{Language: "eng", Type: TeletextSubtitle, Page: 0x888},
		{Language: "fra", Type: TeletextInitialPage, Page: 0x100},
	}
	if len(pages) != len(want) {
		t.Fatalf("got %d pages, want %d", len(pages), len(want))
	}
	for i := range want {
		if pages[i] != want[i] {
			t.Errorf("page %d = %v, want %v", i, pages[i], want[i])
		}
	}
	if s := pages[0].String(); s != "eng type 2 page 888" {
		t.Errorf("String() = %q", s)
	}
}

func TestTeletextPagesErrors(t *testing.T) {
	t.Parallel()

	if _, err := TeletextPages(Descriptor{Tag: DescriptorISO639, Data: make([]byte, 4)}); err == nil {
		t.Error("expected error for a language descriptor")
	}
	if _, err := TeletextPages(Descriptor{Tag: DescriptorTeletext, Data: make([]byte, 7)}); err == nil {
		t.Error("expected error for a partial entry")
	}
}

func TestIsTeletext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		es   ElementaryStream
		want bool
	}{
		{"teletext", ElementaryStream{Type: StreamTypePrivatePES, Descriptors: []Descriptor{{Tag: DescriptorTeletext}}}, true},
		{"vbi teletext", ElementaryStream{Type: StreamTypePrivatePES, Descriptors: []Descriptor{{Tag: DescriptorVBITeletext}}}, true},
		{"dvb subtitles", ElementaryStream{Type: StreamTypePrivatePES, Descriptors: []Descriptor{{Tag: DescriptorSubtitling}}}, false},
		{"wrong stream type", ElementaryStream{Type: 0x1B, Descriptors: []Descriptor{{Tag: DescriptorTeletext}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.es.IsTeletext(); got != tt.want {
				t.Errorf("IsTeletext = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDescriptorsTruncated(t *testing.T) {
	t.Parallel()

	ds := parseDescriptors([]byte{0x0A, 4, 'e', 'n', 'g', 0, 0x56, 10, 1})
	if len(ds) != 1 || ds[0].Tag != DescriptorISO639 {
		t.Errorf("descriptors = %+v", ds)
	}
}
