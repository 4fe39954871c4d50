// Command gen-teletext writes a synthetic MPEG-TS file carrying a DVB
// teletext service: an index page, a few news pages with rotating
// sub-pages and a subtitle page on 888.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zsiec/teletextdec/test/tools/tsutil"
)

const (
	pmtPID      = 0x1000
	programNum  = 1
	frameTicks  = 3600 // 40ms at 90kHz
	psiInterval = 12   // frames between PAT/PMT repetitions
	startPTS    = 90000
)

type config struct {
	pid      uint16
	duration time.Duration
	pages    int
}

func main() {
	out := flag.String("o", "teletext.ts", "Output file")
	pid := flag.Uint("pid", 0x102, "Teletext PID")
	duration := flag.Duration("duration", 30*time.Second, "Stream duration")
	pages := flag.Int("pages", 3, "Number of news pages after the index (1-9)")
	flag.Parse()

	if *pages < 1 || *pages > 9 {
		fmt.Fprintln(os.Stderr, "pages must be between 1 and 9")
		os.Exit(2)
	}

	cfg := config{pid: uint16(*pid), duration: *duration, pages: *pages}
	if err := write(*out, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "gen-teletext: %v\n", err)
		os.Exit(1)
	}
}

func write(path string, cfg config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	n, err := generate(w, cfg)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d frames, PID 0x%x)\n", path, n, cfg.pid)
	return nil
}

// generate writes the stream to w and returns the number of teletext PES
// packets written. Each PES carries one page followed by a time filling
// header that completes it.
func generate(w io.Writer, cfg config) (int, error) {
	pat := tsutil.BuildPAT(1, programNum, pmtPID)
	pmt := tsutil.BuildPMT(programNum, []tsutil.ElementaryStream{{
		StreamType:  tsutil.StreamTypePrivatePES,
		PID:         cfg.pid,
		Descriptors: teletextDescriptor(),
	}})

	carousel := buildCarousel(cfg.pages)
	frames := int(cfg.duration / (40 * time.Millisecond))

	var patCC, pmtCC, ttxCC byte
	for i := 0; i < frames; i++ {
		if i%psiInterval == 0 {
			if _, err := w.Write(tsutil.PSIPackets(0, pat, &patCC)); err != nil {
				return i, err
			}
			if _, err := w.Write(tsutil.PSIPackets(pmtPID, pmt, &pmtCC)); err != nil {
				return i, err
			}
		}
		pg := carousel[i%len(carousel)]
		if pg.Header.Page == 0x888 {
			pg.Rows = map[int]string{
				22: fmt.Sprintf("\x0d\x0b\x0bSubtitle %d\x0a\x0a", i/len(carousel)),
			}
		}
		pkts := append(pg.Packets(), tsutil.HeaderPacket(tsutil.TimeFilling(pg.Header.Page, false)))
		pes := tsutil.TeletextPES(startPTS+int64(i)*frameTicks, pkts...)
		if _, err := w.Write(tsutil.Packetize(pes, cfg.pid, &ttxCC)); err != nil {
			return i, err
		}
	}
	return frames, nil
}

// teletextDescriptor signals the index page and the subtitle page in a
// single descriptor.
func teletextDescriptor() []byte {
	d := tsutil.TeletextDescriptor("eng", tsutil.TeletextTypeInitial, 0x100)
	sub := tsutil.TeletextDescriptor("eng", tsutil.TeletextTypeSubtitle, 0x888)
	d = append(d, sub[2:]...)
	d[1] = byte(len(d) - 2)
	return d
}

func buildCarousel(news int) []tsutil.Page {
	links := make([]int, 0, news)
	index := tsutil.Page{
		Header: tsutil.Header{Page: 0x100, Erase: true, Title: "GEN-TTX 100  INDEX"},
		Rows: map[int]string{
			1: "\x01\x1d\x07  TELETEXT TEST SERVICE",
			3: "\x03Index",
		},
	}
	pages := []tsutil.Page{index}
	for n := 1; n <= news; n++ {
		num := 0x100 + n
		links = append(links, num)
		index.Rows[4+n] = fmt.Sprintf("\x06News %d%s\x03%x", n, "..........", num)
		for sub := 1; sub <= 2; sub++ {
			pages = append(pages, tsutil.Page{
				Header: tsutil.Header{Page: num, Subcode: sub, Erase: true, Title: fmt.Sprintf("GEN-TTX %x/%d", num, sub)},
				Rows: map[int]string{
					1: fmt.Sprintf("\x04\x1d\x07 NEWS %d ", n),
					3: fmt.Sprintf("\x07Story %d, part %d of 2", n, sub),
					5: "\x02Green \x05Magenta \x06Cyan",
					7: "\x11\x7f\x7f\x7f\x12\x7f\x7f\x7f\x14\x7f\x7f\x7f",
				},
				Links: []int{0x100},
			})
		}
	}
	pages[0].Links = links
	pages = append(pages, tsutil.Page{
		Header: tsutil.Header{Page: 0x888, Erase: true, Subtitle: true, Suppress: true},
	})
	return pages
}
