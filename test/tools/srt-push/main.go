// Command srt-push streams a teletext TS file to an SRT listener in real
// time, looping until interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	srt "github.com/zsiec/srtgo"

	"github.com/zsiec/teletextdec/test/tools/tsutil"
)

func main() {
	fileFlag := flag.String("file", "", "TS file to push")
	keyFlag := flag.String("key", "", "Stream key (default: filename without extension)")
	addrFlag := flag.String("addr", "127.0.0.1:6000", "SRT listener address")
	pidFlag := flag.Uint("pid", 0x102, "Teletext PID used to measure the file duration")
	durationFlag := flag.Duration("duration", 0, "Known duration (skips PTS detection)")
	flag.Parse()

	filePath := *fileFlag
	if filePath == "" && flag.NArg() > 0 {
		filePath = flag.Arg(0)
	}
	if filePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: srt-push [--key KEY] [--addr HOST:PORT] <file.ts>\n")
		os.Exit(1)
	}

	key := *keyFlag
	if key == "" {
		base := filepath.Base(filePath)
		key = base[:len(base)-len(filepath.Ext(base))]
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}
	if len(data)%tsutil.TSPacketSize != 0 {
		fmt.Fprintf(os.Stderr, "Warning: file size not a multiple of %d\n", tsutil.TSPacketSize)
	}

	duration := selectDuration(*durationFlag, ptsSpan(data, uint16(*pidFlag)))
	push(data, "live/"+key, *addrFlag, duration)
}

// selectDuration prefers a positive override, then the measured span, and
// falls back to one minute.
func selectDuration(override, measured time.Duration) time.Duration {
	switch {
	case override > 0:
		return override
	case measured > 0:
		return measured
	}
	return time.Minute
}

// ptsSpan returns the time between the first and last timestamped PES on
// pid, plus one 40ms frame.
func ptsSpan(data []byte, pid uint16) time.Duration {
	first, last := int64(-1), int64(-1)
	for _, pes := range tsutil.CollectPESPackets(data, pid) {
		pts, ok := headerPTS(pes.PESHdr)
		if !ok {
			continue
		}
		if first < 0 {
			first = pts
		}
		last = pts
	}
	if first < 0 || last < first {
		return 0
	}
	return time.Duration((last-first)*100000/9) + 40*time.Millisecond
}

func headerPTS(hdr []byte) (int64, bool) {
	if len(hdr) < 14 || hdr[7]&0x80 == 0 {
		return 0, false
	}
	p := hdr[9:14]
	pts := int64(p[0]>>1&0x07)<<30 |
		int64(p[1])<<22 |
		int64(p[2]>>1)<<15 |
		int64(p[3])<<7 |
		int64(p[4]>>1)
	return pts, true
}

func push(data []byte, streamID, addr string, duration time.Duration) {
	bytesPerSec := float64(len(data)) / duration.Seconds()
	chunkSize := tsutil.TSPacketSize * 7

	fmt.Printf("Pushing %d packets over %s (%.0f bytes/sec)\n",
		len(data)/tsutil.TSPacketSize, duration, bytesPerSec)

	for {
		fmt.Printf("[%s] Connecting to SRT %s...\n", streamID, addr)

		cfg := srt.DefaultConfig()
		cfg.StreamID = streamID

		conn, err := srt.Dial(addr, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[%s] SRT connect failed: %v, retrying...\n", streamID, err)
			time.Sleep(time.Second)
			continue
		}

		fmt.Printf("[%s] Connected\n", streamID)
		err = streamLoop(conn, data, bytesPerSec, chunkSize, streamID)
		conn.Close()
		fmt.Fprintf(os.Stderr, "[%s] Connection lost: %v, reconnecting...\n", streamID, err)
		time.Sleep(time.Second)
	}
}

func streamLoop(conn *srt.Conn, data []byte, bytesPerSec float64, chunkSize int, streamID string) error {
	start := time.Now()
	var sent int64
	for loop := 1; ; loop++ {
		if loop > 1 {
			fmt.Printf("[%s] Loop %d complete (%.1f MB sent)\n",
				streamID, loop-1, float64(sent)/(1024*1024))
		}
		for i := 0; i < len(data); i += chunkSize {
			end := min(i+chunkSize, len(data))
			if _, err := conn.Write(data[i:end]); err != nil {
				return err
			}
			sent += int64(end - i)

			// Pace against the start so loops join without a burst.
			expected := time.Duration(float64(sent) / bytesPerSec * float64(time.Second))
			if wait := expected - time.Since(start); wait > 0 {
				time.Sleep(wait)
			}
		}
	}
}
