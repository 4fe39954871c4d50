package main

import (
	"fmt"

	"github.com/fatih/color"
)

const helpString = `Decode DVB teletext from an MPEG transport stream and render one page.

Usage: teletextdec [OPTION]... [INPUT]

Input:
  -i, --input=SRC        File, - for stdin, srt://host:port (caller)
                         or srt://:port (listener)
      --stream-key=KEY   Ingest stream key (default: default)
      --packet-size=N    Transport packet size, 188 or 204 (default: 188)
      --pid=PID          Teletext PID, 0 to find it in the PMT (default: 0)

Page:
  -p, --page=HEX         Page to render, 100-8ff (default: 100)
  -s, --subpage=HEX      Sub-page to render, or any (default: any)

Output:
  -o, --output-dir=DIR   Write each rendered page as a PNG file
  -a, --ansi             Print a colored preview of each page
  -n, --max-frames=N     Stop after N pages (default: no limit)

Tuning:
      --cache-size=N     Pages held by the decoder (default: 2048)
      --pool-size=N      Frame buffers kept for reuse (default: 8)
      --stats-interval=D Log counters this often (default: 10s)

Miscellaneous:
  -c, --config=FILE      YAML configuration file
  -d, --debug            Debug logging
  -h, --help             Print this help and exit

Every option can also be set with a TTX_ environment variable named after
the long option, for example TTX_OUTPUT_DIR.`

func help() {
	title := color.New(color.FgYellow, color.BgBlue, color.Bold)
	title.Printf(" P%s ", "100")
	color.New(color.FgCyan).Printf(" teletextdec %s ", version)
	fmt.Println()
	fmt.Println()
	fmt.Println(helpString)
}
