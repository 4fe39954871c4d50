// Package vbi decodes DVB teletext. It demultiplexes PES packets carrying
// EBU teletext data units (EN 300 472) into sliced VBI lines, assembles
// them into level 1.5 teletext pages (ETS 300 706) held in a bounded page
// cache, and rasterizes cached pages into RGBA images.
//
// The two halves are wired by the caller: a [DVBDemux] hands sliced lines
// to its [DemuxFunc], which usually forwards them to [Decoder.Decode].
// Page completion is reported through [EventHandler]s that run
// synchronously on the goroutine calling Decode, before Decode returns.
// Neither type is safe for concurrent use.
package vbi
