// Package teletext implements the teletext decoder element. It consumes
// PES packets carrying DVB teletext, waits for the selected page to be
// received completely and pushes it downstream as an RGBA video frame of
// 12x10 pixels per character cell.
//
// The element is driven by a single goroutine supplied by the host: Chain
// feeds the VBI engine, whose page events fire synchronously from inside
// the feed and are queued; each Chain call then renders at most one queued
// page.
package teletext
