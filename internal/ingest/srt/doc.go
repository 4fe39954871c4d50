// Package srt implements SRT (Secure Reliable Transport) ingest of
// transport streams carrying teletext: a listener that accepts publish
// connections and a caller that pulls from a remote listener.
package srt
