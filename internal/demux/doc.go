// Package demux finds the teletext elementary stream in an MPEG transport
// stream and delivers its PES packets as timed pipeline buffers.
//
// The central type is [Demuxer], which reads from an [io.Reader] and sends
// one [pipeline.Buffer] per PES packet on the channel returned by
// [Demuxer.Buffers]. The stream is chosen from the PMT (private PES data
// with a teletext descriptor) unless a PID is forced with [WithPID].
package demux
