// Package pipeline is the in-process host for filter elements. It models
// the parts of a media pipeline engine an element depends on: timed
// buffers with format descriptors (caps), flow results, stream control
// events, state transitions, source pads with buffer allocation, an error
// bus, and a registry of element factories. Runner drives a single element
// from a channel of input buffers.
package pipeline
