// Package output consumes the rendered teletext frames at the end of the
// pipeline: it writes them as PNG files and prints a colored preview to a
// terminal.
package output
