package srt

import (
	"fmt"
	"net/url"
	"strings"
)

// Mode selects which side of the SRT handshake we take.
type Mode int

const (
	ModeCaller Mode = iota
	ModeListener
)

func (m Mode) String() string {
	if m == ModeListener {
		return "listener"
	}
	return "caller"
}

// Endpoint is a parsed srt:// input URL:
//
//	srt://host:port?streamid=live/news
//	srt://:6000?mode=listener
type Endpoint struct {
	Address  string
	StreamID string
	Mode     Mode
}

// IsURL reports whether input names an SRT endpoint rather than a file.
func IsURL(input string) bool {
	return strings.HasPrefix(input, "srt://")
}

// ParseURL parses an srt:// URL. A URL without a host defaults to listener
// mode.
func ParseURL(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse SRT URL: %w", err)
	}
	if u.Scheme != "srt" {
		return Endpoint{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Port() == "" {
		return Endpoint{}, fmt.Errorf("SRT URL %q has no port", raw)
	}

	ep := Endpoint{Address: u.Host, StreamID: u.Query().Get("streamid")}
	switch mode := u.Query().Get("mode"); mode {
	case "listener", "server":
		ep.Mode = ModeListener
	case "caller", "client":
		ep.Mode = ModeCaller
	case "":
		if u.Hostname() == "" {
			ep.Mode = ModeListener
		}
	default:
		return Endpoint{}, fmt.Errorf("unknown SRT mode %q", mode)
	}
	if ep.Mode == ModeCaller && u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("SRT caller needs a host")
	}
	return ep, nil
}

// streamKey maps an SRT stream id to a registry key.
func streamKey(streamID string) string {
	streamID = strings.TrimPrefix(streamID, "/")
	streamID = strings.TrimPrefix(streamID, "live/")
	if streamID == "" {
		return "default"
	}
	return streamID
}
