// Package version provides protocol version parsing, comparison, and
// websocket subprotocol helpers.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the protocol version implemented by this library.
const Current = "1.0"

// subprotocolPrefix prefixes the major version in the
// Sec-WebSocket-Protocol header: "pushline.v1".
const subprotocolPrefix = "pushline.v"

// ProtocolVersion represents a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (ProtocolVersion, error) {
	major, minor, found := strings.Cut(s, ".")
	if !found || strings.Contains(minor, ".") {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	majorN, err := strconv.ParseUint(major, 10, 16)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}
	minorN, err := strconv.ParseUint(minor, 10, 16)
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint16(majorN), Minor: uint16(minorN)}, nil
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// Subprotocol returns the websocket subprotocol name for a major version.
func Subprotocol(major uint16) string {
	return subprotocolPrefix + strconv.FormatUint(uint64(major), 10)
}

// MajorFromSubprotocol extracts the major version from a subprotocol name.
func MajorFromSubprotocol(name string) (uint16, error) {
	suffix, ok := strings.CutPrefix(name, subprotocolPrefix)
	if !ok {
		return 0, fmt.Errorf("not a pushline subprotocol: %q", name)
	}
	if suffix == "" {
		return 0, fmt.Errorf("empty major version in subprotocol: %q", name)
	}

	major, err := strconv.ParseUint(suffix, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid major version in subprotocol %q: %w", name, err)
	}
	return uint16(major), nil
}

// SupportedSubprotocols returns the subprotocol names offered during the
// websocket handshake. Currently only major version 1.
func SupportedSubprotocols() []string {
	current, _ := Parse(Current)
	return []string{Subprotocol(current.Major)}
}

// CheckSubprotocol validates the subprotocol selected by the server.
// An empty selection is accepted; servers are not required to negotiate.
func CheckSubprotocol(selected string) error {
	if selected == "" {
		return nil
	}
	major, err := MajorFromSubprotocol(selected)
	if err != nil {
		return err
	}
	current, _ := Parse(Current)
	if major != current.Major {
		return fmt.Errorf("server selected %s, client supports %s", selected, Subprotocol(current.Major))
	}
	return nil
}
