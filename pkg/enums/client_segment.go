package enums

import (
	"fmt"
	"strings"
)

// ClientSegment categorizes a client account within its sales channel.
type ClientSegment string

const (
	ClientSegmentVarejo            ClientSegment = "varejo"
	ClientSegmentAtacado           ClientSegment = "atacado"
	ClientSegmentPadaria           ClientSegment = "padaria"
	ClientSegmentRestaurante       ClientSegment = "restaurante"
	ClientSegmentLanchonete        ClientSegment = "lanchonete"
	ClientSegmentCozinhaIndustrial ClientSegment = "cozinha_industrial"
	ClientSegmentDistribuidor      ClientSegment = "distribuidor"
)

// sensitiveSegments must buy at the exact table price; any exception is refused.
var sensitiveSegments = map[ClientSegment]struct{}{
	ClientSegmentPadaria:           {},
	ClientSegmentRestaurante:       {},
	ClientSegmentLanchonete:        {},
	ClientSegmentCozinhaIndustrial: {},
}

// String implements fmt.Stringer.
func (c ClientSegment) String() string {
	return string(c)
}

// IsSensitive reports whether the segment is locked to the maximum table price.
func (c ClientSegment) IsSensitive() bool {
	_, ok := sensitiveSegments[c]
	return ok
}

var validClientSegments = []ClientSegment{
	ClientSegmentVarejo,
	ClientSegmentAtacado,
	ClientSegmentPadaria,
	ClientSegmentRestaurante,
	ClientSegmentLanchonete,
	ClientSegmentCozinhaIndustrial,
	ClientSegmentDistribuidor,
}

// IsValid reports whether the value is a known ClientSegment.
func (c ClientSegment) IsValid() bool {
	for _, candidate := range validClientSegments {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseClientSegment converts raw input into a ClientSegment. Import files
// spell segments with arbitrary casing and surrounding spaces.
func ParseClientSegment(value string) (ClientSegment, error) {
	normalized := ClientSegment(strings.ToLower(strings.TrimSpace(value)))
	if !normalized.IsValid() {
		return "", fmt.Errorf("invalid client segment %q", value)
	}
	return normalized, nil
}
