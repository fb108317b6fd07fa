package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "ipv4 address", input: "192.168.1.47", expected: "192.168.1.0"},
		{name: "ipv4 already truncated", input: "10.0.0.0", expected: "10.0.0.0"},
		{name: "ipv4 with whitespace", input: " 203.0.113.9 ", expected: "203.0.113.0"},
		{name: "ipv4-mapped ipv6", input: "::ffff:198.51.100.23", expected: "198.51.100.0"},
		{name: "ipv6 full address", input: "2001:db8:85a3:0000:0000:8a2e:0370:7334", expected: "2001:db8:85a3::"},
		{name: "ipv6 loopback", input: "::1", expected: "::"},
		{name: "ipv6 with zone", input: "fe80::1%eth0", expected: "fe80::"},
		{name: "empty", input: "", expected: "unknown"},
		{name: "unknown marker", input: "unknown", expected: "unknown"},
		{name: "garbage", input: "not-an-ip", expected: "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AnonymizeIP(tt.input))
		})
	}
}
