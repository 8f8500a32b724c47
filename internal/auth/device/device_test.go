package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserAgent(t *testing.T) {
	t.Run("empty user agent returns unknown device", func(t *testing.T) {
		assert.Equal(t, "Unknown Device", ParseUserAgent(""))
		assert.Equal(t, "Unknown Device", ParseUserAgent("   "))
	})

	t.Run("chrome on desktop includes browser and OS", func(t *testing.T) {
		ua := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		result := ParseUserAgent(ua)
		assert.Contains(t, result, "Chrome")
		assert.Contains(t, result, "on")
	})

	t.Run("mobile browsers are flagged", func(t *testing.T) {
		ua := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
		result := ParseUserAgent(ua)
		assert.Contains(t, result, "(mobile)")
	})

	t.Run("unrecognizable agent still yields a display name", func(t *testing.T) {
		assert.NotEmpty(t, ParseUserAgent("Unknown/1.0"))
	})
}
