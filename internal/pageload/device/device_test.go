package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	t.Run("empty header", func(t *testing.T) {
		assert.Equal(t, "Unknown Device", Describe(""))
		assert.Equal(t, "Unknown Device", Describe("   "))
	})

	t.Run("desktop firefox", func(t *testing.T) {
		label := Describe("Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0")
		assert.Contains(t, label, "Firefox on ")
		assert.Contains(t, label, "Linux")
	})

	t.Run("desktop chrome", func(t *testing.T) {
		label := Describe("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36")
		assert.Contains(t, label, "Chrome on ")
		assert.Contains(t, label, "Windows")
	})

	t.Run("crawler", func(t *testing.T) {
		label := Describe("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
		assert.Contains(t, label, "Bot")
	})
}
