package scraper

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/smartpick/config"
)

func TestIsAdDomain(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"doubleclick.net", true},
		{"pagead2.googlesyndication.com", true},
		{"SECURE.ADNXS.COM", true},
		{"www.gsmarena.com", false},
		{"fdn2.gsmarena.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			require.Equal(t, tt.want, isAdDomain(tt.host))
		})
	}
}

func TestBlockedTypeSet(t *testing.T) {
	set := blockedTypeSet([]string{"Image", "Font", "Bogus"})
	require.Len(t, set, 2)
	require.Contains(t, set, proto.NetworkResourceTypeImage)
	require.Contains(t, set, proto.NetworkResourceTypeFont)
}

func TestToHeadersMap(t *testing.T) {
	m := toHeadersMap(map[string]string{"Referer": "https://www.gsmarena.com/"})
	require.Equal(t, "https://www.gsmarena.com/", m["Referer"].Str())
}

func TestSessionCloseWithoutLaunch(t *testing.T) {
	s := NewSession(config.BrowserConfig{Headless: true}, "")
	require.False(t, s.Started())
	s.Close()
	s.Close()

	_, err := s.ensurePage()
	require.Error(t, err)
}
