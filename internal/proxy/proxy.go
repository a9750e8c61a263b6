package proxy

import (
	"fmt"
	"math/rand"
	"net/url"

	"github.com/gocolly/colly/v2"
	collyproxy "github.com/gocolly/colly/v2/proxy"

	"github.com/williampepple1/coze-template-scraper/internal/config"
)

// Manager handles proxy configuration and rotation
type Manager struct {
	Config *config.ProxyConfig
}

// NewManager creates a new proxy manager
func NewManager(config *config.ProxyConfig) *Manager {
	return &Manager{
		Config: config,
	}
}

// Enabled reports whether any proxy should be used
func (m *Manager) Enabled() bool {
	return m.Config.Enabled && len(m.Config.List) > 0
}

// GetProxyURL returns a proxy URL from the configuration
func (m *Manager) GetProxyURL() (*url.URL, error) {
	if !m.Enabled() {
		return nil, nil
	}

	// Select a proxy
	proxyStr := m.Config.List[0]
	if m.Config.Rotate && len(m.Config.List) > 1 {
		proxyStr = m.Config.List[rand.Intn(len(m.Config.List))]
	}

	return m.parse(proxyStr)
}

// ProxyFunc returns a colly proxy switcher. Rotation goes round robin over
// the whole list; without rotation the first entry is always used.
func (m *Manager) ProxyFunc() (colly.ProxyFunc, error) {
	if !m.Enabled() {
		return nil, nil
	}

	list := m.Config.List[:1]
	if m.Config.Rotate {
		list = m.Config.List
	}

	urls := make([]string, 0, len(list))
	for _, raw := range list {
		u, err := m.parse(raw)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u.String())
	}
	return collyproxy.RoundRobinProxySwitcher(urls...)
}

// BrowserProxy returns the proxy server flag value for Chrome. Chrome does not
// take credentials on the command line, so they are dropped.
func (m *Manager) BrowserProxy() (string, error) {
	proxyURL, err := m.GetProxyURL()
	if err != nil || proxyURL == nil {
		return "", err
	}
	proxyURL.User = nil
	return proxyURL.String(), nil
}

func (m *Manager) parse(raw string) (*url.URL, error) {
	proxyURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", raw, err)
	}
	if proxyURL.Scheme == "" || proxyURL.Host == "" {
		return nil, fmt.Errorf("parse proxy %q: scheme and host are required", raw)
	}

	// Add authentication if provided
	if m.Config.Auth.Username != "" && m.Config.Auth.Password != "" {
		proxyURL.User = url.UserPassword(m.Config.Auth.Username, m.Config.Auth.Password)
	}
	return proxyURL, nil
}
