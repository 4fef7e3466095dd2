package clientcache

import (
	"net/url"
	"sync"
)

// Memory models a single browser tab: a durable key-value storage shared
// across page loads and the tab's current URL. It is used in tests and by
// in-process callers that have no HTTP request.
type Memory struct {
	mu      sync.Mutex
	param   string
	storage map[string]string
	url     url.URL
}

// NewMemory returns an empty client pointed at rawURL.
func NewMemory(rawURL string) *Memory {
	m := &Memory{param: DefaultURLParam, storage: map[string]string{}}
	if u, err := url.Parse(rawURL); err == nil {
		m.url = *u
	}
	return m
}

func (m *Memory) ResolveCandidateToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tok := m.url.Query().Get(m.param); tok != "" {
		return tok, true
	}
	tok, ok := m.storage[StorageKey]
	return tok, ok && tok != ""
}

func (m *Memory) Persist(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storage[StorageKey] = token
	m.setParamLocked(token)
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, StorageKey)
	m.setParamLocked("")
}

func (m *Memory) ScrubURL() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setParamLocked("")
}

// Navigate loads a new URL in the tab, keeping storage. The URL is taken as
// typed: a bookmark without the parameter only has the storage channel.
func (m *Memory) Navigate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.url = *u
	m.mu.Unlock()
	return nil
}

// URL returns the tab's visible URL.
func (m *Memory) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url.String()
}

// Stored returns the token in durable storage, if any.
func (m *Memory) Stored() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.storage[StorageKey]
	return tok, ok
}

// NewTab returns a tab starting at rawURL with a copy of this tab's storage.
func (m *Memory) NewTab(rawURL string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	tab := NewMemory(rawURL)
	for k, v := range m.storage {
		tab.storage[k] = v
	}
	return tab
}

func (m *Memory) setParamLocked(token string) {
	q := m.url.Query()
	if token == "" {
		q.Del(m.param)
	} else {
		q.Set(m.param, token)
	}
	m.url.RawQuery = q.Encode()
}
