package identity

import (
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"

	idgen "github.com/riskibarqy/prizepicks-feed/internal/platform/id"
)

const DefaultRotateProbability = 0.2

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
}

var headerTemplates = []map[string]string{
	{
		"Accept":           "application/json",
		"Content-Type":     "application/json",
		"Referer":          "https://app.prizepicks.com/",
		"Origin":           "https://app.prizepicks.com",
		"sec-ch-ua":        `"Not/A)Brand";v="99", "Google Chrome";v="91"`,
		"sec-ch-ua-mobile": "?0",
		"sec-fetch-dest":   "empty",
		"sec-fetch-mode":   "cors",
		"sec-fetch-site":   "same-site",
	},
	{
		"Accept":           "application/json, text/plain, */*",
		"Content-Type":     "application/json",
		"Referer":          "https://prizepicks.com/",
		"Origin":           "https://prizepicks.com",
		"sec-ch-ua":        `"Chromium";v="92", " Not A;Brand";v="99"`,
		"sec-ch-ua-mobile": "?0",
		"sec-fetch-dest":   "empty",
		"sec-fetch-mode":   "cors",
		"sec-fetch-site":   "same-site",
	},
}

// Identity is the header set presented to the upstream on a request.
type Identity struct {
	UserAgent      string
	DeviceID       string
	ViewportWidth  int
	ViewportHeight int
	Headers        map[string]string
}

// Header renders the identity as HTTP headers.
func (i Identity) Header() http.Header {
	h := make(http.Header, len(i.Headers)+4)
	for k, v := range i.Headers {
		h.Set(k, v)
	}
	h.Set("User-Agent", i.UserAgent)
	h.Set("X-Device-ID", i.DeviceID)
	h.Set("Viewport-Width", strconv.Itoa(i.ViewportWidth))
	h.Set("Viewport-Height", strconv.Itoa(i.ViewportHeight))
	return h
}

// Manager holds the current client identity and rotates it on demand.
type Manager struct {
	mu          sync.Mutex
	current     Identity
	rotateProb  float64
	ids         idgen.Generator
	float64Func func() float64
	intNFunc    func(n int) int
	rotations   int
}

func NewManager(rotateProbability float64, ids idgen.Generator) *Manager {
	if rotateProbability < 0 || rotateProbability > 1 {
		rotateProbability = DefaultRotateProbability
	}
	if ids == nil {
		ids = idgen.NewUUIDGenerator()
	}

	m := &Manager{
		rotateProb:  rotateProbability,
		ids:         ids,
		float64Func: rand.Float64,
		intNFunc:    rand.IntN,
	}
	m.Rotate()
	return m
}

// Current returns a copy of the active identity.
func (m *Manager) Current() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneIdentity(m.current)
}

// Rotate replaces the active identity with a freshly generated one.
func (m *Manager) Rotate() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()

	template := headerTemplates[m.intNFunc(len(headerTemplates))]
	headers := make(map[string]string, len(template))
	for k, v := range template {
		headers[k] = v
	}

	deviceID, err := m.ids.NewID()
	if err != nil || deviceID == "" {
		deviceID = m.current.DeviceID
	}

	m.current = Identity{
		UserAgent:      userAgents[m.intNFunc(len(userAgents))],
		DeviceID:       deviceID,
		ViewportWidth:  1024 + m.intNFunc(1920-1024+1),
		ViewportHeight: 768 + m.intNFunc(1080-768+1),
		Headers:        headers,
	}
	m.rotations++
	return cloneIdentity(m.current)
}

// MaybeRotate rotates with the configured probability and reports whether it did.
func (m *Manager) MaybeRotate() bool {
	m.mu.Lock()
	roll := m.float64Func()
	m.mu.Unlock()

	if roll >= m.rotateProb {
		return false
	}
	m.Rotate()
	return true
}

// Apply writes the active identity headers onto req.
func (m *Manager) Apply(req *http.Request) {
	if req == nil {
		return
	}
	for k, values := range m.Current().Header() {
		req.Header[k] = values
	}
}

// Rotations reports how many identities have been issued, including the initial one.
func (m *Manager) Rotations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotations
}

func cloneIdentity(in Identity) Identity {
	out := in
	out.Headers = make(map[string]string, len(in.Headers))
	for k, v := range in.Headers {
		out.Headers[k] = v
	}
	return out
}
