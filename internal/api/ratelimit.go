package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterPruneSize  = 1024
	limiterMaxClients = 4096
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter keeps one token bucket per client.
type clientLimiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	clients map[string]*clientEntry
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*clientEntry),
	}
}

func (l *clientLimiter) allow(client string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.clients[client]
	if !ok {
		l.makeRoom(now)
		e = &clientEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[client] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// makeRoom drops idle clients once the map is large and, past the hard cap,
// the least recently seen one.
func (l *clientLimiter) makeRoom(now time.Time) {
	if len(l.clients) < limiterPruneSize {
		return
	}
	for k, e := range l.clients {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(l.clients, k)
		}
	}
	if len(l.clients) < limiterMaxClients {
		return
	}
	var oldest string
	var oldestSeen time.Time
	for k, e := range l.clients {
		if oldest == "" || e.lastSeen.Before(oldestSeen) {
			oldest, oldestSeen = k, e.lastSeen
		}
	}
	delete(l.clients, oldest)
}

func (l *clientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// clientKey identifies the caller by the configured API key, falling back to
// the remote IP. apiKey must already be verified; unchecked header values
// would let a caller pick a fresh bucket per request.
func clientKey(r *http.Request, apiKey string) string {
	if apiKey != "" {
		return "key:" + apiKey
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
