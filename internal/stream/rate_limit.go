package stream

import "sync"

// Names of the connection limits, used as the rejected-stream metric label.
const (
	limitPerIP = "per_ip"
	limitTotal = "total"
)

// streamLimiter caps concurrent streams per client IP and overall.
type streamLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	open     int
	maxPerIP int
	maxTotal int
}

func newStreamLimiter(maxPerIP, maxTotal int) *streamLimiter {
	return &streamLimiter{
		perIP:    make(map[string]int),
		maxPerIP: max(maxPerIP, 1),
		maxTotal: orDefault(maxTotal, 1000),
	}
}

func orDefault(n, def int) int {
	if n < 1 {
		return def
	}
	return n
}

// acquire takes a slot for ip. It returns "" on success, or the name of the
// limit that refused it.
func (l *streamLimiter) acquire(ip string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.open >= l.maxTotal:
		return limitTotal
	case l.perIP[ip] >= l.maxPerIP:
		return limitPerIP
	}
	l.perIP[ip]++
	l.open++
	return ""
}

// release returns a slot taken by acquire. Unknown IPs are ignored.
func (l *streamLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.perIP[ip]
	if !ok {
		return
	}
	l.open--
	if n <= 1 {
		delete(l.perIP, ip)
		return
	}
	l.perIP[ip] = n - 1
}

// count returns the open streams for ip.
func (l *streamLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}
