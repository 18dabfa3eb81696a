package server

import (
	"golang.org/x/time/rate"
	"sync"
	"time"
)

const limiterIdleTTL = 10 * time.Minute

// ipLimiter keeps a token bucket per client IP and drops buckets that have
// been idle for limiterIdleTTL.
type ipLimiter struct {
	limit rate.Limit
	burst int

	mutex sync.Mutex
	byIp  map[string]*limiterEntry
	hits  uint64
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIpLimiter returns nil, which allows everything, when rps or burst is not positive.
func newIpLimiter(rps float64, burst int) *ipLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &ipLimiter{
		limit: rate.Limit(rps),
		burst: burst,
		byIp:  make(map[string]*limiterEntry),
	}
}

func (l *ipLimiter) Allow(ip string, now time.Time) bool {
	if l == nil || ip == "" {
		return true
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	e, ok := l.byIp[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byIp[ip] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)
	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-limiterIdleTTL)
		for k, v := range l.byIp {
			if v.lastSeen.Before(cutoff) {
				delete(l.byIp, k)
			}
		}
	}
	return allowed
}
