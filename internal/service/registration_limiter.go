package service

import (
	"sync"
	"time"
)

// RegistrationLimiter acota, por email, cuantos codigos se emiten y cuantos
// codigos incorrectos admite el codigo vigente.
type RegistrationLimiter interface {
	// AllowCode registra la emision de un codigo; false si se agoto el cupo.
	AllowCode(email string) bool
	// FailedAttempt registra un codigo incorrecto y avisa cuando el codigo
	// vigente ya no admite mas intentos.
	FailedAttempt(email string) (exhausted bool)
	ResetAttempts(email string)
}

// RegistrationLimits fija la ventana y los cupos del alta.
type RegistrationLimits struct {
	Window      time.Duration
	MaxCodes    int
	MaxAttempts int
}

func (l RegistrationLimits) withDefaults() RegistrationLimits {
	if l.Window <= 0 {
		l.Window = time.Minute
	}
	if l.MaxCodes <= 0 {
		l.MaxCodes = 1
	}
	if l.MaxAttempts <= 0 {
		l.MaxAttempts = 5
	}
	return l
}

// slidingWindow guarda marcas de tiempo por email. Las claves sin marcas
// vigentes se eliminan en el barrido periodico.
type slidingWindow struct {
	window    time.Duration
	hits      map[string][]time.Time
	lastSweep time.Time
}

func newSlidingWindow(window time.Duration) *slidingWindow {
	return &slidingWindow{window: window, hits: make(map[string][]time.Time)}
}

func (w *slidingWindow) recent(key string, now time.Time) []time.Time {
	w.sweep(now)
	cutoff := now.Add(-w.window)
	entries := w.hits[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(w.hits, key)
		return nil
	}
	w.hits[key] = kept
	return kept
}

func (w *slidingWindow) add(key string, now time.Time) int {
	kept := append(w.recent(key, now), now)
	w.hits[key] = kept
	return len(kept)
}

func (w *slidingWindow) sweep(now time.Time) {
	if now.Sub(w.lastSweep) < w.window {
		return
	}
	w.lastSweep = now
	cutoff := now.Add(-w.window)
	for key, entries := range w.hits {
		if len(entries) == 0 || !entries[len(entries)-1].After(cutoff) {
			delete(w.hits, key)
		}
	}
}

type memoryRegistrationLimiter struct {
	mu       sync.Mutex
	limits   RegistrationLimits
	codes    *slidingWindow
	attempts *slidingWindow
	now      func() time.Time
}

// NewRegistrationLimiter crea el limitador en memoria de una sola instancia.
func NewRegistrationLimiter(limits RegistrationLimits) RegistrationLimiter {
	limits = limits.withDefaults()
	return &memoryRegistrationLimiter{
		limits:   limits,
		codes:    newSlidingWindow(limits.Window),
		attempts: newSlidingWindow(limits.Window),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *memoryRegistrationLimiter) AllowCode(email string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if len(l.codes.recent(email, now)) >= l.limits.MaxCodes {
		return false
	}
	l.codes.add(email, now)
	return true
}

func (l *memoryRegistrationLimiter) FailedAttempt(email string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempts.add(email, l.now()) >= l.limits.MaxAttempts
}

func (l *memoryRegistrationLimiter) ResetAttempts(email string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts.hits, email)
}
