package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"market_intel/internal/domain"
)

// Memo caches the value derived from one Source, keyed by the source's
// signature. It holds a single entry: a new signature replaces the old value.
// Concurrent misses for the same signature share one load.
type Memo[T any] struct {
	src     domain.Source
	load    func(context.Context, io.Reader) (T, error)
	metrics domain.PipelineMetrics
	recheck time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	sig     string
	val     T
	ok      bool
	latest  string // newest signature seen
	checked time.Time

	sf singleflight.Group
}

func NewMemo[T any](src domain.Source, load func(context.Context, io.Reader) (T, error), m domain.PipelineMetrics) *Memo[T] {
	if m == nil {
		m = domain.NopMetrics{}
	}
	return &Memo[T]{src: src, load: load, metrics: m, now: time.Now}
}

// WithRecheck lets Get trust the last signature for d before asking the
// source again. Zero checks on every call.
func (m *Memo[T]) WithRecheck(d time.Duration) *Memo[T] {
	m.recheck = d
	return m
}

// Get returns the value for the source's current content. fresh is true when
// this call (or a concurrent one it joined) had to load it.
func (m *Memo[T]) Get(ctx context.Context) (val T, sig string, fresh bool, err error) {
	if m.recheck > 0 {
		m.mu.RLock()
		if m.ok && m.sig == m.latest && m.now().Sub(m.checked) < m.recheck {
			v, s := m.val, m.sig
			m.mu.RUnlock()
			m.metrics.MemoEvent(m.src.Name(), "hit")
			return v, s, false, nil
		}
		m.mu.RUnlock()
	}
	return m.Check(ctx)
}

// Check is Get without the recheck window: it always asks the source for its
// signature.
func (m *Memo[T]) Check(ctx context.Context) (val T, sig string, fresh bool, err error) {
	sig, err = m.src.Signature(ctx)
	if err != nil {
		var zero T
		return zero, "", false, fmt.Errorf("%s: signature: %w", m.src.Name(), err)
	}

	m.mu.Lock()
	m.latest, m.checked = sig, m.now()
	if m.ok && m.sig == sig {
		v := m.val
		m.mu.Unlock()
		m.metrics.MemoEvent(m.src.Name(), "hit")
		return v, sig, false, nil
	}
	m.mu.Unlock()
	m.metrics.MemoEvent(m.src.Name(), "miss")

	v, err, _ := m.sf.Do(sig, func() (any, error) {
		// a flight for this signature may have finished since the check above
		m.mu.RLock()
		if m.ok && m.sig == sig {
			v := m.val
			m.mu.RUnlock()
			return v, nil
		}
		m.mu.RUnlock()

		// joined callers must not fail because the first one went away
		fctx := context.WithoutCancel(ctx)
		rc, err := m.src.Open(fctx)
		if err != nil {
			return nil, fmt.Errorf("%s: open: %w", m.src.Name(), err)
		}
		defer rc.Close()

		out, err := m.load(fctx, rc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.src.Name(), err)
		}

		m.mu.Lock()
		if m.latest == sig {
			m.sig, m.val, m.ok = sig, out, true
		}
		m.mu.Unlock()
		log.Debug().Str("source", m.src.Name()).Str("signature", sig).Msg("memo reloaded")
		return out, nil
	})
	if err != nil {
		var zero T
		return zero, sig, false, err
	}
	return v.(T), sig, true, nil
}

// Signature reports the signature of the cached value, if any.
func (m *Memo[T]) Signature() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sig, m.ok
}
