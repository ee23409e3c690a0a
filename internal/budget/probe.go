package budget

import (
	"context"
	"sync"
)

// probeCache remembers whether the override store's backing table exists.
// The probe runs once per process and the answer is reused until reset.
type probeCache struct {
	mu     sync.Mutex
	probed bool
	result bool
}

func (p *probeCache) available(ctx context.Context, lookup OverrideLookup) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.probed {
		p.result = lookup.Available(ctx)
		p.probed = true
	}
	return p.result
}

func (p *probeCache) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = false
	p.result = false
}
