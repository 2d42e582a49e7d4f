package value

import "sync"

// OverrideLevel is one scope-chain level's contribution to an override
// chain walk: the __override, __prefix and __suffix values applicable at
// that scope for a given variable, innermost scope first. A nil pointer
// means that stem has no value at this level.
type OverrideLevel struct {
	Override *Value
	Prefix   *Value
	Suffix   *Value
}

// Synthesize implements the override lookup of §4.1: start from the stem
// (the first applicable __override value found walking outward, or the
// variable's original lookup if none), then apply __prefix/__suffix values
// from innermost to outermost. Untyped override values are converted to
// the variable's type at application time.
func Synthesize(v *Variable, original Value, levels []OverrideLevel) (Value, error) {
	stem := original
	for _, lvl := range levels {
		if lvl.Override != nil {
			ov := *lvl.Override
			if v.Type != nil {
				typed, err := ov.WithType(v.Type)
				if err == nil {
					ov = typed
				}
			}
			stem = ov
			break
		}
	}

	for _, lvl := range levels {
		if lvl.Prefix != nil {
			p := *lvl.Prefix
			var err error
			stem, err = stem.Prepend(p)
			if err != nil {
				return Value{}, err
			}
		}
		if lvl.Suffix != nil {
			sfx := *lvl.Suffix
			var err error
			stem, err = stem.Append(sfx)
			if err != nil {
				return Value{}, err
			}
		}
	}
	return stem, nil
}

// cacheKey identifies a memoized override synthesis: the stem map identity
// (as observed by the caller, usually a scope or target pointer cast to
// uintptr) together with the variable being resolved.
type cacheKey struct {
	stemMap uintptr
	v       *Variable
}

// OverrideCache memoizes synthesized override values. Per the §4.1 design
// note, all participating values are immutable for the duration of an
// action, so a memo needs no invalidation within a single match/execute
// pass; the cache is discarded between actions by constructing a fresh one.
type OverrideCache struct {
	mu    sync.Mutex
	cache map[cacheKey]Value
}

func NewOverrideCache() *OverrideCache {
	return &OverrideCache{cache: make(map[cacheKey]Value)}
}

// GetOrCompute returns the memoized synthesis for (stemMap, v), calling
// compute to populate it on a miss.
func (c *OverrideCache) GetOrCompute(stemMap uintptr, v *Variable, compute func() (Value, error)) (Value, error) {
	key := cacheKey{stemMap: stemMap, v: v}

	c.mu.Lock()
	if val, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return val, nil
	}
	c.mu.Unlock()

	val, err := compute()
	if err != nil {
		return Value{}, err
	}

	c.mu.Lock()
	c.cache[key] = val
	c.mu.Unlock()
	return val, nil
}
