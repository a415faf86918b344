package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
	"math"
	"time"

	"github.com/blackhat-astro/blackhat/core/gp"
	"github.com/blackhat-astro/blackhat/core/kernel"
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cacheTTL is how long a fitted parameter set stays usable as a warm start.
const cacheTTL = 30 * 24 * time.Hour

// cachedFit is the value stored in the fit cache.
type cachedFit struct {
	Params        schema.KernelParameters `json:"params"`
	LogLikelihood float64                 `json:"log_likelihood"`
}

// lookupCachedFit returns the cached hyperparameters for key if they are current, fresh
// and valid.
func lookupCachedFit(store contract.CacheStore, key string, now time.Time) (cachedFit, bool) {
	if store == nil {
		return cachedFit{}, false
	}
	data, version, ts, err := store.Get(key)
	if err != nil {
		return cachedFit{}, false // Cache miss
	}
	if version != currentCacheVersion || now.Sub(time.Unix(ts, 0)) > cacheTTL {
		return cachedFit{}, false // Stale or version mismatch
	}

	var fit cachedFit
	if err := json.Unmarshal(data, &fit); err != nil {
		return cachedFit{}, false
	}
	if kernel.Validate(fit.Params) != nil {
		return cachedFit{}, false
	}
	return fit, true
}

// storeCachedFit writes fitted hyperparameters to the cache. Failures only warn.
func storeCachedFit(store contract.CacheStore, key string, fit cachedFit, now time.Time) {
	if store == nil {
		return
	}
	data, err := json.Marshal(fit)
	if err != nil {
		contract.LogWarn("Failed to encode fit cache entry", err)
		return
	}
	if err := store.Set(key, data, currentCacheVersion, now.Unix()); err != nil {
		contract.LogWarn("Failed to write fit cache entry", err)
	}
}

// fitCacheKey digests everything that determines a fit: the mapped observations, the
// wavelength method and the kernel and mean settings.
func fitCacheKey(obs []schema.Observation, method schema.WavelengthMethod, settings gp.Settings) string {
	h := sha256.New()
	writeString(h, string(method))
	writeString(h, string(settings.Combine))
	writeString(h, string(settings.Mean))
	for _, o := range obs {
		writeString(h, o.Passband)
		writeFloat(h, o.Time)
		writeFloat(h, o.Flux)
		writeFloat(h, o.FluxError)
		writeFloat(h, o.Wavelength)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeString(h hash.Hash, s string) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
	_, _ = h.Write(n[:])
	_, _ = h.Write([]byte(s))
}

func writeFloat(h hash.Hash, v float64) {
	if math.IsNaN(v) {
		v = math.NaN() // one canonical NaN
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	_, _ = h.Write(b[:])
}
