// Package iocache persists fitted hyperparameters and fit run history.
package iocache

import (
	"sync"

	"github.com/blackhat-astro/blackhat/internal/contract"
)

// StoreManagerImpl holds the fit cache and run store instances.
type StoreManagerImpl struct {
	sync.RWMutex // Protects the store pointers during initialization
	fitCache     contract.CacheStore
	runs         contract.RunStore
}

var _ contract.StoreManager = &StoreManagerImpl{} // Compile-time check

// GetFitCache returns the fit CacheStore.
func (mgr *StoreManagerImpl) GetFitCache() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.fitCache
}

// GetRunStore returns the RunStore.
func (mgr *StoreManagerImpl) GetRunStore() contract.RunStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.runs
}
