package cache

import "sync"

// StationCache maps station NSL codes to their database IDs. An ID of zero
// marks a station that is known but whose row ID has not been loaded.
type StationCache struct {
	mu       sync.RWMutex
	stations map[string]uint
}

// NewStationCache creates a new StationCache
func NewStationCache() *StationCache {
	return &StationCache{
		stations: make(map[string]uint),
	}
}

// Get retrieves a station ID by NSL code
func (c *StationCache) Get(nsl string) (uint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.stations[nsl]
	return id, ok
}

// Has reports whether the NSL code is known.
func (c *StationCache) Has(nsl string) bool {
	_, ok := c.Get(nsl)
	return ok
}

// Set stores a station ID by NSL code
func (c *StationCache) Set(nsl string, id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stations[nsl] = id
}

// Claim records nsl with a zero ID unless it is already known. It reports
// whether the caller is the first to see the code.
func (c *StationCache) Claim(nsl string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.stations[nsl]; ok {
		return false
	}
	c.stations[nsl] = 0
	return true
}

// Delete removes a station by NSL code
func (c *StationCache) Delete(nsl string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stations, nsl)
}

// Len returns the number of cached stations.
func (c *StationCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stations)
}

// Reset clears all stations from the cache
func (c *StationCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stations = make(map[string]uint)
}
