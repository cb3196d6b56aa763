package recipe

import (
	"strconv"
	"sync"
)

// inflightGuard allows one interaction per user and recipe at a time.
type inflightGuard struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{busy: make(map[string]struct{})}
}

// acquire returns a release func, or ok=false if the key is already held.
func (g *inflightGuard) acquire(userID string, recipeID int64) (release func(), ok bool) {
	key := userID + "/" + strconv.FormatInt(recipeID, 10)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.busy[key]; held {
		return nil, false
	}
	g.busy[key] = struct{}{}

	return func() {
		g.mu.Lock()
		delete(g.busy, key)
		g.mu.Unlock()
	}, true
}
