package serving

import (
	"math"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
)

// Cache memoizes results by the exact bit pattern of the feature vector,
// so 0.0 and -0.0 (or distinct NaN payloads) are separate entries.
type Cache struct {
	lru *lru.Cache[string, Result]
}

// NewCache creates a cache holding up to size results.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New[string, Result](size)
	if err != nil {
		return nil, errors.Wrap(err, "create prediction cache")
	}
	return &Cache{lru: c}, nil
}

// Get returns a copy of the cached result for features.
func (c *Cache) Get(features []float64) (Result, bool) {
	res, ok := c.lru.Get(cacheKey(features))
	if !ok {
		return Result{}, false
	}
	return res.clone(), true
}

// Add stores a copy of res.
func (c *Cache) Add(features []float64, res Result) {
	c.lru.Add(cacheKey(features), res.clone())
}

// Len reports the number of cached results.
func (c *Cache) Len() int { return c.lru.Len() }

func cacheKey(features []float64) string {
	var b strings.Builder
	for i, f := range features {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(math.Float64bits(f), 16))
	}
	return b.String()
}
