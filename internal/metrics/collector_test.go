package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequestIncrementsCounter(t *testing.T) {
	c := NewCollector("claw_router_test_observe")
	c.ObserveRequest("success", "openai", 0.1)

	n := testutil.ToFloat64(c.requestsTotal.WithLabelValues("success", "openai"))
	assert.Equal(t, float64(1), n)
}

func TestObserveCacheCountsHitsAndMisses(t *testing.T) {
	c := NewCollector("claw_router_test_cache")
	c.ObserveCache(true)
	c.ObserveCache(false)
	c.ObserveCache(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheHits))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.cacheMisses))
}

func TestObserveCostSkipsNonPositive(t *testing.T) {
	c := NewCollector("claw_router_test_cost")
	c.ObserveCost("openai", 0)
	c.ObserveCost("openai", 1.5)

	assert.Equal(t, float64(1.5), testutil.ToFloat64(c.providerCost.WithLabelValues("openai")))
}
