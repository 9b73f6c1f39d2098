package app_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market_intel/internal/app"
	"market_intel/internal/domain"
)

func portfolio() []domain.PropertyRecord {
	var out []domain.PropertyRecord
	add := func(n int, market, sub, manager string, branded bool) {
		for i := 0; i < n; i++ {
			p := prop(market, 33.7+float64(i)*0.001, -84.3, 100)
			p.PropertyID = fmt.Sprintf("%s-%s-%d", market, manager, i)
			p.Manager = manager
			p.Branded = branded
			if sub != "" {
				p.Submarket = ptr(sub)
			}
			out = append(out, p)
		}
	}
	add(30, "Atlanta, GA", "Midtown", "Cortland", true)
	add(22, "Atlanta, GA", "Buckhead", "Greystar", false)
	add(3, "Atlanta, GA", "", "Bell", false)
	add(10, "Austin, TX", "Downtown", "Greystar", true)
	return out
}

func TestEligibleMarkets(t *testing.T) {
	assert.Equal(t, []string{"All", "Atlanta, GA"}, app.EligibleMarkets(portfolio(), 50))
	assert.Equal(t, []string{"All", "Atlanta, GA", "Austin, TX"}, app.EligibleMarkets(portfolio(), 10))
}

func TestFilterAndManagers(t *testing.T) {
	atl := app.FilterProperties(portfolio(), domain.PropertyFilter{Market: "Atlanta, GA"})
	require.Len(t, atl, 55)
	assert.Equal(t, []string{"All", "Cortland", "Greystar"}, app.EligibleManagers(atl, 5))
	assert.Equal(t, []string{"All", "Buckhead", "Midtown"}, app.Submarkets(atl))

	mid := app.FilterProperties(portfolio(), domain.PropertyFilter{Market: "Atlanta, GA", Submarkets: []string{"Midtown"}})
	assert.Len(t, mid, 30)

	// "All" in the submarket list disables that selector
	all := app.FilterProperties(portfolio(), domain.PropertyFilter{Market: "Atlanta, GA", Submarkets: []string{"Midtown", "All"}})
	assert.Len(t, all, 55)

	gs := app.FilterProperties(portfolio(), domain.PropertyFilter{Market: domain.AllMarkets, Manager: "Greystar"})
	assert.Len(t, gs, 32)
}

func TestSummarizeAndView(t *testing.T) {
	atl := app.FilterProperties(portfolio(), domain.PropertyFilter{Market: "Atlanta, GA"})
	s := app.Summarize(atl)
	assert.Equal(t, domain.AssetSummary{TotalAssets: 55, BrandedAssets: 30, TotalUnits: 5500}, s)

	v := app.MapViewFor(atl, "Atlanta, GA")
	assert.Equal(t, 11, v.Zoom)
	assert.InDelta(t, -84.3, v.CenterLon, 1e-9)

	nat := app.MapViewFor(atl, domain.AllMarkets)
	assert.Equal(t, domain.MapView{CenterLat: 39.8, CenterLon: -98.6, Zoom: 4}, nat)

	// no located properties: fall back to the national view
	assert.Equal(t, nat, app.MapViewFor([]domain.PropertyRecord{{Market: "X"}}, "X"))
}

func TestHeatPoints(t *testing.T) {
	props := portfolio()
	props = append(props, domain.PropertyRecord{Market: "Atlanta, GA", Branded: true})
	b, u := app.HeatPoints(props)
	assert.Len(t, b, 40)
	assert.Len(t, u, 25)
	for _, p := range b {
		assert.True(t, p.Branded)
		assert.Equal(t, 1.0, p.Weight)
	}

	b, u = app.HeatPoints(nil)
	assert.NotNil(t, b)
	assert.NotNil(t, u)
}

func TestMarkers(t *testing.T) {
	props := portfolio()[:3]
	props[1].Owner = "Blackstone"
	props = append(props, domain.PropertyRecord{PropertyID: "nowhere", Market: "Atlanta, GA"})

	ms := app.Markers(props)
	require.Len(t, ms, 3)
	assert.Equal(t, props[1].PropertyID, ms[1].PropertyID)
	assert.Equal(t, "Blackstone", ms[1].Owner)
	assert.Equal(t, "Cortland", ms[1].Manager)
	assert.InDelta(t, 33.701, ms[1].Lat, 1e-9)
	assert.True(t, ms[1].Branded)

	assert.NotNil(t, app.Markers(nil))
}
