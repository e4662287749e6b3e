package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderType_HasLimitPrice(t *testing.T) {
	assert.False(t, Market.HasLimitPrice())
	assert.True(t, Limit.HasLimitPrice())
	assert.True(t, StopLimit.HasLimitPrice())
	assert.False(t, StopMarket.HasLimitPrice())
}

func TestOrderType_HasStopPrice(t *testing.T) {
	assert.False(t, Market.HasStopPrice())
	assert.False(t, Limit.HasStopPrice())
	assert.True(t, StopLimit.HasStopPrice())
	assert.True(t, StopMarket.HasStopPrice())
}

func TestOrderType_IsStop(t *testing.T) {
	assert.False(t, Market.IsStop())
	assert.False(t, Limit.IsStop())
	assert.True(t, StopLimit.IsStop())
	assert.True(t, StopMarket.IsStop())
}

func TestOrderType_String(t *testing.T) {
	assert.Equal(t, "market", Market.String())
	assert.Equal(t, "limit", Limit.String())
	assert.Equal(t, "stop_limit", StopLimit.String())
	assert.Equal(t, "stop_market", StopMarket.String())
	assert.Equal(t, "unknown", OrderType(99).String())
}

func TestTimeInForce_String(t *testing.T) {
	assert.Equal(t, "GTC", GTC.String())
	assert.Equal(t, "IOC", IOC.String())
	assert.Equal(t, "FOK", FOK.String())
	assert.Equal(t, "GTD", GTD.String())
	assert.Equal(t, "unknown", TimeInForce(99).String())
}

func TestOrderStatus_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "partially_filled", PartiallyFilled.String())
	assert.Equal(t, "filled", Filled.String())
	assert.Equal(t, "cancelled", Cancelled.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "expired", Expired.String())
	assert.Equal(t, "unknown", OrderStatus(99).String())
}

func TestSide_String(t *testing.T) {
	assert.Equal(t, "buy", Buy.String())
	assert.Equal(t, "sell", Sell.String())
	assert.Equal(t, "unknown", Side(99).String())
}
