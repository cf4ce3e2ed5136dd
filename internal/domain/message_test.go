package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func receipts(statuses ...MessageStatus) []*Receipt {
	out := make([]*Receipt, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, &Receipt{MessageID: 1, UserID: int64(i + 2), Status: s})
	}
	return out
}

func TestAggregateStatus(t *testing.T) {
	assert.Equal(t, StatusSent, AggregateStatus(nil))
	assert.Equal(t, StatusSent, AggregateStatus(receipts(StatusSent, StatusSent)))
	assert.Equal(t, StatusDelivered, AggregateStatus(receipts(StatusSent, StatusDelivered)))
	assert.Equal(t, StatusDelivered, AggregateStatus(receipts(StatusRead, StatusDelivered)))
	assert.Equal(t, StatusDelivered, AggregateStatus(receipts(StatusRead, StatusSent)))
	assert.Equal(t, StatusRead, AggregateStatus(receipts(StatusRead)))
	assert.Equal(t, StatusRead, AggregateStatus(receipts(StatusRead, StatusRead, StatusRead)))
}

func TestAdvanceNeverRegresses(t *testing.T) {
	assert.Equal(t, StatusRead, StatusRead.Advance(StatusSent))
	assert.Equal(t, StatusRead, StatusRead.Advance(StatusDelivered))
	assert.Equal(t, StatusDelivered, StatusSent.Advance(StatusDelivered))
	assert.Equal(t, StatusRead, StatusSent.Advance(StatusRead))
	assert.Equal(t, StatusDelivered, StatusDelivered.Advance("bogus"))
}

func TestDirectPairKeyIsUnordered(t *testing.T) {
	assert.Equal(t, DirectPairKey(1, 2), DirectPairKey(2, 1))
	assert.NotEqual(t, DirectPairKey(1, 2), DirectPairKey(1, 3))
}

func TestFallbackStartersFor(t *testing.T) {
	scholar := DefaultFallbackStarters.For(true)
	regular := DefaultFallbackStarters.For(false)

	assert.Len(t, scholar, 5)
	assert.Len(t, regular, 5)
	assert.Equal(t, StarterReligious, scholar[3].Category)
	assert.Equal(t, StarterQuestion, regular[3].Category)
}
