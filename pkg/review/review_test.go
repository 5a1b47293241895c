package review

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func signal(id int64, presence, bestIoU float32) ImageSignal {
	return ImageSignal{ImageID: id, FileName: "img.jpg", Presence: presence, BestIoU: bestIoU}
}

func TestSelectAmbiguityBand(t *testing.T) {
	signals := []ImageSignal{
		signal(1, 0.9, 0.8), // confident positive, good mask
		signal(2, 0.5, 0.8), // dead center of the band
		signal(3, 0.05, -1), // confident negative
		signal(4, 0.42, 0.8),
	}
	queue := Select(signals, nil)
	require.Len(t, queue, 2)
	// 0.5 sits on the boundary, so it comes first.
	require.Equal(t, int64(2), queue[0].ImageID)
	require.Equal(t, ReasonAmbiguousPresence, queue[0].Reason)
	require.InDelta(t, 0, queue[0].Ambiguity, 1e-6)
	require.Equal(t, int64(4), queue[1].ImageID)
}

func TestSelectLowMaskQuality(t *testing.T) {
	signals := []ImageSignal{
		signal(1, 0.9, 0.3),  // confident presence, bad mask -> flagged
		signal(2, 0.9, 0.7),  // good mask -> not flagged
		signal(3, 0.05, 0.3), // below the relevance floor -> not flagged
		signal(4, 0.9, -1),   // no mask-quality signal -> not flagged
	}
	queue := Select(signals, nil)
	require.Len(t, queue, 1)
	require.Equal(t, int64(1), queue[0].ImageID)
	require.Equal(t, ReasonLowMaskQuality, queue[0].Reason)
}

func TestSelectBandTakesPriorityOverMaskQuality(t *testing.T) {
	// Inside the band with a bad mask: flagged once, for ambiguity.
	queue := Select([]ImageSignal{signal(1, 0.45, 0.1)}, nil)
	require.Len(t, queue, 1)
	require.Equal(t, ReasonAmbiguousPresence, queue[0].Reason)
}

func TestSelectOrdering(t *testing.T) {
	// Mask-quality entries sort by the same ambiguity key, so a
	// borderline presence outranks a confident one even across reasons.
	signals := []ImageSignal{
		signal(10, 0.9, 0.1),
		signal(11, 0.55, 0.9),
		signal(12, 0.45, 0.9),
	}
	queue := Select(signals, nil)
	require.Len(t, queue, 3)
	require.Equal(t, int64(11), queue[0].ImageID)
	require.Equal(t, int64(12), queue[1].ImageID)
	require.Equal(t, int64(10), queue[2].ImageID)
}

func TestSelectCustomParams(t *testing.T) {
	params := &Params{BandLow: 0.2, BandHigh: 0.8, LowIoU: 0.5, MinPresence: 0.1}
	queue := Select([]ImageSignal{signal(1, 0.25, 0.9)}, params)
	require.Len(t, queue, 1)
	require.Equal(t, ReasonAmbiguousPresence, queue[0].Reason)
}
