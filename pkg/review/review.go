package review

import (
	"sort"

	"github.com/chewxy/math32"
)

// Package review selects hard examples for human review. Selection is a
// pure function of the current inference batch; there is no state
// between invocations.

const (
	DefaultBandLow     = 0.4
	DefaultBandHigh    = 0.6
	DefaultLowIoU      = 0.5
	DefaultMinPresence = 0.1
)

// Reasons an image lands in the review queue.
const (
	ReasonAmbiguousPresence = "ambiguous presence score"
	ReasonLowMaskQuality    = "low mask quality"
)

type Params struct {
	// Presence scores inside [BandLow, BandHigh] are ambiguous.
	BandLow  float32
	BandHigh float32
	// A best per-instance IoU below this flags low mask quality.
	LowIoU float32
	// Low mask quality only matters when presence is at least this.
	MinPresence float32
}

func NewParams() *Params {
	return &Params{
		BandLow:     DefaultBandLow,
		BandHigh:    DefaultBandHigh,
		LowIoU:      DefaultLowIoU,
		MinPresence: DefaultMinPresence,
	}
}

// ImageSignal is the per-image inference outcome the selector consumes:
// the presence score, and the best IoU any produced mask achieved
// against ground truth (negative when no mask-quality signal exists,
// e.g. no ground truth was available).
type ImageSignal struct {
	ImageID  int64
	FileName string
	Presence float32
	BestIoU  float32
}

// QueueEntry is one image flagged for review. Ambiguity is the distance
// of the presence score from the decision boundary; the queue is sorted
// by it ascending, so maximally ambiguous images are reviewed first.
type QueueEntry struct {
	ImageID   int64   `json:"image_id"`
	FileName  string  `json:"file_name"`
	Presence  float32 `json:"presence"`
	Ambiguity float32 `json:"ambiguity"`
	Reason    string  `json:"reason"`
}

// Select flags images whose presence score falls in the ambiguity band,
// or whose best mask IoU is below the low-quality threshold while
// presence is above the relevance floor. The result is ordered by
// distance from the decision boundary, closest first, with image id as
// the deterministic tie-break.
func Select(signals []ImageSignal, params *Params) []QueueEntry {
	if params == nil {
		params = NewParams()
	}
	boundary := (params.BandLow + params.BandHigh) / 2
	queue := []QueueEntry{}
	for _, sig := range signals {
		var reason string
		switch {
		case sig.Presence >= params.BandLow && sig.Presence <= params.BandHigh:
			reason = ReasonAmbiguousPresence
		case sig.BestIoU >= 0 && sig.BestIoU < params.LowIoU && sig.Presence >= params.MinPresence:
			reason = ReasonLowMaskQuality
		default:
			continue
		}
		queue = append(queue, QueueEntry{
			ImageID:   sig.ImageID,
			FileName:  sig.FileName,
			Presence:  sig.Presence,
			Ambiguity: math32.Abs(sig.Presence - boundary),
			Reason:    reason,
		})
	}
	sort.Slice(queue, func(i, j int) bool {
		if queue[i].Ambiguity != queue[j].Ambiguity {
			return queue[i].Ambiguity < queue[j].Ambiguity
		}
		return queue[i].ImageID < queue[j].ImageID
	})
	return queue
}
