package eval

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSummaryReports(t *testing.T) {
	// Image 1: positive, fully matched.
	// Image 2: positive, zero detections -> false-negative row.
	// Image 3: negative, two spurious detections -> false-positive row.
	// Image 4: negative, clean.
	ds := evalFixture(2, 2)
	preds := []Prediction{
		perfectPrediction(1),
		{
			ImageID: 3,
			Score:   0.7,
			Instances: []Instance{
				boxInstance(0, 0, 50, 50, 0.6),
				boxInstance(200, 200, 50, 50, 0.8),
			},
		},
	}

	summary, err := BuildSummary(ds, preds, nil)
	require.NoError(t, err)

	fp := summary.FalsePositives
	require.Equal(t, 2, fp.NegativeImages)
	require.Equal(t, 1, fp.NegativesWithDetections)
	require.Equal(t, 2, fp.TotalSpuriousDetections)
	require.Len(t, fp.Images, 1)
	require.Equal(t, int64(3), fp.Images[0].ImageID)
	require.InDelta(t, 0.8, fp.Images[0].MaxScore, 1e-6)
	require.InDelta(t, 0.7, fp.MeanScore, 1e-6)
	require.InDelta(t, 0.6, fp.MinScore, 1e-6)
	require.InDelta(t, 0.8, fp.MaxScore, 1e-6)

	fn := summary.FalseNegatives
	require.Equal(t, 2, fn.PositiveImages)
	require.Equal(t, 1, fn.ImagesWithMisses)
	require.Equal(t, 1, fn.TotalMissed)
	require.Len(t, fn.Images, 1)
	require.Equal(t, int64(2), fn.Images[0].ImageID)
	require.Equal(t, 1, fn.Images[0].Missed)

	require.Len(t, summary.PerImage, 4)
	row := summary.PerImage[0]
	require.Equal(t, int64(1), row.ImageID)
	require.True(t, row.IsPositive)
	require.Equal(t, 1, row.Matched)
	require.InDelta(t, 0.9, row.MaxScore, 1e-6)
	require.False(t, summary.PerImage[3].IsPositive)
	require.Equal(t, 0, summary.PerImage[3].Detections)
}

func TestSummarySaveRoundTrip(t *testing.T) {
	ds := evalFixture(1, 1)
	summary, err := BuildSummary(ds, []Prediction{perfectPrediction(1)}, nil)
	require.NoError(t, err)

	filename := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, summary.Save(filename))

	raw, err := os.ReadFile(filename)
	require.NoError(t, err)
	loaded := Summary{}
	require.NoError(t, json.Unmarshal(raw, &loaded))
	require.Equal(t, summary.Metrics.PmF1, loaded.Metrics.PmF1)
	require.Len(t, loaded.PerImage, 2)
}
