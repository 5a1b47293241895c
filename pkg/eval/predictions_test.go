package eval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadPredictions(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "preds.json")
	raw := `[
		{"image_id": 1, "score": 0.9, "instances": [{"polygon": [0,0, 10,0, 10,10, 0,10], "score": 0.8}]},
		{"image_id": 2, "score": 0.1, "instances": []}
	]`
	require.NoError(t, os.WriteFile(filename, []byte(raw), 0644))

	preds, err := LoadPredictions(filename)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	require.Equal(t, int64(1), preds[0].ImageID)
	require.Len(t, preds[0].Instances, 1)
	require.Len(t, preds[0].Instances[0].Poly(), 4)

	_, err = LoadPredictions(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestPredictionsByImageMerge(t *testing.T) {
	preds := []Prediction{
		{ImageID: 1, Score: 0.3, Instances: []Instance{boxInstance(0, 0, 10, 10, 0.3)}},
		{ImageID: 1, Score: 0.8, Instances: []Instance{boxInstance(20, 0, 10, 10, 0.8)}},
		{ImageID: 2, Score: 0.5},
	}
	byImage := PredictionsByImage(preds)
	require.Len(t, byImage, 2)
	require.Equal(t, float32(0.8), byImage[1].Score)
	require.Len(t, byImage[1].Instances, 2)
	require.Empty(t, byImage[2].Instances)
}
