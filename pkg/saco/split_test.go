package saco

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func splitFixture(nPositive, nNegative int) *Dataset {
	ds := &Dataset{Categories: []Category{{ID: 1, Name: "chicken"}}}
	id := int64(1)
	annID := int64(1)
	for i := 0; i < nPositive+nNegative; i++ {
		ds.Images = append(ds.Images, Image{
			ID:                   id,
			FileName:             fmt.Sprintf("img%03d.jpg", i),
			TextInput:            "chicken",
			Height:               480,
			Width:                640,
			IsInstanceExhaustive: true,
		})
		if i < nPositive {
			ds.Annotations = append(ds.Annotations, Annotation{
				ID:           annID,
				ImageID:      id,
				CategoryID:   1,
				Segmentation: [][]float32{{10, 10, 100, 10, 100, 100, 10, 100}},
				BBox:         [4]float32{10, 10, 90, 90},
				Area:         8100,
			})
			annID++
		}
		id++
	}
	return ds
}

func TestSplitStratified(t *testing.T) {
	ds := splitFixture(80, 20)
	train, val := Split(ds, 0.2, 1)

	require.Len(t, train.Images, 80)
	require.Len(t, val.Images, 20)

	countPositives := func(d *Dataset) int {
		n := 0
		for imgID, anns := range d.AnnotationsByImage() {
			require.NotZero(t, imgID)
			if len(anns) > 0 {
				n++
			}
		}
		return n
	}
	// The positive:negative ratio survives in both halves, so both
	// halves contain negative examples.
	require.Equal(t, 64, countPositives(train))
	require.Equal(t, 16, countPositives(val))

	// Ids are reassigned from 1 in each half.
	for i, img := range train.Images {
		require.Equal(t, int64(i+1), img.ID)
	}
	for i, img := range val.Images {
		require.Equal(t, int64(i+1), img.ID)
	}

	// Annotations follow their images.
	imageIDs := map[int64]bool{}
	for _, img := range val.Images {
		imageIDs[img.ID] = true
	}
	for _, ann := range val.Annotations {
		require.True(t, imageIDs[ann.ImageID])
	}
}

func TestSplitDeterministic(t *testing.T) {
	ds := splitFixture(10, 5)
	_, val1 := Split(ds, 0.2, 7)
	_, val2 := Split(ds, 0.2, 7)
	require.Equal(t, val1, val2)
}

func TestSplitDoesNotMutateSource(t *testing.T) {
	ds := splitFixture(4, 2)
	before := len(ds.Images)
	Split(ds, 0.5, 3)
	require.Len(t, ds.Images, before)
	require.Equal(t, int64(1), ds.Images[0].ID)
}
