package saco

import (
	"math/rand"
	"sort"
)

// Split divides the dataset into train and validation halves with
// stratified sampling: positives and negatives are split independently,
// so both halves keep the positive:negative ratio and both contain
// negative examples. Deterministic for a given seed. Each half is a new
// artifact with freshly assigned monotonic ids.
func Split(ds *Dataset, valFraction float64, seed int64) (train, val *Dataset) {
	rng := rand.New(rand.NewSource(seed))
	byImage := ds.AnnotationsByImage()

	positives := []int{}
	negatives := []int{}
	for i := range ds.Images {
		if len(byImage[ds.Images[i].ID]) > 0 {
			positives = append(positives, i)
		} else {
			negatives = append(negatives, i)
		}
	}

	trainIdx, valIdx := splitIndices(rng, positives, valFraction)
	trainNeg, valNeg := splitIndices(rng, negatives, valFraction)
	trainIdx = append(trainIdx, trainNeg...)
	valIdx = append(valIdx, valNeg...)
	sort.Ints(trainIdx)
	sort.Ints(valIdx)

	return subset(ds, trainIdx, byImage), subset(ds, valIdx, byImage)
}

func splitIndices(rng *rand.Rand, indices []int, valFraction float64) (train, val []int) {
	shuffled := append([]int{}, indices...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	nVal := int(float64(len(shuffled)) * valFraction)
	return shuffled[nVal:], shuffled[:nVal]
}

// subset builds a new dataset from the given image indices, renumbering
// image and annotation ids from 1 in source order.
func subset(ds *Dataset, imageIndices []int, byImage map[int64][]*Annotation) *Dataset {
	out := &Dataset{
		Images:      []Image{},
		Annotations: []Annotation{},
		Categories:  append([]Category{}, ds.Categories...),
	}
	nextImageID := int64(1)
	nextAnnotationID := int64(1)
	for _, idx := range imageIndices {
		img := ds.Images[idx]
		oldID := img.ID
		img.ID = nextImageID
		nextImageID++
		out.Images = append(out.Images, img)
		for _, ann := range byImage[oldID] {
			cp := *ann
			cp.ID = nextAnnotationID
			cp.ImageID = img.ID
			nextAnnotationID++
			out.Annotations = append(out.Annotations, cp)
		}
	}
	return out
}
