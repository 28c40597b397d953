package pipeline

import (
	"math/rand"

	"github.com/rotisserie/eris"
)

// SplitIndices partitions row indices into train and test sets, stratified
// by class so both partitions keep the original class proportions. The
// shuffle is seeded; the same seed and targets always produce the same
// partition.
func SplitIndices(y []float64, testFraction float64, seed int64) (train, test []int, err error) {
	if len(y) == 0 {
		return nil, nil, eris.New("split: no rows")
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, eris.Errorf("split: test fraction %v outside (0,1)", testFraction)
	}

	rng := rand.New(rand.NewSource(seed))

	var pos, neg []int
	for i, v := range y {
		if v == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}

	for _, class := range [][]int{neg, pos} {
		idx := append([]int(nil), class...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		cut := int(float64(len(idx)) * testFraction)
		test = append(test, idx[:cut]...)
		train = append(train, idx[cut:]...)
	}

	if len(train) == 0 || len(test) == 0 {
		return nil, nil, eris.Errorf("split: degenerate partition (%d train, %d test)", len(train), len(test))
	}
	return train, test, nil
}
