package dataset

import "fmt"

// DefaultTrainSize is the number of leading examples used for training.
const DefaultTrainSize = 8

// Split partitions examples positionally: the first n train, the rest
// validate. Both halves must be non-empty. The returned slices are copies.
func Split(examples []Example, n int) (train, val []Example, err error) {
	if n <= 0 || n >= len(examples) {
		return nil, nil, fmt.Errorf("train size %d out of range for %d examples", n, len(examples))
	}
	train = append([]Example(nil), examples[:n]...)
	val = append([]Example(nil), examples[n:]...)
	return train, val, nil
}
