package labels

import "errors"

var (
	// ErrShapeMismatch is returned when two volumes that must be voxel-aligned differ in shape.
	ErrShapeMismatch = errors.New("volume shapes do not match")

	// ErrInvalidLabel is returned when a label is negative.
	ErrInvalidLabel = errors.New("labels must be non-negative integers")

	// ErrInvalidChannel is returned when a heatmap channel index is inconsistent
	// with the heatmap's channel count.
	ErrInvalidChannel = errors.New("invalid heatmap channel")

	// ErrNoScores is returned when neither a score table nor a heatmap is supplied.
	ErrNoScores = errors.New("either a score table or a heatmap must be given")
)
