/*
Package labels matches instances between a ground-truth and a predicted label volume.

A label volume is a 3d array of uint64 instance ids in (depth, height, width) order
where 0 is background.  The matching pipeline is:

	boxes := ComputeBoundingBoxes(gt, nil, BoxOptions{})   // per-instance extents
	result, err := MatchInstances(ctx, gt, pred, opts)    // best prediction per gt id + IoU
	table, err := BuildCorrespondence(result.Matches, IDs(result.Predicted))

Matching is greedy: each ground-truth instance takes the predicted instance with the
largest overlap, ties going to the smallest predicted id.  Two ground-truth instances
may claim the same prediction; such records are flagged Shared and the prediction is
listed in Table.Contested.

Per-instance scores for predictions come either from a precomputed table or from
averaging a per-voxel confidence heatmap, see ScoreSource.

None of these functions modify their input volumes.
*/
package labels
