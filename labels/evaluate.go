package labels

import (
	"context"
)

// Evaluation is the complete comparison of a predicted volume against ground truth.
type Evaluation struct {
	Matches   []MatchRecord
	Predicted []IDCount
	Table     *Table
	Scores    *ScoreTable // nil if no score source was given
	Summary   Summary
}

// EvalOptions modify Evaluate.
type EvalOptions struct {
	MatchOptions

	// Thresholds are the IoU thresholds for detection counts.  DefaultThresholds
	// are used if empty.
	Thresholds []float64
}

// Evaluate matches instances, builds the correspondence table, scores predicted
// instances if a source is given, and summarizes the result.
func Evaluate(ctx context.Context, gt, pred *Volume, src ScoreSource, opts EvalOptions) (*Evaluation, error) {
	result, err := MatchInstances(ctx, gt, pred, opts.MatchOptions)
	if err != nil {
		return nil, err
	}
	table, err := BuildCorrespondence(result.Matches, IDs(result.Predicted))
	if err != nil {
		return nil, err
	}
	eval := &Evaluation{
		Matches:   result.Matches,
		Predicted: result.Predicted,
		Table:     table,
	}
	if src != nil {
		if eval.Scores, err = src.Scores(pred); err != nil {
			return nil, err
		}
	}
	eval.Summary = Summarize(result.Matches, table, opts.Thresholds)
	return eval, nil
}
