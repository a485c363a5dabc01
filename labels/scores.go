package labels

import (
	"fmt"
	"sort"

	"github.com/janelia-flyem/segeval/core"
)

// AllChannels selects the mean over all heatmap channels.
const AllChannels = -1

// IDScore is a predicted id and its confidence.
type IDScore struct {
	ID    uint64
	Score float64
}

// ScoreTable maps predicted ids to a confidence.  Entries are sorted by id.
type ScoreTable struct {
	entries []IDScore
}

// NewScoreTable returns a table from parallel id and score slices.  Ids must be
// positive and unique but need not be sorted.
func NewScoreTable(ids []uint64, scores []float64) (*ScoreTable, error) {
	if len(ids) != len(scores) {
		return nil, fmt.Errorf("score table has %d ids but %d scores", len(ids), len(scores))
	}
	entries := make([]IDScore, len(ids))
	for i, id := range ids {
		if id == 0 {
			return nil, fmt.Errorf("score table entry %d has id 0", i)
		}
		entries[i] = IDScore{ID: id, Score: scores[i]}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	for i := 1; i < len(entries); i++ {
		if entries[i].ID == entries[i-1].ID {
			return nil, fmt.Errorf("score table has duplicate id %d", entries[i].ID)
		}
	}
	return &ScoreTable{entries: entries}, nil
}

// Score returns the confidence for a predicted id.
func (t *ScoreTable) Score(id uint64) (float64, bool) {
	if t == nil {
		return 0, false
	}
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].ID >= id })
	if i < len(t.entries) && t.entries[i].ID == id {
		return t.entries[i].Score, true
	}
	return 0, false
}

// Len returns the number of scored ids.
func (t *ScoreTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the scores in ascending id order.
func (t *ScoreTable) Entries() []IDScore {
	return t.entries
}

// ScoreSource derives a confidence for every predicted instance.
type ScoreSource interface {
	Scores(pred *Volume) (*ScoreTable, error)
}

// DirectScores is a ScoreSource using precomputed scores.  Predicted ids missing
// from the table score 0.
type DirectScores struct {
	Table *ScoreTable
}

// Scores returns a table covering exactly the positive ids in pred.
func (d DirectScores) Scores(pred *Volume) (*ScoreTable, error) {
	tally := Tally(pred)
	entries := make([]IDScore, len(tally))
	var missing int
	for i, tc := range tally {
		score, found := d.Table.Score(tc.ID)
		if !found {
			missing++
		}
		entries[i] = IDScore{ID: tc.ID, Score: score}
	}
	if missing > 0 {
		core.Warningf("%d of %d predicted labels have no score and were given 0\n", missing, len(tally))
	}
	return &ScoreTable{entries: entries}, nil
}

// HeatmapScores is a ScoreSource averaging a confidence heatmap over each instance.
type HeatmapScores struct {
	Heatmap *Heatmap
	Channel int // channel index or AllChannels
}

// Scores returns the mean heatmap value of every positive id in pred.
func (h HeatmapScores) Scores(pred *Volume) (*ScoreTable, error) {
	return AggregateScores(pred, h.Heatmap, h.Channel)
}

// ResolveScores picks a ScoreSource based on which input is given.  A score table
// takes precedence over a heatmap.
func ResolveScores(table *ScoreTable, heatmap *Heatmap, channel int) (ScoreSource, error) {
	switch {
	case table != nil:
		return DirectScores{Table: table}, nil
	case heatmap != nil:
		return HeatmapScores{Heatmap: heatmap, Channel: channel}, nil
	default:
		return nil, ErrNoScores
	}
}

// AggregateScores returns the mean confidence over the voxels of each positive id
// in pred.  If the heatmap has channels, channel selects one of them or, with
// AllChannels, channels are averaged first.
func AggregateScores(pred *Volume, heatmap *Heatmap, channel int) (*ScoreTable, error) {
	if pred == nil || heatmap == nil {
		return nil, fmt.Errorf("both a predicted volume and a heatmap are required")
	}
	if heatmap.shape != pred.shape {
		return nil, fmt.Errorf("prediction %s, heatmap %s: %w", pred.shape, heatmap.shape, ErrShapeMismatch)
	}
	value, err := heatmapValues(heatmap, channel)
	if err != nil {
		return nil, err
	}

	ix := newIDIndex(IDs(Tally(pred)))
	sums := make([]float64, ix.len())
	counts := make([]uint64, ix.len())
	for i, label := range pred.data {
		if label == 0 {
			continue
		}
		slot := ix.slot(label)
		sums[slot] += value(i)
		counts[slot]++
	}

	entries := make([]IDScore, 0, ix.len())
	for slot, id := range ix.ids {
		if counts[slot] == 0 {
			continue
		}
		entries = append(entries, IDScore{ID: id, Score: sums[slot] / float64(counts[slot])})
	}
	return &ScoreTable{entries: entries}, nil
}

// heatmapValues returns a function giving the confidence at a voxel index for
// the requested channel.
func heatmapValues(h *Heatmap, channel int) (func(i int) float64, error) {
	if channel < AllChannels {
		return nil, fmt.Errorf("channel %d: %w", channel, ErrInvalidChannel)
	}
	if h.channels == 0 {
		if channel > 0 {
			return nil, fmt.Errorf("channel %d requested from heatmap without channels: %w", channel, ErrInvalidChannel)
		}
		return func(i int) float64 { return float64(h.data[i]) }, nil
	}
	if channel >= h.channels {
		return nil, fmt.Errorf("channel %d requested from heatmap with %d channels: %w", channel, h.channels, ErrInvalidChannel)
	}
	n := h.shape.NumVoxels()
	if channel != AllChannels {
		chdata := h.data[channel*n : (channel+1)*n]
		return func(i int) float64 { return float64(chdata[i]) }, nil
	}
	numChannels := float64(h.channels)
	return func(i int) float64 {
		var sum float64
		for c := 0; c < h.channels; c++ {
			sum += float64(h.data[c*n+i])
		}
		return sum / numChannels
	}, nil
}
