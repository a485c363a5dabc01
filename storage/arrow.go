package storage

import (
	"fmt"
	"io"

	"github.com/janelia-flyem/segeval/labels"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"
)

var scoreSchema = arrow.NewSchema([]arrow.Field{
	{Name: "pred_id", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "score", Type: arrow.PrimitiveTypes.Float64},
}, nil)

var matchSchema = arrow.NewSchema([]arrow.Field{
	{Name: "gt_id", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "pred_id", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "gt_voxels", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "pred_voxels", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "iou", Type: arrow.PrimitiveTypes.Float64},
	{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "shared", Type: arrow.FixedWidthTypes.Boolean},
}, nil)

// WriteScoreTable writes predicted id scores as an Arrow IPC stream.
func WriteScoreTable(w io.Writer, table *labels.ScoreTable) error {
	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, scoreSchema)
	defer b.Release()

	for _, entry := range table.Entries() {
		b.Field(0).(*array.Uint64Builder).Append(entry.ID)
		b.Field(1).(*array.Float64Builder).Append(entry.Score)
	}
	rec := b.NewRecord()
	defer rec.Release()
	return writeRecord(w, pool, scoreSchema, rec)
}

// ReadScoreTable reads an Arrow IPC stream with uint64 "pred_id" and float64
// "score" columns.  Other columns are ignored.
func ReadScoreTable(r io.Reader) (*labels.ScoreTable, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, err
	}
	defer rdr.Release()

	schema := rdr.Schema()
	idCols := schema.FieldIndices("pred_id")
	scoreCols := schema.FieldIndices("score")
	if len(idCols) != 1 || len(scoreCols) != 1 {
		return nil, fmt.Errorf("score table needs one pred_id and one score column, schema is %s", schema)
	}

	var ids []uint64
	var scores []float64
	for rdr.Next() {
		rec := rdr.Record()
		idArr, ok := rec.Column(idCols[0]).(*array.Uint64)
		if !ok {
			return nil, fmt.Errorf("pred_id column is %s, not uint64", rec.Column(idCols[0]).DataType())
		}
		scoreArr, ok := rec.Column(scoreCols[0]).(*array.Float64)
		if !ok {
			return nil, fmt.Errorf("score column is %s, not float64", rec.Column(scoreCols[0]).DataType())
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			if idArr.IsNull(i) || scoreArr.IsNull(i) {
				return nil, fmt.Errorf("score table row %d has null values", len(ids))
			}
			ids = append(ids, idArr.Value(i))
			scores = append(scores, scoreArr.Value(i))
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, err
	}
	return labels.NewScoreTable(ids, scores)
}

// WriteMatches writes one row per match record as an Arrow IPC stream.  The
// score column is null when there is no predicted match or no score for it.
func WriteMatches(w io.Writer, matches []labels.MatchRecord, scores *labels.ScoreTable) error {
	pool := memory.NewGoAllocator()
	b := array.NewRecordBuilder(pool, matchSchema)
	defer b.Release()

	gtIDs := b.Field(0).(*array.Uint64Builder)
	predIDs := b.Field(1).(*array.Uint64Builder)
	gtVoxels := b.Field(2).(*array.Uint64Builder)
	predVoxels := b.Field(3).(*array.Uint64Builder)
	ious := b.Field(4).(*array.Float64Builder)
	scoreCol := b.Field(5).(*array.Float64Builder)
	shared := b.Field(6).(*array.BooleanBuilder)
	for _, m := range matches {
		gtIDs.Append(m.GTID)
		predIDs.Append(m.PredID)
		gtVoxels.Append(m.GTCount)
		predVoxels.Append(m.PredCount)
		ious.Append(m.IoU)
		if score, found := scores.Score(m.PredID); found && m.PredID != 0 {
			scoreCol.Append(score)
		} else {
			scoreCol.AppendNull()
		}
		shared.Append(m.Shared)
	}
	rec := b.NewRecord()
	defer rec.Release()
	return writeRecord(w, pool, matchSchema, rec)
}

func writeRecord(w io.Writer, pool memory.Allocator, schema *arrow.Schema, rec arrow.Record) error {
	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("unable to write arrow record: %v", err)
	}
	return writer.Close()
}
