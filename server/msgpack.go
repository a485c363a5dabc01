package server

import (
	"github.com/janelia-flyem/segeval/labels"

	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg implements msgp.Marshaler.  Structs are encoded as maps keyed by
// their JSON field names.
func (z *MatchResponse) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 6)
	o = msgp.AppendString(o, "run_id")
	o = msgp.AppendString(o, z.RunID)
	o = msgp.AppendString(o, "cached")
	o = msgp.AppendBool(o, z.Cached)
	o = msgp.AppendString(o, "matches")
	o = msgp.AppendArrayHeader(o, uint32(len(z.Matches)))
	for i := range z.Matches {
		o = z.Matches[i].appendMsg(o)
	}
	o = msgp.AppendString(o, "correspondence")
	o = msgp.AppendArrayHeader(o, uint32(len(z.Correspondence)))
	for _, pair := range z.Correspondence {
		o = msgp.AppendArrayHeader(o, 2)
		o = msgp.AppendUint64(o, pair[0])
		o = msgp.AppendUint64(o, pair[1])
	}
	o = msgp.AppendString(o, "contested")
	o = msgp.AppendArrayHeader(o, uint32(len(z.Contested)))
	for _, id := range z.Contested {
		o = msgp.AppendUint64(o, id)
	}
	o = msgp.AppendString(o, "summary")
	o = appendSummary(o, z.Summary)
	return
}

func (z *MatchJSON) appendMsg(o []byte) []byte {
	o = msgp.AppendMapHeader(o, 7)
	o = msgp.AppendString(o, "gt_id")
	o = msgp.AppendUint64(o, z.GTID)
	o = msgp.AppendString(o, "pred_id")
	o = msgp.AppendUint64(o, z.PredID)
	o = msgp.AppendString(o, "gt_voxels")
	o = msgp.AppendUint64(o, z.GTVoxels)
	o = msgp.AppendString(o, "pred_voxels")
	o = msgp.AppendUint64(o, z.PredVoxels)
	o = msgp.AppendString(o, "iou")
	o = msgp.AppendFloat64(o, z.IoU)
	o = msgp.AppendString(o, "score")
	if z.Score == nil {
		o = msgp.AppendNil(o)
	} else {
		o = msgp.AppendFloat64(o, *z.Score)
	}
	o = msgp.AppendString(o, "shared")
	o = msgp.AppendBool(o, z.Shared)
	return o
}

func appendSummary(o []byte, s labels.Summary) []byte {
	o = msgp.AppendMapHeader(o, 7)
	o = msgp.AppendString(o, "ground_truth")
	o = msgp.AppendInt(o, s.GroundTruth)
	o = msgp.AppendString(o, "predicted")
	o = msgp.AppendInt(o, s.Predicted)
	o = msgp.AppendString(o, "matched")
	o = msgp.AppendInt(o, s.Matched)
	o = msgp.AppendString(o, "contested")
	o = msgp.AppendInt(o, s.Contested)
	o = msgp.AppendString(o, "mean_iou")
	o = msgp.AppendFloat64(o, s.MeanIoU)
	o = msgp.AppendString(o, "stddev_iou")
	o = msgp.AppendFloat64(o, s.StdDevIoU)
	o = msgp.AppendString(o, "thresholds")
	o = msgp.AppendArrayHeader(o, uint32(len(s.Thresholds)))
	for _, c := range s.Thresholds {
		o = msgp.AppendMapHeader(o, 7)
		o = msgp.AppendString(o, "threshold")
		o = msgp.AppendFloat64(o, c.Threshold)
		o = msgp.AppendString(o, "true_positives")
		o = msgp.AppendInt(o, c.TruePositives)
		o = msgp.AppendString(o, "false_negatives")
		o = msgp.AppendInt(o, c.FalseNegatives)
		o = msgp.AppendString(o, "false_positives")
		o = msgp.AppendInt(o, c.FalsePositives)
		o = msgp.AppendString(o, "precision")
		o = msgp.AppendFloat64(o, c.Precision)
		o = msgp.AppendString(o, "recall")
		o = msgp.AppendFloat64(o, c.Recall)
		o = msgp.AppendString(o, "f1")
		o = msgp.AppendFloat64(o, c.F1)
	}
	return o
}

// Msgsize returns an upper bound on the encoded size.
func (z *MatchResponse) Msgsize() (s int) {
	s = msgp.MapHeaderSize + 6*(msgp.StringPrefixSize+16)
	s += msgp.StringPrefixSize + len(z.RunID) + msgp.BoolSize
	s += msgp.ArrayHeaderSize + len(z.Matches)*(msgp.MapHeaderSize+7*(msgp.StringPrefixSize+12)+4*msgp.Uint64Size+2*msgp.Float64Size+msgp.BoolSize)
	s += msgp.ArrayHeaderSize + len(z.Correspondence)*(msgp.ArrayHeaderSize+2*msgp.Uint64Size)
	s += msgp.ArrayHeaderSize + len(z.Contested)*msgp.Uint64Size
	s += msgp.MapHeaderSize + 7*(msgp.StringPrefixSize+16) + 4*msgp.IntSize + 2*msgp.Float64Size
	s += msgp.ArrayHeaderSize + len(z.Summary.Thresholds)*(msgp.MapHeaderSize+7*(msgp.StringPrefixSize+16)+3*msgp.IntSize+4*msgp.Float64Size)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler.  Unknown fields are skipped.
func (z *MatchResponse) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var n uint32
	n, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	for ; n > 0; n-- {
		var field []byte
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return
		}
		switch msgp.UnsafeString(field) {
		case "run_id":
			z.RunID, bts, err = msgp.ReadStringBytes(bts)
		case "cached":
			z.Cached, bts, err = msgp.ReadBoolBytes(bts)
		case "matches":
			var sz uint32
			sz, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				return
			}
			z.Matches = make([]MatchJSON, sz)
			for i := range z.Matches {
				if bts, err = z.Matches[i].unmarshalMsg(bts); err != nil {
					return
				}
			}
		case "correspondence":
			var sz uint32
			sz, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				return
			}
			z.Correspondence = make([][2]uint64, sz)
			for i := range z.Correspondence {
				var pairSize uint32
				if pairSize, bts, err = msgp.ReadArrayHeaderBytes(bts); err != nil {
					return
				}
				if pairSize != 2 {
					err = msgp.ArrayError{Wanted: 2, Got: pairSize}
					return
				}
				if z.Correspondence[i][0], bts, err = msgp.ReadUint64Bytes(bts); err != nil {
					return
				}
				if z.Correspondence[i][1], bts, err = msgp.ReadUint64Bytes(bts); err != nil {
					return
				}
			}
		case "contested":
			var sz uint32
			sz, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				return
			}
			z.Contested = make([]uint64, sz)
			for i := range z.Contested {
				if z.Contested[i], bts, err = msgp.ReadUint64Bytes(bts); err != nil {
					return
				}
			}
		case "summary":
			bts, err = unmarshalSummary(&z.Summary, bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return
		}
	}
	o = bts
	return
}

func (z *MatchJSON) unmarshalMsg(bts []byte) (o []byte, err error) {
	var n uint32
	n, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	for ; n > 0; n-- {
		var field []byte
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return
		}
		switch msgp.UnsafeString(field) {
		case "gt_id":
			z.GTID, bts, err = msgp.ReadUint64Bytes(bts)
		case "pred_id":
			z.PredID, bts, err = msgp.ReadUint64Bytes(bts)
		case "gt_voxels":
			z.GTVoxels, bts, err = msgp.ReadUint64Bytes(bts)
		case "pred_voxels":
			z.PredVoxels, bts, err = msgp.ReadUint64Bytes(bts)
		case "iou":
			z.IoU, bts, err = msgp.ReadFloat64Bytes(bts)
		case "score":
			if msgp.IsNil(bts) {
				bts, err = msgp.ReadNilBytes(bts)
				z.Score = nil
			} else {
				var score float64
				score, bts, err = msgp.ReadFloat64Bytes(bts)
				z.Score = &score
			}
		case "shared":
			z.Shared, bts, err = msgp.ReadBoolBytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return
		}
	}
	o = bts
	return
}

func unmarshalSummary(s *labels.Summary, bts []byte) (o []byte, err error) {
	var n uint32
	n, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	for ; n > 0; n-- {
		var field []byte
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return
		}
		switch msgp.UnsafeString(field) {
		case "ground_truth":
			s.GroundTruth, bts, err = msgp.ReadIntBytes(bts)
		case "predicted":
			s.Predicted, bts, err = msgp.ReadIntBytes(bts)
		case "matched":
			s.Matched, bts, err = msgp.ReadIntBytes(bts)
		case "contested":
			s.Contested, bts, err = msgp.ReadIntBytes(bts)
		case "mean_iou":
			s.MeanIoU, bts, err = msgp.ReadFloat64Bytes(bts)
		case "stddev_iou":
			s.StdDevIoU, bts, err = msgp.ReadFloat64Bytes(bts)
		case "thresholds":
			var sz uint32
			sz, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				return
			}
			s.Thresholds = make([]labels.ThresholdCounts, sz)
			for i := range s.Thresholds {
				if bts, err = unmarshalThreshold(&s.Thresholds[i], bts); err != nil {
					return
				}
			}
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return
		}
	}
	o = bts
	return
}

func unmarshalThreshold(c *labels.ThresholdCounts, bts []byte) (o []byte, err error) {
	var n uint32
	n, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	for ; n > 0; n-- {
		var field []byte
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return
		}
		switch msgp.UnsafeString(field) {
		case "threshold":
			c.Threshold, bts, err = msgp.ReadFloat64Bytes(bts)
		case "true_positives":
			c.TruePositives, bts, err = msgp.ReadIntBytes(bts)
		case "false_negatives":
			c.FalseNegatives, bts, err = msgp.ReadIntBytes(bts)
		case "false_positives":
			c.FalsePositives, bts, err = msgp.ReadIntBytes(bts)
		case "precision":
			c.Precision, bts, err = msgp.ReadFloat64Bytes(bts)
		case "recall":
			c.Recall, bts, err = msgp.ReadFloat64Bytes(bts)
		case "f1":
			c.F1, bts, err = msgp.ReadFloat64Bytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return
		}
	}
	o = bts
	return
}
