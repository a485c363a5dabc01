package coco

import (
	"fmt"
	"time"

	"github.com/janelia-flyem/segeval/core"
	"github.com/janelia-flyem/segeval/labels"
)

// Prediction is one predicted instance track.  Segmentations has one entry per
// depth slice, nil where the instance is absent.
type Prediction struct {
	VideoID       int     `json:"video_id"`
	Score         float64 `json:"score"`
	CategoryID    int     `json:"category_id"`
	Segmentations []*RLE  `json:"segmentations"`
}

// Annotation is one ground-truth instance track.
type Annotation struct {
	ID            uint64 `json:"id"`
	VideoID       int    `json:"video_id"`
	CategoryID    int    `json:"category_id"`
	Segmentations []*RLE `json:"segmentations"`
	Areas         []int  `json:"areas"`
	Height        int    `json:"height"`
	Width         int    `json:"width"`
	Length        int    `json:"length"`
	IsCrowd       int    `json:"iscrowd"`
}

type Info struct {
	Description string `json:"description"`
	URL         string `json:"url"`
	Version     string `json:"version"`
	Year        int    `json:"year"`
	Contributor string `json:"contributor"`
	DateCreated string `json:"date_created"`
}

type License struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Video struct {
	ID           int      `json:"id"`
	Height       int      `json:"height"`
	Width        int      `json:"width"`
	Length       int      `json:"length"`
	DateCaptured string   `json:"date_captured"`
	FlickrURL    string   `json:"flickr_url"`
	CocoURL      string   `json:"coco_url"`
	FileNames    []string `json:"file_names"`
}

type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// Dataset is a ground-truth document.
type Dataset struct {
	Info        Info         `json:"info"`
	Licenses    []License    `json:"licenses"`
	Videos      []Video      `json:"videos"`
	Categories  []Category   `json:"categories"`
	Annotations []Annotation `json:"annotations"`
}

// Meta describes the dataset a volume comes from.
type Meta struct {
	Description   string
	Contributor   string
	Category      string
	Supercategory string
	VideoID       int
}

// DefaultMeta returns metadata for a single unnamed volume of a single class.
func DefaultMeta() Meta {
	return Meta{
		Description:   "segeval volume",
		Contributor:   "n.a",
		Category:      "instance",
		Supercategory: "object",
	}
}

// Convert produces the prediction list and ground-truth dataset for a matched
// pair of volumes.  Every table pair with a predicted id yields a prediction and
// every pair with a ground-truth id yields an annotation, both in table order.
// Predictions without a score get 0.
func Convert(gt, pred *labels.Volume, table *labels.Table, scores *labels.ScoreTable, meta Meta) ([]Prediction, *Dataset, error) {
	if gt == nil || pred == nil || table == nil {
		return nil, nil, fmt.Errorf("ground truth, prediction and correspondence table are required")
	}
	if gt.Shape() != pred.Shape() {
		return nil, nil, fmt.Errorf("ground truth %s, prediction %s: %w", gt.Shape(), pred.Shape(), labels.ErrShapeMismatch)
	}
	timedLog := core.NewTimeLog()
	shape := gt.Shape()

	var gtIDs, predIDs []uint64
	for _, p := range table.Pairs {
		if p.GT != 0 {
			gtIDs = append(gtIDs, p.GT)
		}
		if p.Pred != 0 {
			predIDs = append(predIDs, p.Pred)
		}
	}
	gtBoxes, err := labels.ComputeBoundingBoxes(gt, gtIDs, labels.BoxOptions{})
	if err != nil {
		return nil, nil, err
	}
	predBoxes, err := labels.ComputeBoundingBoxes(pred, predIDs, labels.BoxOptions{})
	if err != nil {
		return nil, nil, err
	}

	dataset := newDataset(shape, meta)
	predictions := make([]Prediction, 0, len(predBoxes))
	for _, box := range predBoxes {
		segs, _, err := encodeInstance(pred, box)
		if err != nil {
			return nil, nil, err
		}
		score, _ := scores.Score(box.ID)
		predictions = append(predictions, Prediction{
			VideoID:       meta.VideoID,
			Score:         score,
			CategoryID:    1,
			Segmentations: segs,
		})
	}
	for _, box := range gtBoxes {
		segs, areas, err := encodeInstance(gt, box)
		if err != nil {
			return nil, nil, err
		}
		dataset.Annotations = append(dataset.Annotations, Annotation{
			ID:            box.ID,
			VideoID:       meta.VideoID,
			CategoryID:    1,
			Segmentations: segs,
			Areas:         areas,
			Height:        shape[1],
			Width:         shape[2],
			Length:        shape[0],
		})
	}
	timedLog.Debugf("converted %d predicted and %d ground-truth instances to COCO", len(predictions), len(dataset.Annotations))
	return predictions, dataset, nil
}

func newDataset(shape labels.Shape, meta Meta) *Dataset {
	return &Dataset{
		Info: Info{
			Description: meta.Description,
			URL:         "n.a",
			Version:     core.Version.String(),
			Year:        time.Now().Year(),
			Contributor: meta.Contributor,
			DateCreated: time.Now().Format(time.RFC3339),
		},
		Licenses: []License{{ID: 1, Name: "n.a", URL: "n.a"}},
		Videos: []Video{{
			ID:           meta.VideoID,
			Height:       shape[1],
			Width:        shape[2],
			Length:       shape[0],
			DateCaptured: "n.a",
			FileNames:    []string{},
		}},
		Categories:  []Category{{ID: 1, Name: meta.Category, Supercategory: meta.Supercategory}},
		Annotations: []Annotation{},
	}
}

// encodeInstance returns per-slice masks and areas of one instance, visiting only
// the voxels within its bounding box.
func encodeInstance(vol *labels.Volume, box labels.BoundingBox) ([]*RLE, []int, error) {
	shape := vol.Shape()
	segs := make([]*RLE, shape[0])
	areas := make([]int, shape[0])
	if box.Empty() {
		return segs, areas, nil
	}
	h, w := shape[1], shape[2]
	mask := make([]uint8, h*w)
	for z := box.ZMin; z <= box.ZMax; z++ {
		var area int
		for y := box.YMin; y <= box.YMax; y++ {
			for x := box.XMin; x <= box.XMax; x++ {
				if vol.At(z, y, x) == box.ID {
					mask[y*w+x] = 1
					area++
				} else {
					mask[y*w+x] = 0
				}
			}
		}
		if area == 0 {
			continue
		}
		rle, err := EncodeRLE(mask, h, w)
		if err != nil {
			return nil, nil, err
		}
		segs[z] = &rle
		areas[z] = area
	}
	return segs, areas, nil
}
