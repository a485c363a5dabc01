package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/janelia-flyem/segeval/core"
	"github.com/janelia-flyem/segeval/labels"
	"github.com/janelia-flyem/segeval/storage"

	"github.com/zenazn/goji/web"
	"golang.org/x/sync/errgroup"
)

// MatchRequest is the body of POST /api/match.  Volumes are storage refs.  Scores,
// if given, is an Arrow IPC score table and takes precedence over Heatmap.
// Cached results are keyed by the refs and the current version of each stored
// object, so rewriting an input invalidates its cached results.
type MatchRequest struct {
	GT         string    `json:"gt"`
	Pred       string    `json:"pred"`
	Scores     string    `json:"scores,omitempty"`
	Heatmap    string    `json:"heatmap,omitempty"`
	Channel    *int      `json:"channel,omitempty"`
	Thresholds []float64 `json:"thresholds,omitempty"`
}

func (req MatchRequest) channel() int {
	if req.Channel == nil {
		return labels.AllChannels
	}
	return *req.Channel
}

func (req MatchRequest) fingerprint(ctx context.Context) ([]byte, error) {
	thresholds := make([]string, len(req.Thresholds))
	for i, t := range req.Thresholds {
		thresholds[i] = strconv.FormatFloat(t, 'g', -1, 64)
	}
	parts := []string{strconv.Itoa(req.channel()), strings.Join(thresholds, ",")}
	for _, ref := range []string{req.GT, req.Pred, req.Scores, req.Heatmap} {
		if ref == "" {
			parts = append(parts, "", "")
			continue
		}
		version, err := storage.ObjectVersion(ctx, ref)
		if err != nil {
			return nil, err
		}
		parts = append(parts, ref, version)
	}
	return storage.Fingerprint(parts...), nil
}

// MatchJSON is one ground-truth instance and its best predicted match.
type MatchJSON struct {
	GTID       uint64   `json:"gt_id"`
	PredID     uint64   `json:"pred_id"`
	GTVoxels   uint64   `json:"gt_voxels"`
	PredVoxels uint64   `json:"pred_voxels"`
	IoU        float64  `json:"iou"`
	Score      *float64 `json:"score,omitempty"`
	Shared     bool     `json:"shared,omitempty"`
}

// MatchResponse is the result of POST /api/match.  Correspondence holds
// (ground truth, prediction) id pairs where 0 means no counterpart.
type MatchResponse struct {
	RunID          string         `json:"run_id"`
	Cached         bool           `json:"cached,omitempty"`
	Matches        []MatchJSON    `json:"matches"`
	Correspondence [][2]uint64    `json:"correspondence"`
	Contested      []uint64       `json:"contested"`
	Summary        labels.Summary `json:"summary"`
}

// NewMatchResponse converts an evaluation into its API form.
func NewMatchResponse(runID string, eval *labels.Evaluation) *MatchResponse {
	resp := &MatchResponse{
		RunID:          runID,
		Matches:        make([]MatchJSON, len(eval.Matches)),
		Correspondence: make([][2]uint64, len(eval.Table.Pairs)),
		Contested:      eval.Table.Contested,
		Summary:        eval.Summary,
	}
	if resp.Contested == nil {
		resp.Contested = []uint64{}
	}
	for i, m := range eval.Matches {
		resp.Matches[i] = MatchJSON{
			GTID:       m.GTID,
			PredID:     m.PredID,
			GTVoxels:   m.GTCount,
			PredVoxels: m.PredCount,
			IoU:        m.IoU,
			Shared:     m.Shared,
		}
		if score, found := eval.Scores.Score(m.PredID); found && m.PredID != 0 {
			resp.Matches[i].Score = &score
		}
	}
	for i, p := range eval.Table.Pairs {
		resp.Correspondence[i] = [2]uint64{p.GT, p.Pred}
	}
	return resp
}

// resultMessage is published to Kafka for every computed evaluation.
type resultMessage struct {
	RunID   string         `json:"run_id"`
	User    string         `json:"user,omitempty"`
	GT      string         `json:"gt"`
	Pred    string         `json:"pred"`
	Summary labels.Summary `json:"summary"`
}

func (s *Server) matchHandler(c web.C, w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := readRequest(r, validateMatchRequest, &req); err != nil {
		BadRequest(w, r, "bad match request: %v", err)
		return
	}
	key, err := req.fingerprint(r.Context())
	if err != nil {
		core.Debugf("not caching match request: %v\n", err)
		key = nil
	}
	if resp := s.cachedResponse(key); resp != nil {
		s.writeMatchResponse(w, r, resp)
		return
	}

	timedLog := core.NewTimeLog()
	runID := newRunID()
	ctx := r.Context()

	var gt, pred *labels.Volume
	var scoreTable *labels.ScoreTable
	var heatmap *labels.Heatmap
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		gt, err = storage.ReadLabels(gctx, req.GT)
		return
	})
	g.Go(func() (err error) {
		pred, err = storage.ReadLabels(gctx, req.Pred)
		return
	})
	switch {
	case req.Scores != "":
		g.Go(func() error {
			data, err := storage.ReadAll(gctx, req.Scores)
			if err != nil {
				return err
			}
			if scoreTable, err = storage.ReadScoreTable(bytes.NewReader(data)); err != nil {
				return fmt.Errorf("score table %q: %v", req.Scores, err)
			}
			return nil
		})
	case req.Heatmap != "":
		g.Go(func() (err error) {
			heatmap, err = storage.ReadHeatmap(gctx, req.Heatmap)
			return
		})
	}
	if err := g.Wait(); err != nil {
		BadRequest(w, r, "%v", err)
		return
	}

	var src labels.ScoreSource
	if scoreTable != nil || heatmap != nil {
		var err error
		if src, err = labels.ResolveScores(scoreTable, heatmap, req.channel()); err != nil {
			BadRequest(w, r, "%v", err)
			return
		}
	}
	opts := labels.EvalOptions{
		MatchOptions: labels.MatchOptions{Workers: s.config.Server.Workers},
		Thresholds:   req.Thresholds,
	}
	eval, err := labels.Evaluate(ctx, gt, pred, src, opts)
	if err != nil {
		httpError(w, r, errorStatus(err), "%v", err)
		return
	}
	resp := NewMatchResponse(runID, eval)

	if data, err := json.Marshal(resp); err == nil && key != nil {
		s.cache.Set(key, data)
	}
	user, _ := c.Env["user"].(string)
	msg := resultMessage{RunID: runID, User: user, GT: req.GT, Pred: req.Pred, Summary: eval.Summary}
	if err := s.publisher.Publish(runID, msg); err != nil {
		core.Errorf("unable to publish run %s: %v\n", runID, err)
	}
	timedLog.Infof("HTTP %s: run %s matched %s against %s", r.Method, runID, req.Pred, req.GT)
	s.writeMatchResponse(w, r, resp)
}

// cachedResponse returns the cached response for the key or nil.
func (s *Server) cachedResponse(key []byte) *MatchResponse {
	if key == nil {
		return nil
	}
	data, found := s.cache.Get(key)
	if !found {
		return nil
	}
	var resp MatchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil
	}
	resp.Cached = true
	return &resp
}

func (s *Server) writeMatchResponse(w http.ResponseWriter, r *http.Request, resp *MatchResponse) {
	if !wantsMsgpack(r) {
		writeJSON(w, r, resp)
		return
	}
	data, err := resp.MarshalMsg(nil)
	if err != nil {
		httpError(w, r, http.StatusInternalServerError, "unable to encode msgpack response: %v", err)
		return
	}
	w.Header().Set("Content-Type", msgpackMIME)
	w.Write(data)
}
