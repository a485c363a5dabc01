// Command-line interface for matching instances between ground-truth and predicted
// label volumes, either directly or through an HTTP server.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/janelia-flyem/segeval/coco"
	"github.com/janelia-flyem/segeval/core"
	"github.com/janelia-flyem/segeval/labels"
	"github.com/janelia-flyem/segeval/server"
	"github.com/janelia-flyem/segeval/storage"

	"github.com/joho/godotenv"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Number of logical CPUs to use.
	useCPU = flag.Int("numcpu", 0, "")

	// Send log messages to a rotating file instead of stderr.
	logfile = flag.String("logfile", "", "")
)

const helpMessage = `
segeval matches instances between ground-truth and predicted 3d label volumes

Usage: segeval [options] <command>

      -numcpu     =number   Number of logical CPUs to use.
      -logfile    =string   Send log messages to this file.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Volumes, heatmaps and score tables are given as refs: local paths or URLs like
gs://bucket/key, s3://bucket/key?region=us-east-2 or file:///dir/name.

Commands:

	match gt=<ref> pred=<ref> [scores=<ref> | heatmap=<ref> [channel=<n>]]
	      [thresholds=0.5,0.75] [out=<prefix>]

		Match every ground-truth instance to its best predicted instance and print
		a summary.  With out, writes <prefix>_matches.arrow, <prefix>_summary.json and
		COCO video documents <prefix>_gt.json and <prefix>_pred.json.  Scores is an
		Arrow table with pred_id and score columns.  Channel -1 averages all channels.

	bbox vol=<ref> [ids=<id>,<id>,...] [count=true]

		Print the bounding box of each instance.

	convert src=<ref> dst=<ref> [compress=none|snappy|zstd|gzip] [heatmap=true]

		Rewrite a label volume, or a heatmap, with the given compression.  Labels
		are stored with the smallest integer type holding the largest label.

	serve [config=<toml>]

		Run the HTTP server.  The config defaults to $SEGEVAL_CONFIG.

	token user=<name> [config=<toml>] [hours=<n>]

		Print a JWT for the user signed with the configured secret key.

	version

Defaults for SEGEVAL_CONFIG and SEGEVAL_NUMCPU may be set in a .env file.
`

var usage = func() {
	fmt.Print(helpMessage)
}

func main() {
	if err := godotenv.Load(); err == nil {
		core.Debugf("Loaded environment from .env\n")
	}

	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *runVerbose {
		core.Verbose = true
		core.SetLogMode(core.DebugMode)
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	if *logfile != "" {
		logConfig := core.LogConfig{Logfile: *logfile}
		logConfig.SetLogger()
	}

	if *useCPU != 0 {
		core.NumCPU = *useCPU
	} else if n, err := strconv.Atoi(os.Getenv("SEGEVAL_NUMCPU")); err == nil && n > 0 {
		core.NumCPU = n
	}
	runtime.GOMAXPROCS(core.NumCPU)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := core.Command(flag.Args())
	err := DoCommand(ctx, command)
	core.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// DoCommand serves as a switchboard for commands.
func DoCommand(ctx context.Context, cmd core.Command) error {
	if len(cmd) == 0 {
		return fmt.Errorf("blank command")
	}
	switch cmd.Name() {
	case "match":
		return DoMatch(ctx, cmd)
	case "bbox":
		return DoBoxes(ctx, cmd)
	case "convert":
		return DoConvert(ctx, cmd)
	case "serve":
		return DoServe(ctx, cmd)
	case "token":
		return DoToken(cmd)
	case "version":
		fmt.Printf("segeval %s (API %s)\n", core.Version, core.APIVersion())
		return nil
	default:
		return fmt.Errorf("unknown command %q; try 'segeval help'", cmd.Name())
	}
}

func requiredSetting(cmd core.Command, key string) (string, error) {
	value, found := cmd.Setting(key)
	if !found || value == "" {
		return "", fmt.Errorf("%s command requires %s=<ref>", cmd.Name(), key)
	}
	return value, nil
}

func parseThresholds(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	var thresholds []float64
	for _, part := range strings.Split(s, ",") {
		t, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || t < 0 || t > 1 {
			return nil, fmt.Errorf("bad IoU threshold %q", part)
		}
		thresholds = append(thresholds, t)
	}
	return thresholds, nil
}

func parseIDs(s string) ([]uint64, error) {
	if s == "" {
		return nil, nil
	}
	var ids []uint64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad label id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DoMatch performs the "match" command.
func DoMatch(ctx context.Context, cmd core.Command) error {
	gtRef, err := requiredSetting(cmd, "gt")
	if err != nil {
		return err
	}
	predRef, err := requiredSetting(cmd, "pred")
	if err != nil {
		return err
	}
	channel, err := cmd.IntSetting("channel", labels.AllChannels)
	if err != nil {
		return err
	}
	thresholdStr, _ := cmd.Setting("thresholds")
	thresholds, err := parseThresholds(thresholdStr)
	if err != nil {
		return err
	}

	timedLog := core.NewTimeLog()
	gt, err := storage.ReadLabels(ctx, gtRef)
	if err != nil {
		return err
	}
	pred, err := storage.ReadLabels(ctx, predRef)
	if err != nil {
		return err
	}
	var src labels.ScoreSource
	if scoresRef, found := cmd.Setting("scores"); found {
		data, err := storage.ReadAll(ctx, scoresRef)
		if err != nil {
			return err
		}
		table, err := storage.ReadScoreTable(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("score table %q: %v", scoresRef, err)
		}
		src = labels.DirectScores{Table: table}
	} else if heatmapRef, found := cmd.Setting("heatmap"); found {
		heatmap, err := storage.ReadHeatmap(ctx, heatmapRef)
		if err != nil {
			return err
		}
		src = labels.HeatmapScores{Heatmap: heatmap, Channel: channel}
	}
	timedLog.Debugf("loaded %s and %s (%s of labels)", gt, pred, core.MemSize(gt.Data()))

	opts := labels.EvalOptions{
		MatchOptions: labels.MatchOptions{Workers: core.NumCPU},
		Thresholds:   thresholds,
	}
	eval, err := labels.Evaluate(ctx, gt, pred, src, opts)
	if err != nil {
		return err
	}
	fmt.Println(eval.Summary)
	if len(eval.Table.Contested) != 0 {
		fmt.Printf("Predicted labels matched by more than one ground-truth label: %v\n", eval.Table.Contested)
	}

	prefix, found := cmd.Setting("out")
	if !found || prefix == "" {
		return nil
	}
	return writeOutputs(ctx, prefix, gt, pred, eval)
}

func writeOutputs(ctx context.Context, prefix string, gt, pred *labels.Volume, eval *labels.Evaluation) error {
	var buf bytes.Buffer
	if err := storage.WriteMatches(&buf, eval.Matches, eval.Scores); err != nil {
		return err
	}
	if err := storage.WriteAll(ctx, prefix+"_matches.arrow", buf.Bytes()); err != nil {
		return err
	}

	summary, err := json.MarshalIndent(eval.Summary, "", "  ")
	if err != nil {
		return err
	}
	if err := storage.WriteAll(ctx, prefix+"_summary.json", summary); err != nil {
		return err
	}

	preds, dataset, err := coco.Convert(gt, pred, eval.Table, eval.Scores, coco.DefaultMeta())
	if err != nil {
		return err
	}
	predJSON, err := json.Marshal(preds)
	if err != nil {
		return err
	}
	if err := coco.ValidatePredictions(predJSON); err != nil {
		return err
	}
	gtJSON, err := json.Marshal(dataset)
	if err != nil {
		return err
	}
	if err := coco.ValidateDataset(gtJSON); err != nil {
		return err
	}
	if err := storage.WriteAll(ctx, prefix+"_pred.json", predJSON); err != nil {
		return err
	}
	if err := storage.WriteAll(ctx, prefix+"_gt.json", gtJSON); err != nil {
		return err
	}
	fmt.Printf("Wrote matches, summary and COCO documents with prefix %s\n", prefix)
	return nil
}

// DoBoxes performs the "bbox" command.
func DoBoxes(ctx context.Context, cmd core.Command) error {
	volRef, err := requiredSetting(cmd, "vol")
	if err != nil {
		return err
	}
	idStr, _ := cmd.Setting("ids")
	ids, err := parseIDs(idStr)
	if err != nil {
		return err
	}
	count, err := cmd.BoolSetting("count")
	if err != nil {
		return err
	}
	vol, err := storage.ReadLabels(ctx, volRef)
	if err != nil {
		return err
	}
	boxes, err := labels.ComputeBoundingBoxes(vol, ids, labels.BoxOptions{Count: count})
	if err != nil {
		return err
	}
	for _, box := range boxes {
		switch {
		case box.Empty():
			fmt.Printf("label %d: not present\n", box.ID)
		case count:
			fmt.Printf("%s, %s voxels\n", box, core.Comma(int64(box.Count)))
		default:
			fmt.Println(box)
		}
	}
	return nil
}

// DoConvert performs the "convert" command.
func DoConvert(ctx context.Context, cmd core.Command) error {
	src, err := requiredSetting(cmd, "src")
	if err != nil {
		return err
	}
	dst, err := requiredSetting(cmd, "dst")
	if err != nil {
		return err
	}
	compressStr, _ := cmd.Setting("compress")
	compress, err := core.ParseCompression(compressStr)
	if err != nil {
		return err
	}
	isHeatmap, err := cmd.BoolSetting("heatmap")
	if err != nil {
		return err
	}
	timedLog := core.NewTimeLog()
	if isHeatmap {
		h, err := storage.ReadHeatmap(ctx, src)
		if err != nil {
			return err
		}
		if err := storage.WriteHeatmap(ctx, dst, h, compress); err != nil {
			return err
		}
	} else {
		vol, err := storage.ReadLabels(ctx, src)
		if err != nil {
			return err
		}
		if err := storage.WriteLabels(ctx, dst, vol, compress); err != nil {
			return err
		}
	}
	timedLog.Infof("converted %s to %s with %s compression", src, dst, compress)
	return nil
}

func configFile(cmd core.Command) string {
	if filename, found := cmd.Setting("config"); found {
		return filename
	}
	return os.Getenv("SEGEVAL_CONFIG")
}

// DoServe performs the "serve" command, running until interrupted.
func DoServe(ctx context.Context, cmd core.Command) error {
	config := server.DefaultConfig()
	if filename := configFile(cmd); filename != "" {
		var err error
		if config, err = server.LoadConfig(filename); err != nil {
			return err
		}
		if *logfile == "" {
			config.Logging.SetLogger()
		}
	}
	s, err := server.New(config)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Serve(ctx)
}

// DoToken performs the "token" command.
func DoToken(cmd core.Command) error {
	user, found := cmd.Setting("user")
	if !found || user == "" {
		return fmt.Errorf("token command requires user=<name>")
	}
	hours, err := cmd.IntSetting("hours", 0)
	if err != nil {
		return err
	}
	filename := configFile(cmd)
	if filename == "" {
		return fmt.Errorf("token command needs a config file with an [auth] secret_key")
	}
	config, err := server.LoadConfig(filename)
	if err != nil {
		return err
	}
	token, err := server.GenerateJWT(config.Auth.SecretKey, user, time.Duration(hours)*time.Hour)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
