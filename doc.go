/*
Package segeval evaluates 3d instance segmentations by matching every labeled
instance of a ground-truth volume to the predicted instance it overlaps best.

Label volumes are dense (depth, height, width) arrays where 0 is background and
every positive value names one instance.  For each ground-truth instance, the
predicted labels inside its bounding box are counted and the one with the highest
intersection-over-union wins.  Predicted instances that win no ground-truth
instance are reported as false positives, and predictions claimed by more than one
ground-truth instance are flagged as contested.

# Packages

	core      logging, serialization, configuration helpers and command parsing
	labels    volumes, bounding boxes, instance matching, scores and summaries
	storage   volume codecs, cloud blob refs, Arrow tables, Kafka results and caching
	coco      COCO-style video documents with RLE masks
	server    HTTP API with JWT auth and msgpack or JSON responses
	cmd       the segeval command-line tool

# Standard commands

In the following documentation, the type of brackets designate
<required parameter> and [optional parameter].

	segeval match gt=<ref> pred=<ref> [scores=<ref> | heatmap=<ref> [channel=<n>]] [out=<prefix>]

Prints the matching summary and, given an output prefix, writes the match table
as Arrow along with COCO ground-truth and prediction documents.

	segeval bbox vol=<ref> [ids=<id>,...] [count=true]

Prints the bounding box of each instance.

	segeval convert src=<ref> dst=<ref> [compress=zstd] [heatmap=true]

Rewrites a stored volume with another compression.

	segeval serve [config=<toml>]

Runs the HTTP server.  POST /api/match and POST /api/bbox take JSON bodies whose
refs point to stored volumes; GET /api/server/info reports the configuration.

	segeval token user=<name> config=<toml>
	segeval version

Refs are local paths or blob URLs (file://, gs://, s3://, mem://).
*/
package segeval
