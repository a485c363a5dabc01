/*
Package coco writes label volumes as COCO video instance segmentation documents so
results can be scored with YouTube-VIS style tools.  Each depth slice of a volume is
a video frame and each instance a track, with per-frame masks stored as compressed
run-length encodings identical to those of pycocotools.
*/
package coco
