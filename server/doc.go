/*
Package server provides an HTTP API for instance matching.  Volumes are referenced
by storage refs (local paths or bucket URLs) so requests stay small.

	GET  /api/server/info   version, workers, uptime and cache statistics
	POST /api/match         match a ground-truth and predicted volume
	POST /api/bbox          bounding boxes of instances in a volume

Configuration is read from a TOML file; see LoadConfig.
*/
package server
