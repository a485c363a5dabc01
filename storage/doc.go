/*
Package storage moves evaluation inputs and outputs between segeval and the places
they live: local files and cloud buckets addressed by URL, the binary label volume
format, Arrow IPC tables, Kafka topics and an in-memory result cache.
*/
package storage
