/*
Package core provides types, constants, and functions that have no other dependencies
within segeval and can be used by every other package.  This includes leveled logging,
serialization of byte payloads with optional compression and checksums, command string
handling, and a few helpers for sizes and paths.
*/
package core
