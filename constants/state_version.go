package constants

// LatestStateVersion is the current version of the state file format.
//
// Version History:
//   - Version 0: single-stream legacy layout, bookmark value stored as a bare value
//   - Version 1: current; bookmarks keyed by stream name holding replication_key and replication_key_value
const (
	LatestStateVersion = 1
)

// Used as the current version of the state when the program is running
var LoadedStateVersion = LatestStateVersion
