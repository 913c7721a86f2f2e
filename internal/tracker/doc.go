// Package tracker replays Santa's route against the clock.
//
// The tracker holds two immutable lists, destinations ordered by departure
// and stream entries ordered by timestamp, and two cursors into them. On Load
// both cursors are placed by binary search for "now"; afterwards every Tick
// moves them forward:
//
//   - the destination cursor advances through visit/depart transitions
//     (Traveling -> Visiting when the current arrival passes, Visiting ->
//     Traveling when the current departure passes);
//   - the stream cursor appends every entry whose timestamp has passed.
//
// Together they build the feed, a chronological replay of departed
// destinations and stream entries that is published newest first.
//
// Before the first departure the tracker is NotStarted; after the last
// arrival it is Finished. Both boundaries are re-checked on every tick, so a
// tracker loaded early starts moving by itself.
package tracker
