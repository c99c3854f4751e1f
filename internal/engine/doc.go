// Package engine keeps score sheets in step with their raw price and volume
// sheets without recomputing finalized history.
//
// An update run does three things for one metric sheet:
//
//   - rows are ensured for every entity in the raw sheet,
//   - entities that are new to the sheet get every existing column backfilled,
//   - dates past the sheet's last column are appended and computed for all rows.
//
// Cells are write-once. A cell that cannot be computed stays empty and is
// retried on the next run. Rebuild recomputes a sheet from scratch and is only
// meant for manual maintenance.
package engine
