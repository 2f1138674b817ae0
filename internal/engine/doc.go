// Package engine runs the Kids Mode progression: screens, the point economy,
// reward unlocks and mystery-set rotation for one explorer.
//
// Every operation is applied to a working copy of the session, checked
// against the session invariants and written to the Store in one save before
// it becomes visible. Progression events are appended to the event log only
// after that save succeeds.
package engine
