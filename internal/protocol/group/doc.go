// Package group is the per-group state machine: creation, proposals,
// commits, joining from a Welcome and persistence snapshots.
//
// A Group moves through epochs only by Commit (locally) or ApplyCommit
// (received). Both are all-or-nothing: every check runs against a copy and
// the group is swapped over only when all of them pass. A Group is not safe
// for concurrent use; callers serialize per group.
package group
