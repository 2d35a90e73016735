// Package commands defines the grove CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init            Create the local identity
//   - fingerprint     Print the identity fingerprint
//   - key-package     Generate key packages for others to add you with
//   - create-group    Create a group and welcome its first members
//   - join            Join a group from a Welcome and a ratchet tree
//   - export-tree     Write a group's ratchet tree for joiners
//   - check-group-id  Confirm a group is stored locally
//   - show            Print a group's epoch and roster
//   - add, remove     Propose membership changes
//   - update          Propose a fresh leaf key
//   - leave           Ask the group to remove you
//   - commit          Commit pending and inline proposals
//   - apply           Process received proposals and commits
//
// # Implementation
//
// Messages travel as files: every command that produces something for other
// members writes wire-encoded messages to --out, and apply/join read them
// back. Delivery between members is up to the user.
package commands
