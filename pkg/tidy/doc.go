// Package tidy provides the library API for organizing a directory into
// category folders and reverting those runs.
//
// Every organize run writes a change ledger artifact listing the folders it
// created and the files it moved, in the order it did so. Reverting replays
// that artifact backward and then deletes it.
//
// # Concurrency Safety
//
// Organize and Revert take an exclusive lock on the state directory for
// their whole duration. A second run against the same state directory fails
// fast with errclass.ErrLockConflict instead of waiting.
//
//   - Clients for DIFFERENT state directories are independent.
//
//   - Nothing stops another program from changing the organized directory
//     while a run is in progress; collisions it causes are reported per file.
//
// # Usage
//
//	client, err := tidy.Open(tidy.Options{})
//	defer client.Close()
//	res, err := client.Organize(ctx, tidy.OrganizeOptions{Path: "/home/me/Downloads"})
//	// later
//	client.Revert(ctx, tidy.RevertOptions{Artifact: res.Artifact})
package tidy
