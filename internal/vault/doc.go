// Package vault implements the codex storage engine.
//
// A vault is one container file holding a manifest plus the files of every
// project, each stored under the namespace prefix "{id}/". Every mutation
// builds a complete replacement container next to the original and commits
// it with a single rename, so readers observe either the old or the new
// vault and a failed mutation leaves the original untouched.
//
// Adding a project streams the source files straight into the replacement
// container, which means ingestion and commit are one transaction: no
// orphaned entries survive a failed add.
//
// A Vault handle assumes a single logical writer. The mutex it carries only
// guards the in-memory manifest pointer.
package vault
