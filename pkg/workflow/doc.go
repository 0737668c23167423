/*
Package workflow runs the per-file documentation workflow against the isolated store.

	Created ──► Validated ──► BackedUp ──► Generating ──► Committing ──► Cleanup ──► Completed
	   │            │             │            │              │
	   └────────────┴─────────────┴────────────┴──────────────┴──────► Failed ──► RolledBack

🎯 Purpose:
- Validates preconditions before anything is touched
- Resolves conflicts with existing documentation (overwrite, skip, backup-then-overwrite)
- Takes a restore point (tag + stash snapshot) in the isolated repository
- Generates artifacts and optionally commits them
- Rolls back on generation or commit failure; a failed rollback is unrecoverable

🔄 Components:

	+--------------+     +-------------+     +---------------+
	| Orchestrator |────►|  Validator  |     | BackupManager |
	+------+-------+     +-------------+     +-------+-------+
	       │                                         ▲
	       └──────────────►+-----------+─────────────┘
	                       | Executor  |
	                       +-----------+

🔍 Example:

	o, err := workflow.New(workflow.Options{
		Backend:   backend,
		Generator: gen,
		Resolver:  resolver,
		Docs:      docs,
	})
	if err != nil {
		return err
	}
	res := o.Run(ctx, "src/models.py")
	if res.Unrecoverable() {
		return res.Err()
	}
*/
package workflow
