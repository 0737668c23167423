/*
Package batch documents many files in one run.

	inputs ──► Plan ──► candidates (sorted, unique, not ignored)
	                        │
	                        ▼
	              ValidateBatch (shared checks once)
	                        │
	        ┌───────────────┼───────────────┐
	        ▼               ▼               ▼
	   Orchestrator    Orchestrator    Orchestrator     one file at a time
	        │               │               │
	        └──► Tracker ───┴──► Aggregator ┘──► Summary

🎯 Purpose:
- Expands files and directories into candidates, pruning ignored directories and the store
- Runs one workflow per candidate in sorted order; a failure never stops the batch
- Stops after an unrecoverable failure, leaving the rest unprocessed
- Reports progress to a Listener and totals in a Summary
*/
package batch
