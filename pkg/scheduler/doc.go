/*
Package scheduler is the control plane: it owns every queue and table
in the system and runs the single event loop that mutates them.

A Scheduler binds two transport.Servers — an API channel for
end-user requests and a system channel for workers and coordinator
runners — and processes every message from both exclusively inside
Run's goroutine. No table is ever read or written from anywhere else,
which is what lets the rest of the package get away with zero locking:
admission, assignment, termination and reaping are all plain
sequential code.

The only exception is Snapshot, a cheap read-only copy of table sizes
refreshed once per loop iteration and guarded by a small mutex solely
so MetricsCollector can poll it from its own goroutine without
touching the tables themselves.
*/
package scheduler
