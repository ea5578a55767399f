/*
Package types defines the message envelope and the Job/Task/Worker/Slot
entities shared by the scheduler core, the coordinator runner, the
worker agent and the API bridge.

# Architecture

Every cross-process interaction in this system is one typed message:
a MessageType plus a string-keyed payload (Envelope). This package
defines the closed set of message types, the entities those messages
carry state for, and their legal state transitions.

Core types:

  - Envelope: the wire-level (type, payload) pair
  - MessageType: closed enum of every message the system exchanges
  - Job, JobState: a queued/admitted rendering job and its lifecycle
  - Task, TaskState: one worker's participation in a job
  - Worker: a registered worker node, identified by its transport address
  - Slot, SlotPool: a coordinator host/port reservation and its LIFO pool

State transitions are enforced by methods on Job/Task (MarkQueued,
MarkRunning, ...) rather than by direct field assignment elsewhere in
the codebase, so illegal transitions panic at the point of the bug
instead of corrupting a table silently.
*/
package types
