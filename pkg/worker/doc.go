/*
Package worker implements the worker agent: the process that sits next
to a render core, asks the scheduler for work, spawns the task binary,
and reports back.

An Agent is deliberately thin. It holds at most one child process at a
time and drives a three-state loop over a single transport.Client
connection: idle and asking for work, busy and heartbeating, or busy
and just-exited. Nothing about the task binary's own behavior is
interpreted beyond its exit code.
*/
package worker
