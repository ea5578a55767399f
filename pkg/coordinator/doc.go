/*
Package coordinator runs one admitted job's coordinator process and
reports its outcome back onto the scheduler's system channel.

A Runner is started once per job, on its own goroutine, by the
scheduler's admission loop. It never touches scheduler tables
directly — the only way a coordinator's exit reaches the scheduler is
by dialing back in as an ordinary transport.Client and sending
job_complete or job_terminate, exactly like a worker agent would. This
keeps every table mutation serialized through the scheduler's single
event loop, even though dozens of coordinator processes may be running
concurrently.
*/
package coordinator
