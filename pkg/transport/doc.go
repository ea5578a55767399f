/*
Package transport implements the identity-addressed, asynchronous
messaging layer that the scheduler, coordinator runner, and worker
agent exchange Envelopes over.

The defining property this layer has to preserve is that a reply does
not have to arrive in the same turn as the request that provoked it:
a worker's worker_available message may sit unanswered for an
arbitrary number of scheduler turns until a task is ready to assign to
it. A synchronous request/response RPC
cannot express that, so each side keeps a persistent connection open
and reads and writes it on its own schedule:

  - Server accepts many inbound connections (from coordinators and
    worker agents) and exposes a single channel of (identity,
    Envelope) pairs arriving on any of them. Sending back to one
    requires only the identity the message arrived under.
  - Client is the dial side used by a coordinator or worker agent to
    talk to the scheduler: it keeps one connection open and exposes
    a Send plus a Recv that blocks until a message arrives or its
    context is done.

Every message is framed as a 4-byte big-endian length prefix followed
by a msgpack-encoded types.Envelope, so a reader never has to guess
where one message ends and the next begins.
*/
package transport
