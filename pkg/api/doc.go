/*
Package api implements the two front-ends onto the scheduler's API
channel: a cobra CLI (schedulerctl) and a plain net/http JSON bridge.
Neither holds state between requests — each call dials a fresh
transport.Client, sends one Envelope, and prints or serves whatever
comes back.
*/
package api
