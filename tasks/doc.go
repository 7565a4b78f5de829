// Package tasks provides asynchronous task scheduling with polling,
// cancellation and retention-based cleanup.
//
// The Scheduler runs submitted work on a worker pool and tracks each
// task through pending, processing and the terminal statuses completed,
// failed and cancelled. Terminal statuses are final: a cancelled task
// whose function later returns stays cancelled. Terminal tasks are
// removed after a retention period, either by calling Reap directly or
// by configuring a cron reaper schedule.
package tasks
