package redis

// Redis key naming. All keys are prefixed with "jobs:" to avoid
// collisions with the reservation counters.

const keyPrefix = "jobs:"

// jobKey returns the Hash key for a job record: jobs:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// queueKey returns the List key holding a type's FIFO ready list:
// jobs:queue:{type}
func queueKey(jobType string) string { return keyPrefix + "queue:" + jobType }

// eventsChannel carries job transition events for out-of-process
// observers.
const eventsChannel = keyPrefix + "events"
