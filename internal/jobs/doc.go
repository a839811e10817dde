// Package jobs runs gait analyses off the request path.
//
// A submission saves the uploaded clip under the uploads directory, records
// a queued row in the Store and pushes the job ID onto a Queue. Workers pop
// IDs, run the Analyzer under a per-job timeout and write the outcome back:
// a result payload on success, an error message otherwise, never both.
// The upload is removed once the job finishes either way.
//
// Queues: MemoryQueue (single process) and RedisQueue (shared broker, list
// based). The Store is implemented in internal/gait/storage/sqlite.
package jobs
