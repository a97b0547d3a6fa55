// Package jobapi is the typed client for the backend Job API.
//
// The backend owns the pipeline; this client only reads job records and
// triggers remote operations (download, transcription chain, publish, stage
// reset/retry). Transient failures are retried with exponential backoff;
// structured backend errors are classified into the services error taxonomy
// so callers can tell a missing job from a rejected operation.
package jobapi
