// Package upload implements the upload lifecycle of a single file.
//
// The Workflow puts the file into a container, waits until the provider
// reports the blob as existing and then until its content length is known,
// reads it back, prints its metadata and finally deletes the container.
// Every remote call is issued through storage.AsyncBlobStore and awaited
// before the next one starts.
//
// Container deletion is best effort: a failure is reported on the error
// writer and logged, but UploadFile still succeeds. Cleanup releases the
// storage context and must be called once the workflow is no longer needed,
// whether UploadFile succeeded or not.
package upload
