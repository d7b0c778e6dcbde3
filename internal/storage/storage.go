// Package storage owns the on-disk lifecycle of request artifacts and the
// file-based delivery targets used outside the chat bot.
//
// Every request gets a Namespace: one directory under the video working
// directory and one under the audio working directory, both named after the
// request ID. Removing a namespace removes everything the request produced.
package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNamespaceExists is returned when a request ID is already in use on disk.
	ErrNamespaceExists = errors.New("storage: namespace already exists")
	// ErrTransfer is returned when a gateway cannot read the source or write the result.
	ErrTransfer = errors.New("storage: transfer failed")
	// ErrS3NotConfigured is returned when S3 delivery is requested without a bucket.
	ErrS3NotConfigured = errors.New("S3 storage is not configured")
)

// CleanupWarning reports a temporary artifact that could not be removed.
// It is logged and never shown to the requester.
type CleanupWarning struct {
	Path string
	Err  error
}

func (w *CleanupWarning) Error() string {
	return fmt.Sprintf("cleanup %s: %v", w.Path, w.Err)
}

func (w *CleanupWarning) Unwrap() error {
	return w.Err
}
