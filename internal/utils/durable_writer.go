package utils

import (
	"fmt"
	"io"
)

const durableWriterSyncErrorTemplateConstant = "unable to sync written data: %w"

// Syncer commits written data to stable storage. *os.File implements it.
type Syncer interface {
	Sync() error
}

// DurableWriter passes every Write straight to its destination and then syncs the destination when it is a Syncer,
// so each accepted chunk survives a crash of the process that wrote it.
type DurableWriter struct {
	destination io.Writer
	syncer      Syncer
	syncCount   int
}

// NewDurableWriter wraps destination. Destinations that cannot sync are written through without syncing.
func NewDurableWriter(destination io.Writer) *DurableWriter {
	syncer, _ := destination.(Syncer)
	return &DurableWriter{destination: destination, syncer: syncer}
}

// Write writes data to the destination and syncs it. A sync failure is reported even though the bytes were written.
func (durableWriter *DurableWriter) Write(data []byte) (int, error) {
	bytesWritten, writeError := durableWriter.destination.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}
	if durableWriter.syncer == nil {
		return bytesWritten, nil
	}
	if syncError := durableWriter.syncer.Sync(); syncError != nil {
		return bytesWritten, fmt.Errorf(durableWriterSyncErrorTemplateConstant, syncError)
	}
	durableWriter.syncCount++
	return bytesWritten, nil
}

// SyncCount returns how many writes have been synced.
func (durableWriter *DurableWriter) SyncCount() int {
	return durableWriter.syncCount
}
