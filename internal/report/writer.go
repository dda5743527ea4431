package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/temirov/tokenwatch/internal/expiry"
	"github.com/temirov/tokenwatch/internal/utils"
)

const (
	reportFilePermissionsConstant      = 0o644
	reportDirectoryPermissionsConstant = 0o755
	reportPathRequiredMessageConstant  = "report path must be provided"
	reportWriterClosedMessageConstant  = "report writer already closed"
	reportCreateErrorTemplateConstant  = "unable to create report %s: %w"
	reportWriteErrorTemplateConstant   = "unable to write report %s: %w"
	reportRenderErrorTemplateConstant  = "unable to render report block for token %d: %w"
	reportReadErrorTemplateConstant    = "unable to read report %s: %w"
)

// ErrWriterClosed indicates a write after Close.
var ErrWriterClosed = errors.New(reportWriterClosedMessageConstant)

// FileWriter streams a report to disk. The destination is truncated when the writer is created
// and every header or block is synced as soon as it is written, so an interrupted run leaves a partial report.
type FileWriter struct {
	path       string
	file       *os.File
	output     *utils.DurableWriter
	renderer   *Renderer
	blockCount int
}

// NewFileWriter truncates or creates the report at reportPath, creating parent directories as needed.
func NewFileWriter(reportPath string, renderer *Renderer) (*FileWriter, error) {
	trimmedPath := strings.TrimSpace(reportPath)
	if len(trimmedPath) == 0 {
		return nil, errors.New(reportPathRequiredMessageConstant)
	}

	if renderer == nil {
		defaultRenderer, rendererError := NewRenderer()
		if rendererError != nil {
			return nil, rendererError
		}
		renderer = defaultRenderer
	}

	parentDirectory := filepath.Dir(trimmedPath)
	if mkdirError := os.MkdirAll(parentDirectory, reportDirectoryPermissionsConstant); mkdirError != nil {
		return nil, fmt.Errorf(reportCreateErrorTemplateConstant, trimmedPath, mkdirError)
	}

	reportFile, openError := os.OpenFile(trimmedPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, reportFilePermissionsConstant)
	if openError != nil {
		return nil, fmt.Errorf(reportCreateErrorTemplateConstant, trimmedPath, openError)
	}

	return &FileWriter{
		path:     trimmedPath,
		file:     reportFile,
		output:   utils.NewDurableWriter(reportFile),
		renderer: renderer,
	}, nil
}

// Path returns the report location.
func (writer *FileWriter) Path() string {
	return writer.path
}

// SyncedWrites returns how many fragments have been committed to disk.
func (writer *FileWriter) SyncedWrites() int {
	return writer.output.SyncCount()
}

// BlockCount returns the number of token blocks written so far.
func (writer *FileWriter) BlockCount() int {
	return writer.blockCount
}

// WriteHeader appends the report heading for a run performed at checkedAt.
func (writer *FileWriter) WriteHeader(checkedAt time.Time) error {
	renderedHeader, renderError := writer.renderer.RenderHeader(checkedAt)
	if renderError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, writer.path, renderError)
	}
	return writer.write(renderedHeader)
}

// WriteBlock appends the block describing one classified token.
func (writer *FileWriter) WriteBlock(classified expiry.ClassifiedToken) error {
	renderedBlock, renderError := writer.renderer.RenderBlock(classified)
	if renderError != nil {
		return fmt.Errorf(reportRenderErrorTemplateConstant, classified.Token.ID, renderError)
	}
	if writeError := writer.write(renderedBlock); writeError != nil {
		return writeError
	}
	writer.blockCount++
	return nil
}

// Close releases the report file handle. Closing twice is a no-op.
func (writer *FileWriter) Close() error {
	if writer == nil || writer.file == nil {
		return nil
	}
	closeError := writer.file.Close()
	writer.file = nil
	if closeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, writer.path, closeError)
	}
	return nil
}

func (writer *FileWriter) write(content string) error {
	if writer.file == nil {
		return ErrWriterClosed
	}
	if _, writeError := io.WriteString(writer.output, content); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, writer.path, writeError)
	}
	return nil
}

// ReadReport reads a finished report back for delivery.
func ReadReport(reportPath string) (string, error) {
	contents, readError := os.ReadFile(reportPath)
	if readError != nil {
		return "", fmt.Errorf(reportReadErrorTemplateConstant, reportPath, readError)
	}
	return string(contents), nil
}
