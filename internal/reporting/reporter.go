// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter writes a finished audit result to an output.
type Reporter interface {
	// Write renders a single audit result.
	Write(result *schemas.AuditResult) error
	// Close finalizes the report and closes any underlying resources.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for the given format writing to outputPath
// ("" or "stdout" for standard output).
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	cleanup := func() {
		if !isStdOut {
			writer.Close()
		}
	}

	switch format {
	case "json":
		return &streamReporter{writer: writer, render: RenderJSON}, nil
	case "html":
		return &streamReporter{writer: writer, render: RenderHTML}, nil
	default:
		cleanup()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Render produces the report as a byte stream without touching the
// filesystem. Used by the HTTP report endpoint.
func Render(format string, result *schemas.AuditResult) ([]byte, error) {
	switch format {
	case "json":
		return RenderJSON(result)
	case "html":
		return RenderHTML(result)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// RenderJSON serializes the result in its canonical wire format.
func RenderJSON(result *schemas.AuditResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

// streamReporter renders one result into the owned writer on Write.
type streamReporter struct {
	writer io.WriteCloser
	render func(*schemas.AuditResult) ([]byte, error)
}

func (r *streamReporter) Write(result *schemas.AuditResult) error {
	data, err := r.render(result)
	if err != nil {
		return err
	}
	if _, err := r.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	_, err = io.WriteString(r.writer, "\n")
	return err
}

func (r *streamReporter) Close() error {
	return r.writer.Close()
}
