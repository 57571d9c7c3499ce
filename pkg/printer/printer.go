// Copyright 2026 The vendorize Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package printer defines utilities to display vendorize CLI output.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Printer defines capabilities to display content in the vendorize CLI.
// Progress and diagnostics go to the error stream; the out stream is
// reserved for reports meant to be consumed by the operator or scripts.
type Printer interface {
	PrintPart(name string, index, total int)
	Printf(format string, args ...interface{})
	OptPrintf(opt *Options, format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	OutStream() io.Writer
	ErrStream() io.Writer
}

// Options are optional options for printer
type Options struct {
	// Part is the name of the manifest part the message is about.
	Part string
}

// NewOpt returns a pointer to new options
func NewOpt() *Options {
	return &Options{}
}

// PartName sets the part name in options
func (opt *Options) PartName(name string) *Options {
	opt.Part = name
	return opt
}

// New returns an instance of Printer logging at info level.
func New(outStream, errStream io.Writer) Printer {
	return NewWithLevel(outStream, errStream, log.InfoLevel)
}

// NewWithLevel returns an instance of Printer whose leveled messages are
// filtered at level.
func NewWithLevel(outStream, errStream io.Writer, level log.Level) Printer {
	if outStream == nil {
		outStream = os.Stdout
	}
	if errStream == nil {
		errStream = os.Stderr
	}
	return &printer{
		outStream: outStream,
		errStream: errStream,
		logger: log.NewWithOptions(errStream, log.Options{
			ReportTimestamp: level == log.DebugLevel,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// printer implements default Printer to be used in vendorize codebase.
type printer struct {
	outStream io.Writer
	errStream io.Writer
	logger    *log.Logger
}

// The key type is unexported to prevent collisions with context keys defined in
// other packages.
type contextKey int

// printerKey is the context key for the printer.  Its value of zero is
// arbitrary.  If this package defined other context keys, they would have
// different integer values.
const printerKey contextKey = 0

// OutStream returns the StdOut stream, this can be used by callers to print
// command output to stdout, do not print error/debug logs to this stream
func (pr *printer) OutStream() io.Writer {
	return pr.outStream
}

// ErrStream returns the StdErr stream, this can be used by callers to print
// command output to stderr, print only error/debug/info logs to this stream
func (pr *printer) ErrStream() io.Writer {
	return pr.errStream
}

// PrintPart prints a progress line for the part being processed.
func (pr *printer) PrintPart(name string, index, total int) {
	fmt.Fprintf(pr.errStream, "[%d/%d] Processing part %q\n", index, total, name)
}

// Printf is the wrapper over fmt.Printf that displays the output.
// this will print messages to stderr stream
func (pr *printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(pr.errStream, format, args...)
}

// OptPrintf is the wrapper over fmt.Printf that displays the output according
// to the opt, this will print messages to stderr stream
func (pr *printer) OptPrintf(opt *Options, format string, args ...interface{}) {
	if opt != nil && opt.Part != "" {
		format = fmt.Sprintf("Part %q: ", opt.Part) + format
	}
	fmt.Fprintf(pr.errStream, format, args...)
}

// Debugf logs a message that is only visible with --debug.
func (pr *printer) Debugf(format string, args ...interface{}) {
	pr.logger.Debugf(format, args...)
}

// Warnf logs a warning.
func (pr *printer) Warnf(format string, args ...interface{}) {
	pr.logger.Warnf(format, args...)
}

// Helper functions to set and retrieve printer instance from a context.
// Defining them here avoids the context key collision.

// FromContextOrDie returns printer instance associated with the context.
func FromContextOrDie(ctx context.Context) Printer {
	pr, ok := ctx.Value(printerKey).(Printer)
	if ok {
		return pr
	}
	panic("printer missing in context")
}

// WithContext creates new context from the given parent context
// by setting the printer instance.
func WithContext(ctx context.Context, pr Printer) context.Context {
	return context.WithValue(ctx, printerKey, pr)
}
