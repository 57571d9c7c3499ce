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

// Package errors defines the error handling used by the vendorize codebase.
package errors

import (
	goerrors "errors"
	"fmt"
	"strings"

	"github.com/vendorize/vendorize/internal/types"
)

// Error is an implementation of the error interface used in the vendorize
// codebase.
// It is based on the design in https://commandcenter.blogspot.com/2017/12/error-handling-in-upspin.html
type Error struct {
	// Path is the path of the file or directory involved in the operation.
	Path types.UniquePath

	// Op is the operation being performed, for ex. source.Classify
	Op Op

	// Kind refers to class of errors
	Kind Kind

	// Err refers to wrapped error (if any)
	Err error
}

func (e *Error) Error() string {
	b := new(strings.Builder)

	if e.Op != "" {
		pad(b, ": ")
		b.WriteString(string(e.Op))
	}

	if e.Path != "" {
		pad(b, ": ")
		b.WriteString("path ")
		b.WriteString(string(e.Path))
	}

	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}

	if e.Err != nil {
		if wrappedErr, ok := e.Err.(*Error); ok {
			if !wrappedErr.Zero() {
				pad(b, ":\n\t")
				b.WriteString(wrappedErr.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// pad appends given str to the string buffer.
func pad(b *strings.Builder, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Zero() bool {
	return e.Op == "" && e.Path == "" && e.Kind == 0 && e.Err == nil
}

// Op describes the operation being performed.
type Op string

// Kind describes the class of errors encountered.
type Kind int

const (
	Other                        Kind = iota // Unclassified. Will not be printed.
	Exist                                    // Item already exists.
	Internal                                 // Internal error.
	InvalidParam                             // Value is not valid.
	MissingParam                             // Required value is missing or empty.
	IO                                       // Filesystem errors.
	Git                                      // Errors from Git
	ManifestNotFound                         // No snapcraft.yaml in the project.
	UnknownSourceKind                        // Source string has no recognized shape.
	UnsupportedPluginKind                    // Part plugin has no vendoring support.
	PathTraversal                            // Archive entry escapes the destination.
	Extraction                               // Archive could not be read.
	MissingIdentity                          // No commit author name or email.
	DependencyResolution                     // Plugin dependencies could not be resolved.
	UnsupportedExternalReference             // Remote file that cannot be vendored.
	DisallowedHost                           // Host is not in the allow-list.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Exist:
		return "item already exist"
	case Internal:
		return "internal error"
	case InvalidParam:
		return "invalid parameter value"
	case MissingParam:
		return "missing parameter value"
	case IO:
		return "IO error"
	case Git:
		return "git error"
	case ManifestNotFound:
		return "manifest not found"
	case UnknownSourceKind:
		return "unknown source kind"
	case UnsupportedPluginKind:
		return "unsupported plugin"
	case PathTraversal:
		return "path traversal in archive"
	case Extraction:
		return "archive extraction failed"
	case MissingIdentity:
		return "missing commit identity"
	case DependencyResolution:
		return "dependency resolution failed"
	case UnsupportedExternalReference:
		return "unsupported external reference"
	case DisallowedHost:
		return "host not allowed"
	}
	return "unknown kind"
}

func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("errors.E must have at least one argument")
	}

	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case types.UniquePath:
			e.Path = a
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case *Error:
			cp := *a
			e.Err = &cp
		case error:
			e.Err = a
		case string:
			e.Err = fmt.Errorf("%s", a)
		default:
			panic(fmt.Errorf("unknown type %T for value %v in call to error.E", a, a))
		}
	}

	wrappedErr, ok := e.Err.(*Error)
	if !ok {
		return e
	}

	if e.Path == wrappedErr.Path {
		wrappedErr.Path = ""
	}

	if e.Op == wrappedErr.Op {
		wrappedErr.Op = ""
	}

	// The outermost error keeps the kind so IsKind only has to walk
	// until it finds a non-zero one.
	if e.Kind == wrappedErr.Kind {
		wrappedErr.Kind = 0
	}

	return e
}

// IsKind reports whether any *Error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !goerrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}
