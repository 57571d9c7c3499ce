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

package run

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/vendorize/vendorize/internal/cmdvendor"
	"github.com/vendorize/vendorize/internal/util/cmdutil"
	"github.com/vendorize/vendorize/pkg/printer"
)

var version = "unknown"

// GetMain returns the root command of vendorize. Errors are returned
// rather than printed so the caller can resolve them into messages.
func GetMain(ctx context.Context) *cobra.Command {
	// wire the global printer
	pr := printer.New(os.Stdout, os.Stderr)

	// create context with associated printer
	ctx = printer.WithContext(ctx, pr)

	cmd := cmdvendor.NewCommand(ctx, "vendorize")
	cmd.Version = version
	cmd.SilenceUsage = true
	// We handle all errors in main after return from cobra so we can
	// adjust the error message coming from libraries
	cmd.SilenceErrors = true

	// enable stack traces
	cmd.PersistentFlags().BoolVar(&cmdutil.StackOnError, "stack-trace", false,
		"Print a stack-trace on failure")
	_ = cmd.PersistentFlags().MarkHidden("stack-trace")
	return cmd
}
