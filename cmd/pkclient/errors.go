// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"io"
)

// usageError is a malformed command line.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }
func (e *usageError) ExitCode() int { return exitUsage }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// errTransactionFailed is returned after a transaction finished with an
// exit other than success. The printer already reported why.
var errTransactionFailed = errors.New("transaction failed")

// exitCode reports err on w and maps it to a process exit code.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, errTransactionFailed) {
		return exitFailed
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "Command failed: %v\n", err)
	return exitFailed
}
