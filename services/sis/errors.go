package sis

import "errors"

// ErrReconciliation wraps a failed dataset transaction. The store
// guarantees all-or-nothing application, so the caller may retry the
// whole pipeline without risking partial state.
var ErrReconciliation = errors.New("sis: reconciliation failed")

// ErrNotImplemented signals a subject id whose format selects a legacy
// subsystem variant this bridge does not speak.
var ErrNotImplemented = errors.New("sis: subsystem variant not implemented")
