// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/common/errclass/errclass.go
//

// Package errclass classifies a streamline ResourceError's underlying OS-level
// cause into a short, stable label suitable for structured logging.
//
// The platform-specific errno tables live in unix.go and windows.go,
// mirroring the layout of the module this package was adapted from:
// one build-tagged file per platform family, one shared classifier on
// top of them.
package errclass

import (
	"context"
	"errors"
	"syscall"
)

// Generic is the label returned for an error that does not match any
// of the known, classified causes.
const Generic = "EGENERIC"

// Timeout is the label returned for a context deadline or an error
// that reports itself as a timeout.
const Timeout = "ETIMEDOUT"

// New classifies err into a short label.
//
// New returns the empty string for a nil error, matching the behavior
// of [DefaultErrClassifier] for the common "no error occurred" case.
func New(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if label, ok := classify(errno); ok {
			return label
		}
	}
	var timeouter interface{ Timeout() bool }
	if errors.As(err, &timeouter) && timeouter.Timeout() {
		return Timeout
	}
	return Generic
}

func classify(errno syscall.Errno) (string, bool) {
	switch errno {
	case errEADDRNOTAVAIL:
		return "EADDRNOTAVAIL", true
	case errEADDRINUSE:
		return "EADDRINUSE", true
	case errECONNABORTED:
		return "ECONNABORTED", true
	case errECONNREFUSED:
		return "ECONNREFUSED", true
	case errECONNRESET:
		return "ECONNRESET", true
	case errEHOSTUNREACH:
		return "EHOSTUNREACH", true
	case errEINVAL:
		return "EINVAL", true
	case errEINTR:
		return "EINTR", true
	case errENETDOWN:
		return "ENETDOWN", true
	case errENETUNREACH:
		return "ENETUNREACH", true
	case errENOBUFS:
		return "ENOBUFS", true
	case errENOTCONN:
		return "ENOTCONN", true
	case errEPROTONOSUPPORT:
		return "EPROTONOSUPPORT", true
	case errETIMEDOUT:
		return Timeout, true
	default:
		return "", false
	}
}
