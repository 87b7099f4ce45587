// Copyright 2021 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package linuxerr contains syscall error codes exported as an error interface
// pointers. This allows for fast comparison and return operations comperable
// to unix.Errno constants.
package linuxerr

import (
	"golang.org/x/sys/unix"
	"gvisor.dev/sigcore/pkg/abi/linux/errno"
	"gvisor.dev/sigcore/pkg/errors"
)

// The following errors are semantically identical to Errno of type unix.Errno
// or sycall.Errno. However, since the type are distinct ( these are
// *errors.Error), they are not directly comperable. However, the Errno method
// returns an Errno number such that the error can be compared to unix/syscall.Errno
// (e.g. unix.Errno(EPERM.Errno()) == unix.EPERM is true).
var (
	noError *errors.Error = nil
	EPERM                 = errors.New(errno.EPERM, "operation not permitted")
	ESRCH                 = errors.New(errno.ESRCH, "no such process")
	EINTR                 = errors.New(errno.EINTR, "interrupted system call")
	EAGAIN                = errors.New(errno.EAGAIN, "try again")
	EFAULT                = errors.New(errno.EFAULT, "bad address")
	EINVAL                = errors.New(errno.EINVAL, "invalid argument")
	ENOSYS                = errors.New(errno.ENOSYS, "invalid system call number")

	// Errors equivalent to other errors.
	EWOULDBLOCK = EAGAIN
)

var errorSlice = map[errno.Errno]*errors.Error{
	errno.NOERRNO: noError,
	errno.EPERM:   EPERM,
	errno.ESRCH:   ESRCH,
	errno.EINTR:   EINTR,
	errno.EAGAIN:  EAGAIN,
	errno.EFAULT:  EFAULT,
	errno.EINVAL:  EINVAL,
	errno.ENOSYS:  ENOSYS,
}

// ErrorFromUnix returns a linuxerr from a unix.Errno.
func ErrorFromUnix(err unix.Errno) error {
	if err == unix.Errno(0) {
		return nil
	}
	e, ok := errorSlice[errno.Errno(err)]
	if !ok {
		return err
	}
	return e
}

// ToError converts a linuxerr to an error type.
func ToError(err *errors.Error) error {
	if err == noError {
		return nil
	}
	return err
}

// ToUnix converts a linuxerr to a unix.Errno.
func ToUnix(e *errors.Error) unix.Errno {
	var unixErr unix.Errno
	if e != noError {
		unixErr = unix.Errno(e.Errno())
	}
	return unixErr
}

// Equals compars a linuxerr to a given error.
func Equals(e *errors.Error, err error) bool {
	var unixErr unix.Errno
	if e != noError {
		unixErr = unix.Errno(e.Errno())
	}
	if err == nil {
		err = noError
	}
	return e == err || unixErr == err
}
