package retry

import (
	"errors"
	"net"
	"syscall"
)

var connectionErrnos = []error{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.ENETUNREACH,
	syscall.ENETDOWN,
	syscall.EPIPE,
}

// IsTimeout reports whether anything in err's chain says it timed out.
// os.ErrDeadlineExceeded and syscall.ETIMEDOUT both qualify.
func IsTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// IsConnectionError reports whether err comes from the network layer.
func IsConnectionError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	for _, errno := range connectionErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// IsTransientError reports whether err is likely to go away on its own.
func IsTransientError(err error) bool {
	return err != nil && (IsTimeout(err) || IsConnectionError(err))
}
