//go:build linux || darwin

package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func init() {
	fileDescriptorCheck = checkAndSetUlimit
}

func checkAndSetUlimit() error {
	var rLimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return fmt.Errorf("error getting rlimit: %w", err)
	}

	want := fdLimit
	if rLimit.Max < want {
		want = rLimit.Max
	}
	if rLimit.Cur >= want {
		return nil
	}

	log.Debugw("raising file descriptor limit", "from", rLimit.Cur, "to", want)
	rLimit.Cur = want
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return fmt.Errorf("error setting ulimit: %w", err)
	}
	return nil
}
