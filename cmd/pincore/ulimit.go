package main

import (
	"os"
	"strconv"
)

// fdLimit is the soft file descriptor limit raised before a repo opens.
// flatfs keeps one file per block and the sweep opens many at once.
var fdLimit = uint64(2048)

// fileDescriptorCheck is replaced on platforms that can manage limits.
var fileDescriptorCheck = func() error { return nil }

func init() {
	if val := os.Getenv("PINCORE_FD_MAX"); val != "" {
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			log.Errorf("bad value for PINCORE_FD_MAX: %s", err)
		} else {
			fdLimit = n
		}
	}
}
