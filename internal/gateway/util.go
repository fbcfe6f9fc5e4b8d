package gateway

import (
	"strconv"
	"time"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
