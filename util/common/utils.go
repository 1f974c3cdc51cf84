package common

import (
	"github.com/inhies/go-bytesize"
)

// GetSize renders a byte count in human readable form, e.g. "1.50KB".
func GetSize(sizeVal int64) string {
	size := bytesize.New(float64(sizeVal))
	return size.String()
}

// PayloadSize is GetSize for an in-memory payload.
func PayloadSize(payload []byte) string {
	return GetSize(int64(len(payload)))
}
