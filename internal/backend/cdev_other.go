//go:build !linux

package backend

import (
	"fmt"

	"github.com/sparques/rftrx"
)

func openCdev(string, int) (rftrx.Pin, func() error, error) {
	return nil, nil, fmt.Errorf("cdev backend is only available on linux")
}
