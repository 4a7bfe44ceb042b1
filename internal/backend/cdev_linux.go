package backend

import (
	"fmt"

	"github.com/sparques/rftrx"
	"github.com/sparques/rftrx/pins"
)

func openCdev(chip string, offset int) (rftrx.Pin, func() error, error) {
	if chip == "" {
		return nil, nil, fmt.Errorf("cdev backend needs a chip")
	}
	p := pins.NewCdevPin(chip, offset)
	return p, p.Close, nil
}
