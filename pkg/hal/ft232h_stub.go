//go:build !ft232h

package hal

import (
	"errors"

	"github.com/ericogr/adis16000-to-mqtt/pkg/config"
)

func openFT232H(config.SPIConfig) (*Bus, error) {
	return nil, errors.New("hal: ft232h backend not built in (build with -tags ft232h)")
}
