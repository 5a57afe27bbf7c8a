package libvirt

import (
	"errors"

	golibvirt "github.com/digitalocean/go-libvirt"
)

// isErrorNumber checks whether err is a libvirt error with one of the
// given codes.
func isErrorNumber(err error, codes ...golibvirt.ErrorNumber) bool {
	if err == nil {
		return false
	}

	var lvErr golibvirt.Error
	if errors.As(err, &lvErr) {
		for _, code := range codes {
			if lvErr.Code == uint32(code) {
				return true
			}
		}
	}
	return false
}

// IsNotFound reports whether err means the domain, volume, pool or network
// does not exist. Destroy paths treat these as success.
func IsNotFound(err error) bool {
	return isErrorNumber(err,
		golibvirt.ErrNoDomain,
		golibvirt.ErrNoStoragePool,
		golibvirt.ErrNoStorageVol,
		golibvirt.ErrNoNetwork,
	)
}
