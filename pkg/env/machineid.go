// Package env provides the shared bits of the command line environments.
package env

import (
	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves an ID identifying the machine, keyed by appID so
// the raw machine ID isn't exposed. Empty when it can't be read.
func MachineID(appID string) string {
	id, err := machineid.ProtectedID(appID)
	if err != nil {
		return ""
	}
	return id[:16]
}
