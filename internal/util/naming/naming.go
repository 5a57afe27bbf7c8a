// Package naming provides consistent names for hypervisor resources.
//
// Node hostnames follow {prefix}{index:02d}; volumes and seed disks are
// namespaced by hostname so concurrent creations for different node slots
// can never collide in the shared pool.
package naming

import "fmt"

// Hostname returns the node hostname for a role prefix and index.
func Hostname(prefix string, index int) string {
	return fmt.Sprintf("%s%02d", prefix, index)
}

// RootVolume names the copy-on-write root disk of a node.
func RootVolume(hostname string) string {
	return hostname + "-root"
}

// SeedVolume names the cloud-init seed ISO volume of a node.
func SeedVolume(hostname string) string {
	return hostname + "-seed"
}

// Domain names the libvirt domain for a node. Domains carry the hostname
// directly so DHCP lease hostnames match up with records.
func Domain(hostname string) string {
	return hostname
}
