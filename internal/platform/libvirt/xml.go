package libvirt

import (
	"crypto/sha256"
	"fmt"

	"libvirt.org/go/libvirtxml"
)

// domainXML renders the libvirt domain definition for a node VM: virtio
// root disk, seed ISO on a CD-ROM, one virtio NIC on the shared network
// with a fixed MAC.
func domainXML(spec DomainSpec, rootPath, seedPath string) (string, error) {
	dom := &libvirtxml.Domain{
		Type: "kvm",
		Name: spec.Name,
		Memory: &libvirtxml.DomainMemory{
			Value: uint(spec.MemoryMiB),
			Unit:  "MiB",
		},
		VCPU: &libvirtxml.DomainVCPU{
			Value: uint(spec.CPUs),
		},
		OS: &libvirtxml.DomainOS{
			Type: &libvirtxml.DomainOSType{
				Arch: "x86_64",
				Type: "hvm",
			},
		},
		Features: &libvirtxml.DomainFeatureList{
			ACPI: &libvirtxml.DomainFeature{},
			APIC: &libvirtxml.DomainFeatureAPIC{},
		},
		CPU: &libvirtxml.DomainCPU{
			Mode: "host-passthrough",
		},
		Devices: &libvirtxml.DomainDeviceList{
			Disks: []libvirtxml.DomainDisk{
				{
					Device: "disk",
					Driver: &libvirtxml.DomainDiskDriver{Name: "qemu", Type: "qcow2"},
					Source: &libvirtxml.DomainDiskSource{
						File: &libvirtxml.DomainDiskSourceFile{File: rootPath},
					},
					Target: &libvirtxml.DomainDiskTarget{Dev: "vda", Bus: "virtio"},
				},
				{
					Device: "cdrom",
					Driver: &libvirtxml.DomainDiskDriver{Name: "qemu", Type: "raw"},
					Source: &libvirtxml.DomainDiskSource{
						File: &libvirtxml.DomainDiskSourceFile{File: seedPath},
					},
					Target: &libvirtxml.DomainDiskTarget{Dev: "sda", Bus: "sata"},
					ReadOnly: &libvirtxml.DomainDiskReadOnly{},
				},
			},
			Interfaces: []libvirtxml.DomainInterface{
				{
					MAC: &libvirtxml.DomainInterfaceMAC{Address: spec.MAC},
					Source: &libvirtxml.DomainInterfaceSource{
						Network: &libvirtxml.DomainInterfaceSourceNetwork{Network: spec.Network},
					},
					Model: &libvirtxml.DomainInterfaceModel{Type: "virtio"},
				},
			},
			Consoles: []libvirtxml.DomainConsole{
				{
					Target: &libvirtxml.DomainConsoleTarget{Type: "serial"},
				},
			},
		},
	}

	xml, err := dom.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal domain definition for %s: %w", spec.Name, err)
	}
	return xml, nil
}

// volumeXML renders a qcow2 volume definition used as clone target.
func volumeXML(name string, sizeGiB int) (string, error) {
	vol := &libvirtxml.StorageVolume{
		Name: name,
		Capacity: &libvirtxml.StorageVolumeSize{
			Value: uint64(sizeGiB),
			Unit:  "GiB",
		},
		Target: &libvirtxml.StorageVolumeTarget{
			Format: &libvirtxml.StorageVolumeTargetFormat{Type: "qcow2"},
		},
	}

	xml, err := vol.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal volume definition for %s: %w", name, err)
	}
	return xml, nil
}

// rawVolumeXML renders a raw volume definition sized for seed ISO content.
func rawVolumeXML(name string, sizeBytes uint64) (string, error) {
	vol := &libvirtxml.StorageVolume{
		Name: name,
		Capacity: &libvirtxml.StorageVolumeSize{
			Value: sizeBytes,
			Unit:  "bytes",
		},
		Target: &libvirtxml.StorageVolumeTarget{
			Format: &libvirtxml.StorageVolumeTargetFormat{Type: "raw"},
		},
	}

	xml, err := vol.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal volume definition for %s: %w", name, err)
	}
	return xml, nil
}

// NodeMAC derives a stable unicast MAC from the hostname, in the QEMU
// locally-administered 52:54:00 prefix. Fixed MACs let lease lookups match
// nodes even before the guest reports its hostname.
func NodeMAC(hostname string) string {
	sum := sha256.Sum256([]byte(hostname))
	return fmt.Sprintf("52:54:00:%02x:%02x:%02x", sum[0], sum[1], sum[2])
}
