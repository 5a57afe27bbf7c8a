package orchestration

import (
	"strconv"
	"strings"
	"time"

	"github.com/virtkube/virtkube/internal/config"
	"github.com/virtkube/virtkube/internal/fleet"
	"github.com/virtkube/virtkube/internal/platform/libvirt"
	"github.com/virtkube/virtkube/internal/util/naming"
)

// recordFromName reconstructs a node record from a domain name following
// the fleet naming scheme. Returns false for domains this orchestrator
// does not manage.
func recordFromName(spec *config.FleetSpec, name string) (fleet.NodeRecord, bool) {
	candidates := []struct {
		role   fleet.Role
		prefix string
	}{
		{fleet.RoleControlPlane, spec.ControlPlane.HostnamePrefix},
		{fleet.RoleWorker, spec.Workers.HostnamePrefix},
	}

	for _, c := range candidates {
		if c.prefix == "" || !strings.HasPrefix(name, c.prefix) {
			continue
		}
		suffix := strings.TrimPrefix(name, c.prefix)
		index, err := strconv.Atoi(suffix)
		if err != nil || index < 0 || len(suffix) < 2 {
			continue
		}

		now := time.Now().UTC()
		return fleet.NodeRecord{
			Role:       c.role,
			Index:      index,
			Hostname:   name,
			MAC:        libvirt.NodeMAC(name),
			RootVolume: naming.RootVolume(name),
			SeedVolume: naming.SeedVolume(name),
			Status:     fleet.StatusCreated,
			CreatedAt:  now,
			UpdatedAt:  now,
		}, true
	}
	return fleet.NodeRecord{}, false
}
