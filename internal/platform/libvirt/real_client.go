package libvirt

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	golibvirt "github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket"
	"github.com/digitalocean/go-libvirt/socket/dialers"
)

// RealClient implements Hypervisor against a live libvirt daemon over the
// libvirt RPC protocol.
type RealClient struct {
	conn *golibvirt.Libvirt
}

// NewRealClient connects to the daemon at the given URI. Local system and
// session URIs use the unix socket; qemu+tcp URIs dial the remote host.
func NewRealClient(uri string) (*RealClient, error) {
	dialer, err := dialerForURI(uri)
	if err != nil {
		return nil, err
	}

	conn := golibvirt.NewWithDialer(dialer)
	if err := conn.ConnectToURI(golibvirt.ConnectURI(connectURI(uri))); err != nil {
		return nil, fmt.Errorf("failed to connect to libvirt at %s: %w", uri, err)
	}

	return &RealClient{conn: conn}, nil
}

func dialerForURI(uri string) (socket.Dialer, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid libvirt uri %q: %w", uri, err)
	}

	switch {
	case u.Host == "":
		return dialers.NewLocal(), nil
	case strings.Contains(u.Scheme, "tcp"):
		host := u.Hostname()
		var opts []dialers.RemoteOption
		if port := u.Port(); port != "" {
			opts = append(opts, dialers.UsePort(port))
		}
		return dialers.NewRemote(host, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported libvirt uri scheme %q (use qemu:///system or qemu+tcp://)", u.Scheme)
	}
}

// connectURI strips the transport from the URI, since the dialer already
// carries it: qemu+tcp://host/system -> qemu:///system.
func connectURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return uri
	}
	scheme := strings.SplitN(u.Scheme, "+", 2)[0]
	return scheme + "://" + u.Path
}

// Close disconnects from the daemon.
func (c *RealClient) Close() error {
	return c.conn.Disconnect()
}

// CreateDomain defines the domain from spec and starts it.
func (c *RealClient) CreateDomain(ctx context.Context, spec DomainSpec) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dom, err := c.conn.DomainLookupByName(spec.Name)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to look up domain %s: %w", spec.Name, err)
	}
	if err != nil {
		rootPath, err := c.VolumePath(ctx, spec.Pool, spec.RootVolume)
		if err != nil {
			return err
		}
		seedPath, err := c.VolumePath(ctx, spec.Pool, spec.SeedVolume)
		if err != nil {
			return err
		}

		xml, err := domainXML(spec, rootPath, seedPath)
		if err != nil {
			return err
		}

		dom, err = c.conn.DomainDefineXML(xml)
		if err != nil {
			return fmt.Errorf("failed to define domain %s: %w", spec.Name, err)
		}
	}

	state, _, err := c.conn.DomainGetState(dom, 0)
	if err != nil {
		return fmt.Errorf("failed to get state of domain %s: %w", spec.Name, err)
	}
	if golibvirt.DomainState(state) == golibvirt.DomainRunning {
		return nil
	}

	if err := c.conn.DomainCreate(dom); err != nil {
		return fmt.Errorf("failed to start domain %s: %w", spec.Name, err)
	}
	return nil
}

// DestroyDomain powers off and undefines the domain if present.
func (c *RealClient) DestroyDomain(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dom, err := c.conn.DomainLookupByName(name)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to look up domain %s: %w", name, err)
	}

	state, _, err := c.conn.DomainGetState(dom, 0)
	if err != nil {
		return fmt.Errorf("failed to get state of domain %s: %w", name, err)
	}
	if golibvirt.DomainState(state) == golibvirt.DomainRunning {
		if err := c.conn.DomainDestroy(dom); err != nil {
			return fmt.Errorf("failed to power off domain %s: %w", name, err)
		}
	}

	if err := c.conn.DomainUndefineFlags(dom, golibvirt.DomainUndefineManagedSave|golibvirt.DomainUndefineNvram); err != nil {
		return fmt.Errorf("failed to undefine domain %s: %w", name, err)
	}
	return nil
}

// GetDomain returns the state of one domain, nil if absent.
func (c *RealClient) GetDomain(ctx context.Context, name string) (*DomainInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dom, err := c.conn.DomainLookupByName(name)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up domain %s: %w", name, err)
	}

	state, _, err := c.conn.DomainGetState(dom, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get state of domain %s: %w", name, err)
	}

	return &DomainInfo{
		Name:    dom.Name,
		Running: golibvirt.DomainState(state) == golibvirt.DomainRunning,
	}, nil
}

// ListDomains returns all defined domains.
func (c *RealClient) ListDomains(ctx context.Context) ([]DomainInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	domains, _, err := c.conn.ConnectListAllDomains(1, golibvirt.ConnectListDomainsActive|golibvirt.ConnectListDomainsInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	infos := make([]DomainInfo, 0, len(domains))
	for _, dom := range domains {
		state, _, err := c.conn.DomainGetState(dom, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to get state of domain %s: %w", dom.Name, err)
		}
		infos = append(infos, DomainInfo{
			Name:    dom.Name,
			Running: golibvirt.DomainState(state) == golibvirt.DomainRunning,
		})
	}
	return infos, nil
}

// CloneVolume copies baseImage into a new qcow2 volume named name.
func (c *RealClient) CloneVolume(ctx context.Context, pool, baseImage, name string, sizeGiB int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := c.conn.StoragePoolLookupByName(pool)
	if err != nil {
		return fmt.Errorf("failed to look up pool %s: %w", pool, err)
	}

	if _, err := c.conn.StorageVolLookupByName(p, name); err == nil {
		return nil
	} else if !IsNotFound(err) {
		return fmt.Errorf("failed to look up volume %s: %w", name, err)
	}

	base, err := c.conn.StorageVolLookupByName(p, baseImage)
	if err != nil {
		return fmt.Errorf("failed to look up base image %s in pool %s: %w", baseImage, pool, err)
	}

	xml, err := volumeXML(name, sizeGiB)
	if err != nil {
		return err
	}

	if _, err := c.conn.StorageVolCreateXMLFrom(p, xml, base, 0); err != nil {
		return fmt.Errorf("failed to clone %s into %s: %w", baseImage, name, err)
	}
	return nil
}

// UploadVolume writes content into a fresh raw volume.
func (c *RealClient) UploadVolume(ctx context.Context, pool, name string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := c.conn.StoragePoolLookupByName(pool)
	if err != nil {
		return fmt.Errorf("failed to look up pool %s: %w", pool, err)
	}

	// Replace any stale volume so a rerun gets fresh seed data.
	if vol, err := c.conn.StorageVolLookupByName(p, name); err == nil {
		if err := c.conn.StorageVolDelete(vol, 0); err != nil {
			return fmt.Errorf("failed to delete stale volume %s: %w", name, err)
		}
	} else if !IsNotFound(err) {
		return fmt.Errorf("failed to look up volume %s: %w", name, err)
	}

	xml, err := rawVolumeXML(name, uint64(len(content)))
	if err != nil {
		return err
	}

	vol, err := c.conn.StorageVolCreateXML(p, xml, 0)
	if err != nil {
		return fmt.Errorf("failed to create volume %s: %w", name, err)
	}

	if err := c.conn.StorageVolUpload(vol, bytes.NewReader(content), 0, uint64(len(content)), 0); err != nil {
		return fmt.Errorf("failed to upload volume %s: %w", name, err)
	}
	return nil
}

// DeleteVolume removes the named volume if present.
func (c *RealClient) DeleteVolume(ctx context.Context, pool, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := c.conn.StoragePoolLookupByName(pool)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to look up pool %s: %w", pool, err)
	}

	vol, err := c.conn.StorageVolLookupByName(p, name)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to look up volume %s: %w", name, err)
	}

	if err := c.conn.StorageVolDelete(vol, 0); err != nil {
		return fmt.Errorf("failed to delete volume %s: %w", name, err)
	}
	return nil
}

// VolumePath resolves a volume to its host filesystem path.
func (c *RealClient) VolumePath(ctx context.Context, pool, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p, err := c.conn.StoragePoolLookupByName(pool)
	if err != nil {
		return "", fmt.Errorf("failed to look up pool %s: %w", pool, err)
	}
	vol, err := c.conn.StorageVolLookupByName(p, name)
	if err != nil {
		return "", fmt.Errorf("failed to look up volume %s: %w", name, err)
	}
	path, err := c.conn.StorageVolGetPath(vol)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path of volume %s: %w", name, err)
	}
	return path, nil
}

// ListLeases returns the current DHCP leases of the network.
func (c *RealClient) ListLeases(ctx context.Context, network string) ([]Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	net, err := c.conn.NetworkLookupByName(network)
	if err != nil {
		return nil, fmt.Errorf("failed to look up network %s: %w", network, err)
	}

	raw, _, err := c.conn.NetworkGetDhcpLeases(net, nil, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list leases of network %s: %w", network, err)
	}

	leases := make([]Lease, 0, len(raw))
	for _, l := range raw {
		leases = append(leases, Lease{
			Hostname: optString(l.Hostname),
			IP:       l.Ipaddr,
			MAC:      optString(l.Mac),
		})
	}
	return leases, nil
}

func optString(v golibvirt.OptString) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
