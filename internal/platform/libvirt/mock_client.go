package libvirt

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is an in-memory Hypervisor for tests. Error hooks allow
// injecting failures per operation.
type MockClient struct {
	mu sync.Mutex

	domains map[string]*DomainInfo
	volumes map[string][]byte // "pool/name" -> content (nil for clones)
	leases  map[string][]Lease

	CreateDomainErr  error
	DestroyDomainErr error
	CloneVolumeErr   error
	UploadVolumeErr  error
	DeleteVolumeErr  error
	ListLeasesErr    error

	// CreateDomainCalls records the specs passed to CreateDomain in order.
	CreateDomainCalls []DomainSpec
	// DestroyDomainCalls records the names passed to DestroyDomain in order.
	DestroyDomainCalls []string
}

// NewMockClient returns an empty mock hypervisor.
func NewMockClient() *MockClient {
	return &MockClient{
		domains: make(map[string]*DomainInfo),
		volumes: make(map[string][]byte),
		leases:  make(map[string][]Lease),
	}
}

// AddBaseImage registers a base image volume so clones succeed.
func (m *MockClient) AddBaseImage(pool, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumes[pool+"/"+name] = nil
}

// AddLease registers a DHCP lease on a network.
func (m *MockClient) AddLease(network string, lease Lease) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leases[network] = append(m.leases[network], lease)
}

// HasVolume reports whether the named volume exists.
func (m *MockClient) HasVolume(pool, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.volumes[pool+"/"+name]
	return ok
}

func (m *MockClient) CreateDomain(_ context.Context, spec DomainSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateDomainCalls = append(m.CreateDomainCalls, spec)
	if m.CreateDomainErr != nil {
		return m.CreateDomainErr
	}
	m.domains[spec.Name] = &DomainInfo{Name: spec.Name, Running: true}
	return nil
}

func (m *MockClient) DestroyDomain(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DestroyDomainCalls = append(m.DestroyDomainCalls, name)
	if m.DestroyDomainErr != nil {
		return m.DestroyDomainErr
	}
	delete(m.domains, name)
	return nil
}

func (m *MockClient) GetDomain(_ context.Context, name string) (*DomainInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.domains[name]
	if !ok {
		return nil, nil
	}
	copied := *info
	return &copied, nil
}

func (m *MockClient) ListDomains(_ context.Context) ([]DomainInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DomainInfo, 0, len(m.domains))
	for _, d := range m.domains {
		out = append(out, *d)
	}
	return out, nil
}

func (m *MockClient) CloneVolume(_ context.Context, pool, baseImage, name string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CloneVolumeErr != nil {
		return m.CloneVolumeErr
	}
	if _, ok := m.volumes[pool+"/"+baseImage]; !ok {
		return fmt.Errorf("base image %s not found in pool %s", baseImage, pool)
	}
	m.volumes[pool+"/"+name] = nil
	return nil
}

func (m *MockClient) UploadVolume(_ context.Context, pool, name string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UploadVolumeErr != nil {
		return m.UploadVolumeErr
	}
	m.volumes[pool+"/"+name] = content
	return nil
}

func (m *MockClient) DeleteVolume(_ context.Context, pool, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteVolumeErr != nil {
		return m.DeleteVolumeErr
	}
	delete(m.volumes, pool+"/"+name)
	return nil
}

func (m *MockClient) VolumePath(_ context.Context, pool, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.volumes[pool+"/"+name]; !ok {
		return "", fmt.Errorf("volume %s not found in pool %s", name, pool)
	}
	return "/var/lib/libvirt/images/" + name, nil
}

func (m *MockClient) ListLeases(_ context.Context, network string) ([]Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListLeasesErr != nil {
		return nil, m.ListLeasesErr
	}
	return append([]Lease(nil), m.leases[network]...), nil
}

func (m *MockClient) Close() error { return nil }
