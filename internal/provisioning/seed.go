package provisioning

import (
	"bytes"
	"fmt"

	"github.com/kdomanski/iso9660"
	"gopkg.in/yaml.v3"
)

// SeedConfig is the per-node initial configuration injected at VM creation
// time through a NoCloud seed ISO.
type SeedConfig struct {
	Hostname     string
	User         string
	SSHPublicKey string
	Timezone     string
}

// cloudConfig is the subset of cloud-init user-data this orchestrator
// emits.
type cloudConfig struct {
	Hostname       string      `yaml:"hostname"`
	ManageEtcHosts bool        `yaml:"manage_etc_hosts"`
	Timezone       string      `yaml:"timezone"`
	Users          []cloudUser `yaml:"users"`
}

type cloudUser struct {
	Name              string   `yaml:"name"`
	Sudo              string   `yaml:"sudo"`
	Shell             string   `yaml:"shell"`
	SSHAuthorizedKeys []string `yaml:"ssh_authorized_keys"`
}

// BuildSeedISO renders a cidata ISO containing user-data and meta-data in
// the cloud-init NoCloud format.
func BuildSeedISO(cfg SeedConfig) ([]byte, error) {
	userData, err := renderUserData(cfg)
	if err != nil {
		return nil, err
	}
	metaData := fmt.Sprintf("instance-id: %s\nlocal-hostname: %s\n", cfg.Hostname, cfg.Hostname)

	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create iso writer: %w", err)
	}
	defer func() {
		_ = writer.Cleanup()
	}()

	if err := writer.AddFile(bytes.NewReader(userData), "user-data"); err != nil {
		return nil, fmt.Errorf("failed to add user-data: %w", err)
	}
	if err := writer.AddFile(bytes.NewReader([]byte(metaData)), "meta-data"); err != nil {
		return nil, fmt.Errorf("failed to add meta-data: %w", err)
	}

	var buf bytes.Buffer
	// The cidata volume label is what cloud-init's NoCloud datasource scans
	// for.
	if err := writer.WriteTo(&buf, "cidata"); err != nil {
		return nil, fmt.Errorf("failed to write iso: %w", err)
	}
	return buf.Bytes(), nil
}

func renderUserData(cfg SeedConfig) ([]byte, error) {
	cc := cloudConfig{
		Hostname:       cfg.Hostname,
		ManageEtcHosts: true,
		Timezone:       cfg.Timezone,
		Users: []cloudUser{
			{
				Name:              cfg.User,
				Sudo:              "ALL=(ALL) NOPASSWD:ALL",
				Shell:             "/bin/bash",
				SSHAuthorizedKeys: []string{cfg.SSHPublicKey},
			},
		},
	}

	body, err := yaml.Marshal(cc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user-data: %w", err)
	}
	return append([]byte("#cloud-config\n"), body...), nil
}
