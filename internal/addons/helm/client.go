// Package helm installs cluster addons from chart repositories using
// in-memory kubeconfig bytes, without requiring a helm binary or local
// kubeconfig file.
package helm

import (
	"context"
	"fmt"
	"os"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/repo"
)

// ChartSpec identifies a chart to install.
type ChartSpec struct {
	Repository string
	Name       string
	Version    string
	Namespace  string
	Release    string
}

// Client performs Helm operations against one cluster.
type Client struct {
	namespace    string
	actionConfig *action.Configuration
}

// NewClient creates a Helm client from kubeconfig bytes.
func NewClient(kubeconfig []byte, namespace string) (*Client, error) {
	actionConfig := new(action.Configuration)
	restGetter := newRESTClientGetter(kubeconfig, namespace)

	// Helm debug output is suppressed; the observer reports progress.
	if err := actionConfig.Init(restGetter, namespace, "secret", func(string, ...interface{}) {}); err != nil {
		return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
	}

	return &Client{namespace: namespace, actionConfig: actionConfig}, nil
}

// InstallOrUpgrade installs the chart, or upgrades it when the release
// already exists, making addon deployment idempotent across reruns.
func (c *Client) InstallOrUpgrade(ctx context.Context, spec ChartSpec, values map[string]interface{}) (*release.Release, error) {
	histClient := action.NewHistory(c.actionConfig)
	histClient.Max = 1
	if _, err := histClient.Run(spec.Release); err != nil {
		return c.install(ctx, spec, values)
	}
	return c.upgrade(ctx, spec, values)
}

func (c *Client) install(ctx context.Context, spec ChartSpec, values map[string]interface{}) (*release.Release, error) {
	installClient := action.NewInstall(c.actionConfig)
	installClient.ReleaseName = spec.Release
	installClient.Namespace = c.namespace
	installClient.CreateNamespace = true
	installClient.Version = spec.Version
	installClient.Wait = true
	installClient.Timeout = 10 * time.Minute

	ch, err := c.loadChart(spec)
	if err != nil {
		return nil, err
	}
	return installClient.RunWithContext(ctx, ch, values)
}

func (c *Client) upgrade(ctx context.Context, spec ChartSpec, values map[string]interface{}) (*release.Release, error) {
	upgradeClient := action.NewUpgrade(c.actionConfig)
	upgradeClient.Namespace = c.namespace
	upgradeClient.Version = spec.Version
	upgradeClient.Wait = true
	upgradeClient.Timeout = 10 * time.Minute

	ch, err := c.loadChart(spec)
	if err != nil {
		return nil, err
	}
	return upgradeClient.RunWithContext(ctx, spec.Release, ch, values)
}

func (c *Client) loadChart(spec ChartSpec) (*chart.Chart, error) {
	settings := cli.New()

	chartPath, err := repo.FindChartInRepoURL(
		spec.Repository,
		spec.Name,
		spec.Version,
		"", "", "",
		getter.All(settings),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", spec.Name, spec.Repository, err)
	}

	defer func() {
		_ = os.Remove(chartPath)
	}()

	return loader.Load(chartPath)
}
