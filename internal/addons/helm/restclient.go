package helm

import (
	"sync"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

// restClientGetter satisfies genericclioptions.RESTClientGetter from raw
// kubeconfig bytes, so the admin config captured over SSH never has to
// touch disk.
type restClientGetter struct {
	raw       []byte
	namespace string

	once   sync.Once
	config *rest.Config
	err    error
}

func newRESTClientGetter(kubeconfig []byte, namespace string) *restClientGetter {
	return &restClientGetter{raw: kubeconfig, namespace: namespace}
}

// ToRESTConfig builds the REST config once and memoizes it; Helm calls
// this repeatedly during a single install.
func (g *restClientGetter) ToRESTConfig() (*rest.Config, error) {
	g.once.Do(func() {
		cc, err := clientcmd.NewClientConfigFromBytes(g.raw)
		if err != nil {
			g.err = err
			return
		}
		g.config, g.err = cc.ClientConfig()
	})
	return g.config, g.err
}

func (g *restClientGetter) ToDiscoveryClient() (discovery.CachedDiscoveryInterface, error) {
	config, err := g.ToRESTConfig()
	if err != nil {
		return nil, err
	}
	dc, err := discovery.NewDiscoveryClientForConfig(config)
	if err != nil {
		return nil, err
	}
	return memory.NewMemCacheClient(dc), nil
}

func (g *restClientGetter) ToRESTMapper() (meta.RESTMapper, error) {
	dc, err := g.ToDiscoveryClient()
	if err != nil {
		return nil, err
	}
	return restmapper.NewDeferredDiscoveryRESTMapper(dc), nil
}

func (g *restClientGetter) ToRawKubeConfigLoader() clientcmd.ClientConfig {
	cc, _ := clientcmd.NewClientConfigFromBytes(g.raw)
	return cc
}
