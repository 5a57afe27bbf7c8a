package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostname(t *testing.T) {
	assert.Equal(t, "lab-cp-00", Hostname("lab-cp-", 0))
	assert.Equal(t, "lab-worker-07", Hostname("lab-worker-", 7))
	assert.Equal(t, "lab-worker-12", Hostname("lab-worker-", 12))
	// Three-digit indices just widen past the pad.
	assert.Equal(t, "lab-worker-100", Hostname("lab-worker-", 100))
}

func TestVolumeNames(t *testing.T) {
	assert.Equal(t, "lab-cp-00-root", RootVolume("lab-cp-00"))
	assert.Equal(t, "lab-cp-00-seed", SeedVolume("lab-cp-00"))
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "lab-cp-00", Domain("lab-cp-00"))
}
