package ingest

import (
	"testing"
	"time"

	"github.com/rawblock/snipe-engine/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestDeduper_CollapsesWithinWindow(t *testing.T) {
	d := NewDeduper()
	ev := models.PoolCreated{Dex: models.DexAMMv4, PoolAddress: "pool1"}
	now := time.Now()

	assert.True(t, d.Admit(ev, now))
	assert.False(t, d.Admit(ev, now.Add(2*time.Second)))
	assert.True(t, d.Admit(ev, now.Add(6*time.Second)))
}

func TestDeduper_DifferentPoolsIndependent(t *testing.T) {
	d := NewDeduper()
	now := time.Now()
	a := models.PoolCreated{Dex: models.DexAMMv4, PoolAddress: "pool1"}
	b := models.PoolCreated{Dex: models.DexAMMv4, PoolAddress: "pool2"}

	assert.True(t, d.Admit(a, now))
	assert.True(t, d.Admit(b, now))
}
