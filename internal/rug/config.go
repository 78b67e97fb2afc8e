package rug

import (
	"time"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// Config carries the Rug Monitor's tunables, per spec.md §4.9/§8.
type Config struct {
	Interval                 time.Duration
	LiqDropPct               float64
	SupplyUpPct              float64
	HolderDumpPct            float64
	TopHoldersN              int
	EmergencyExitSlippagePct float64
	EmergencyExitRetries     int
	EmergencyPriorityFee     models.PriorityFeeMode
}

func DefaultConfig() Config {
	return Config{
		Interval:                 5 * time.Second,
		LiqDropPct:               -50,
		SupplyUpPct:              10,
		HolderDumpPct:            -30,
		TopHoldersN:              10,
		EmergencyExitSlippagePct: 25,
		EmergencyExitRetries:     5,
		EmergencyPriorityFee:     models.FeeModeUltra,
	}
}
