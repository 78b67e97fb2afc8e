package models

import "time"

// FeeMarketSample is the 10s-cached snapshot of recent prioritization fees.
type FeeMarketSample struct {
	RecentFeesSorted []uint64
	P50, P75, P90, P95 uint64
	Congestion       float64
	FetchedAt        time.Time
	SampleCount      int
}

// FeeOptimizeResult is returned by the Fee Optimizer's Optimize operation.
type FeeOptimizeResult struct {
	ComputeUnitPrice uint64
	ComputeUnitLimit uint64
	TotalFeeBaseUnits uint64
	WasBoosted       bool
	WasCapped        bool
}

const ComputeUnitLimitFixed uint64 = 200_000
