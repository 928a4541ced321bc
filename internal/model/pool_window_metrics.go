package model

import "time"

// PoolWindowMetrics stores aggregated activity for a pool window.
// Volumes and fees are decimal strings because window sums may exceed 64 bits.
type PoolWindowMetrics struct {
	PoolAddress    string    `json:"pool_address"`
	Seed           uint64    `json:"seed"`
	WindowSizeSecs int64     `json:"window_size_seconds"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	SwapCount      uint64    `json:"swap_count"`
	DepositCount   uint64    `json:"deposit_count"`
	WithdrawCount  uint64    `json:"withdraw_count"`
	VolumeX        string    `json:"volume_x"`
	VolumeY        string    `json:"volume_y"`
	FeeX           string    `json:"fee_x"`
	FeeY           string    `json:"fee_y"`
	FeeRateX       *string   `json:"fee_rate_x,omitempty"`
	FeeRateY       *string   `json:"fee_rate_y,omitempty"`
	ReserveX       uint64    `json:"reserve_x"`
	ReserveY       uint64    `json:"reserve_y"`
	Supply         uint64    `json:"supply"`
}

