package amm

import (
	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/model"
)

// authorize admits only the configured authority.
func authorize(cfg model.PoolConfig, caller common.Address) error {
	if !cfg.Authority.Permits(caller) {
		return reject(ErrInvalidConfigAuthority, "caller %s, authority %s", caller.Hex(), cfg.Authority)
	}
	return nil
}

// guardLive rejects mutations of a locked pool and zero primary amounts.
// It runs before any quote is computed.
func guardLive(cfg model.PoolConfig, amounts ...uint64) error {
	if cfg.Locked {
		return reject(ErrPoolLocked, "pool %s", cfg.Address.Hex())
	}
	for _, amount := range amounts {
		if amount == 0 {
			return reject(ErrInvalidAmount, "amount must be greater than zero")
		}
	}
	return nil
}

func validateFee(fee uint16) error {
	if fee > model.MaxFeeBps {
		return reject(ErrInvalidFee, "fee %d exceeds %d bps", fee, model.MaxFeeBps)
	}
	return nil
}
