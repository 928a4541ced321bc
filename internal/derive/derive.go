// Package derive computes deterministic pool identities from seeds.
package derive

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"cpamm/internal/model"
)

var (
	configSeed = []byte("config")
	lpSeed     = []byte("lp")
	vaultSeed  = []byte("vault")
)

// Address hashes the seeds and takes the low 20 bytes, like a contract address.
func Address(seeds ...[]byte) common.Address {
	return common.BytesToAddress(crypto.Keccak256(seeds...)[12:])
}

// ConfigAddress identifies the pool record for (program, seed).
func ConfigAddress(program common.Address, seed uint64) common.Address {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], seed)
	return Address(configSeed, le[:], program.Bytes())
}

// LPMintAddress identifies the share token of a pool.
func LPMintAddress(config common.Address) common.Address {
	return Address(lpSeed, config.Bytes())
}

// VaultAddress identifies the account holding mint on behalf of a pool.
func VaultAddress(config, mint common.Address) common.Address {
	return Address(vaultSeed, config.Bytes(), mint.Bytes())
}

// Populate fills the derived identity fields of cfg from Program, Seed and the mints.
func Populate(cfg model.PoolConfig) model.PoolConfig {
	cfg.Address = ConfigAddress(cfg.Program, cfg.Seed)
	cfg.MintLP = LPMintAddress(cfg.Address)
	cfg.VaultX = VaultAddress(cfg.Address, cfg.MintX)
	cfg.VaultY = VaultAddress(cfg.Address, cfg.MintY)
	return cfg
}
