package model

import "github.com/ethereum/go-ethereum/common"

// Transfer moves Amount units of Asset between two custody accounts.
type Transfer struct {
	Asset  common.Address `json:"asset"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

// ShareMovement issues or burns LP units for one account.
type ShareMovement struct {
	Token   common.Address `json:"token"`
	Account common.Address `json:"account"`
	Amount  uint64         `json:"amount"`
}

// Balance is an opening custody balance credited before any operation runs.
type Balance struct {
	Asset   common.Address `json:"asset"`
	Account common.Address `json:"account"`
	Amount  uint64         `json:"amount"`
}
