package storage

import "cpamm/internal/model"

// Journal is a sink for committed receipts and rejected requests.
type Journal interface {
	PutReceipts(entries []model.JournalEntry) error
	PutRejections(rejections []model.Rejection) error
}
