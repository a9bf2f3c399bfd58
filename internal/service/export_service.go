package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"givehub/api/internal/models"
)

type exportStore interface {
	ListForExport(ctx context.Context, start, end *time.Time) ([]models.Donation, error)
}

type objectStore interface {
	PutExport(ctx context.Context, key string, data []byte, contentType string) error
	PresignExport(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ExportService writes donation CSV snapshots into the object store and
// hands back a presigned download link.
type ExportService struct {
	donations exportStore
	store     objectStore
	log       zerolog.Logger
}

func NewExportService(donations exportStore, store objectStore, log zerolog.Logger) *ExportService {
	return &ExportService{donations: donations, store: store, log: log}
}

type ExportResult struct {
	ObjectKey   string
	DownloadURL string
	RecordCount int
}

func (s *ExportService) ExportDonations(ctx context.Context, start, end *time.Time) (ExportResult, error) {
	donations, err := s.donations.ListForExport(ctx, start, end)
	if err != nil {
		return ExportResult{}, err
	}

	data, err := donationsCSV(donations)
	if err != nil {
		return ExportResult{}, err
	}

	key := fmt.Sprintf("donations/%s.csv", time.Now().UTC().Format("20060102-150405"))
	if err := s.store.PutExport(ctx, key, data, "text/csv"); err != nil {
		return ExportResult{}, err
	}

	downloadURL, err := s.store.PresignExport(ctx, key, 24*time.Hour)
	if err != nil {
		return ExportResult{}, err
	}

	s.log.Info().Str("object_key", key).Int("records", len(donations)).Msg("donation export written")

	return ExportResult{
		ObjectKey:   key,
		DownloadURL: downloadURL,
		RecordCount: len(donations),
	}, nil
}

func donationsCSV(donations []models.Donation) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"id", "donor_name", "donor_email", "amount", "currency", "status",
		"payment_method", "anonymous", "transaction_id", "created_at"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, donation := range donations {
		transactionID := ""
		if donation.TransactionID != nil {
			transactionID = *donation.TransactionID
		}
		record := []string{
			donation.ID,
			donation.DonorName,
			donation.DonorEmail,
			strconv.FormatFloat(donation.Amount, 'f', 2, 64),
			string(donation.Currency),
			string(donation.Status),
			string(donation.PaymentMethod),
			strconv.FormatBool(donation.IsAnonymous),
			transactionID,
			donation.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
