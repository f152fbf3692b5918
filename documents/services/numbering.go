package services

import (
	"fmt"
	"time"

	"procurement-backend/db/models"
	"procurement-backend/documents/repositories"

	"gorm.io/gorm"
)

// FormatDocumentNumber renders PREFIX-YYYY-NNNN.
func FormatDocumentNumber(prefix string, year, sequence int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, sequence)
}

// NumberingService hands out yearly, gap-free document numbers per kind.
type NumberingService struct {
	repo  repositories.DocumentRepository
	clock func() time.Time
}

func NewNumberingService(repo repositories.DocumentRepository) *NumberingService {
	return &NumberingService{repo: repo, clock: time.Now}
}

// Next must be called in the transaction that inserts the document so an
// aborted insert does not consume a number.
func (s *NumberingService) Next(tx *gorm.DB, docType models.DocumentType) (string, error) {
	kind, err := repositories.KindOf(docType)
	if err != nil {
		return "", err
	}
	year := s.clock().Year()
	seq, err := s.repo.NextSequence(tx, docType, year)
	if err != nil {
		return "", err
	}
	return FormatDocumentNumber(kind.Prefix, year, seq), nil
}
