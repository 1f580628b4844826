package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/s-ciobanu-r/jora-webapp/model"
	"gorm.io/gorm"
)

// SearchLimit bounds the candidate list returned by buyer lookup.
const SearchLimit = 20

// BuyerService answers the buyer lookup queries used to prefill the buyer
// step from previously saved buyers.
type BuyerService struct {
	db *gorm.DB
}

func NewBuyerService(db *gorm.DB) *BuyerService {
	return &BuyerService{db: db}
}

// Search matches the query case-insensitively as a substring across name,
// phone, email and document number, scoped to the caller. An empty query
// returns an empty result set rather than the full table. Results are
// ordered by name so repeated queries are deterministic.
func (s *BuyerService) Search(ctx context.Context, userID, query string) ([]model.Buyer, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return []model.Buyer{}, nil
	}

	pattern := "%" + strings.ToLower(q) + "%"
	var buyers []model.Buyer
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(
			s.db.Where("LOWER(full_name) LIKE ?", pattern).
				Or("LOWER(phone) LIKE ?", pattern).
				Or("LOWER(COALESCE(email, '')) LIKE ?", pattern).
				Or("LOWER(COALESCE(document_number, '')) LIKE ?", pattern),
		).
		Order("full_name ASC").
		Limit(SearchLimit).
		Find(&buyers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search buyers: %w", err)
	}
	if buyers == nil {
		buyers = []model.Buyer{}
	}
	return buyers, nil
}
