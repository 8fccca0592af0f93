package repository

import (
	"context"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"gorm.io/gorm"
)

// QuotaRepository answers whether one more unit of a product can be sold on an occurrence.
type QuotaRepository interface {
	Availability(ctx context.Context, tx *gorm.DB, subEventID, itemID uint, variationID *uint) (models.Availability, error)
	BulkAvailability(ctx context.Context, subEventIDs []uint, itemID uint, variationID *uint) (map[uint]models.Availability, error)
}

type quotaRepository struct {
	db *gorm.DB
}

func NewQuotaRepository(db *gorm.DB) QuotaRepository {
	return &quotaRepository{db: db}
}

type quotaUsage struct {
	QuotaID    uint
	SubEventID uint
	Size       *int
	Used       int64
}

// Positions of pending and paid orders occupy quota. A quota covers a position
// when one of its quota_items names the position's item and either no variation
// or the position's variation.
const quotaUsageSQL = `
SELECT q.id AS quota_id, q.sub_event_id AS sub_event_id, q.size AS size,
	(SELECT COUNT(*)
	   FROM order_positions p
	   JOIN orders o ON o.id = p.order_id
	  WHERE p.sub_event_id = q.sub_event_id
	    AND o.status IN ('pending', 'paid')
	    AND EXISTS (SELECT 1 FROM quota_items qp
	                 WHERE qp.quota_id = q.id AND qp.item_id = p.item_id
	                   AND (qp.variation_id IS NULL OR qp.variation_id = p.variation_id))
	) AS used
FROM quotas q
WHERE q.sub_event_id IN ?
  AND EXISTS (SELECT 1 FROM quota_items qi
               WHERE qi.quota_id = q.id AND qi.item_id = ?
                 AND (qi.variation_id IS NULL OR qi.variation_id = ?))
`

func (r *quotaRepository) Availability(ctx context.Context, tx *gorm.DB, subEventID, itemID uint, variationID *uint) (models.Availability, error) {
	rows, err := r.usage(ctx, conn(r.db, tx), []uint{subEventID}, itemID, variationID)
	if err != nil {
		return models.AvailabilityUnknown, err
	}
	return classify(rows), nil
}

func (r *quotaRepository) BulkAvailability(ctx context.Context, subEventIDs []uint, itemID uint, variationID *uint) (map[uint]models.Availability, error) {
	result := make(map[uint]models.Availability, len(subEventIDs))
	if len(subEventIDs) == 0 {
		return result, nil
	}
	rows, err := r.usage(ctx, r.db, subEventIDs, itemID, variationID)
	if err != nil {
		return nil, err
	}

	bySubEvent := make(map[uint][]quotaUsage)
	for _, row := range rows {
		bySubEvent[row.SubEventID] = append(bySubEvent[row.SubEventID], row)
	}
	for _, id := range subEventIDs {
		result[id] = classify(bySubEvent[id])
	}
	return result, nil
}

func (r *quotaRepository) usage(ctx context.Context, db *gorm.DB, subEventIDs []uint, itemID uint, variationID *uint) ([]quotaUsage, error) {
	var rows []quotaUsage
	err := db.WithContext(ctx).Raw(quotaUsageSQL, subEventIDs, itemID, variationID).Scan(&rows).Error
	return rows, err
}

// classify: no quota is UNKNOWN; every quota with room left is OK; otherwise SOLD_OUT.
func classify(rows []quotaUsage) models.Availability {
	if len(rows) == 0 {
		return models.AvailabilityUnknown
	}
	for _, q := range rows {
		if q.Size != nil && q.Used >= int64(*q.Size) {
			return models.AvailabilitySoldOut
		}
	}
	return models.AvailabilityOK
}
