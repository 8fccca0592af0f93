package service

import (
	"context"
	"time"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/metrics"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"github.com/Eursukkul/booking-microservice/autosched-service/internal/repository"
	"github.com/sirupsen/logrus"
)

const searchPageSize = 50

// Step after an occurrence that could not be booked. Occurrences starting
// within the same minute are passed over with it.
const searchAdvance = time.Minute

// TryFunc attempts a booking on one candidate. booked=false moves the search on.
type TryFunc func(ctx context.Context, candidate *models.SubEvent) (booked bool, err error)

type SearchQuery struct {
	EventID   uint
	Item      *models.Item
	Variation *models.ItemVariation
	Earliest  time.Time
}

type SearchResult struct {
	// Booked is the occurrence TryFunc succeeded on, nil if none.
	Booked *models.SubEvent
	// Last is the last occurrence examined.
	Last     *models.SubEvent
	Examined int
}

// SlotSearch walks the occurrences of an event in start order and offers each
// one to a TryFunc until one books or the candidate bound is reached.
type SlotSearch struct {
	subEvents     repository.SubEventRepository
	quotas        repository.QuotaRepository
	maxCandidates int
	logger        *logrus.Logger
}

func NewSlotSearch(subEvents repository.SubEventRepository, quotas repository.QuotaRepository, maxCandidates int, logger *logrus.Logger) *SlotSearch {
	return &SlotSearch{subEvents: subEvents, quotas: quotas, maxCandidates: maxCandidates, logger: logger}
}

// Run examines at most maxCandidates occurrences. Candidates the bulk pre-check
// reports as not OK are skipped without calling try, but still count.
// An error from try stops the search and is returned as is.
func (s *SlotSearch) Run(ctx context.Context, q SearchQuery, try TryFunc) (*SearchResult, error) {
	res := &SearchResult{}
	earliest := q.Earliest
	defer func() { metrics.ObserveCandidates(res.Examined) }()

	var variationID *uint
	if q.Variation != nil {
		variationID = &q.Variation.ID
	}

	for res.Examined < s.maxCandidates {
		page, err := s.subEvents.ListFrom(ctx, q.EventID, earliest, searchPageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return res, nil
		}

		ids := make([]uint, len(page))
		for i := range page {
			ids[i] = page[i].ID
		}
		avail, err := s.quotas.BulkAvailability(ctx, ids, q.Item.ID, variationID)
		if err != nil {
			return nil, err
		}

		for i := range page {
			candidate := &page[i]
			if candidate.DateFrom.Before(earliest) {
				continue
			}
			if res.Examined >= s.maxCandidates {
				break
			}
			res.Examined++
			res.Last = candidate

			if avail[candidate.ID] != models.AvailabilityOK {
				metrics.IncBookingAttempt("precheck_unavailable")
				earliest = candidate.DateFrom.Add(searchAdvance)
				continue
			}

			booked, err := try(ctx, candidate)
			if err != nil {
				return res, err
			}
			if booked {
				res.Booked = candidate
				return res, nil
			}
			earliest = candidate.DateFrom.Add(searchAdvance)
		}

		if res.Examined >= s.maxCandidates {
			break
		}
		if len(page) < searchPageSize {
			return res, nil
		}
	}

	s.logger.WithFields(logrus.Fields{
		"component": "slot_search",
		"event":     q.EventID,
		"examined":  res.Examined,
	}).Info("candidate bound reached")
	return res, nil
}
