package waiverController

import (
	"context"
	"fmt"
	"strings"

	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/repositories"
	"waiverdesk/internal/services"
	"waiverdesk/internal/typeahead"
)

type WaiverController struct {
	waiverRepo               repositories.WaiverRepository
	transactionService       *services.TransactionService
	cacheInvalidationService *services.CacheInvalidationService
	clock                    typeahead.Clock
	log                      logger.Logger
}

func New(
	waiverRepo repositories.WaiverRepository,
	transactionService *services.TransactionService,
	cacheInvalidationService *services.CacheInvalidationService,
	clock typeahead.Clock,
) *WaiverController {
	if clock == nil {
		clock = typeahead.RealClock{}
	}

	return &WaiverController{
		waiverRepo:               waiverRepo,
		transactionService:       transactionService,
		cacheInvalidationService: cacheInvalidationService,
		clock:                    clock,
		log:                      logger.New("WaiverController"),
	}
}

// Submit stores a signed waiver. The signing time and waiver year come from
// the server clock, never from the request.
func (c *WaiverController) Submit(
	ctx context.Context,
	request SubmitWaiverRequest,
	ipAddress string,
	userAgent string,
) (*Waiver, error) {
	log := c.log.Function("Submit")

	if missing := request.MissingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidWaiver, strings.Join(missing, ", "))
	}

	waiver := request.ToWaiver(c.clock.Now(), ipAddress, userAgent)

	err := c.transactionService.Execute(ctx, func(txCtx context.Context) error {
		return c.waiverRepo.Create(txCtx, waiver)
	})
	if err != nil {
		return nil, log.Err("failed to submit waiver", err)
	}

	c.cacheInvalidationService.InvalidateSuggestions(ctx)
	log.Info("waiver submitted", "id", waiver.ID, "waiverYear", waiver.WaiverYear)

	return waiver, nil
}

func (c *WaiverController) Get(ctx context.Context, id int) (*Waiver, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	return c.waiverRepo.GetByID(ctx, id)
}
