// Package seed fills a development directory with random offices, advisors
// and clients. Every person goes through the lifecycle coordinator so that
// a login account exists for each row.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/utils"
)

type Creator interface {
	Create(ctx context.Context, kind domain.Kind, fields domain.Fields, password string) (*domain.Entity, error)
}

type OfficeCreator interface {
	CreateOffice(ctx context.Context, office *domain.Office) error
}

type Options struct {
	Offices           int
	AdvisorsPerOffice int
	ClientsPerAdvisor int
	// Password is shared by all seeded accounts; empty lets the identity
	// provider generate one per account.
	Password    string
	EmailDomain string
}

type Summary struct {
	Offices  int
	Advisors int
	Clients  int
	Failed   int
}

type Seeder struct {
	lifecycle Creator
	offices   OfficeCreator
	logger    *slog.Logger
}

func New(lc Creator, offices OfficeCreator, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{lifecycle: lc, offices: offices, logger: logger}
}

func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	if opts.Offices <= 0 {
		return sum, errors.New("at least one office is required")
	}

	for i := 0; i < opts.Offices; i++ {
		office := &domain.Office{
			Name:     fmt.Sprintf("Escritório %s", utils.RandomName()),
			Phone:    utils.RandomPhone(),
			IsActive: true,
		}
		if err := s.offices.CreateOffice(ctx, office); err != nil {
			return sum, fmt.Errorf("create office: %w", err)
		}
		sum.Offices++

		// each office gets one administrator
		s.person(ctx, &sum, domain.KindUser, domain.Fields{Role: domain.RoleOfficeAdmin, OfficeID: &office.ID}, opts)

		for j := 0; j < opts.AdvisorsPerOffice; j++ {
			advisor := s.person(ctx, &sum, domain.KindAdvisor, domain.Fields{Code: utils.RandomAdvisorCode(), OfficeID: &office.ID}, opts)
			if advisor == nil {
				continue
			}
			sum.Advisors++

			for k := 0; k < opts.ClientsPerAdvisor; k++ {
				fields := domain.Fields{Role: domain.RoleAdvisorClient, OfficeID: &office.ID, AdvisorID: &advisor.ID}
				if s.person(ctx, &sum, domain.KindUser, fields, opts) != nil {
					sum.Clients++
				}
			}
		}
	}

	return sum, nil
}

// person fills the random attributes of fields and creates the entity.
// Failures are counted and logged; duplicates are expected with random data.
func (s *Seeder) person(ctx context.Context, sum *Summary, kind domain.Kind, fields domain.Fields, opts Options) *domain.Entity {
	fields.Name = utils.RandomName()
	fields.Email = utils.EmailFromName(fields.Name, opts.EmailDomain)
	fields.Phone = utils.RandomPhone()
	if rand.Intn(2) == 0 {
		fields.TaxID = utils.RandomCPF()
	}

	e, err := s.lifecycle.Create(ctx, kind, fields, opts.Password)
	if err != nil {
		sum.Failed++
		s.logger.Warn("cannot seed record", "kind", kind, "email", fields.Email, "error", err)
		return nil
	}
	return e
}
