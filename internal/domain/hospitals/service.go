package hospitals

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound  = errors.New("hospital not found")
	ErrEmptyName = errors.New("hospital name is required")
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, name string) (*Hospital, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	h := &Hospital{Name: name}
	if err := s.repo.Create(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Candidates matches an extracted referral destination against the master.
// The requesting org is excluded so a facility never suggests itself.
func (s *Service) Candidates(ctx context.Context, targetName string, excludeID uuid.UUID) ([]Candidate, error) {
	master, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return FindCandidates(targetName, master, excludeID), nil
}
