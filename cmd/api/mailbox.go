package api

import (
	"context"
	"fmt"

	authRepo "ga03-kanban/internal/auth/repository"
	authUsecase "ga03-kanban/internal/auth/usecase"
	"ga03-kanban/internal/kanban/domain"
	"ga03-kanban/pkg/gmail"
)

// Mailbox opens Gmail clients for board owners with a connected Google account
type Mailbox struct {
	users  authRepo.UserRepository
	gmail  *gmail.Service
	authUc authUsecase.AuthUsecase
}

func NewMailbox(users authRepo.UserRepository, gmailService *gmail.Service, authUc authUsecase.AuthUsecase) *Mailbox {
	return &Mailbox{
		users:  users,
		gmail:  gmailService,
		authUc: authUc,
	}
}

// Client returns the Gmail client of userID, or nil when the user has no mailbox
func (m *Mailbox) Client(ctx context.Context, userID string) (*gmail.Client, error) {
	user, err := m.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.Validationf("unknown user %s", userID)
	}
	if !user.HasMailbox() {
		return nil, nil
	}
	return m.gmail.Client(ctx, user.AccessToken, user.RefreshToken, user.TokenExpiry, m.authUc.TokenUpdater(user.ID))
}

// RecentCards lists the newest messages under labelID as board cards
func (m *Mailbox) RecentCards(ctx context.Context, userID, labelID string, limit int) ([]domain.BoardEmail, error) {
	client, err := m.Client(ctx, userID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: no mailbox connected", domain.ErrUnavailable)
	}
	return client.RecentCards(ctx, labelID, limit)
}
