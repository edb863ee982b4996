package user

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/payment-platform/services/pkg/bus"
	"github.com/payment-platform/services/pkg/events"
)

// UserUseCase contains the registration and lookup logic.
type UserUseCase struct {
	repository Repository
	publisher  bus.Publisher
	authority  string
}

func NewUserUseCase(repository Repository, publisher bus.Publisher, authority string) *UserUseCase {
	return &UserUseCase{
		repository: repository,
		publisher:  publisher,
		authority:  authority,
	}
}

// Register persists the user and then publishes UserCreated. The order is
// commit-then-publish: a failed write publishes nothing, and a failed
// publish after the commit is a dual-write gap handled by the fallback
// publisher, never a reason to report the registration as failed.
func (uc *UserUseCase) Register(ctx context.Context, req UserRequest) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		Name:            req.Name,
		Email:           req.Email,
		Contact:         req.Contact,
		Password:        string(hash),
		Address:         req.Address,
		DOB:             req.DOB,
		IdentifierType:  req.IdentifierType,
		IdentifierValue: req.IdentifierValue,
		Authorities:     uc.authority,
	}

	if err := uc.repository.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	ev := events.UserCreated{
		UserID:          u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Contact:         u.Contact,
		IdentifierType:  u.IdentifierType,
		IdentifierValue: u.IdentifierValue,
	}
	data, err := events.Marshal(ev)
	if err != nil {
		// The record is durable but nothing can be advertised; this is the
		// loud path, not a silent drop.
		log.Printf("🔥 CRITICAL: user %d created but UserCreated could not be encoded: %v", u.ID, err)
		return u, nil
	}

	msg := bus.Message{Topic: ev.Topic(), Key: []byte(u.Contact), Value: data}
	if err := uc.publisher.Publish(ctx, msg); err != nil {
		log.Printf("🔥 CRITICAL: user %d created but UserCreated is lost (publish and outbox both failed): %v", u.ID, err)
		return u, nil
	}

	log.Printf("✅ User %d registered, UserCreated published for contact %s", u.ID, u.Contact)
	return u, nil
}

// Details serves the synchronous read path other services use for authority
// resolution.
func (uc *UserUseCase) Details(ctx context.Context, contact string) (*User, error) {
	u, err := uc.repository.GetByContact(ctx, contact)
	if err != nil {
		return nil, err
	}
	return u, nil
}
