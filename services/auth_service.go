package services

import (
	"context"
	"errors"
	"time"

	"github.com/phuchau-restaurant/restaurant-staff-sub001/entity"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/pkg/apperr"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/repository"
	"github.com/phuchau-restaurant/restaurant-staff-sub001/utils"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService issues tokens to staff signing in with their PIN and to
// customers opening a session at a table.
type AuthService struct {
	staffRepo *repository.StaffRepository
	tables    Catalog
	jwtSecret string
	jwtTTL    time.Duration
}

func NewAuthService(repo *repository.StaffRepository, tables Catalog, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		staffRepo: repo,
		tables:    tables,
		jwtSecret: secret,
		jwtTTL:    ttl,
	}
}

// LoginWithPIN checks the PIN against the stored hash and returns a token
// scoped to the staff member's restaurant.
func (s *AuthService) LoginWithPIN(ctx context.Context, restaurantID, staffID uint, pin string) (string, *entity.Staff, error) {
	staff, err := s.staffRepo.FindByID(ctx, restaurantID, staffID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(staff.PinHash), []byte(pin)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(staff.ID, staff.RestaurantID, staff.Role, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return "", nil, errors.New("cannot generate token")
	}
	return token, staff, nil
}

// OpenTableSession returns a customer token scoped to one table of the
// restaurant. Unknown tables are apperr.ErrNotFound.
func (s *AuthService) OpenTableSession(ctx context.Context, restaurantID, tableID uint) (string, *entity.Table, error) {
	table, err := s.tables.Table(ctx, restaurantID, tableID)
	if err != nil {
		return "", nil, err
	}
	token, err := utils.GenerateTableToken(table.RestaurantID, table.ID, entity.RoleCustomer, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return "", nil, errors.New("cannot generate token")
	}
	return token, table, nil
}

// RegisterStaff hashes pin and stores a new staff member.
func (s *AuthService) RegisterStaff(ctx context.Context, restaurantID uint, name, role, pin string) (*entity.Staff, error) {
	if len(pin) < 4 {
		return nil, apperr.Validation("pin must have at least 4 digits")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("hash pin failed")
	}
	staff := &entity.Staff{RestaurantID: restaurantID, Name: name, Role: role, PinHash: string(hashed)}
	if err := s.staffRepo.Create(ctx, staff); err != nil {
		return nil, err
	}
	return staff, nil
}
