package auth

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/visacarte/internal/errs"
	"github.com/example/visacarte/internal/models"
	"github.com/example/visacarte/internal/security"
	"github.com/example/visacarte/internal/verification"
)

// UserStore is the account persistence contract. Lookups return
// (nil, nil) when no record matches; malformed ids count as not found.
type UserStore interface {
	FindByEmail(email string) (*models.User, error)
	FindByPhone(phone string) (*models.User, error)
	FindByID(id string) (*models.User, error)
	Create(user *models.User) error
	Update(id uuid.UUID, fields map[string]interface{}) error
	SoftDelete(id string) error
	EmailExists(email string, excludeID uuid.UUID) (bool, error)
	PhoneExists(phone string, excludeID uuid.UUID) (bool, error)
}

// CodeStore holds pending one-time codes per channel key.
type CodeStore interface {
	IssueCode(key string) (string, error)
	CheckCode(key, submitted string) bool
}

// VerifiedSet tracks channel keys that passed their code challenge.
type VerifiedSet interface {
	MarkVerified(channel verification.Channel, key string)
	IsVerified(channel verification.Channel, key string) bool
	Consume(channel verification.Channel, key string)
}

// CodeSender delivers a one-time code to a channel key.
type CodeSender interface {
	SendCode(key, code string) error
}

// Service drives the signup funnel: send codes, verify codes, create
// the account, set the PIN credential, issue session tokens. Login and
// the PIN operations live here too since they share the same
// collaborators.
type Service struct {
	users    UserStore
	codes    CodeStore
	verified VerifiedSet
	hasher   *security.Hasher
	tokens   *security.TokenIssuer
	email    CodeSender
	whatsapp CodeSender
}

// NewService constructs a Service.
func NewService(users UserStore, codes CodeStore, verified VerifiedSet, hasher *security.Hasher, tokens *security.TokenIssuer, email, whatsapp CodeSender) *Service {
	return &Service{
		users:    users,
		codes:    codes,
		verified: verified,
		hasher:   hasher,
		tokens:   tokens,
		email:    email,
		whatsapp: whatsapp,
	}
}

// TokenResult is returned by SetPIN.
type TokenResult struct {
	AccessToken string
	TokenType   string
	User        *models.User
}

// LoginResult is returned by Login.
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
	User        *models.User
}

// SendEmailCode issues a verification code for the email and dispatches
// it over the email transport. Emails already held by an active account
// are rejected before any code is issued.
func (s *Service) SendEmailCode(email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errs.New(errs.Validation, "email is required")
	}

	existing, err := s.users.FindByEmail(email)
	if err != nil {
		return err
	}
	if existing != nil && existing.IsActive {
		return errs.New(errs.Conflict, "email already registered")
	}

	code, err := s.codes.IssueCode(email)
	if err != nil {
		return errs.Wrap(errs.Dependency, "failed to generate verification code", err)
	}

	if err := s.email.SendCode(email, code); err != nil {
		return errs.Wrap(errs.Dependency, "failed to send verification email", err)
	}

	return nil
}

// VerifyEmailCode checks the submitted code. A match marks the email
// verified and consumes the pending code; a wrong guess leaves the
// pending code in place.
func (s *Service) VerifyEmailCode(email, code string) error {
	email = normalizeEmail(email)
	if !s.codes.CheckCode(email, code) {
		return errs.New(errs.Auth, "invalid verification code")
	}

	s.verified.MarkVerified(verification.ChannelEmail, email)
	return nil
}

// SendPhoneCode issues a verification code for the phone and dispatches
// it over WhatsApp.
func (s *Service) SendPhoneCode(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return errs.New(errs.Validation, "phone is required")
	}

	code, err := s.codes.IssueCode(phone)
	if err != nil {
		return errs.Wrap(errs.Dependency, "failed to generate verification code", err)
	}

	if err := s.whatsapp.SendCode(phone, code); err != nil {
		return errs.Wrap(errs.Dependency, "failed to send whatsapp code", err)
	}

	return nil
}

// VerifyPhoneCode checks the submitted code and marks the phone
// verified on success.
func (s *Service) VerifyPhoneCode(phone, code string) error {
	phone = strings.TrimSpace(phone)
	if !s.codes.CheckCode(phone, code) {
		return errs.New(errs.Auth, "invalid verification code")
	}

	s.verified.MarkVerified(verification.ChannelPhone, phone)
	return nil
}

// RegisterParams are the inputs for FinalRegister.
type RegisterParams struct {
	Email    string
	Phone    string
	Name     string
	Password string
}

// FinalRegister creates the account once both channels are verified.
// The email uniqueness re-check here is only a fast path; the unique
// index on the users table is the authoritative guard, and a violation
// surfacing from Create maps to the same conflict error.
func (s *Service) FinalRegister(p RegisterParams) (*models.User, error) {
	email := normalizeEmail(p.Email)
	phone := strings.TrimSpace(p.Phone)

	if email == "" || phone == "" || p.Name == "" || p.Password == "" {
		return nil, errs.New(errs.Validation, "email, phone, name and password are required")
	}

	if !s.verified.IsVerified(verification.ChannelEmail, email) {
		return nil, errs.New(errs.Validation, "email not verified")
	}
	if !s.verified.IsVerified(verification.ChannelPhone, phone) {
		return nil, errs.New(errs.Validation, "phone not verified")
	}

	existing, err := s.users.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.New(errs.Conflict, "email already registered")
	}

	passwordHash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return nil, errs.Wrap(errs.Dependency, "failed to hash password", err)
	}

	user := &models.User{
		Email:        email,
		Phone:        phone,
		Name:         p.Name,
		PasswordHash: passwordHash,
		IsActive:     true,
		IsVerified:   true,
	}

	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	s.verified.Consume(verification.ChannelEmail, email)
	s.verified.Consume(verification.ChannelPhone, phone)

	return user, nil
}

// SetPIN hashes and stores the PIN, then issues a session token. Any
// failure after the account lookup triggers a compensating delete of
// the account: the signup funnel is all-or-nothing, an account must
// never survive without a usable credential.
func (s *Service) SetPIN(userID, pin string) (*TokenResult, error) {
	if !validPIN(pin) {
		return nil, errs.New(errs.Validation, "pin must be 4 to 6 digits")
	}

	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.New(errs.NotFound, "user not found")
	}

	pinHash, err := s.hasher.Hash(pin)
	if err != nil {
		s.compensate(userID)
		return nil, errs.Wrap(errs.Dependency, "failed to hash pin", err)
	}

	if err := s.users.Update(user.ID, map[string]interface{}{"pin_hash": pinHash}); err != nil {
		s.compensate(userID)
		return nil, errs.Wrap(errs.Dependency, "failed to store pin", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Phone)
	if err != nil {
		s.compensate(userID)
		return nil, errs.Wrap(errs.Dependency, "failed to issue token", err)
	}

	user.PINHash = &pinHash
	return &TokenResult{AccessToken: token, TokenType: "bearer", User: user}, nil
}

// VerifyPIN checks the PIN against the stored hash. Read-only.
func (s *Service) VerifyPIN(userID, pin string) (*models.User, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.New(errs.NotFound, "user not found")
	}

	if user.PINHash == nil || !s.hasher.Verify(pin, *user.PINHash) {
		return nil, errs.New(errs.Auth, "invalid pin")
	}

	return user, nil
}

// ChangePIN verifies the old PIN before hashing and storing the new one.
func (s *Service) ChangePIN(userID, oldPIN, newPIN string) error {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errs.New(errs.NotFound, "user not found")
	}

	if user.PINHash == nil || !s.hasher.Verify(oldPIN, *user.PINHash) {
		return errs.New(errs.Auth, "invalid pin")
	}

	if !validPIN(newPIN) {
		return errs.New(errs.Validation, "pin must be 4 to 6 digits")
	}

	pinHash, err := s.hasher.Hash(newPIN)
	if err != nil {
		return errs.Wrap(errs.Dependency, "failed to hash pin", err)
	}

	return s.users.Update(user.ID, map[string]interface{}{"pin_hash": pinHash})
}

// LoginParams are the inputs for Login. Exactly one of Email/Phone and
// exactly one of Password/PIN must be supplied.
type LoginParams struct {
	Email    string
	Phone    string
	Password string
	PIN      string
	DeviceID string
}

// Login authenticates by password or PIN, records last-login and the
// optional device binding, and issues a session token.
func (s *Service) Login(p LoginParams) (*LoginResult, error) {
	hasEmail := p.Email != ""
	hasPhone := p.Phone != ""
	if hasEmail == hasPhone {
		return nil, errs.New(errs.Validation, "provide exactly one of email or phone")
	}

	hasPassword := p.Password != ""
	hasPIN := p.PIN != ""
	if hasPassword == hasPIN {
		return nil, errs.New(errs.Validation, "provide exactly one of password or pin")
	}

	var user *models.User
	var err error
	if hasEmail {
		user, err = s.users.FindByEmail(normalizeEmail(p.Email))
	} else {
		user, err = s.users.FindByPhone(strings.TrimSpace(p.Phone))
	}
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, errs.New(errs.NotFound, "user not found")
	}

	if hasPassword {
		if !s.hasher.Verify(p.Password, user.PasswordHash) {
			return nil, errs.New(errs.Auth, "invalid credentials")
		}
	} else {
		if user.PINHash == nil || !s.hasher.Verify(p.PIN, *user.PINHash) {
			return nil, errs.New(errs.Auth, "invalid credentials")
		}
	}

	now := time.Now()
	fields := map[string]interface{}{"last_login_at": now}
	if p.DeviceID != "" {
		fields["device_id"] = p.DeviceID
	}
	if err := s.users.Update(user.ID, fields); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Phone)
	if err != nil {
		return nil, errs.Wrap(errs.Dependency, "failed to issue token", err)
	}

	user.LastLoginAt = &now
	if p.DeviceID != "" {
		deviceID := p.DeviceID
		user.DeviceID = &deviceID
	}

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		User:        user,
	}, nil
}

// DeleteUser soft-deletes the account.
func (s *Service) DeleteUser(userID string) error {
	return s.users.SoftDelete(userID)
}

// Profile returns the account for the authenticated subject.
func (s *Service) Profile(userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(userID.String())
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.New(errs.NotFound, "user not found")
	}
	return user, nil
}

// UpdateProfileParams are optional profile fields; nil means unchanged.
type UpdateProfileParams struct {
	Name   *string
	Avatar *string
	Email  *string
	Phone  *string
}

// UpdateProfile applies partial updates. Email and phone changes are
// pre-checked for collisions against every other account.
func (s *Service) UpdateProfile(userID uuid.UUID, p UpdateProfileParams) error {
	fields := map[string]interface{}{}

	if p.Email != nil {
		email := normalizeEmail(*p.Email)
		taken, err := s.users.EmailExists(email, userID)
		if err != nil {
			return err
		}
		if taken {
			return errs.New(errs.Conflict, "email already registered")
		}
		fields["email"] = email
	}
	if p.Phone != nil {
		phone := strings.TrimSpace(*p.Phone)
		taken, err := s.users.PhoneExists(phone, userID)
		if err != nil {
			return err
		}
		if taken {
			return errs.New(errs.Conflict, "phone already registered")
		}
		fields["phone"] = phone
	}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Avatar != nil {
		fields["avatar"] = *p.Avatar
	}

	if len(fields) == 0 {
		return errs.New(errs.Validation, "no fields to update")
	}

	return s.users.Update(userID, fields)
}

// compensate rolls back a partially completed signup by removing the
// account that was left without a usable credential.
func (s *Service) compensate(userID string) {
	if err := s.users.SoftDelete(userID); err != nil {
		log.Printf("compensating delete failed for user %s: %v", userID, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validPIN reports whether pin is 4 to 6 digits.
func validPIN(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
