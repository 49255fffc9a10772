package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/visacarte/internal/errs"
	"github.com/example/visacarte/internal/models"
	"github.com/example/visacarte/internal/otp"
	"github.com/example/visacarte/internal/security"
	"github.com/example/visacarte/internal/verification"
)

type memUserStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*models.User
	failUpdate bool
	updates    int
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[uuid.UUID]*models.User{}}
}

func (s *memUserStore) FindByEmail(email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *memUserStore) FindByPhone(phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Phone == phone {
			return u, nil
		}
	}
	return nil, nil
}

func (s *memUserStore) FindByID(id string) (*models.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[parsed], nil
}

func (s *memUserStore) Create(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email || u.Phone == user.Phone {
			return errs.New(errs.Conflict, "email or phone already registered")
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = user
	return nil
}

func (s *memUserStore) Update(id uuid.UUID, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate {
		return errs.New(errs.Dependency, "user update failed")
	}
	u, ok := s.users[id]
	if !ok {
		return errs.New(errs.NotFound, "user not found")
	}
	s.updates++
	for key, value := range fields {
		switch key {
		case "pin_hash":
			hash := value.(string)
			u.PINHash = &hash
		case "last_login_at":
			at := value.(time.Time)
			u.LastLoginAt = &at
		case "device_id":
			deviceID := value.(string)
			u.DeviceID = &deviceID
		case "email":
			u.Email = value.(string)
		case "phone":
			u.Phone = value.(string)
		case "name":
			u.Name = value.(string)
		case "avatar":
			u.Avatar = value.(string)
		}
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (s *memUserStore) SoftDelete(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return errs.New(errs.NotFound, "user not found")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[parsed]
	if !ok || u.DeletedAt != nil {
		return errs.New(errs.NotFound, "user not found")
	}
	now := time.Now()
	u.IsActive = false
	u.DeletedAt = &now
	return nil
}

func (s *memUserStore) EmailExists(email string, excludeID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memUserStore) PhoneExists(phone string, excludeID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Phone == phone && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type captureSender struct {
	mu       sync.Mutex
	lastKey  string
	lastCode string
	err      error
}

func (c *captureSender) SendCode(key, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.lastKey = key
	c.lastCode = code
	return nil
}

type testDeps struct {
	svc      *Service
	users    *memUserStore
	tracker  *verification.Tracker
	tokens   *security.TokenIssuer
	email    *captureSender
	whatsapp *captureSender
}

func newTestService(t *testing.T) *testDeps {
	t.Helper()
	deps := &testDeps{
		users:    newMemUserStore(),
		tracker:  verification.NewTracker(),
		tokens:   security.NewTokenIssuer("test-secret", time.Hour),
		email:    &captureSender{},
		whatsapp: &captureSender{},
	}
	deps.svc = NewService(deps.users, otp.NewStore(0), deps.tracker, security.NewHasher(), deps.tokens, deps.email, deps.whatsapp)
	return deps
}

func (d *testDeps) register(t *testing.T, email, phone, name, password string) *models.User {
	t.Helper()
	require.NoError(t, d.svc.SendEmailCode(email))
	require.NoError(t, d.svc.VerifyEmailCode(email, d.email.lastCode))
	require.NoError(t, d.svc.SendPhoneCode(phone))
	require.NoError(t, d.svc.VerifyPhoneCode(phone, d.whatsapp.lastCode))

	user, err := d.svc.FinalRegister(RegisterParams{Email: email, Phone: phone, Name: name, Password: password})
	require.NoError(t, err)
	return user
}

func TestSignupFlow(t *testing.T) {
	d := newTestService(t)

	user := d.register(t, "a@x.com", "+1555", "A", "secret1")
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "a@x.com", user.Email)
	assert.True(t, user.IsActive)
	assert.True(t, user.IsVerified)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	// Registering the same email again fails even if both channels are
	// re-verified.
	d.tracker.MarkVerified(verification.ChannelEmail, "a@x.com")
	d.tracker.MarkVerified(verification.ChannelPhone, "+1555")
	_, err := d.svc.FinalRegister(RegisterParams{Email: "a@x.com", Phone: "+1555", Name: "A", Password: "secret1"})
	assert.Equal(t, errs.Conflict, errs.KindOf(err))
}

func TestSendEmailCodeRejectsRegisteredEmail(t *testing.T) {
	d := newTestService(t)
	d.register(t, "a@x.com", "+1555", "A", "secret1")

	err := d.svc.SendEmailCode("A@X.com")
	assert.Equal(t, errs.Conflict, errs.KindOf(err))
}

func TestVerifyEmailCodeWrongThenRight(t *testing.T) {
	d := newTestService(t)

	require.NoError(t, d.svc.SendEmailCode("a@x.com"))
	code := d.email.lastCode

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	err := d.svc.VerifyEmailCode("a@x.com", wrong)
	assert.Equal(t, errs.Auth, errs.KindOf(err))

	assert.NoError(t, d.svc.VerifyEmailCode("a@x.com", code))
}

func TestFinalRegisterRequiresBothChannels(t *testing.T) {
	d := newTestService(t)

	require.NoError(t, d.svc.SendEmailCode("a@x.com"))
	require.NoError(t, d.svc.VerifyEmailCode("a@x.com", d.email.lastCode))

	_, err := d.svc.FinalRegister(RegisterParams{Email: "a@x.com", Phone: "+1555", Name: "A", Password: "secret1"})
	assert.Equal(t, errs.Validation, errs.KindOf(err))

	d2 := newTestService(t)
	require.NoError(t, d2.svc.SendPhoneCode("+1555"))
	require.NoError(t, d2.svc.VerifyPhoneCode("+1555", d2.whatsapp.lastCode))

	_, err = d2.svc.FinalRegister(RegisterParams{Email: "a@x.com", Phone: "+1555", Name: "A", Password: "secret1"})
	assert.Equal(t, errs.Validation, errs.KindOf(err))
}

func TestFinalRegisterConsumesVerifications(t *testing.T) {
	d := newTestService(t)
	d.register(t, "a@x.com", "+1555", "A", "secret1")

	assert.False(t, d.tracker.IsVerified(verification.ChannelEmail, "a@x.com"))
	assert.False(t, d.tracker.IsVerified(verification.ChannelPhone, "+1555"))
}

func TestSendEmailCodeDispatchFailure(t *testing.T) {
	d := newTestService(t)
	d.email.err = assert.AnError

	err := d.svc.SendEmailCode("a@x.com")
	assert.Equal(t, errs.Dependency, errs.KindOf(err))
}

func TestSetPINFormatValidation(t *testing.T) {
	d := newTestService(t)
	user := d.register(t, "a@x.com", "+1555", "A", "secret1")

	before := d.users.updates
	for _, pin := range []string{"12a4", "123", "1234567", "", "12 4"} {
		_, err := d.svc.SetPIN(user.ID.String(), pin)
		assert.Equal(t, errs.Validation, errs.KindOf(err), "pin %q", pin)
	}
	assert.Equal(t, before, d.users.updates, "invalid PINs must not touch storage")
}

func TestSetPINIssuesToken(t *testing.T) {
	d := newTestService(t)
	user := d.register(t, "a@x.com", "+1555", "A", "secret1")

	result, err := d.svc.SetPIN(user.ID.String(), "1234")
	require.NoError(t, err)
	assert.Equal(t, "bearer", result.TokenType)

	subject, err := d.tokens.Verify(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)

	_, err = d.svc.VerifyPIN(user.ID.String(), "1234")
	assert.NoError(t, err)
}

func TestSetPINUnknownUser(t *testing.T) {
	d := newTestService(t)

	_, err := d.svc.SetPIN(uuid.NewString(), "1234")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))

	_, err = d.svc.SetPIN("not-a-uuid", "1234")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestSetPINCompensatingDelete(t *testing.T) {
	d := newTestService(t)
	user := d.register(t, "a@x.com", "+1555", "A", "secret1")

	d.users.failUpdate = true
	_, err := d.svc.SetPIN(user.ID.String(), "1234")
	assert.Equal(t, errs.Dependency, errs.KindOf(err))

	// The half-created account must not survive without a credential.
	d.users.failUpdate = false
	stored, err := d.users.FindByID(user.ID.String())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.IsActive)
	assert.NotNil(t, stored.DeletedAt)
}

func TestVerifyPIN(t *testing.T) {
	d := newTestService(t)
	user := d.register(t, "a@x.com", "+1555", "A", "secret1")

	// No PIN set yet.
	_, err := d.svc.VerifyPIN(user.ID.String(), "1234")
	assert.Equal(t, errs.Auth, errs.KindOf(err))

	_, err = d.svc.SetPIN(user.ID.String(), "1234")
	require.NoError(t, err)

	_, err = d.svc.VerifyPIN(user.ID.String(), "9999")
	assert.Equal(t, errs.Auth, errs.KindOf(err))

	got, err := d.svc.VerifyPIN(user.ID.String(), "1234")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestChangePIN(t *testing.T) {
	d := newTestService(t)
	user := d.register(t, "a@x.com", "+1555", "A", "secret1")

	_, err := d.svc.SetPIN(user.ID.String(), "1234")
	require.NoError(t, err)

	err = d.svc.ChangePIN(user.ID.String(), "9999", "5678")
	assert.Equal(t, errs.Auth, errs.KindOf(err))

	err = d.svc.ChangePIN(user.ID.String(), "1234", "56a8")
	assert.Equal(t, errs.Validation, errs.KindOf(err))

	require.NoError(t, d.svc.ChangePIN(user.ID.String(), "1234", "5678"))

	_, err = d.svc.VerifyPIN(user.ID.String(), "1234")
	assert.Equal(t, errs.Auth, errs.KindOf(err))
	_, err = d.svc.VerifyPIN(user.ID.String(), "5678")
	assert.NoError(t, err)
}

func TestLoginWithPassword(t *testing.T) {
	d := newTestService(t)
	user := d.register(t, "a@x.com", "+1555", "A", "secret1")

	result, err := d.svc.Login(LoginParams{Email: "A@X.com", Password: "secret1", DeviceID: "device-1"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", result.TokenType)
	assert.Equal(t, int64(3600), result.ExpiresIn)
	require.NotNil(t, result.User.LastLoginAt)
	require.NotNil(t, result.User.DeviceID)
	assert.Equal(t, "device-1", *result.User.DeviceID)

	subject, err := d.tokens.Verify(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)
}

func TestLoginWithPIN(t *testing.T) {
	d := newTestService(t)
	user := d.register(t, "a@x.com", "+1555", "A", "secret1")
	_, err := d.svc.SetPIN(user.ID.String(), "1234")
	require.NoError(t, err)

	result, err := d.svc.Login(LoginParams{Phone: "+1555", PIN: "1234"})
	require.NoError(t, err)

	subject, err := d.tokens.Verify(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)
}

func TestLoginWrongCredential(t *testing.T) {
	d := newTestService(t)
	d.register(t, "a@x.com", "+1555", "A", "secret1")

	result, err := d.svc.Login(LoginParams{Email: "a@x.com", Password: "wrong"})
	assert.Equal(t, errs.Auth, errs.KindOf(err))
	assert.Nil(t, result, "no token may be issued on a failed login")
}

func TestLoginFieldValidation(t *testing.T) {
	d := newTestService(t)
	d.register(t, "a@x.com", "+1555", "A", "secret1")

	cases := []LoginParams{
		{Password: "secret1"},                                   // no identifier
		{Email: "a@x.com", Phone: "+1555", Password: "secret1"}, // both identifiers
		{Email: "a@x.com"},                                      // no credential
		{Email: "a@x.com", Password: "secret1", PIN: "1234"},    // both credentials
	}
	for _, p := range cases {
		_, err := d.svc.Login(p)
		assert.Equal(t, errs.Validation, errs.KindOf(err))
	}
}

func TestLoginUnknownUser(t *testing.T) {
	d := newTestService(t)

	_, err := d.svc.Login(LoginParams{Email: "nobody@x.com", Password: "secret1"})
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestDeleteUser(t *testing.T) {
	d := newTestService(t)
	user := d.register(t, "a@x.com", "+1555", "A", "secret1")

	require.NoError(t, d.svc.DeleteUser(user.ID.String()))

	err := d.svc.DeleteUser(user.ID.String())
	assert.Equal(t, errs.NotFound, errs.KindOf(err), "second delete must report not found")

	err = d.svc.DeleteUser("not-a-uuid")
	assert.Equal(t, errs.NotFound, errs.KindOf(err))

	// A soft-deleted account can no longer log in.
	_, err = d.svc.Login(LoginParams{Email: "a@x.com", Password: "secret1"})
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestUpdateProfileCollision(t *testing.T) {
	d := newTestService(t)
	d.register(t, "a@x.com", "+1555", "A", "secret1")
	user2 := d.register(t, "b@x.com", "+1666", "B", "secret2")

	taken := "a@x.com"
	err := d.svc.UpdateProfile(user2.ID, UpdateProfileParams{Email: &taken})
	assert.Equal(t, errs.Conflict, errs.KindOf(err))

	takenPhone := "+1555"
	err = d.svc.UpdateProfile(user2.ID, UpdateProfileParams{Phone: &takenPhone})
	assert.Equal(t, errs.Conflict, errs.KindOf(err))

	name := "B2"
	require.NoError(t, d.svc.UpdateProfile(user2.ID, UpdateProfileParams{Name: &name}))

	err = d.svc.UpdateProfile(user2.ID, UpdateProfileParams{})
	assert.Equal(t, errs.Validation, errs.KindOf(err))
}
