package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/pkg/apperror"
	"github.com/alsalam/hospital-api/pkg/security"
)

type fakeUserRepo struct {
	repository.UserRepository
	users map[uuid.UUID]*model.User
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	for _, existing := range f.users {
		if existing.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.users[id].PasswordHash = hash
	return nil
}

func (f *fakeUserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	f.users[id].IsActive = active
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) CountByRole(_ context.Context, roleID uuid.UUID) (int, error) {
	count := 0
	for _, u := range f.users {
		if u.RoleID == roleID && u.IsActive {
			count++
		}
	}
	return count, nil
}

type fakeRoleRepo struct {
	repository.RBACRepository
	roles map[uuid.UUID]*model.Role
}

func (f *fakeRoleRepo) GetRole(_ context.Context, id uuid.UUID) (*model.Role, error) {
	if r, ok := f.roles[id]; ok {
		return r, nil
	}
	return nil, repository.ErrNotFound
}

type fakeApptRepo struct {
	repository.AppointmentRepository
	blocked map[uuid.UUID]int
}

func (f *fakeApptRepo) CountBlockedForDoctor(_ context.Context, doctorID uuid.UUID) (int, error) {
	return f.blocked[doctorID], nil
}

type fixture struct {
	svc        *Service
	users      *fakeUserRepo
	appts      *fakeApptRepo
	adminRole  *model.Role
	staffRole  *model.Role
	doctorRole *model.Role
}

func newFixture() *fixture {
	adminRole := &model.Role{Base: model.Base{ID: uuid.New()}, Name: model.RoleAdministrator, IsSystemRole: true}
	staffRole := &model.Role{Base: model.Base{ID: uuid.New()}, Name: model.RoleReception, IsSystemRole: true}
	doctorRole := &model.Role{Base: model.Base{ID: uuid.New()}, Name: model.RoleDoctor, IsSystemRole: true}

	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{}}
	roles := &fakeRoleRepo{roles: map[uuid.UUID]*model.Role{
		adminRole.ID:  adminRole,
		staffRole.ID:  staffRole,
		doctorRole.ID: doctorRole,
	}}
	appts := &fakeApptRepo{blocked: map[uuid.UUID]int{}}
	return &fixture{
		svc:        NewService(users, roles, appts, security.NewBcryptHasher(4)),
		users:      users,
		appts:      appts,
		adminRole:  adminRole,
		staffRole:  staffRole,
		doctorRole: doctorRole,
	}
}

func (f *fixture) addUser(t *testing.T, username string, roleID uuid.UUID) *model.User {
	t.Helper()
	u, err := f.svc.Create(context.Background(), &model.CreateUserRequest{
		Username: username,
		Password: "password123",
		FullName: username,
		RoleID:   roleID,
	})
	require.NoError(t, err)
	return u
}

func TestCreate(t *testing.T) {
	f := newFixture()

	u := f.addUser(t, "reception1", f.staffRole.ID)
	assert.True(t, u.IsActive)
	assert.Equal(t, model.RoleReception, u.RoleName)
	assert.NotEqual(t, "password123", u.PasswordHash)
}

func TestCreate_DuplicateUsername(t *testing.T) {
	f := newFixture()
	f.addUser(t, "reception1", f.staffRole.ID)

	_, err := f.svc.Create(context.Background(), &model.CreateUserRequest{
		Username: "reception1",
		Password: "password123",
		FullName: "Someone Else",
		RoleID:   f.staffRole.ID,
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestCreate_UnknownRole(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), &model.CreateUserRequest{
		Username: "reception1",
		Password: "password123",
		FullName: "Reception",
		RoleID:   uuid.New(),
	})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestDelete_LastAdministrator(t *testing.T) {
	f := newFixture()
	admin := f.addUser(t, "admin", f.adminRole.ID)
	actor := f.addUser(t, "reception1", f.staffRole.ID)

	err := f.svc.Delete(context.Background(), admin.ID, actor.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "last administrator is protected")

	f.addUser(t, "admin2", f.adminRole.ID)
	assert.NoError(t, f.svc.Delete(context.Background(), admin.ID, actor.ID),
		"deletable once a second administrator exists")
}

func TestDelete_Self(t *testing.T) {
	f := newFixture()
	admin := f.addUser(t, "admin", f.adminRole.ID)

	err := f.svc.Delete(context.Background(), admin.ID, admin.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestDelete_DoctorWithOpenAppointments(t *testing.T) {
	f := newFixture()
	actor := f.addUser(t, "admin", f.adminRole.ID)
	doctor := f.addUser(t, "dr.rahman", f.doctorRole.ID)
	f.appts.blocked[doctor.ID] = 2

	err := f.svc.Delete(context.Background(), doctor.ID, actor.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	f.appts.blocked[doctor.ID] = 0
	assert.NoError(t, f.svc.Delete(context.Background(), doctor.ID, actor.ID))
}

func TestSetActive_LastAdministrator(t *testing.T) {
	f := newFixture()
	admin := f.addUser(t, "admin", f.adminRole.ID)

	err := f.svc.SetActive(context.Background(), admin.ID, false)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	f.addUser(t, "admin2", f.adminRole.ID)
	assert.NoError(t, f.svc.SetActive(context.Background(), admin.ID, false))
}

func TestUpdate_LastAdministratorRoleChange(t *testing.T) {
	f := newFixture()
	admin := f.addUser(t, "admin", f.adminRole.ID)

	_, err := f.svc.Update(context.Background(), admin.ID, &model.UpdateUserRequest{RoleID: &f.staffRole.ID})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	f.addUser(t, "admin2", f.adminRole.ID)
	updated, err := f.svc.Update(context.Background(), admin.ID, &model.UpdateUserRequest{RoleID: &f.staffRole.ID})
	require.NoError(t, err)
	assert.Equal(t, model.RoleReception, updated.RoleName)
}

func TestSetPassword(t *testing.T) {
	f := newFixture()
	u := f.addUser(t, "nurse1", f.staffRole.ID)
	oldHash := u.PasswordHash

	err := f.svc.SetPassword(context.Background(), u.ID, &model.SetPasswordRequest{Password: "brand-new-pass"})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, f.users.users[u.ID].PasswordHash)
}
