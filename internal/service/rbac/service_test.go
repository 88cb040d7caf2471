package rbac

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/pkg/apperror"
)

type grantKey struct {
	roleID       uuid.UUID
	permissionID uuid.UUID
}

type fakeRBACRepo struct {
	repository.RBACRepository
	roles       map[uuid.UUID]*model.Role
	permissions map[uuid.UUID]*model.Permission
	grants      map[grantKey]bool
}

func newFakeRBACRepo() *fakeRBACRepo {
	return &fakeRBACRepo{
		roles:       map[uuid.UUID]*model.Role{},
		permissions: map[uuid.UUID]*model.Permission{},
		grants:      map[grantKey]bool{},
	}
}

func (f *fakeRBACRepo) CreateRole(_ context.Context, role *model.Role) error {
	for _, existing := range f.roles {
		if existing.Name == role.Name {
			return repository.ErrDuplicate
		}
	}
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRBACRepo) GetRole(_ context.Context, id uuid.UUID) (*model.Role, error) {
	if r, ok := f.roles[id]; ok {
		return r, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRBACRepo) UpdateRole(_ context.Context, role *model.Role) error {
	if _, ok := f.roles[role.ID]; !ok {
		return repository.ErrNotFound
	}
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRBACRepo) DeleteRole(_ context.Context, id uuid.UUID) error {
	if _, ok := f.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.roles, id)
	return nil
}

func (f *fakeRBACRepo) ListRoles(_ context.Context) ([]*model.Role, error) {
	roles := []*model.Role{}
	for _, r := range f.roles {
		roles = append(roles, r)
	}
	return roles, nil
}

func (f *fakeRBACRepo) CreatePermission(_ context.Context, p *model.Permission) error {
	for _, existing := range f.permissions {
		if existing.Slug == p.Slug {
			return repository.ErrDuplicate
		}
	}
	f.permissions[p.ID] = p
	return nil
}

func (f *fakeRBACRepo) GetPermission(_ context.Context, id uuid.UUID) (*model.Permission, error) {
	if p, ok := f.permissions[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRBACRepo) UpdatePermission(_ context.Context, p *model.Permission) error {
	f.permissions[p.ID] = p
	return nil
}

func (f *fakeRBACRepo) DeletePermission(_ context.Context, id uuid.UUID) error {
	if _, ok := f.permissions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.permissions, id)
	return nil
}

func (f *fakeRBACRepo) ListPermissions(_ context.Context) ([]*model.Permission, error) {
	permissions := []*model.Permission{}
	for _, p := range f.permissions {
		permissions = append(permissions, p)
	}
	return permissions, nil
}

func (f *fakeRBACRepo) GrantPermission(_ context.Context, roleID, permissionID uuid.UUID) error {
	f.grants[grantKey{roleID, permissionID}] = true
	return nil
}

func (f *fakeRBACRepo) RevokePermission(_ context.Context, roleID, permissionID uuid.UUID) error {
	delete(f.grants, grantKey{roleID, permissionID})
	return nil
}

func (f *fakeRBACRepo) ReplacePermissions(_ context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	for key := range f.grants {
		if key.roleID == roleID {
			delete(f.grants, key)
		}
	}
	for _, id := range permissionIDs {
		f.grants[grantKey{roleID, id}] = true
	}
	return nil
}

func (f *fakeRBACRepo) ListRolePermissions(_ context.Context, roleID uuid.UUID) ([]*model.Permission, error) {
	permissions := []*model.Permission{}
	for key := range f.grants {
		if key.roleID == roleID {
			permissions = append(permissions, f.permissions[key.permissionID])
		}
	}
	return permissions, nil
}

type fakeUserCounter struct {
	repository.UserRepository
	counts map[uuid.UUID]int
}

func (f *fakeUserCounter) CountByRole(_ context.Context, roleID uuid.UUID) (int, error) {
	return f.counts[roleID], nil
}

func newTestService() (*Service, *fakeRBACRepo, *fakeUserCounter) {
	repo := newFakeRBACRepo()
	users := &fakeUserCounter{counts: map[uuid.UUID]int{}}
	return NewService(repo, users), repo, users
}

func seedPermission(t *testing.T, svc *Service, slug string) *model.Permission {
	t.Helper()
	p, err := svc.CreatePermission(context.Background(), &model.CreatePermissionRequest{
		Slug: slug,
		Name: slug,
	})
	require.NoError(t, err)
	return p
}

func TestCreateRole_WithPermissions(t *testing.T) {
	svc, _, _ := newTestService()
	p1 := seedPermission(t, svc, "patients.create")
	p2 := seedPermission(t, svc, "patients.view")

	detail, err := svc.CreateRole(context.Background(), &model.CreateRoleRequest{
		Name:        "Front Desk",
		Permissions: []uuid.UUID{p1.ID, p2.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Front Desk", detail.Name)
	assert.Len(t, detail.Permissions, 2)
	assert.False(t, detail.IsSystemRole)
}

func TestCreateRole_DuplicateName(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateRole(context.Background(), &model.CreateRoleRequest{Name: "Front Desk"})
	require.NoError(t, err)

	_, err = svc.CreateRole(context.Background(), &model.CreateRoleRequest{Name: "Front Desk"})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestCreatePermission_SlugFormat(t *testing.T) {
	svc, _, _ := newTestService()

	for _, slug := range []string{"patients.create", "billing.process_payment", "reports.view"} {
		_, err := svc.CreatePermission(context.Background(), &model.CreatePermissionRequest{Slug: slug, Name: slug})
		assert.NoError(t, err, slug)
	}
	for _, slug := range []string{"patients", "Patients.Create", "patients.create.all", "patients..create", ".create"} {
		_, err := svc.CreatePermission(context.Background(), &model.CreatePermissionRequest{Slug: slug, Name: slug})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation), slug)
	}
}

func TestGrantRevoke_Idempotent(t *testing.T) {
	svc, repo, _ := newTestService()
	p := seedPermission(t, svc, "beds.manage")
	detail, err := svc.CreateRole(context.Background(), &model.CreateRoleRequest{Name: "Ward"})
	require.NoError(t, err)

	require.NoError(t, svc.Grant(context.Background(), detail.ID, p.ID))
	require.NoError(t, svc.Grant(context.Background(), detail.ID, p.ID), "second grant is a no-op")
	assert.True(t, repo.grants[grantKey{detail.ID, p.ID}])

	require.NoError(t, svc.Revoke(context.Background(), detail.ID, p.ID))
	require.NoError(t, svc.Revoke(context.Background(), detail.ID, p.ID), "second revoke is a no-op")
	assert.False(t, repo.grants[grantKey{detail.ID, p.ID}])
}

func TestGrant_UnknownRole(t *testing.T) {
	svc, _, _ := newTestService()
	p := seedPermission(t, svc, "beds.manage")

	err := svc.Grant(context.Background(), uuid.New(), p.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestUpdateRole_SystemRoleRename(t *testing.T) {
	svc, repo, _ := newTestService()
	role := &model.Role{
		Base:         model.Base{ID: uuid.New()},
		Name:         model.RoleAdministrator,
		IsSystemRole: true,
	}
	require.NoError(t, repo.CreateRole(context.Background(), role))

	newName := "Super Admin"
	_, err := svc.UpdateRole(context.Background(), role.ID, &model.UpdateRoleRequest{Name: &newName})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	desc := "Full access"
	detail, err := svc.UpdateRole(context.Background(), role.ID, &model.UpdateRoleRequest{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Full access", detail.Description)
	assert.Equal(t, model.RoleAdministrator, detail.Name)
}

func TestDeleteRole_Guards(t *testing.T) {
	svc, repo, users := newTestService()

	system := &model.Role{Base: model.Base{ID: uuid.New()}, Name: model.RoleDoctor, IsSystemRole: true}
	require.NoError(t, repo.CreateRole(context.Background(), system))
	err := svc.DeleteRole(context.Background(), system.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "system roles are protected")

	detail, err := svc.CreateRole(context.Background(), &model.CreateRoleRequest{Name: "Temp"})
	require.NoError(t, err)
	users.counts[detail.ID] = 2
	err = svc.DeleteRole(context.Background(), detail.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation), "assigned roles are protected")

	users.counts[detail.ID] = 0
	assert.NoError(t, svc.DeleteRole(context.Background(), detail.ID))
}
