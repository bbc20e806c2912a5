package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intellilearn/admin-api/internal/models"
	appErrors "github.com/intellilearn/admin-api/pkg/errors"
)

type fakeTeacherRepo struct {
	items         map[string]*models.Teacher
	emailTaken    map[string]struct{}
	schoolCount   int
	lastLogin     []string
	deleted       []string
	batch         []models.Teacher
	passwordByID  map[string]string
	statusByID    map[string]string
	statsBySchool *models.TeacherStatistics
}

func (f *fakeTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var out []models.Teacher
	for _, t := range f.items {
		if filter.SchoolID != "" && t.SchoolID != filter.SchoolID {
			continue
		}
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (f *fakeTeacherRepo) All(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	list, _, err := f.List(ctx, models.TeacherFilter{SchoolID: schoolID})
	return list, err
}

func (f *fakeTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := f.items[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTeacherRepo) FindByEmployeeID(ctx context.Context, employeeID string) (*models.Teacher, error) {
	for _, t := range f.items {
		if t.EmployeeID == employeeID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTeacherRepo) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	for _, t := range f.items {
		if strings.EqualFold(t.Email, email) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTeacherRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	_, ok := f.emailTaken[strings.ToLower(email)]
	return ok, nil
}

func (f *fakeTeacherRepo) ExistingEmails(ctx context.Context, emails []string) ([]string, error) {
	var existing []string
	for _, email := range emails {
		if _, ok := f.emailTaken[strings.ToLower(email)]; ok {
			existing = append(existing, strings.ToLower(email))
		}
	}
	return existing, nil
}

func (f *fakeTeacherRepo) CountBySchoolCode(ctx context.Context, schoolCode string) (int, error) {
	return f.schoolCount, nil
}

func (f *fakeTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if f.items == nil {
		f.items = make(map[string]*models.Teacher)
	}
	if teacher.ID == "" {
		teacher.ID = fmt.Sprintf("t%d", len(f.items)+1)
	}
	cp := *teacher
	f.items[teacher.ID] = &cp
	return nil
}

func (f *fakeTeacherRepo) BulkInsert(ctx context.Context, teachers []models.Teacher) error {
	f.batch = append(f.batch, teachers...)
	return nil
}

func (f *fakeTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	cp := *teacher
	f.items[teacher.ID] = &cp
	return nil
}

func (f *fakeTeacherRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if f.passwordByID == nil {
		f.passwordByID = make(map[string]string)
	}
	f.passwordByID[id] = passwordHash
	return nil
}

func (f *fakeTeacherRepo) UpdateLastLogin(ctx context.Context, id string) error {
	f.lastLogin = append(f.lastLogin, id)
	return nil
}

func (f *fakeTeacherRepo) UpdateStatus(ctx context.Context, id, status string) error {
	if f.statusByID == nil {
		f.statusByID = make(map[string]string)
	}
	f.statusByID[id] = status
	if t, ok := f.items[id]; ok {
		t.Status = status
	}
	return nil
}

func (f *fakeTeacherRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.items, id)
	return nil
}

func (f *fakeTeacherRepo) Statistics(ctx context.Context, schoolID string) (*models.TeacherStatistics, error) {
	if f.statsBySchool != nil {
		return f.statsBySchool, nil
	}
	return &models.TeacherStatistics{Total: len(f.items)}, nil
}

type fakeSchoolRepo struct {
	schools map[string]*models.SchoolContact
	updated []string
}

func (f *fakeSchoolRepo) FindByID(ctx context.Context, id string) (*models.SchoolContact, error) {
	if s, ok := f.schools[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSchoolRepo) Update(ctx context.Context, contact *models.SchoolContact) error {
	f.updated = append(f.updated, contact.ID)
	cp := *contact
	f.schools[contact.ID] = &cp
	return nil
}

type fakeCredentials struct {
	tempPassword string
}

func (f *fakeCredentials) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func (f *fakeCredentials) CheckPassword(hash, password string) bool {
	return hash == "hashed:"+password
}

func (f *fakeCredentials) GenerateTempPassword() (string, error) {
	if f.tempPassword == "" {
		return "temp-pass99", nil
	}
	return f.tempPassword, nil
}

func (f *fakeCredentials) IssueToken(userID string, role models.Role, schoolID string) (string, int64, error) {
	return "token-" + userID, 86400, nil
}

func newSchoolFixture() *fakeSchoolRepo {
	return &fakeSchoolRepo{schools: map[string]*models.SchoolContact{
		"school-1": {ID: "school-1", SchoolName: "Green Hills School", SchoolCode: "GHS", IsApproved: true, IsActive: true},
	}}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func principalClaims(schoolID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "principal-1", Role: models.RolePrincipal, SchoolID: schoolID}
}

func TestTeacherServiceRegister(t *testing.T) {
	repo := &fakeTeacherRepo{schoolCount: 4}
	schools := newSchoolFixture()
	svc := NewTeacherService(repo, schools, &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	result, err := svc.Register(context.Background(), adminClaims(), models.RegisterTeacherRequest{
		Name:     "Teacher One",
		Email:    "Teach@Example.com",
		Phone:    "+15550101",
		Subject:  "Math",
		SchoolID: "school-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "teach@example.com", result.Email)
	assert.Equal(t, "temp-pass99", result.TempPassword)
	expectedID := fmt.Sprintf("GHST%d%04d", time.Now().UTC().Year(), 5)
	assert.Equal(t, expectedID, result.EmployeeID)

	created := repo.items[result.ID]
	require.NotNil(t, created)
	assert.Equal(t, models.StatusActive, created.Status)
	assert.Equal(t, "hashed:temp-pass99", created.PasswordHash)
	assert.Equal(t, models.RoleTeacher, created.Role)
	assert.Contains(t, schools.updated, "school-1")
}

func TestTeacherServiceRegisterPrincipalScopedToOwnSchool(t *testing.T) {
	repo := &fakeTeacherRepo{}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	result, err := svc.Register(context.Background(), principalClaims("school-1"), models.RegisterTeacherRequest{
		Name:     "Teacher One",
		Email:    "teach@example.com",
		Phone:    "+15550101",
		Subject:  "Math",
		SchoolID: "some-other-school",
	})
	require.NoError(t, err)
	assert.Equal(t, "school-1", repo.items[result.ID].SchoolID)
}

func TestTeacherServiceRegisterDuplicateEmail(t *testing.T) {
	repo := &fakeTeacherRepo{emailTaken: map[string]struct{}{"teach@example.com": {}}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Register(context.Background(), adminClaims(), models.RegisterTeacherRequest{
		Name:     "Teacher One",
		Email:    "teach@example.com",
		Phone:    "+15550101",
		Subject:  "Math",
		SchoolID: "school-1",
	})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErr.Code)
}

func TestTeacherServiceLogin(t *testing.T) {
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Email: "teach@example.com", PasswordHash: "hashed:pw123456", Status: models.StatusActive, SchoolID: "school-1"},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "teach@example.com", Password: "pw123456"})
	require.NoError(t, err)
	assert.Equal(t, "token-t1", resp.AccessToken)
	assert.Equal(t, int64(86400), resp.ExpiresIn)
	require.NotNil(t, resp.Teacher)
	assert.Equal(t, models.RoleTeacher, resp.Teacher.Role)
	assert.Equal(t, []string{"t1"}, repo.lastLogin)
}

func TestTeacherServiceLoginWrongPassword(t *testing.T) {
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Email: "teach@example.com", PasswordHash: "hashed:pw123456", Status: models.StatusActive},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "teach@example.com", Password: "wrong"})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestTeacherServiceLoginUnknownAccountSameError(t *testing.T) {
	svc := NewTeacherService(&fakeTeacherRepo{}, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "pw123456"})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestTeacherServiceLoginInactiveAccount(t *testing.T) {
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Email: "teach@example.com", PasswordHash: "hashed:pw123456", Status: models.StatusInactive},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "teach@example.com", Password: "pw123456"})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestTeacherServiceListForbiddenForTeachers(t *testing.T) {
	svc := NewTeacherService(&fakeTeacherRepo{}, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	_, _, err := svc.List(context.Background(), &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}, models.TeacherFilter{})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrForbidden.Status, appErr.Status)
}

func TestTeacherServiceGetResolvesEmployeeID(t *testing.T) {
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", EmployeeID: "GHST20260001", SchoolID: "school-1"},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	teacher, err := svc.Get(context.Background(), adminClaims(), "GHST20260001")
	require.NoError(t, err)
	assert.Equal(t, "t1", teacher.ID)
}

func TestTeacherServiceUpdateNoChanges(t *testing.T) {
	phone := "+15550101"
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Phone: phone, SchoolID: "school-1"},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	_, changed, err := svc.Update(context.Background(), adminClaims(), "t1", models.UpdateTeacherRequest{Phone: &phone})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestTeacherServiceUpdateTeacherCannotTouchRoster(t *testing.T) {
	name := "New Name"
	email := "new@example.com"
	subject := "Physics"
	phone := "+15550199"
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Name: "Old Name", Email: "old@example.com", Subject: "Math", Phone: "+15550101", SchoolID: "school-1"},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	actor := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher, SchoolID: "school-1"}
	updated, changed, err := svc.Update(context.Background(), actor, "t1", models.UpdateTeacherRequest{
		Name:    &name,
		Email:   &email,
		Subject: &subject,
		Phone:   &phone,
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, "old@example.com", updated.Email)
	assert.Equal(t, "Math", updated.Subject)
	assert.Equal(t, phone, updated.Phone)
}

func TestTeacherServiceUpdateEmail(t *testing.T) {
	email := " New@Example.com "
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Email: "old@example.com", SchoolID: "school-1"},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	updated, changed, err := svc.Update(context.Background(), adminClaims(), "t1", models.UpdateTeacherRequest{Email: &email})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, "new@example.com", repo.items["t1"].Email)
}

func TestTeacherServiceUpdateEmailDuplicate(t *testing.T) {
	email := "taken@example.com"
	repo := &fakeTeacherRepo{
		items: map[string]*models.Teacher{
			"t1": {ID: "t1", Email: "old@example.com", SchoolID: "school-1"},
		},
		emailTaken: map[string]struct{}{"taken@example.com": {}},
	}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	_, _, err := svc.Update(context.Background(), adminClaims(), "t1", models.UpdateTeacherRequest{Email: &email})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErr.Code)
	assert.Equal(t, "old@example.com", repo.items["t1"].Email)
}

func TestTeacherServiceUpdateEmailInvalid(t *testing.T) {
	email := "not-an-email"
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Email: "old@example.com", SchoolID: "school-1"},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	_, _, err := svc.Update(context.Background(), adminClaims(), "t1", models.UpdateTeacherRequest{Email: &email})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTeacherServiceDeletePrincipalOtherSchool(t *testing.T) {
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", SchoolID: "school-2"},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), principalClaims("school-1"), "t1")
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrForbidden.Status, appErr.Status)
	assert.Empty(t, repo.deleted)
}

func TestTeacherServiceBulkImport(t *testing.T) {
	repo := &fakeTeacherRepo{
		emailTaken:  map[string]struct{}{"known@example.com": {}},
		schoolCount: 2,
	}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	csv := "name,email,phone,subject\n" +
		"Alpha,alpha@example.com,+15550101,Math\n" +
		"Beta,known@example.com,+15550102,Science\n" +
		"Gamma,alpha@example.com,+15550103,History\n" +
		",missing@example.com,+15550104,Art\n" +
		"Delta,not-an-email,+15550105,Music\n"

	result, err := svc.BulkImport(context.Background(), principalClaims("school-1"), "teachers.csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 5, result.Processed)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 2, result.Duplicates)
	assert.Contains(t, result.DuplicateEmails, "known@example.com")
	require.Len(t, repo.batch, 1)
	assert.Equal(t, "alpha@example.com", repo.batch[0].Email)
	expectedID := fmt.Sprintf("GHST%d%04d", time.Now().UTC().Year(), 3)
	assert.Equal(t, expectedID, repo.batch[0].EmployeeID)

	for _, msg := range result.Errors {
		assert.Regexp(t, `^Row \d+: `, msg)
	}
}

func TestTeacherServiceBulkImportMissingColumn(t *testing.T) {
	svc := NewTeacherService(&fakeTeacherRepo{}, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	csv := "name,email,phone\nAlpha,alpha@example.com,+15550101\n"
	_, err := svc.BulkImport(context.Background(), principalClaims("school-1"), "teachers.csv", []byte(csv))
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTeacherServiceChangeStatusRejectsUnknownValue(t *testing.T) {
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", SchoolID: "school-1", Status: models.StatusActive},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	_, err := svc.ChangeStatus(context.Background(), adminClaims(), "t1", "graduated")
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTeacherServiceChangePassword(t *testing.T) {
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", PasswordHash: "hashed:oldpass99", SchoolID: "school-1"},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	actor := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher, SchoolID: "school-1"}
	err := svc.ChangePassword(context.Background(), actor, models.ChangePasswordRequest{
		CurrentPassword: "oldpass99",
		NewPassword:     "newpass123",
	})
	require.NoError(t, err)
	assert.Equal(t, "hashed:newpass123", repo.passwordByID["t1"])
}

func TestTeacherServiceChangePasswordWrongCurrent(t *testing.T) {
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", PasswordHash: "hashed:oldpass99", SchoolID: "school-1"},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	actor := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher, SchoolID: "school-1"}
	err := svc.ChangePassword(context.Background(), actor, models.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "newpass123",
	})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestTeacherServiceResetPassword(t *testing.T) {
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Email: "teach@example.com", SchoolID: "school-1"},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{tempPassword: "fresh-pass11"}, nil, validator.New(), zap.NewNop())

	result, err := svc.ResetPassword(context.Background(), adminClaims(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "fresh-pass11", result.TempPassword)
	assert.Equal(t, "hashed:fresh-pass11", repo.passwordByID["t1"])
}

func TestTeacherServiceExportFormats(t *testing.T) {
	repo := &fakeTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", EmployeeID: "GHST20260001", Name: "Teacher A", Email: "a@example.com", Subject: "Math", Status: models.StatusActive, SchoolID: "school-1"},
	}}
	svc := NewTeacherService(repo, newSchoolFixture(), &fakeCredentials{}, nil, validator.New(), zap.NewNop())

	for _, tc := range []struct {
		format      string
		contentType string
	}{
		{"csv", "text/csv"},
		{"pdf", "application/pdf"},
		{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	} {
		payload, filename, contentType, err := svc.Export(context.Background(), adminClaims(), tc.format)
		require.NoError(t, err, tc.format)
		assert.NotEmpty(t, payload, tc.format)
		assert.Contains(t, filename, "teachers", tc.format)
		assert.Equal(t, tc.contentType, contentType, tc.format)
	}
}
