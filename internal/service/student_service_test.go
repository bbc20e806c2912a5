package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/intellilearn/admin-api/internal/models"
	appErrors "github.com/intellilearn/admin-api/pkg/errors"
)

type fakeStudentRepo struct {
	items      map[string]*models.Student
	emailTaken map[string]struct{}
	deleted    []string
	batch      []models.Student
}

func (f *fakeStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, s := range f.items {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (f *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := f.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) FindByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	for _, s := range f.items {
		if s.StudentID == studentID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	_, ok := f.emailTaken[strings.ToLower(email)]
	return ok, nil
}

func (f *fakeStudentRepo) ExistingEmails(ctx context.Context, emails []string) ([]string, error) {
	var existing []string
	for _, email := range emails {
		if _, ok := f.emailTaken[strings.ToLower(email)]; ok {
			existing = append(existing, strings.ToLower(email))
		}
	}
	return existing, nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if f.items == nil {
		f.items = make(map[string]*models.Student)
	}
	if student.ID == "" {
		student.ID = fmt.Sprintf("s%d", len(f.items)+1)
	}
	cp := *student
	f.items[student.ID] = &cp
	return nil
}

func (f *fakeStudentRepo) BulkInsert(ctx context.Context, students []models.Student) error {
	f.batch = append(f.batch, students...)
	return nil
}

func (f *fakeStudentRepo) Update(ctx context.Context, student *models.Student) error {
	cp := *student
	f.items[student.ID] = &cp
	return nil
}

func (f *fakeStudentRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.items, id)
	return nil
}

func (f *fakeStudentRepo) Statistics(ctx context.Context) (*models.StudentStatistics, error) {
	return &models.StudentStatistics{Total: len(f.items)}, nil
}

type fakeStudentCredentials struct{}

func (fakeStudentCredentials) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeStudentCredentials) GenerateStudentPassword() (string, error) {
	return "ab12cd34", nil
}

func validCreateStudentRequest() models.CreateStudentRequest {
	return models.CreateStudentRequest{
		Name:    "Student One",
		Email:   "Student@Example.com",
		Class:   "10",
		Section: "A",
	}
}

func TestStudentServiceCreateDefaults(t *testing.T) {
	repo := &fakeStudentRepo{}
	svc := NewStudentService(repo, fakeStudentCredentials{}, nil, validator.New(), zap.NewNop())

	result, err := svc.Create(context.Background(), adminClaims(), validCreateStudentRequest())
	require.NoError(t, err)
	assert.Regexp(t, `^STU\d{8}[0-9A-F]{6}$`, result.StudentID)
	assert.Equal(t, "student@example.com", result.Email)
	assert.Equal(t, "ab12cd34", result.InitialPassword)

	created := repo.items[result.ID]
	require.NotNil(t, created)
	assert.Equal(t, result.StudentID, created.RollNumber)
	assert.Equal(t, models.StatusActive, created.Status)
	assert.NotEmpty(t, created.AdmissionDate)
	assert.Equal(t, "admin-1", created.CreatedBy)
}

func TestStudentServiceCreateDuplicateEmail(t *testing.T) {
	repo := &fakeStudentRepo{emailTaken: map[string]struct{}{"student@example.com": {}}}
	svc := NewStudentService(repo, fakeStudentCredentials{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), adminClaims(), validCreateStudentRequest())
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErr.Code)
}

func TestStudentServiceGetResolvesStudentID(t *testing.T) {
	repo := &fakeStudentRepo{items: map[string]*models.Student{
		"s1": {ID: "s1", StudentID: "STU20260830ABCDEF"},
	}}
	svc := NewStudentService(repo, fakeStudentCredentials{}, nil, validator.New(), zap.NewNop())

	student, err := svc.Get(context.Background(), "STU20260830ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)
}

func TestStudentServiceUpdateNoChange(t *testing.T) {
	name := "Student One"
	repo := &fakeStudentRepo{items: map[string]*models.Student{
		"s1": {ID: "s1", Name: name},
	}}
	svc := NewStudentService(repo, fakeStudentCredentials{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "s1", models.UpdateStudentRequest{Name: &name})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrNoChange.Code, appErr.Code)
}

func TestStudentServiceUpdateInvalidStatus(t *testing.T) {
	repo := &fakeStudentRepo{items: map[string]*models.Student{
		"s1": {ID: "s1", Status: models.StatusActive},
	}}
	svc := NewStudentService(repo, fakeStudentCredentials{}, nil, validator.New(), zap.NewNop())

	status := "expelled"
	_, err := svc.Update(context.Background(), "s1", models.UpdateStudentRequest{Status: &status})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentServiceUpdateStatusGraduated(t *testing.T) {
	repo := &fakeStudentRepo{items: map[string]*models.Student{
		"s1": {ID: "s1", Status: models.StatusActive},
	}}
	svc := NewStudentService(repo, fakeStudentCredentials{}, nil, validator.New(), zap.NewNop())

	status := models.StudentStatusGraduated
	updated, err := svc.Update(context.Background(), "s1", models.UpdateStudentRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.StudentStatusGraduated, updated.Status)
}

func TestStudentServiceBulkDeleteSkipsUnknown(t *testing.T) {
	repo := &fakeStudentRepo{items: map[string]*models.Student{
		"s1": {ID: "s1", StudentID: "STU20260830ABCDEF"},
		"s2": {ID: "s2", StudentID: "STU20260830FEDCBA"},
	}}
	svc := NewStudentService(repo, fakeStudentCredentials{}, nil, validator.New(), zap.NewNop())

	result, err := svc.BulkDelete(context.Background(), models.BulkDeleteRequest{
		IDs: []string{"s1", "missing", "STU20260830FEDCBA"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Requested)
	assert.Equal(t, 2, result.Deleted)
	assert.ElementsMatch(t, []string{"s1", "s2"}, repo.deleted)
}

func TestStudentServiceBulkDeleteRequiresIDs(t *testing.T) {
	svc := NewStudentService(&fakeStudentRepo{}, fakeStudentCredentials{}, nil, validator.New(), zap.NewNop())

	_, err := svc.BulkDelete(context.Background(), models.BulkDeleteRequest{})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudentServiceBulkImport(t *testing.T) {
	repo := &fakeStudentRepo{emailTaken: map[string]struct{}{"known@example.com": {}}}
	svc := NewStudentService(repo, fakeStudentCredentials{}, nil, validator.New(), zap.NewNop())

	csv := "name,email,class,section,parent_name\n" +
		"Alpha,alpha@example.com,10,A,Parent A\n" +
		"Beta,known@example.com,10,B,Parent B\n" +
		"Gamma,alpha@example.com,10,C,Parent C\n" +
		"Delta,delta@example,10,D,Parent D\n"

	result, err := svc.BulkImport(context.Background(), adminClaims(), "students.csv", []byte(csv))
	require.NoError(t, err)
	assert.Equal(t, 4, result.Processed)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Duplicates)
	require.Len(t, repo.batch, 1)
	assert.Equal(t, "alpha@example.com", repo.batch[0].Email)
	assert.Equal(t, "Parent A", repo.batch[0].ParentName)
	assert.Equal(t, repo.batch[0].StudentID, repo.batch[0].RollNumber)
}

func TestStudentServiceBulkImportEmptyFile(t *testing.T) {
	svc := NewStudentService(&fakeStudentRepo{}, fakeStudentCredentials{}, nil, validator.New(), zap.NewNop())

	_, err := svc.BulkImport(context.Background(), adminClaims(), "students.csv", []byte("name,email,class,section\n"))
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
