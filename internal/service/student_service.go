package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/intellilearn/admin-api/internal/models"
	appErrors "github.com/intellilearn/admin-api/pkg/errors"
	"github.com/intellilearn/admin-api/pkg/export"
)

const studentImportErrorCap = 10

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByStudentID(ctx context.Context, studentID string) (*models.Student, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	ExistingEmails(ctx context.Context, emails []string) ([]string, error)
	Create(ctx context.Context, student *models.Student) error
	BulkInsert(ctx context.Context, students []models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) (*models.StudentStatistics, error)
}

type studentCredentials interface {
	HashPassword(password string) (string, error)
	GenerateStudentPassword() (string, error)
}

// StudentService implements student roster management.
type StudentService struct {
	repo      studentRepository
	auth      studentCredentials
	cache     *CacheService
	excel     *export.ExcelExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(repo studentRepository, auth studentCredentials, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{
		repo:      repo,
		auth:      auth,
		cache:     cache,
		excel:     export.NewExcelExporter(),
		validator: validate,
		logger:    logger,
	}
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return students, models.NewPagination(page, limit, total), nil
}

// Create enrolls one student and returns the issued identifiers together
// with the one-time initial password.
func (s *StudentService) Create(ctx context.Context, actor *models.JWTClaims, req models.CreateStudentRequest) (*models.CreateStudentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name, email, class and section are required")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(email) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid email format")
	}

	exists, err := s.repo.ExistsByEmail(ctx, email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing students")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "a student with this email already exists")
	}

	studentID, err := generateStudentID()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate student id")
	}
	password, err := s.auth.GenerateStudentPassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate credentials")
	}
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash credentials")
	}

	createdBy := ""
	if actor != nil {
		createdBy = actor.UserID
	}
	student := &models.Student{
		StudentID:         studentID,
		Name:              strings.TrimSpace(req.Name),
		Email:             email,
		Phone:             req.Phone,
		RollNumber:        defaultString(req.RollNumber, studentID),
		Class:             strings.TrimSpace(req.Class),
		Section:           strings.TrimSpace(req.Section),
		DateOfBirth:       req.DateOfBirth,
		Gender:            req.Gender,
		Address:           req.Address,
		ParentName:        req.ParentName,
		ParentPhone:       req.ParentPhone,
		ParentEmail:       req.ParentEmail,
		ParentOccupation:  req.ParentOccupation,
		BloodGroup:        req.BloodGroup,
		MedicalConditions: req.MedicalConditions,
		AdmissionDate:     defaultString(req.AdmissionDate, time.Now().UTC().Format("2006-01-02")),
		Attendance:        req.Attendance,
		Performance:       req.Performance,
		Status:            models.StatusActive,
		PasswordHash:      hash,
		InitialPassword:   password,
		CreatedBy:         createdBy,
	}

	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.invalidateStats(ctx)

	s.logger.Info("student enrolled",
		zap.String("id", student.ID),
		zap.String("student_id", studentID))
	return &models.CreateStudentResult{
		ID:              student.ID,
		StudentID:       studentID,
		Email:           email,
		InitialPassword: password,
	}, nil
}

// Get fetches one student. The id may be a student id or the primary key.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	return s.resolve(ctx, id)
}

// Update applies a partial update. A payload changing nothing is rejected.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	student, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := 0
	apply := func(dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			changed++
		}
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if !emailPattern.MatchString(email) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid email format")
		}
		if email != student.Email {
			exists, err := s.repo.ExistsByEmail(ctx, email, student.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing students")
			}
			if exists {
				return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "a student with this email already exists")
			}
			student.Email = email
			changed++
		}
	}
	if req.Status != nil {
		switch *req.Status {
		case models.StatusActive, models.StatusInactive, models.StudentStatusGraduated, models.StudentStatusTransferred:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status value")
		}
		if *req.Status != student.Status {
			student.Status = *req.Status
			changed++
		}
	}
	if req.Attendance != nil && *req.Attendance != student.Attendance {
		student.Attendance = *req.Attendance
		changed++
	}
	if req.Performance != nil && *req.Performance != student.Performance {
		student.Performance = *req.Performance
		changed++
	}

	apply(&student.Name, req.Name)
	apply(&student.Phone, req.Phone)
	apply(&student.RollNumber, req.RollNumber)
	apply(&student.Class, req.Class)
	apply(&student.Section, req.Section)
	apply(&student.DateOfBirth, req.DateOfBirth)
	apply(&student.Gender, req.Gender)
	apply(&student.Address, req.Address)
	apply(&student.ParentName, req.ParentName)
	apply(&student.ParentPhone, req.ParentPhone)
	apply(&student.ParentEmail, req.ParentEmail)
	apply(&student.ParentOccupation, req.ParentOccupation)
	apply(&student.BloodGroup, req.BloodGroup)
	apply(&student.MedicalConditions, req.MedicalConditions)
	apply(&student.AdmissionDate, req.AdmissionDate)

	if changed == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoChange, "no changes made")
	}

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.invalidateStats(ctx)
	return student, nil
}

// Delete removes one student.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	student, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, student.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.invalidateStats(ctx)

	s.logger.Info("student deleted", zap.String("id", student.ID))
	return nil
}

// BulkDelete removes several students, silently skipping ids that do not
// resolve.
func (s *StudentService) BulkDelete(ctx context.Context, req models.BulkDeleteRequest) (*models.BulkDeleteResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "ids are required")
	}

	result := &models.BulkDeleteResult{Requested: len(req.IDs)}
	for _, id := range req.IDs {
		student, err := s.resolve(ctx, id)
		if err != nil {
			continue
		}
		if err := s.repo.Delete(ctx, student.ID); err != nil {
			s.logger.Warn("bulk delete skipped student", zap.String("id", student.ID), zap.Error(err))
			continue
		}
		result.Deleted++
	}
	if result.Deleted > 0 {
		s.invalidateStats(ctx)
	}
	return result, nil
}

// BulkImport loads students from an uploaded spreadsheet. Duplicate emails
// are checked against the database in a single query before inserting the
// survivors in one batch.
func (s *StudentService) BulkImport(ctx context.Context, actor *models.JWTClaims, filename string, payload []byte) (*models.ImportResult, error) {
	table, err := export.ParseTable(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if len(table) < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file contains no data rows")
	}

	cols := headerIndex(table[0])
	for _, required := range []string{"name", "email", "class", "section"} {
		if _, ok := cols[required]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing required column %q", required))
		}
	}

	result := &models.ImportResult{}
	var rows []models.StudentImportRow
	var emails []string
	for i, record := range table[1:] {
		rowNum := i + 2
		result.Processed++
		row := models.StudentImportRow{
			RowNumber: rowNum,
			Name:      strings.TrimSpace(cell(record, cols["name"])),
			Email:     strings.ToLower(strings.TrimSpace(cell(record, cols["email"]))),
			Class:     strings.TrimSpace(cell(record, cols["class"])),
			Section:   strings.TrimSpace(cell(record, cols["section"])),
		}
		if idx, ok := cols["phone"]; ok {
			row.Phone = strings.TrimSpace(cell(record, idx))
		}
		if idx, ok := cols["parent_name"]; ok {
			row.ParentName = strings.TrimSpace(cell(record, idx))
		}
		if idx, ok := cols["parent_phone"]; ok {
			row.ParentPhone = strings.TrimSpace(cell(record, idx))
		}

		switch {
		case row.Name == "" || row.Email == "" || row.Class == "" || row.Section == "":
			result.Failed++
			s.addError(result, fmt.Sprintf("Row %d: name, email, class and section are required", rowNum))
		case !emailPattern.MatchString(row.Email):
			result.Failed++
			s.addError(result, fmt.Sprintf("Row %d: invalid email format", rowNum))
		default:
			rows = append(rows, row)
			emails = append(emails, row.Email)
		}
	}

	existing, err := s.repo.ExistingEmails(ctx, emails)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing students")
	}
	existingSet := make(map[string]struct{}, len(existing))
	for _, email := range existing {
		existingSet[email] = struct{}{}
	}

	createdBy := ""
	if actor != nil {
		createdBy = actor.UserID
	}

	seen := make(map[string]struct{})
	var batch []models.Student
	for _, row := range rows {
		if _, dup := existingSet[row.Email]; dup {
			result.Duplicates++
			s.addError(result, fmt.Sprintf("Row %d: email %s already registered", row.RowNumber, row.Email))
			if len(result.DuplicateEmails) < studentImportErrorCap {
				result.DuplicateEmails = append(result.DuplicateEmails, row.Email)
			}
			continue
		}
		if _, dup := seen[row.Email]; dup {
			result.Duplicates++
			s.addError(result, fmt.Sprintf("Row %d: email %s repeated in file", row.RowNumber, row.Email))
			continue
		}
		seen[row.Email] = struct{}{}

		studentID, err := generateStudentID()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate student id")
		}
		password, err := s.auth.GenerateStudentPassword()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate credentials")
		}
		hash, err := s.auth.HashPassword(password)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash credentials")
		}

		batch = append(batch, models.Student{
			StudentID:       studentID,
			Name:            row.Name,
			Email:           row.Email,
			Phone:           row.Phone,
			RollNumber:      studentID,
			Class:           row.Class,
			Section:         row.Section,
			ParentName:      row.ParentName,
			ParentPhone:     row.ParentPhone,
			AdmissionDate:   time.Now().UTC().Format("2006-01-02"),
			Status:          models.StatusActive,
			PasswordHash:    hash,
			InitialPassword: password,
			CreatedBy:       createdBy,
		})
	}

	if len(batch) > 0 {
		if err := s.repo.BulkInsert(ctx, batch); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import students")
		}
		s.invalidateStats(ctx)
	}
	result.Successful = len(batch)

	s.logger.Info("student bulk import finished",
		zap.Int("processed", result.Processed),
		zap.Int("successful", result.Successful),
		zap.Int("duplicates", result.Duplicates))
	return result, nil
}

// ImportTemplate builds the xlsx template for bulk imports, including an
// instructions sheet.
func (s *StudentService) ImportTemplate() ([]byte, error) {
	sheets := []export.Sheet{
		{
			Name:    "Students",
			Headers: []string{"name", "email", "class", "section", "phone", "parent_name", "parent_phone"},
			Rows: [][]string{
				{"Alex Johnson", "alex.johnson@example.com", "Grade 9", "A", "+15550102", "Morgan Johnson", "+15550103"},
				{"Priya Sharma", "priya.sharma@example.com", "Grade 10", "B", "+15550104", "Ravi Sharma", "+15550105"},
			},
		},
		{
			Name:    "Instructions",
			Headers: []string{"Instructions"},
			Rows: [][]string{
				{"Fill one student per row on the Students sheet."},
				{"name, email, class and section are required."},
				{"Emails must be unique, duplicates are skipped and reported."},
				{"Keep the header row unchanged."},
			},
		},
	}
	payload, err := s.excel.RenderSheets(sheets)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build template")
	}
	return payload, nil
}

// Statistics aggregates the roster, served from cache when fresh.
func (s *StudentService) Statistics(ctx context.Context) (*models.StudentStatistics, error) {
	const key = "stats:students:all"
	var cached models.StudentStatistics
	if s.cache != nil && s.cache.Lookup(ctx, key, &cached) {
		return &cached, nil
	}

	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute statistics")
	}
	if s.cache != nil {
		s.cache.Store(ctx, key, stats)
	}
	return stats, nil
}

// resolve looks up a student by business id first, then by primary key.
func (s *StudentService) resolve(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByStudentID(ctx, id)
	if err == nil {
		return student, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	student, err = s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) addError(result *models.ImportResult, message string) {
	if len(result.Errors) < studentImportErrorCap {
		result.Errors = append(result.Errors, message)
	}
}

func (s *StudentService) invalidateStats(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, "stats:students:*")
	}
}

// generateStudentID issues ids of the form STU + date + 6 random hex
// characters, uppercased.
func generateStudentID() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate student id: %w", err)
	}
	return fmt.Sprintf("STU%s%s", time.Now().UTC().Format("20060102"), strings.ToUpper(hex.EncodeToString(buf))), nil
}
