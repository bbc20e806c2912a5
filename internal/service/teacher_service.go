package service

import (
	"context"
	"database/sql"
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

const teacherImportErrorCap = 10

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	All(ctx context.Context, schoolID string) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	FindByEmployeeID(ctx context.Context, employeeID string) (*models.Teacher, error)
	FindByEmail(ctx context.Context, email string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email string, excludeID string) (bool, error)
	ExistingEmails(ctx context.Context, emails []string) ([]string, error)
	CountBySchoolCode(ctx context.Context, schoolCode string) (int, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	BulkInsert(ctx context.Context, teachers []models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context, schoolID string) (*models.TeacherStatistics, error)
}

type teacherSchoolRepository interface {
	FindByID(ctx context.Context, id string) (*models.SchoolContact, error)
	Update(ctx context.Context, contact *models.SchoolContact) error
}

type teacherCredentials interface {
	HashPassword(password string) (string, error)
	CheckPassword(hash, password string) bool
	GenerateTempPassword() (string, error)
	IssueToken(userID string, role models.Role, schoolID string) (string, int64, error)
}

// TeacherService implements teacher roster management and authentication.
type TeacherService struct {
	repo      teacherRepository
	schools   teacherSchoolRepository
	auth      teacherCredentials
	cache     *CacheService
	excel     *export.ExcelExporter
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService instance.
func NewTeacherService(repo teacherRepository, schools teacherSchoolRepository, auth teacherCredentials, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherService{
		repo:      repo,
		schools:   schools,
		auth:      auth,
		cache:     cache,
		excel:     export.NewExcelExporter(),
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// Register creates a teacher account and returns the one-time temporary
// password. Principals can only register into their own school.
func (s *TeacherService) Register(ctx context.Context, actor *models.JWTClaims, req models.RegisterTeacherRequest) (*models.RegisterTeacherResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name, email, phone and subject are required")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(email) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid email format")
	}
	if !phonePattern.MatchString(strings.ReplaceAll(req.Phone, " ", "")) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid phone format")
	}

	schoolID := req.SchoolID
	if actor.Role == models.RolePrincipal {
		schoolID = actor.SchoolID
	}

	exists, err := s.repo.ExistsByEmail(ctx, email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing teachers")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "a teacher with this email already exists")
	}

	school, err := s.resolveSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	employeeID, err := s.nextEmployeeID(ctx, school.SchoolCode)
	if err != nil {
		return nil, err
	}

	tempPassword, err := s.auth.GenerateTempPassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate credentials")
	}
	hash, err := s.auth.HashPassword(tempPassword)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash credentials")
	}

	teacher := &models.Teacher{
		EmployeeID:       employeeID,
		SchoolID:         school.ID,
		SchoolCode:       school.SchoolCode,
		SchoolName:       school.SchoolName,
		Name:             strings.TrimSpace(req.Name),
		Email:            email,
		Phone:            strings.TrimSpace(req.Phone),
		PasswordHash:     hash,
		Subject:          strings.TrimSpace(req.Subject),
		Classes:          emptyIfNil(req.Classes),
		Status:           models.StatusActive,
		JoinDate:         defaultString(req.JoinDate, time.Now().UTC().Format("2006-01-02")),
		Qualifications:   emptyIfNil(req.Qualifications),
		Experience:       req.Experience,
		Address:          req.Address,
		DateOfBirth:      req.DateOfBirth,
		EmergencyContact: req.EmergencyContact,
		Gender:           req.Gender,
		BloodGroup:       req.BloodGroup,
		Designation:      defaultString(req.Designation, "Teacher"),
		Department:       req.Department,
		Salary:           req.Salary,
		Role:             models.RoleTeacher,
		CreatedBy:        actor.UserID,
	}

	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}

	s.attachToSchool(ctx, school, teacher.ID)
	s.invalidateStats(ctx)

	s.logger.Info("teacher registered",
		zap.String("teacher_id", teacher.ID),
		zap.String("employee_id", employeeID),
		zap.String("school_id", school.ID))
	return &models.RegisterTeacherResult{
		ID:           teacher.ID,
		EmployeeID:   employeeID,
		Email:        email,
		TempPassword: tempPassword,
	}, nil
}

// Login authenticates a teacher and issues an access token. Failures do
// not reveal whether the account exists.
func (s *TeacherService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email and password are required")
	}

	teacher, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}

	if !s.auth.CheckPassword(teacher.PasswordHash, req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if teacher.Status != models.StatusActive {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "your account is not active, please contact the administrator")
	}

	token, expiresIn, err := s.auth.IssueToken(teacher.ID, models.RoleTeacher, teacher.SchoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue token")
	}

	if err := s.repo.UpdateLastLogin(ctx, teacher.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.String("teacher_id", teacher.ID), zap.Error(err))
	}

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		Teacher: &models.TeacherInfo{
			ID:         teacher.ID,
			EmployeeID: teacher.EmployeeID,
			Name:       teacher.Name,
			Email:      teacher.Email,
			SchoolID:   teacher.SchoolID,
			SchoolName: teacher.SchoolName,
			Subject:    teacher.Subject,
			Role:       models.RoleTeacher,
		},
	}, nil
}

// List returns teachers visible to the actor.
func (s *TeacherService) List(ctx context.Context, actor *models.JWTClaims, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleTeacher:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "")
	case models.RolePrincipal:
		filter.SchoolID = actor.SchoolID
	}

	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return teachers, models.NewPagination(page, limit, total), nil
}

// Get fetches one teacher. The id may be an employee id or the primary
// key.
func (s *TeacherService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Teacher, error) {
	teacher, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, teacher); err != nil {
		return nil, err
	}
	return teacher, nil
}

// Update applies a partial update. Teachers may only touch their own
// contact details; a payload that changes nothing is reported back as
// such.
func (s *TeacherService) Update(ctx context.Context, actor *models.JWTClaims, id string, req models.UpdateTeacherRequest) (*models.Teacher, bool, error) {
	teacher, err := s.resolve(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if err := s.authorize(actor, teacher); err != nil {
		return nil, false, err
	}

	changed := 0
	apply := func(dst *string, src *string) {
		if src != nil && *src != *dst {
			*dst = *src
			changed++
		}
	}

	if actor.Role != models.RoleTeacher {
		if req.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*req.Email))
			if !emailPattern.MatchString(email) {
				return nil, false, appErrors.Clone(appErrors.ErrValidation, "invalid email format")
			}
			if email != teacher.Email {
				exists, err := s.repo.ExistsByEmail(ctx, email, teacher.ID)
				if err != nil {
					return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing teachers")
				}
				if exists {
					return nil, false, appErrors.Clone(appErrors.ErrDuplicateEmail, "a teacher with this email already exists")
				}
				teacher.Email = email
				changed++
			}
		}
		apply(&teacher.Subject, req.Subject)
		apply(&teacher.Designation, req.Designation)
		apply(&teacher.Department, req.Department)
		if req.Experience != nil && *req.Experience != teacher.Experience {
			teacher.Experience = *req.Experience
			changed++
		}
		if req.Salary != nil {
			teacher.Salary = req.Salary
			changed++
		}
		if req.Classes != nil {
			teacher.Classes = []string(req.Classes)
			changed++
		}
		if req.Qualifications != nil {
			teacher.Qualifications = []string(req.Qualifications)
			changed++
		}
	}

	apply(&teacher.Name, req.Name)
	apply(&teacher.Phone, req.Phone)
	apply(&teacher.Address, req.Address)
	apply(&teacher.DateOfBirth, req.DateOfBirth)
	apply(&teacher.EmergencyContact, req.EmergencyContact)
	apply(&teacher.Gender, req.Gender)
	apply(&teacher.BloodGroup, req.BloodGroup)
	apply(&teacher.ProfileImage, req.ProfileImage)

	if changed == 0 {
		return teacher, false, nil
	}

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	s.invalidateStats(ctx)
	return teacher, true, nil
}

// Delete removes a teacher and detaches it from its school.
func (s *TeacherService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	teacher, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role == models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if actor.Role == models.RolePrincipal && teacher.SchoolID != actor.SchoolID {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}

	if err := s.repo.Delete(ctx, teacher.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	s.detachFromSchool(ctx, teacher.SchoolID, teacher.ID)
	s.invalidateStats(ctx)

	s.logger.Info("teacher deleted", zap.String("teacher_id", teacher.ID))
	return nil
}

// BulkImport loads teachers from an uploaded spreadsheet. Rows are
// validated independently so one bad row does not sink the batch.
func (s *TeacherService) BulkImport(ctx context.Context, actor *models.JWTClaims, filename string, payload []byte) (*models.ImportResult, error) {
	table, err := export.ParseTable(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if len(table) < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file contains no data rows")
	}

	cols := headerIndex(table[0])
	for _, required := range []string{"name", "email", "phone", "subject"} {
		if _, ok := cols[required]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("missing required column %q", required))
		}
	}

	schoolID := actor.SchoolID
	school, err := s.resolveSchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	result := &models.ImportResult{}
	var rows []models.TeacherImportRow
	var emails []string
	for i, record := range table[1:] {
		rowNum := i + 2
		result.Processed++
		row := models.TeacherImportRow{
			RowNumber: rowNum,
			Name:      strings.TrimSpace(cell(record, cols["name"])),
			Email:     strings.ToLower(strings.TrimSpace(cell(record, cols["email"]))),
			Phone:     strings.TrimSpace(cell(record, cols["phone"])),
			Subject:   strings.TrimSpace(cell(record, cols["subject"])),
		}
		if idx, ok := cols["classes"]; ok {
			row.Classes = splitList(cell(record, idx))
		}

		switch {
		case row.Name == "" || row.Email == "" || row.Phone == "" || row.Subject == "":
			result.Failed++
			addError(result, fmt.Sprintf("Row %d: name, email, phone and subject are required", rowNum))
		case !emailPattern.MatchString(row.Email):
			result.Failed++
			addError(result, fmt.Sprintf("Row %d: invalid email format", rowNum))
		default:
			rows = append(rows, row)
			emails = append(emails, row.Email)
		}
	}

	existing, err := s.repo.ExistingEmails(ctx, emails)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing teachers")
	}
	existingSet := make(map[string]struct{}, len(existing))
	for _, email := range existing {
		existingSet[email] = struct{}{}
	}

	count, err := s.repo.CountBySchoolCode(ctx, school.SchoolCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive employee ids")
	}

	seen := make(map[string]struct{})
	var batch []models.Teacher
	seq := count
	for _, row := range rows {
		if _, dup := existingSet[row.Email]; dup {
			result.Duplicates++
			addError(result, fmt.Sprintf("Row %d: email %s already registered", row.RowNumber, row.Email))
			if len(result.DuplicateEmails) < teacherImportErrorCap {
				result.DuplicateEmails = append(result.DuplicateEmails, row.Email)
			}
			continue
		}
		if _, dup := seen[row.Email]; dup {
			result.Duplicates++
			addError(result, fmt.Sprintf("Row %d: email %s repeated in file", row.RowNumber, row.Email))
			continue
		}
		seen[row.Email] = struct{}{}

		tempPassword, err := s.auth.GenerateTempPassword()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate credentials")
		}
		hash, err := s.auth.HashPassword(tempPassword)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash credentials")
		}

		seq++
		batch = append(batch, models.Teacher{
			EmployeeID:     fmt.Sprintf("%sT%d%04d", school.SchoolCode, time.Now().UTC().Year(), seq),
			SchoolID:       school.ID,
			SchoolCode:     school.SchoolCode,
			SchoolName:     school.SchoolName,
			Name:           row.Name,
			Email:          row.Email,
			Phone:          row.Phone,
			PasswordHash:   hash,
			Subject:        row.Subject,
			Classes:        emptyIfNil(row.Classes),
			Status:         models.StatusActive,
			JoinDate:       time.Now().UTC().Format("2006-01-02"),
			Qualifications: []string{},
			Designation:    "Teacher",
			Role:           models.RoleTeacher,
			CreatedBy:      actor.UserID,
		})
	}

	if len(batch) > 0 {
		if err := s.repo.BulkInsert(ctx, batch); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import teachers")
		}
		s.invalidateStats(ctx)
	}
	result.Successful = len(batch)

	s.logger.Info("teacher bulk import finished",
		zap.Int("processed", result.Processed),
		zap.Int("successful", result.Successful),
		zap.Int("duplicates", result.Duplicates))
	return result, nil
}

// ImportTemplate builds the xlsx template for bulk imports.
func (s *TeacherService) ImportTemplate() ([]byte, error) {
	sheet := export.Sheet{
		Name:    "Teachers",
		Headers: []string{"name", "email", "phone", "subject", "classes"},
		Rows: [][]string{
			{"Jane Smith", "jane.smith@example.com", "+15550100", "Mathematics", "Grade 9, Grade 10"},
			{"Arun Patel", "arun.patel@example.com", "+15550101", "Physics", "Grade 11"},
		},
	}
	payload, err := s.excel.RenderSheets([]export.Sheet{sheet})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build template")
	}
	return payload, nil
}

// Export renders the roster in the requested format. Principals get their
// own school only, teachers are not allowed.
func (s *TeacherService) Export(ctx context.Context, actor *models.JWTClaims, format string) ([]byte, string, string, error) {
	if actor.Role == models.RoleTeacher {
		return nil, "", "", appErrors.Clone(appErrors.ErrForbidden, "")
	}

	schoolID := ""
	if actor.Role == models.RolePrincipal {
		schoolID = actor.SchoolID
	}

	teachers, err := s.repo.All(ctx, schoolID)
	if err != nil {
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export teachers")
	}

	data := export.Dataset{
		Headers: []string{"Employee ID", "Name", "Email", "Phone", "Subject", "Classes", "Status", "Experience", "School"},
	}
	for _, t := range teachers {
		data.Rows = append(data.Rows, map[string]string{
			"Employee ID": t.EmployeeID,
			"Name":        t.Name,
			"Email":       t.Email,
			"Phone":       t.Phone,
			"Subject":     t.Subject,
			"Classes":     strings.Join(t.Classes, ", "),
			"Status":      t.Status,
			"Experience":  fmt.Sprintf("%d", t.Experience),
			"School":      t.SchoolName,
		})
	}

	stamp := time.Now().UTC().Format("2006-01-02")
	switch strings.ToLower(format) {
	case "csv":
		payload, err := s.csv.Render(data)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, fmt.Sprintf("teachers_%s.csv", stamp), "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(data, "Teacher Roster")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, fmt.Sprintf("teachers_%s.pdf", stamp), "application/pdf", nil
	default:
		payload, err := s.excel.Render(data, "Teachers")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render workbook")
		}
		return payload, fmt.Sprintf("teachers_%s.xlsx", stamp), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	}
}

// ChangeStatus flips a teacher between active and inactive.
func (s *TeacherService) ChangeStatus(ctx context.Context, actor *models.JWTClaims, id, status string) (*models.Teacher, error) {
	if status != models.StatusActive && status != models.StatusInactive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be active or inactive")
	}

	teacher, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if actor.Role == models.RolePrincipal && teacher.SchoolID != actor.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	if err := s.repo.UpdateStatus(ctx, teacher.ID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change status")
	}
	teacher.Status = status
	s.invalidateStats(ctx)
	return teacher, nil
}

// Statistics aggregates the roster, served from cache when fresh.
func (s *TeacherService) Statistics(ctx context.Context, actor *models.JWTClaims) (*models.TeacherStatistics, error) {
	schoolID := ""
	if actor.Role == models.RolePrincipal {
		schoolID = actor.SchoolID
	}

	key := "stats:teachers:" + defaultString(schoolID, "all")
	var cached models.TeacherStatistics
	if s.cache != nil && s.cache.Lookup(ctx, key, &cached) {
		return &cached, nil
	}

	stats, err := s.repo.Statistics(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute statistics")
	}
	if s.cache != nil {
		s.cache.Store(ctx, key, stats)
	}
	return stats, nil
}

// ChangePassword lets a teacher rotate their own password.
func (s *TeacherService) ChangePassword(ctx context.Context, actor *models.JWTClaims, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "new password must be at least 8 characters")
	}

	teacher, err := s.resolve(ctx, actor.UserID)
	if err != nil {
		return err
	}

	if !s.auth.CheckPassword(teacher.PasswordHash, req.CurrentPassword) {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "current password is incorrect")
	}

	hash, err := s.auth.HashPassword(req.NewPassword)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, teacher.ID, hash); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	s.logger.Info("teacher changed password", zap.String("teacher_id", teacher.ID))
	return nil
}

// ResetPassword issues a fresh temporary password for a teacher.
func (s *TeacherService) ResetPassword(ctx context.Context, actor *models.JWTClaims, id string) (*models.ResetPasswordResult, error) {
	teacher, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if actor.Role == models.RolePrincipal && teacher.SchoolID != actor.SchoolID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	tempPassword, err := s.auth.GenerateTempPassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate credentials")
	}
	hash, err := s.auth.HashPassword(tempPassword)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash credentials")
	}
	if err := s.repo.UpdatePassword(ctx, teacher.ID, hash); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	s.logger.Info("teacher password reset", zap.String("teacher_id", teacher.ID), zap.String("by", actor.UserID))
	return &models.ResetPasswordResult{ID: teacher.ID, Email: teacher.Email, TempPassword: tempPassword}, nil
}

// resolve looks up a teacher by employee id first, then by primary key.
func (s *TeacherService) resolve(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByEmployeeID(ctx, id)
	if err == nil {
		return teacher, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	teacher, err = s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func (s *TeacherService) authorize(actor *models.JWTClaims, teacher *models.Teacher) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RolePrincipal:
		if teacher.SchoolID == actor.SchoolID {
			return nil
		}
	case models.RoleTeacher:
		if teacher.ID == actor.UserID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "")
}

func (s *TeacherService) resolveSchool(ctx context.Context, schoolID string) (*models.SchoolContact, error) {
	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "school_id is required")
	}
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	if school.SchoolCode == "" {
		school.SchoolCode = deriveSchoolCode(school.SchoolName)
		if err := s.schools.Update(ctx, school); err != nil {
			s.logger.Warn("failed to persist school code", zap.String("school_id", school.ID), zap.Error(err))
		}
	}
	return school, nil
}

func (s *TeacherService) nextEmployeeID(ctx context.Context, schoolCode string) (string, error) {
	count, err := s.repo.CountBySchoolCode(ctx, schoolCode)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive employee id")
	}
	return fmt.Sprintf("%sT%d%04d", schoolCode, time.Now().UTC().Year(), count+1), nil
}

func (s *TeacherService) attachToSchool(ctx context.Context, school *models.SchoolContact, teacherID string) {
	school.TeacherIDs = append(school.TeacherIDs, teacherID)
	if err := s.schools.Update(ctx, school); err != nil {
		s.logger.Warn("failed to attach teacher to school", zap.String("school_id", school.ID), zap.Error(err))
	}
}

func (s *TeacherService) detachFromSchool(ctx context.Context, schoolID, teacherID string) {
	if schoolID == "" {
		return
	}
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		return
	}
	kept := school.TeacherIDs[:0]
	for _, id := range school.TeacherIDs {
		if id != teacherID {
			kept = append(kept, id)
		}
	}
	school.TeacherIDs = kept
	if err := s.schools.Update(ctx, school); err != nil {
		s.logger.Warn("failed to detach teacher from school", zap.String("school_id", schoolID), zap.Error(err))
	}
}

func (s *TeacherService) invalidateStats(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, "stats:teachers:*")
	}
}

// deriveSchoolCode builds a short uppercase code from the school name.
func deriveSchoolCode(name string) string {
	var letters []byte
	for _, word := range strings.Fields(name) {
		c := word[0]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c >= 'A' && c <= 'Z' {
			letters = append(letters, c)
		}
		if len(letters) == 3 {
			break
		}
	}
	if len(letters) == 0 {
		return "SCH"
	}
	return string(letters)
}

func headerIndex(headers []string) map[string]int {
	cols := make(map[string]int, len(headers))
	for i, h := range headers {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func addError(result *models.ImportResult, message string) {
	if len(result.Errors) < teacherImportErrorCap {
		result.Errors = append(result.Errors, message)
	}
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
