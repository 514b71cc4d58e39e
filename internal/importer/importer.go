// Package importer reconciles a CSV file of users against the user table.
//
// Every data row is validated, then either creates a new user or updates the
// existing user with the same email. Bad rows are reported in the summary and
// never stop the run; only a missing or unusable header aborts it.
package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/model"
	"letterdesk/internal/repository"
)

// Recognized header columns. Only email is required in the header.
const (
	ColName       = "name"
	ColEmail      = "email"
	ColPassword   = "password"
	ColRole       = "role"
	ColPosition   = "position"
	ColDepartment = "department"
	ColOffice     = "office"
	ColPhone      = "phone"
)

const unknownEmail = "unknown"

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// optionalColumns are copied onto an existing user only when the header names them.
var optionalColumns = []string{ColPosition, ColDepartment, ColOffice, ColPhone}

// Outcome is the result of reconciling one row.
type Outcome int

const (
	OutcomeCreated Outcome = iota + 1
	OutcomeUpdated
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// RowError describes one rejected row.
type RowError struct {
	Row   int    `json:"row"`
	Email string `json:"email"`
	Error string `json:"error"`
}

// Summary aggregates the outcomes of an import run.
type Summary struct {
	Created  int        `json:"imported"`
	Updated  int        `json:"updated"`
	Rejected int        `json:"errors"`
	Total    int        `json:"total"`
	Errors   []RowError `json:"error_details"`

	// UpdatedIDs lists users whose stored record changed, for cache eviction.
	UpdatedIDs []uint `json:"-"`
}

func (s *Summary) record(rowNum int, email string, outcome Outcome, reason string) {
	s.Total++
	switch outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeRejected:
		s.Rejected++
		if email == "" {
			email = unknownEmail
		}
		s.Errors = append(s.Errors, RowError{Row: rowNum, Email: email, Error: reason})
	}
}

// Row is one data line mapped onto the recognized columns.
type Row struct {
	Number     int    `csv:"-"`
	Name       string `csv:"name" validate:"required,max=255"`
	Email      string `csv:"email" validate:"required,email,max=255"`
	Role       string `csv:"role" validate:"required,oneof=admin executive staff"`
	Password   string `csv:"password"`
	Position   string `csv:"position"`
	Department string `csv:"department"`
	Office     string `csv:"office"`
	Phone      string `csv:"phone"`
}

// Importer runs bulk user reconciliation.
type Importer struct {
	repo       repository.UserRepository
	validate   *validator.Validate
	bcryptCost int
}

// New creates an importer writing through repo.
func New(repo repository.UserRepository, bcryptCost int) *Importer {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("csv")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Importer{repo: repo, validate: v, bcryptCost: bcryptCost}
}

var utf8BOM = []byte("\ufeff")

// skipBOM drops a leading UTF-8 byte order mark so a quoted first header
// cell still parses.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// header maps lower-cased column names to their position.
type header map[string]int

func parseHeader(record []string) (header, error) {
	h := make(header, len(record))
	for i, cell := range record {
		if i == 0 {
			cell = strings.TrimPrefix(cell, "\ufeff")
		}
		name := strings.ToLower(strings.TrimSpace(cell))
		if name == "" {
			continue
		}
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	if _, ok := h[ColEmail]; !ok {
		return nil, apperrors.ErrInvalidFormat
	}
	return h, nil
}

func (h header) has(col string) bool {
	_, ok := h[col]
	return ok
}

func (h header) value(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (h header) row(num int, record []string) Row {
	return Row{
		Number:     num,
		Name:       h.value(record, ColName),
		Email:      h.value(record, ColEmail),
		Role:       h.value(record, ColRole),
		Password:   h.value(record, ColPassword),
		Position:   h.value(record, ColPosition),
		Department: h.value(record, ColDepartment),
		Office:     h.value(record, ColOffice),
		Phone:      h.value(record, ColPhone),
	}
}

// Import reads CSV from r and reconciles every data row in file order.
// It fails only with ErrInvalidFormat when the header is missing or lacks the
// email column; every other problem becomes a rejected row in the summary.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Summary, error) {
	reader := csv.NewReader(skipBOM(r))
	reader.FieldsPerRecord = -1

	first, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.ErrInvalidFormat
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidFormat, err)
	}
	h, err := parseHeader(first)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Errors: []RowError{}}
	rowNum := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++

		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				summary.record(rowNum, h.value(record, ColEmail), OutcomeRejected, perr.Err.Error())
				continue
			}
			// The underlying reader failed; nothing further can be read.
			summary.record(rowNum, "", OutcomeRejected, err.Error())
			break
		}

		row := h.row(rowNum, record)
		outcome, id, reason := im.reconcile(ctx, h, row)
		summary.record(rowNum, row.Email, outcome, reason)
		if outcome == OutcomeUpdated {
			summary.UpdatedIDs = append(summary.UpdatedIDs, id)
		}
	}

	log.Debug().
		Int("total", summary.Total).
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("rejected", summary.Rejected).
		Msg("user import processed")

	return summary, nil
}

// reconcile applies one row. The lookup and the write share a transaction.
func (im *Importer) reconcile(ctx context.Context, h header, row Row) (Outcome, uint, string) {
	if err := im.validate.Struct(row); err != nil {
		return OutcomeRejected, 0, im.firstMessage(err)
	}

	var (
		outcome Outcome
		userID  uint
	)
	err := im.repo.WithTransaction(ctx, func(ctx context.Context, repo repository.UserRepository) error {
		existing, err := repo.FindByEmail(ctx, row.Email)
		switch {
		case err == nil:
			fields := map[string]interface{}{
				"name": row.Name,
				"role": model.Role(row.Role),
			}
			for _, col := range optionalColumns {
				if h.has(col) {
					fields[col] = row.column(col)
				}
			}
			if err := repo.UpdateFields(ctx, existing.ID, fields); err != nil {
				return err
			}
			outcome, userID = OutcomeUpdated, existing.ID
			return nil

		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := im.validate.Var(row.Password, "required,min=8,max=72"); err != nil {
				return errors.New(passwordMessage(err))
			}
			if len(row.Password) > maxPasswordBytes {
				return fmt.Errorf("password must be at most %d bytes", maxPasswordBytes)
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(row.Password), im.bcryptCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			user := &model.User{
				Name:         row.Name,
				Email:        row.Email,
				PasswordHash: string(hash),
				Role:         model.Role(row.Role),
				Position:     row.Position,
				Department:   row.Department,
				Office:       row.Office,
				Phone:        row.Phone,
			}
			if err := repo.Create(ctx, user); err != nil {
				return err
			}
			outcome, userID = OutcomeCreated, user.ID
			return nil

		default:
			return err
		}
	})
	if err != nil {
		log.Debug().Err(err).Int("row", row.Number).Msg("import row rejected")
		return OutcomeRejected, 0, err.Error()
	}
	return outcome, userID, ""
}

func (r Row) column(col string) string {
	switch col {
	case ColPosition:
		return r.Position
	case ColDepartment:
		return r.Department
	case ColOffice:
		return r.Office
	case ColPhone:
		return r.Phone
	}
	return ""
}

func (im *Importer) firstMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	return fieldMessage(verrs[0])
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func passwordMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "required":
			return "password is required for new users"
		case "min":
			return fmt.Sprintf("password must be at least %s characters", verrs[0].Param())
		case "max":
			return fmt.Sprintf("password must be at most %s characters", verrs[0].Param())
		}
	}
	return err.Error()
}
