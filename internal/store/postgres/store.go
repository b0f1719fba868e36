package postgres

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "bcmaccess/internal/errors"
	"bcmaccess/internal/license"
	"bcmaccess/internal/workflow"
)

// Store implements the grant and request persistence ports on postgres.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore creates a postgres store adapter
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With(slog.String("component", "postgres_store")),
	}
}

// openRequestIndex enforces at most one non-terminal request per
// (organization, requester, module) triple at the database, so concurrent
// submits cannot both insert past the in-transaction duplicate check.
const openRequestIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_request_open_triple
ON module_access_requests (organization_id, requester_id, module_id)
WHERE status NOT IN ('approved', 'rejected')`

// Migrate creates or updates the backing tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&grantRow{}, &requestRow{}); err != nil {
		return err
	}
	return s.db.Exec(openRequestIndex).Error
}

// Grant records a grant idempotently via an on-conflict no-op insert.
func (s *Store) Grant(ctx context.Context, g license.Grant) error {
	row := grantRowFromGrant(g)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return s.logError(ctx, "grant_write_failed", err,
			slog.String("organization_id", g.OrganizationID),
			slog.Int("module_id", g.ModuleID))
	}
	return nil
}

// GrantsForOrganization returns all grants held by the organization.
func (s *Store) GrantsForOrganization(ctx context.Context, orgID string) ([]license.Grant, error) {
	var rows []grantRow
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Find(&rows).Error
	if err != nil {
		return nil, s.logError(ctx, "grants_read_failed", err,
			slog.String("organization_id", orgID))
	}

	grants := make([]license.Grant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, row.toGrant())
	}
	return grants, nil
}

// Ping reports database reachability.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateRequest persists a new request. The pre-insert lookup answers the
// common duplicate case with the existing request's id; the partial unique
// index on the open triple is what actually rules out two concurrent submits
// both inserting, so a unique violation on the insert is mapped to the same
// duplicate error.
func (s *Store) CreateRequest(ctx context.Context, req *workflow.Request) error {
	row, err := requestRowFromRequest(req)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.findOpenRequest(tx, req)
		switch {
		case err == nil:
			return duplicateRequest(req, existing.ID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return s.logError(ctx, "request_duplicate_check_failed", err,
				slog.String("request_id", req.ID))
		}

		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// The other submit committed between our lookup and insert.
				// The violation aborted this transaction, so the winner is
				// read on a fresh session.
				dup := duplicateRequest(req, "")
				if winner, lookupErr := s.findOpenRequest(s.db.WithContext(ctx), req); lookupErr == nil {
					dup.ExistingID = winner.ID
				}
				return dup
			}
			return s.logError(ctx, "request_create_failed", err,
				slog.String("request_id", req.ID))
		}
		return nil
	})
}

func (s *Store) findOpenRequest(tx *gorm.DB, req *workflow.Request) (requestRow, error) {
	var existing requestRow
	err := tx.
		Where("organization_id = ? AND requester_id = ? AND module_id = ?",
			req.OrganizationID, req.RequesterID, req.ModuleID).
		Where("status NOT IN ?", []string{
			string(workflow.StatusApproved), string(workflow.StatusRejected),
		}).
		First(&existing).Error
	return existing, err
}

func duplicateRequest(req *workflow.Request, existingID string) *apperrors.DuplicateRequestError {
	return &apperrors.DuplicateRequestError{
		OrganizationID: req.OrganizationID,
		RequesterID:    req.RequesterID,
		ModuleID:       req.ModuleID,
		ExistingID:     existingID,
	}
}

// GetRequest returns the request or apperrors.ErrRequestNotFound.
func (s *Store) GetRequest(ctx context.Context, id string) (*workflow.Request, error) {
	var row requestRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, s.logError(ctx, "request_read_failed", err,
			slog.String("request_id", id))
	}
	return row.toRequest()
}

// UpdateRequest applies a version-guarded update and, when a grant is given,
// writes it in the same transaction. A guard miss is classified by re-reading
// the row: gone means not found, present means version conflict.
func (s *Store) UpdateRequest(ctx context.Context, req *workflow.Request, expectedVersion int, grant *license.Grant) error {
	row, err := requestRowFromRequest(req)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&requestRow{}).
			Where("id = ? AND version = ?", req.ID, expectedVersion).
			Updates(map[string]interface{}{
				"status":     row.Status,
				"approvals":  row.Approvals,
				"version":    row.Version,
				"updated_at": row.UpdatedAt,
			})
		if result.Error != nil {
			return s.logError(ctx, "request_update_failed", result.Error,
				slog.String("request_id", req.ID))
		}
		if result.RowsAffected == 0 {
			var current requestRow
			err := tx.Where("id = ?", req.ID).First(&current).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrRequestNotFound
			}
			if err != nil {
				return s.logError(ctx, "request_conflict_check_failed", err,
					slog.String("request_id", req.ID))
			}
			return &apperrors.VersionConflictError{
				RequestID: req.ID,
				Expected:  expectedVersion,
				Actual:    current.Version,
			}
		}

		if grant != nil {
			grantRow := grantRowFromGrant(*grant)
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grantRow).Error; err != nil {
				return s.logError(ctx, "grant_write_failed", err,
					slog.String("request_id", req.ID),
					slog.String("organization_id", grant.OrganizationID))
			}
		}
		return nil
	})
}

// ListByRequester returns the requester's requests, newest first.
func (s *Store) ListByRequester(ctx context.Context, orgID, requesterID string) ([]*workflow.Request, error) {
	var rows []requestRow
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND requester_id = ?", orgID, requesterID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, s.logError(ctx, "request_list_failed", err,
			slog.String("organization_id", orgID),
			slog.String("requester_id", requesterID))
	}
	return rowsToRequests(rows)
}

// ListByStatuses returns the organization's requests in any of the given
// states, newest first.
func (s *Store) ListByStatuses(ctx context.Context, orgID string, statuses []workflow.Status) ([]*workflow.Request, error) {
	names := make([]string, 0, len(statuses))
	for _, st := range statuses {
		names = append(names, string(st))
	}

	var rows []requestRow
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND status IN ?", orgID, names).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, s.logError(ctx, "request_list_failed", err,
			slog.String("organization_id", orgID))
	}
	return rowsToRequests(rows)
}

func rowsToRequests(rows []requestRow) ([]*workflow.Request, error) {
	out := make([]*workflow.Request, 0, len(rows))
	for _, row := range rows {
		req, err := row.toRequest()
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func (s *Store) logError(ctx context.Context, event string, err error, attrs ...slog.Attr) error {
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("error", err.Error()))
	for _, a := range attrs {
		args = append(args, a)
	}
	s.logger.ErrorContext(ctx, event, args...)
	return err
}
