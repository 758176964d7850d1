package admin

import (
	"context"
	"fmt"
	"sort"

	"github.com/shoplite/shoplite/internal/domain"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// TableBrowser is the untyped table view the data viewer renders. Satisfied
// by dynamo.TableRepo.
type TableBrowser interface {
	ScanPage(ctx context.Context, limit int32, cursor string) ([]map[string]interface{}, string, error)
	Delete(ctx context.Context, rowID string) error
	RowID(row map[string]interface{}) string
}

// Row is one rendered viewer row: the raw attributes plus the id the inline
// delete button submits back.
type Row struct {
	ID    string                 `json:"_id"`
	Attrs map[string]interface{} `json:"attrs"`
}

type Service interface {
	Tables() []string
	ListRows(ctx context.Context, table string, limit int, cursor string) ([]Row, string, error)
	DeleteRow(ctx context.Context, table, rowID string) error
}

type service struct {
	tables map[string]TableBrowser
}

func NewService(tables map[string]TableBrowser) Service {
	return &service{tables: tables}
}

func (s *service) Tables() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *service) ListRows(ctx context.Context, table string, limit int, cursor string) ([]Row, string, error) {
	b, ok := s.tables[table]
	if !ok {
		return nil, "", fmt.Errorf("unknown table %q: %w", table, domain.ErrNotFound)
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	raw, next, err := b.ScanPage(ctx, int32(limit), cursor)
	if err != nil {
		return nil, "", err
	}
	rows := make([]Row, len(raw))
	for i, attrs := range raw {
		rows[i] = Row{ID: b.RowID(attrs), Attrs: attrs}
	}
	return rows, next, nil
}

func (s *service) DeleteRow(ctx context.Context, table, rowID string) error {
	b, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("unknown table %q: %w", table, domain.ErrNotFound)
	}
	if rowID == "" {
		return fmt.Errorf("row id required: %w", domain.ErrBadRequest)
	}
	return b.Delete(ctx, rowID)
}
