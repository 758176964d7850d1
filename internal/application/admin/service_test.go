package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/shoplite/shoplite/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBrowser struct{ mock.Mock }

func (m *mockBrowser) ScanPage(ctx context.Context, limit int32, cursor string) ([]map[string]interface{}, string, error) {
	args := m.Called(ctx, limit, cursor)
	if rows, _ := args.Get(0).([]map[string]interface{}); rows != nil {
		return rows, args.String(1), args.Error(2)
	}
	return nil, args.String(1), args.Error(2)
}
func (m *mockBrowser) Delete(ctx context.Context, rowID string) error {
	return m.Called(ctx, rowID).Error(0)
}
func (m *mockBrowser) RowID(row map[string]interface{}) string {
	id, _ := row["product_id"].(string)
	return id
}

func TestTables_Sorted(t *testing.T) {
	svc := NewService(map[string]TableBrowser{
		"sessions":   &mockBrowser{},
		"identities": &mockBrowser{},
		"products":   &mockBrowser{},
	})
	assert.Equal(t, []string{"identities", "products", "sessions"}, svc.Tables())
}

func TestListRows_UnknownTable(t *testing.T) {
	svc := NewService(map[string]TableBrowser{})
	_, _, err := svc.ListRows(context.Background(), "nope", 10, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestListRows_RendersRowIDs(t *testing.T) {
	b := &mockBrowser{}
	b.On("ScanPage", mock.Anything, int32(50), "").Return([]map[string]interface{}{
		{"product_id": "p1", "name": "Mug"},
		{"product_id": "p2", "name": "Bowl"},
	}, "next-cursor", nil)

	svc := NewService(map[string]TableBrowser{"products": b})
	rows, next, err := svc.ListRows(context.Background(), "products", 0, "")

	require.NoError(t, err)
	assert.Equal(t, "next-cursor", next)
	require.Len(t, rows, 2)
	assert.Equal(t, "p1", rows[0].ID)
	assert.Equal(t, "Mug", rows[0].Attrs["name"])
}

func TestListRows_ClampsLimit(t *testing.T) {
	b := &mockBrowser{}
	b.On("ScanPage", mock.Anything, int32(maxPageSize), "").Return([]map[string]interface{}{}, "", nil)

	svc := NewService(map[string]TableBrowser{"products": b})
	_, _, err := svc.ListRows(context.Background(), "products", 10_000, "")

	require.NoError(t, err)
	b.AssertExpectations(t)
}

func TestDeleteRow(t *testing.T) {
	b := &mockBrowser{}
	b.On("Delete", mock.Anything, "p1").Return(nil)

	svc := NewService(map[string]TableBrowser{"products": b})
	require.NoError(t, svc.DeleteRow(context.Background(), "products", "p1"))

	err := svc.DeleteRow(context.Background(), "nope", "p1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = svc.DeleteRow(context.Background(), "products", "")
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}
