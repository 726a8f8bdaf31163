package introspect

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return mock
}

var describePattern = regexp.QuoteMeta("LEFT JOIN pg_attrdef d")

func describeRows(tableExists, columnExists bool, sqlType, def string) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"table_exists", "column_exists", "type", "default"}).
		AddRow(tableExists, columnExists, sqlType, def)
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"integer", "INTEGER"},
		{"character varying(50)", "CHARACTER VARYING(50)"},
		{"timestamp  without time zone", "TIMESTAMP WITHOUT TIME ZONE"},
		{"text[]", "TEXT[]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Canonical(tt.in))
	}
}

func TestDescribe(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(describePattern).
		WithArgs(`"test"`, "age").
		WillReturnRows(describeRows(true, true, "integer", ""))

	ct, err := NewInspector(mock).Describe(context.Background(), "test", "age")
	require.NoError(t, err)
	assert.Equal(t, "INTEGER", ct.Name)
	assert.Equal(t, "integer", ct.SQL)
	assert.Empty(t, ct.Default)
}

func TestDescribeReadsDefault(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(describePattern).
		WithArgs(`"orders"`, "id").
		WillReturnRows(describeRows(true, true, "integer", "nextval('orders_id_seq'::regclass)"))

	ct, err := NewInspector(mock).Describe(context.Background(), "orders", "id")
	require.NoError(t, err)
	assert.Equal(t, "nextval('orders_id_seq'::regclass)", ct.Default)
}

func TestDescribeKeepsQuotedUserTypes(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(describePattern).WillReturnRows(describeRows(true, true, `"MyEnum"`, ""))

	ct, err := NewInspector(mock).Describe(context.Background(), "t", "c")
	require.NoError(t, err)
	assert.Equal(t, `"MYENUM"`, ct.Name)
	assert.Equal(t, `"MyEnum"`, ct.SQL)
}

func TestDescribeMissingTable(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(describePattern).WillReturnRows(describeRows(false, false, "", ""))

	_, err := NewInspector(mock).TypeOf(context.Background(), "ghost", "name")
	require.Error(t, err)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "table", nf.Kind)
	assert.Equal(t, "TABLE_NOT_FOUND", nf.Code())
	assert.Contains(t, err.Error(), "ghost")
}

func TestDescribeMissingColumn(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(describePattern).WillReturnRows(describeRows(true, false, "", ""))

	_, err := NewInspector(mock).TypeOf(context.Background(), "test", "nope")

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "column", nf.Kind)
	assert.Equal(t, "COLUMN_NOT_FOUND", nf.Code())
	assert.Contains(t, err.Error(), "nope")
}

func TestDescribeStorageFailure(t *testing.T) {
	boom := errors.New("connection reset")
	mock := newMock(t)
	mock.ExpectQuery(describePattern).WillReturnError(boom)

	_, err := NewInspector(mock).Describe(context.Background(), "test", "name")
	require.ErrorIs(t, err, boom)

	var nf *NotFoundError
	assert.False(t, errors.As(err, &nf))
}

func TestListTables(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WillReturnRows(pgxmock.NewRows([]string{"table_name"}).AddRow("customers").AddRow("orders"))

	tables, err := NewInspector(mock).ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, tables)
}

func TestInspectTable(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT to_regclass($1::text) IS NOT NULL")).
		WithArgs(`"users"`).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY a.attnum")).
		WillReturnRows(pgxmock.NewRows([]string{"attname", "format_type", "default", "nullable", "attnum"}).
			AddRow("id", "integer", "nextval('users_id_seq'::regclass)", false, int16(1)).
			AddRow("email", "character varying(255)", "", true, int16(2)))

	info, err := NewInspector(mock).InspectTable(context.Background(), "users")
	require.NoError(t, err)
	require.Len(t, info.Columns, 2)

	email := info.Column("email")
	require.NotNil(t, email)
	assert.Equal(t, "CHARACTER VARYING(255)", email.Type.Name)
	assert.True(t, email.Nullable)
	assert.Equal(t, 2, email.Position)
	assert.Nil(t, info.Column("missing"))

	assert.Equal(t, "nextval('users_id_seq'::regclass)", info.Column("id").Type.Default)
}

func TestInspectTableMissing(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT to_regclass($1::text) IS NOT NULL")).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := NewInspector(mock).InspectTable(context.Background(), "ghost")

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "table", nf.Kind)
}
