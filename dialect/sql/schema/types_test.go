package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/reflectdb/dialect"
)

func TestColumnSpecRender(t *testing.T) {
	cases := []struct {
		name     string
		spec     ColumnSpec
		dialect  string
		want     string
	}{
		{
			name:    "postgres serial primary key",
			spec:    ColumnSpec{Name: "id", Type: SerialType(), PrimaryKey: true, AutoIncrement: true},
			dialect: dialect.Postgres,
			want:    `"id" serial PRIMARY KEY`,
		},
		{
			name:    "mysql auto increment integer",
			spec:    ColumnSpec{Name: "id", Type: SerialType(), PrimaryKey: true, AutoIncrement: true},
			dialect: dialect.MySQL,
			want:    "`id` int AUTO_INCREMENT PRIMARY KEY",
		},
		{
			name:    "nullable string column has no NOT NULL",
			spec:    ColumnSpec{Name: "name", Type: StringType(128), Nullable: true},
			dialect: dialect.Postgres,
			want:    `"name" varchar(128)`,
		},
		{
			name:    "required column gets NOT NULL",
			spec:    ColumnSpec{Name: "name", Type: StringType(128)},
			dialect: dialect.Postgres,
			want:    `"name" varchar(128) NOT NULL`,
		},
		{
			name:    "text type ignores size",
			spec:    ColumnSpec{Name: "body", Type: TextType(), Nullable: true},
			dialect: dialect.Postgres,
			want:    `"body" text`,
		},
		{
			name:    "timestamp with default",
			spec:    ColumnSpec{Name: "created_at", Type: TimestampType(), Nullable: true, Default: "current_timestamp"},
			dialect: dialect.Postgres,
			want:    `"created_at" timestamp with time zone DEFAULT current_timestamp`,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.spec.Render(c.dialect)
			require.NoError(t, err)
			require.Equal(t, c.want, got)
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	require.Equal(t, "`widget`", QuoteIdent(dialect.MySQL, "widget"))
	require.Equal(t, `"widget"`, QuoteIdent(dialect.Postgres, "widget"))
	require.Equal(t, `"widget"`, QuoteIdent(dialect.SQLite, "widget"))
}
