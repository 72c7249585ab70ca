package sink

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// TableName is the destination table for enriched sales records.
const TableName = "sales"

var insertColumns = []string{
	"date", "product", "amount", "quantity",
	"total", "category", "margin_pct", "processed_at",
}

// dialect abstracts the SQL differences between the supported drivers:
// DSN syntax, placeholder style, and DDL types.
type dialect interface {
	Name() string
	DSN(cfg Config) string
	CreateTableDDL() string
	InsertStatement(rows int) string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverPostgres:
		return postgresDialect{}, nil
	case DriverMySQL:
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q (want %s or %s)", driver, DriverPostgres, DriverMySQL)
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return DriverPostgres }

func (postgresDialect) DSN(cfg Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)
}

func (postgresDialect) CreateTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
	id SERIAL PRIMARY KEY,
	date DATE NOT NULL,
	product TEXT NOT NULL,
	amount BIGINT NOT NULL,
	quantity BIGINT NOT NULL,
	total BIGINT NOT NULL,
	category TEXT NOT NULL,
	margin_pct INT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL
)`
}

func (postgresDialect) InsertStatement(rows int) string {
	var sb strings.Builder
	writeInsertPrefix(&sb)
	arg := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := range insertColumns {
			if c > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", arg)
			arg++
		}
		sb.WriteString(")")
	}
	return sb.String()
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return DriverMySQL }

func (mysqlDialect) DSN(cfg Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

func (mysqlDialect) CreateTableDDL() string {
	return `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	date DATE NOT NULL,
	product VARCHAR(255) NOT NULL,
	amount BIGINT NOT NULL,
	quantity BIGINT NOT NULL,
	total BIGINT NOT NULL,
	category VARCHAR(64) NOT NULL,
	margin_pct INT NOT NULL,
	processed_at DATETIME NOT NULL
)`
}

func (mysqlDialect) InsertStatement(rows int) string {
	var sb strings.Builder
	writeInsertPrefix(&sb)
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(insertColumns)), ", ") + ")"
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(row)
	}
	return sb.String()
}

func writeInsertPrefix(sb *strings.Builder) {
	sb.WriteString("INSERT INTO ")
	sb.WriteString(TableName)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(insertColumns, ", "))
	sb.WriteString(") VALUES ")
}
