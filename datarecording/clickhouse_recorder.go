package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/tebeka/atexit"
)

// ClickHouseOptions tells where a ClickHouse recorder connects.
type ClickHouseOptions struct {
	Addr      string
	Database  string
	Username  string
	Password  string
	BatchSize int
}

// clickHouseWriter records into a ClickHouse server. Tables are created only
// if missing, so several runs can share one database.
type clickHouseWriter struct {
	conn      clickhouse.Conn
	mu        sync.Mutex
	batchSize int

	tables     map[string]*table
	entryCount int
	closed     bool

	execRecorder *execRecorder
}

// OpenClickHouse connects to a ClickHouse server using the native protocol.
func OpenClickHouse(opts ClickHouseOptions) (DataRecorder, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = 100000
	}

	if opts.Database == "" {
		opts.Database = "default"
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      30 * time.Second,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	err = conn.Ping(context.Background())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	w := &clickHouseWriter{
		conn:      conn,
		batchSize: opts.BatchSize,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	w.execRecorder = newExecRecorder(w)
	w.execRecorder.Start()

	return w, nil
}

var clickHouseTypes = map[reflect.Kind]string{
	reflect.Bool:    "Bool",
	reflect.Int:     "Int64",
	reflect.Int8:    "Int8",
	reflect.Int16:   "Int16",
	reflect.Int32:   "Int32",
	reflect.Int64:   "Int64",
	reflect.Uint:    "UInt64",
	reflect.Uint8:   "UInt8",
	reflect.Uint16:  "UInt16",
	reflect.Uint32:  "UInt32",
	reflect.Uint64:  "UInt64",
	reflect.Float32: "Float32",
	reflect.Float64: "Float64",
	reflect.String:  "String",
}

// clickHouseSchema returns the CREATE TABLE statement for entries shaped like
// sampleEntry.
func clickHouseSchema(tableName string, sampleEntry any) (string, error) {
	err := checkStructFields(sampleEntry)
	if err != nil {
		return "", err
	}

	t := reflect.TypeOf(sampleEntry)
	columns := make([]string, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		columns = append(columns,
			f.Name+" "+clickHouseTypes[f.Type.Kind()])
	}

	return "CREATE TABLE IF NOT EXISTS " + tableName + " (\n\t" +
		strings.Join(columns, ",\n\t") +
		"\n) ENGINE = MergeTree()\nORDER BY tuple()", nil
}

func (w *clickHouseWriter) CreateTable(tableName string, sampleEntry any) {
	w.mu.Lock()
	defer w.mu.Unlock()

	createSQL, err := clickHouseSchema(tableName, sampleEntry)
	if err != nil {
		panic(err)
	}

	err = w.conn.Exec(context.Background(), createSQL)
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}
}

func (w *clickHouseWriter) InsertData(tableName string, entry any) {
	w.mu.Lock()

	table, exists := w.tables[tableName]
	if !exists {
		w.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		w.mu.Unlock()
		panic(fmt.Sprintf("entry of type %T does not match table %s",
			entry, tableName))
	}

	table.entries = append(table.entries, entry)
	w.entryCount++
	full := w.entryCount >= w.batchSize

	w.mu.Unlock()

	if full {
		w.Flush()
	}
}

func (w *clickHouseWriter) ListTables() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	tables := make([]string, 0, len(w.tables))
	for name := range w.tables {
		tables = append(tables, name)
	}

	sort.Strings(tables)

	return tables
}

func (w *clickHouseWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.entryCount == 0 || w.closed {
		return
	}

	ctx := context.Background()

	for name, table := range w.tables {
		if len(table.entries) == 0 {
			continue
		}

		w.flushTable(ctx, name, table)
		table.entries = nil
	}

	w.entryCount = 0
}

func (w *clickHouseWriter) flushTable(
	ctx context.Context,
	name string,
	t *table,
) {
	columns := strings.Join(structs.Names(t.entries[0]), ", ")

	batch, err := w.conn.PrepareBatch(ctx,
		fmt.Sprintf("INSERT INTO %s (%s)", name, columns))
	if err != nil {
		panic(fmt.Errorf("failed to prepare batch for %s: %w", name, err))
	}

	for _, entry := range t.entries {
		err = batch.Append(fieldValues(entry)...)
		if err != nil {
			panic(fmt.Errorf("failed to append to %s: %w", name, err))
		}
	}

	err = batch.Send()
	if err != nil {
		panic(fmt.Errorf("failed to send batch for %s: %w", name, err))
	}
}

func (w *clickHouseWriter) Close() error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()

	if closed {
		return nil
	}

	w.execRecorder.End()
	w.Flush()

	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	return w.conn.Close()
}
