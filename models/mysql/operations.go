package mysql

import (
	"context"
	"database/sql"
	"encoding/json"

	"bitbucket.org/yellowmessenger/voice-orchestrator/callstore"
)

// CallRecordsSchema creates the table the call records are written to
const CallRecordsSchema = "CREATE TABLE IF NOT EXISTS call_records (" +
	"`sid` VARCHAR(128) NOT NULL PRIMARY KEY, " +
	"`caller` VARCHAR(64), " +
	"`caller_e164` VARCHAR(32), " +
	"`bridge_id` VARCHAR(128), " +
	"`start_time` DATETIME(3) NOT NULL, " +
	"`end_time` DATETIME(3) NOT NULL, " +
	"`duration` INT NOT NULL, " +
	"`end_reason` VARCHAR(32) NOT NULL, " +
	"`host` VARCHAR(255), " +
	"`messages` JSON, " +
	"`latency_info` JSON)"

const insertCallRecord = "INSERT INTO call_records (`sid`, `caller`, `caller_e164`, `bridge_id`, `start_time`, `end_time`, `duration`, `end_reason`, `host`, `messages`, `latency_info`) " +
	"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) " +
	"ON DUPLICATE KEY UPDATE `end_time` = VALUES(`end_time`), `duration` = VALUES(`duration`), `end_reason` = VALUES(`end_reason`), `messages` = VALUES(`messages`), `latency_info` = VALUES(`latency_info`)"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CallRecordStore writes call records to MySQL
type CallRecordStore struct {
	db execer
}

// NewCallRecordStore returns a store on db
func NewCallRecordStore(db *sql.DB) *CallRecordStore {
	return &CallRecordStore{db: db}
}

// EnsureSchema creates the call_records table if it is missing
func (s *CallRecordStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, CallRecordsSchema)
	return err
}

// Name identifies the sink in logs
func (s *CallRecordStore) Name() string { return "mysql" }

// Store inserts the record, replacing the outcome of an earlier write of the same call
func (s *CallRecordStore) Store(ctx context.Context, rec *callstore.CallRecord) error {
	messages, err := json.Marshal(rec.Messages)
	if err != nil {
		return err
	}
	latencies, err := json.Marshal(rec.LatencyInfo)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, insertCallRecord,
		rec.CallID,
		rec.Caller,
		rec.CallerE164,
		rec.BridgeID,
		rec.StartTime.UTC(),
		rec.EndTime.UTC(),
		rec.Duration,
		rec.EndReason,
		rec.Host,
		string(messages),
		string(latencies),
	)
	return err
}
