package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"burnpace/internal/analysis"
)

// Wire records for snapshot payloads. Instants are Unix seconds, 0 meaning
// "no instant", and decode into time.Local.

type pointRecord struct {
	T int64   `msgpack:"t"`
	V float64 `msgpack:"v"`
}

type weekdayPayload struct {
	Weekday        int           `msgpack:"weekday"`
	Day            int64         `msgpack:"day"`
	Points         []pointRecord `msgpack:"points"`
	ProjectedTotal float64       `msgpack:"projected_total"`
	DaysSampled    int           `msgpack:"days_sampled"`
}

type todayPayload struct {
	Day          int64         `msgpack:"day"`
	Points       []pointRecord `msgpack:"points"`
	TodayTotal   float64       `msgpack:"today_total"`
	LatestSample int64         `msgpack:"latest_sample"`
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

func encodePoints(points []analysis.HourPoint) []pointRecord {
	out := make([]pointRecord, len(points))
	for i, p := range points {
		out[i] = pointRecord{T: toUnix(p.Time), V: p.Value}
	}
	return out
}

func decodePoints(records []pointRecord) []analysis.HourPoint {
	out := make([]analysis.HourPoint, len(records))
	for i, r := range records {
		out[i] = analysis.HourPoint{Time: fromUnix(r.T), Value: r.V}
	}
	return out
}

// SaveWeekdaySnapshot replaces the stored snapshot for snap.Weekday.
func (db *DB) SaveWeekdaySnapshot(snap WeekdaySnapshot) error {
	if !snap.Weekday.Valid() {
		return ErrInvalidWeekday
	}

	payload, err := msgpack.Marshal(weekdayPayload{
		Weekday:        int(snap.Weekday),
		Day:            toUnix(snap.Average.Day),
		Points:         encodePoints(snap.Average.Points),
		ProjectedTotal: snap.ProjectedTotal,
		DaysSampled:    snap.Average.DaysSampled,
	})
	if err != nil {
		return fmt.Errorf("encoding weekday snapshot: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO weekday_snapshots (weekday, payload, computed_at, schema_version, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(weekday) DO UPDATE SET
			payload = excluded.payload,
			computed_at = excluded.computed_at,
			schema_version = excluded.schema_version,
			updated_at = CURRENT_TIMESTAMP
	`, int(snap.Weekday), payload, toUnix(snap.ComputedAt), SnapshotSchemaVersion)
	return err
}

// GetWeekdaySnapshot loads the snapshot for weekday. It returns
// ErrSnapshotNotFound when none was written and ErrSnapshotCorrupt when the
// payload cannot be decoded or has another schema version.
func (db *DB) GetWeekdaySnapshot(weekday analysis.Weekday) (*WeekdaySnapshot, error) {
	if !weekday.Valid() {
		return nil, ErrInvalidWeekday
	}

	var payload []byte
	var computedAt int64
	var version int
	err := db.QueryRow(`
		SELECT payload, computed_at, schema_version
		FROM weekday_snapshots
		WHERE weekday = ?
	`, int(weekday)).Scan(&payload, &computedAt, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	if version != SnapshotSchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d", ErrSnapshotCorrupt, version)
	}

	var p weekdayPayload
	if err := msgpack.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	if p.Weekday != int(weekday) {
		return nil, fmt.Errorf("%w: payload for weekday %d", ErrSnapshotCorrupt, p.Weekday)
	}

	return &WeekdaySnapshot{
		Weekday: weekday,
		Average: analysis.AverageSeries{
			Day:            fromUnix(p.Day),
			Points:         decodePoints(p.Points),
			ProjectedTotal: p.ProjectedTotal,
			DaysSampled:    p.DaysSampled,
		},
		ProjectedTotal: p.ProjectedTotal,
		ComputedAt:     fromUnix(computedAt),
		SchemaVersion:  version,
	}, nil
}

// SaveTodaySnapshot replaces the stored "today" result.
func (db *DB) SaveTodaySnapshot(snap TodaySnapshot) error {
	payload, err := msgpack.Marshal(todayPayload{
		Day:          toUnix(snap.Today.Day),
		Points:       encodePoints(snap.Today.Points),
		TodayTotal:   snap.TodayTotal,
		LatestSample: toUnix(snap.LatestSample),
	})
	if err != nil {
		return fmt.Errorf("encoding today snapshot: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO today_snapshot (id, payload, computed_at, schema_version, updated_at)
		VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			computed_at = excluded.computed_at,
			schema_version = excluded.schema_version,
			updated_at = CURRENT_TIMESTAMP
	`, payload, toUnix(snap.ComputedAt), SnapshotSchemaVersion)
	return err
}

// GetTodaySnapshot loads the last "today" result, with the same error
// contract as GetWeekdaySnapshot.
func (db *DB) GetTodaySnapshot() (*TodaySnapshot, error) {
	var payload []byte
	var computedAt int64
	var version int
	err := db.QueryRow(`
		SELECT payload, computed_at, schema_version
		FROM today_snapshot
		WHERE id = 1
	`).Scan(&payload, &computedAt, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	if version != SnapshotSchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d", ErrSnapshotCorrupt, version)
	}

	var p todayPayload
	if err := msgpack.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}

	return &TodaySnapshot{
		Today: analysis.DailySeries{
			Day:    fromUnix(p.Day),
			Points: decodePoints(p.Points),
		},
		TodayTotal:   p.TodayTotal,
		LatestSample: fromUnix(p.LatestSample),
		ComputedAt:   fromUnix(computedAt),
	}, nil
}
