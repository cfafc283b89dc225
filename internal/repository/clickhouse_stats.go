package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"KOLStats/internal/domain/models"
	domrepo "KOLStats/internal/domain/repository"
	pkgch "KOLStats/pkg/clickhouse"
	applogger "KOLStats/pkg/logger"
)

const (
	granularityYearly    = "Yearly"
	granularityQuarterly = "Quarterly"
)

// CHStatsStore reads and writes channel statistics in the long-format
// channel_period_metrics table, one row per flat field.
type CHStatsStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHStatsStore binds the store to database.table.
func NewCHStatsStore(ch *pkgch.Client, database, table string) *CHStatsStore {
	return newCHStatsStore(ch.DB(), database+"."+table)
}

func newCHStatsStore(db *sql.DB, table string) *CHStatsStore {
	return &CHStatsStore{db: db, table: table, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHStatsStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// FetchChannelStats loads the three partitions concurrently. A channel without rows is not found.
func (s *CHStatsStore) FetchChannelStats(ctx context.Context, channelID string) (*models.ChannelStats, error) {
	indexes := make([]models.PartitionIndex, len(models.Partitions))
	counts := make([]int, len(models.Partitions))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range models.Partitions {
		i, p := i, p
		g.Go(func() error {
			idx, n, err := s.loadPartition(gctx, channelID, p)
			if err != nil {
				return err
			}
			indexes[i], counts[i] = idx, n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil, fmt.Errorf("channel %s: %w", channelID, domrepo.ErrChannelNotFound)
	}

	stats := &models.ChannelStats{ChannelID: channelID, FetchedAt: time.Now().UTC()}
	for i, p := range models.Partitions {
		stats.SetPartition(p, indexes[i])
	}
	return stats, nil
}

func (s *CHStatsStore) loadPartition(ctx context.Context, channelID string, p models.Partition) (models.PartitionIndex, int, error) {
	q := fmt.Sprintf(`
        SELECT granularity, period_key, timeframe, field, value
        FROM %s FINAL
        WHERE channel_id = ? AND partition = ?
    `, s.table)
	idx := models.PartitionIndex{Yearly: models.TimeBucketIndex{}, Quarterly: models.TimeBucketIndex{}}

	rows, err := s.db.QueryContext(ctx, q, channelID, string(p))
	if err != nil {
		s.l.Error("clickhouse channel stats query error",
			applogger.String("channel_id", channelID),
			applogger.String("partition", string(p)),
			applogger.Error(err))
		return idx, 0, fmt.Errorf("query %s partition: %w", p, err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			granularity, periodKey, timeframe, field string
			value                                    sql.NullFloat64
		)
		if err := rows.Scan(&granularity, &periodKey, &timeframe, &field, &value); err != nil {
			return idx, n, fmt.Errorf("scan %s partition: %w", p, err)
		}
		n++

		var target models.TimeBucketIndex
		switch granularity {
		case granularityYearly:
			target = idx.Yearly
		case granularityQuarterly:
			target = idx.Quarterly
		default:
			continue
		}
		tf := models.Timeframe(timeframe)
		if !tf.IsValid() {
			continue
		}
		bucket, ok := target[periodKey]
		if !ok {
			bucket = models.MetricsBucket{}
			target[periodKey] = bucket
		}
		m, ok := bucket[tf]
		if !ok {
			m = &models.PeriodMetrics{}
			bucket[tf] = m
		}
		var v *float64
		if value.Valid {
			f := value.Float64
			v = &f
		}
		m.SetField(field, v)
	}
	if err := rows.Err(); err != nil {
		return idx, n, fmt.Errorf("rows %s partition: %w", p, err)
	}
	return idx, n, nil
}

// Save writes every field of stats in one batch. Rows replace older versions on merge.
func (s *CHStatsStore) Save(ctx context.Context, stats *models.ChannelStats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	q := fmt.Sprintf("INSERT INTO %s (channel_id, partition, granularity, period_key, timeframe, field, value, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	written := 0
	for _, p := range models.Partitions {
		idx := stats.Partition(p)
		for granularity, tbi := range map[string]models.TimeBucketIndex{granularityYearly: idx.Yearly, granularityQuarterly: idx.Quarterly} {
			for periodKey, bucket := range tbi {
				for tf, m := range bucket {
					if m == nil {
						continue
					}
					for field, v := range m.Fields() {
						if _, err := stmt.ExecContext(ctx, stats.ChannelID, string(p), granularity, periodKey, string(tf), field, v, now); err != nil {
							_ = tx.Rollback()
							return fmt.Errorf("insert %s/%s/%s: %w", p, periodKey, field, err)
						}
						written++
					}
				}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.l.Debug("channel stats saved", applogger.String("channel_id", stats.ChannelID), applogger.Int("rows", written))
	return nil
}

var _ domrepo.StatsSource = (*CHStatsStore)(nil)
