package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/vigil/internal/consent/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultAuditStream is the Redis stream consent records are appended to.
const DefaultAuditStream = "vigil:consent:audit"

// defaultStreamMaxLen caps the stream; trimming is approximate.
const defaultStreamMaxLen = 1_000_000

// RedisAuditLog appends consent audit records to a Redis stream. Retention
// is bounded by the stream length rather than by age.
type RedisAuditLog struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisAuditLog creates an audit log writing to stream. An empty stream
// selects DefaultAuditStream.
func NewRedisAuditLog(client *redis.Client, stream string) *RedisAuditLog {
	if stream == "" {
		stream = DefaultAuditStream
	}
	return &RedisAuditLog{client: client, stream: stream, maxLen: defaultStreamMaxLen}
}

// Append adds a record to the stream.
func (l *RedisAuditLog) Append(ctx context.Context, record *domain.AuditRecord) error {
	values, err := streamValues(record)
	if err != nil {
		return err
	}
	err = l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: l.stream,
		MaxLen: l.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append consent audit record to %s: %w", l.stream, err)
	}
	return nil
}

// streamValues flattens a record into stream entry fields.
func streamValues(record *domain.AuditRecord) (map[string]any, error) {
	contextJSON, err := json.Marshal(record.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit context: %w", err)
	}
	return map[string]any{
		"id":              record.ID.String(),
		"user_id":         record.UserID.String(),
		"company_id":      companyIDString(record.CompanyID),
		"capability":      string(record.Capability),
		"has_consent":     strconv.FormatBool(record.Decision.HasConsent),
		"reason":          record.Decision.Reason,
		"employment_type": string(record.Decision.EmploymentType),
		"plan":            string(record.Decision.Plan),
		"agreement_id":    agreementIDString(record.Decision.AgreementID),
		"context":         string(contextJSON),
		"created_at":      record.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

var _ domain.AuditLog = (*RedisAuditLog)(nil)
