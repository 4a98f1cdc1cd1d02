package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"nomina/internal/platform/db"
	"nomina/internal/requestctx"
)

// Entry describes one change to record. Actor, request id and client ip are
// taken from the context.
type Entry struct {
	Action     string
	EntityType string
	EntityID   string
	Before     any
	After      any
}

type event struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	IP         string
	Before     []byte
	After      []byte
}

type Service struct {
	DB *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Service {
	return &Service{DB: pool}
}

func (s *Service) Record(ctx context.Context, tenantID string, entry Entry) error {
	evt, err := buildEvent(ctx, entry)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (tenant_id, actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, tenantID, nullIfEmpty(evt.ActorID), evt.Action, evt.EntityType, evt.EntityID, evt.Before, evt.After, evt.RequestID, evt.IP)
	return db.Classify(err)
}

func buildEvent(ctx context.Context, entry Entry) (event, error) {
	evt := event{
		ActorID:    requestctx.Actor(ctx),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		RequestID:  requestctx.GetRequestID(ctx),
		IP:         requestctx.ClientIP(ctx),
	}
	var err error
	if evt.Before, err = marshalOptional(entry.Before); err != nil {
		return event{}, fmt.Errorf("marshal audit before: %w", err)
	}
	if evt.After, err = marshalOptional(entry.After); err != nil {
		return event{}, fmt.Errorf("marshal audit after: %w", err)
	}
	return evt, nil
}

func marshalOptional(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
