// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package store holds the NATS JetStream and in-memory storage backends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/logging"
)

// NATS Key-Value store bucket names
const (
	KVStoreNameParticipants       = "workshop-participants"
	KVStoreNameReconciliationJobs = "reconciliation-jobs"
	KVStoreNameWorkshops          = "workshops"
)

// tracerName is the instrumentation name for the store package.
const tracerName = "github.com/linuxfoundation/lfx-v2-workshop-attendance-service/internal/infrastructure/store"

// maxModifyAttempts bounds the compare-and-set loop of Modify.
const maxModifyAttempts = 5

// INatsKeyValue is the subset of jetstream.KeyValue used by the repositories.
type INatsKeyValue interface {
	ListKeys(context.Context, ...jetstream.WatchOpt) (jetstream.KeyLister, error)
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(context.Context, string, []byte) (uint64, error)
	// Update with revision 0 only succeeds when the key does not exist yet.
	Update(context.Context, string, []byte, uint64) (uint64, error)
}

// NatsBaseRepository provides common NATS KV operations that can be reused across all repositories
type NatsBaseRepository[T any] struct {
	kvStore    INatsKeyValue
	entityName string // Used in error messages (e.g., "participant", "reconciliation job")
}

// NewNatsBaseRepository creates a new base repository for NATS KV operations
func NewNatsBaseRepository[T any](kvStore INatsKeyValue, entityName string) *NatsBaseRepository[T] {
	return &NatsBaseRepository[T]{
		kvStore:    kvStore,
		entityName: entityName,
	}
}

// IsReady checks if the repository is ready for use
func (r *NatsBaseRepository[T]) IsReady() bool {
	return r.kvStore != nil
}

func (r *NatsBaseRepository[T]) startSpan(ctx context.Context, operation, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String("db.system", "nats"),
		attribute.String("db.operation", operation),
		attribute.String("db.nats.key", key),
		attribute.String("db.nats.entity", r.entityName),
	}, attrs...)
	return otel.Tracer(tracerName).Start(ctx, "nats.kv."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func failSpan(span trace.Span, err error, status string) error {
	span.RecordError(err)
	if status == "" {
		status = err.Error()
	}
	span.SetStatus(codes.Error, status)
	return err
}

func (r *NatsBaseRepository[T]) unavailable() error {
	return domain.NewUnavailableError(fmt.Sprintf("%s repository is not available", r.entityName))
}

// isWrongLastSequence matches the JetStream error for a failed revision check.
func isWrongLastSequence(err error) bool {
	return errors.Is(err, jetstream.ErrKeyExists) || strings.Contains(err.Error(), "wrong last sequence")
}

// GetRaw retrieves a raw entry from NATS KV store
func (r *NatsBaseRepository[T]) GetRaw(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	ctx, span := r.startSpan(ctx, "get", key)
	defer span.End()

	if !r.IsReady() {
		return nil, failSpan(span, r.unavailable(), "")
	}

	entry, err := r.kvStore.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			err = domain.NewNotFoundError(fmt.Sprintf("%s with key '%s' not found", r.entityName, key), err)
			return nil, failSpan(span, err, "not found")
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error getting %s from NATS KV", r.entityName),
			logging.ErrKey, err, "key", key)
		err = domain.NewUnavailableError(fmt.Sprintf("failed to retrieve %s from store", r.entityName), err)
		return nil, failSpan(span, err, "")
	}

	span.SetStatus(codes.Ok, "")
	return entry, nil
}

// Get retrieves and unmarshals an entity from NATS KV store
func (r *NatsBaseRepository[T]) Get(ctx context.Context, key string) (*T, error) {
	entity, _, err := r.GetWithRevision(ctx, key)
	return entity, err
}

// GetWithRevision retrieves an entity with its revision from NATS KV store
func (r *NatsBaseRepository[T]) GetWithRevision(ctx context.Context, key string) (*T, uint64, error) {
	entry, err := r.GetRaw(ctx, key)
	if err != nil {
		return nil, 0, err
	}

	var entity T
	if err := json.Unmarshal(entry.Value(), &entity); err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error unmarshaling %s", r.entityName), logging.ErrKey, err, "key", key)
		return nil, 0, domain.NewInternalError(fmt.Sprintf("failed to unmarshal %s data", r.entityName), err)
	}

	return &entity, entry.Revision(), nil
}

// Create stores a new entity and fails with a conflict error when the key already exists.
func (r *NatsBaseRepository[T]) Create(ctx context.Context, key string, entity *T) error {
	_, err := r.write(ctx, "create", key, entity, 0)
	return err
}

// Put stores an entity regardless of its current revision.
func (r *NatsBaseRepository[T]) Put(ctx context.Context, key string, entity *T) error {
	ctx, span := r.startSpan(ctx, "put", key)
	defer span.End()

	if !r.IsReady() {
		return failSpan(span, r.unavailable(), "")
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return failSpan(span, domain.NewInternalError(fmt.Sprintf("failed to marshal %s", r.entityName), err), "")
	}

	if _, err := r.kvStore.Put(ctx, key, data); err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error putting %s in NATS KV", r.entityName), logging.ErrKey, err, "key", key)
		return failSpan(span, domain.NewUnavailableError(fmt.Sprintf("failed to store %s", r.entityName), err), "")
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Update replaces an existing entity with optimistic concurrency control
func (r *NatsBaseRepository[T]) Update(ctx context.Context, key string, entity *T, revision uint64) error {
	if revision == 0 {
		return domain.NewValidationError(fmt.Sprintf("revision is required to update %s", r.entityName))
	}
	_, err := r.write(ctx, "update", key, entity, revision)
	return err
}

func (r *NatsBaseRepository[T]) write(ctx context.Context, operation, key string, entity *T, revision uint64) (uint64, error) {
	ctx, span := r.startSpan(ctx, operation, key, attribute.Int64("db.nats.revision", int64(revision)))
	defer span.End()

	if !r.IsReady() {
		return 0, failSpan(span, r.unavailable(), "")
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return 0, failSpan(span, domain.NewInternalError(fmt.Sprintf("failed to marshal %s", r.entityName), err), "")
	}

	newRevision, err := r.kvStore.Update(ctx, key, data, revision)
	if err != nil {
		switch {
		case revision == 0 && isWrongLastSequence(err):
			err = domain.NewConflictError(fmt.Sprintf("%s already exists", r.entityName), err)
			return 0, failSpan(span, err, "conflict")
		case errors.Is(err, jetstream.ErrKeyNotFound):
			err = domain.NewNotFoundError(fmt.Sprintf("%s not found", r.entityName), err)
			return 0, failSpan(span, err, "not found")
		case isWrongLastSequence(err):
			err = domain.NewConflictError(fmt.Sprintf("%s has been modified", r.entityName), err)
			return 0, failSpan(span, err, "conflict")
		}
		slog.ErrorContext(ctx, fmt.Sprintf("error writing %s in NATS KV", r.entityName),
			logging.ErrKey, err, "key", key, "revision", revision)
		err = domain.NewUnavailableError(fmt.Sprintf("failed to write %s in store", r.entityName), err)
		return 0, failSpan(span, err, "")
	}

	span.SetStatus(codes.Ok, "")
	return newRevision, nil
}

// Modify runs a compare-and-set read-modify-write on key. When the key is absent
// init provides the starting entity and fn is told it was created. Concurrent
// writers make fn run again on fresh state, up to maxModifyAttempts times.
func (r *NatsBaseRepository[T]) Modify(ctx context.Context, key string, init func() *T, fn func(entity *T, created bool) error) (*T, error) {
	for attempt := 1; attempt <= maxModifyAttempts; attempt++ {
		entity, revision, err := r.GetWithRevision(ctx, key)
		created := false
		if err != nil {
			if domain.GetErrorType(err) != domain.ErrorTypeNotFound {
				return nil, err
			}
			entity, created = init(), true
		}

		if err := fn(entity, created); err != nil {
			return nil, err
		}

		if created {
			_, err = r.write(ctx, "create", key, entity, 0)
		} else {
			_, err = r.write(ctx, "update", key, entity, revision)
		}
		if err == nil {
			return entity, nil
		}
		if domain.GetErrorType(err) != domain.ErrorTypeConflict {
			return nil, err
		}

		slog.DebugContext(ctx, fmt.Sprintf("%s modified concurrently, retrying", r.entityName),
			"key", key, "attempt", attempt)
	}

	return nil, domain.NewConflictError(fmt.Sprintf("%s kept changing after %d attempts", r.entityName, maxModifyAttempts))
}

// ListKeys lists all keys in the bucket
func (r *NatsBaseRepository[T]) ListKeys(ctx context.Context) ([]string, error) {
	ctx, span := r.startSpan(ctx, "list_keys", "")
	defer span.End()

	if !r.IsReady() {
		return nil, failSpan(span, r.unavailable(), "")
	}

	lister, err := r.kvStore.ListKeys(ctx)
	if err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("error listing %s keys from NATS KV", r.entityName), logging.ErrKey, err)
		err = domain.NewUnavailableError(fmt.Sprintf("failed to list %s keys from store", r.entityName), err)
		return nil, failSpan(span, err, "")
	}
	defer func() { _ = lister.Stop() }()

	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}

	span.SetAttributes(attribute.Int("db.nats.keys_count", len(keys)))
	span.SetStatus(codes.Ok, "")
	return keys, nil
}

// ListEntitiesEncoded lists the entities whose decoded key starts with prefix.
// Entries that fail to load are logged and skipped.
func (r *NatsBaseRepository[T]) ListEntitiesEncoded(ctx context.Context, prefix string, kb *KeyBuilder) ([]*T, error) {
	keys, err := r.ListKeys(ctx)
	if err != nil {
		return nil, err
	}

	var entities []*T
	for _, encodedKey := range keys {
		decodedKey, err := kb.DecodeKey(encodedKey)
		if err != nil {
			slog.WarnContext(ctx, "failed to decode key, skipping",
				"encoded_key", encodedKey, logging.ErrKey, err)
			continue
		}

		if !strings.HasPrefix(decodedKey, prefix) {
			continue
		}

		entity, err := r.Get(ctx, encodedKey)
		if err != nil {
			slog.WarnContext(ctx, fmt.Sprintf("failed to get %s, skipping", r.entityName),
				"key", encodedKey, logging.ErrKey, err)
			continue
		}

		entities = append(entities, entity)
	}

	return entities, nil
}
