// ABOUTME: Charm KV implementation of the engine store contracts
// ABOUTME: Stores deals, activities, sessions and tasks as JSON under prefixed keys

package charm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/harperreed/dealpulse/engine"
	"github.com/harperreed/dealpulse/models"
)

const (
	dealPrefix     = "deal:"
	taskPrefix     = "task:"
	activityPrefix = "activity:"
	sessionPrefix  = "session:"
)

// kvView is the key-value surface the store reads and writes through.
type kvView interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	KeysWithPrefix(prefix []byte) ([][]byte, error)
}

// Store persists engine data in charm KV so it syncs across devices.
type Store struct {
	kv     kvView
	client *Client
}

var _ engine.Store = (*Store)(nil)

// NewStore wraps a charm client.
func NewStore(client *Client) *Store {
	return &Store{kv: client, client: client}
}

// WithinTx buffers fn's writes and applies them only if fn succeeds. Reads
// inside fn see the buffered writes. The buffered writes are applied one key
// at a time, so a crash mid-apply can leave part of them behind.
func (s *Store) WithinTx(ctx context.Context, fn func(tx engine.Store) error) error {
	if _, nested := s.kv.(*txBuffer); nested {
		return fn(s)
	}

	buf := newTxBuffer(s.kv)
	if err := fn(&Store{kv: buf, client: s.client}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return buf.commit()
}

func isMissing(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}

func getJSON(view kvView, key string, v interface{}) (bool, error) {
	data, err := view.Get([]byte(key))
	if isMissing(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func putJSON(view kvView, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return view.Set([]byte(key), data)
}

func scanPrefix[T any](view kvView, prefix string) ([]T, error) {
	keys, err := view.KeysWithPrefix([]byte(prefix))
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(keys))
	for _, key := range keys {
		var item T
		found, err := getJSON(view, string(key), &item)
		if err != nil {
			return nil, err
		}
		if found {
			items = append(items, item)
		}
	}
	return items, nil
}

func dealKey(id uuid.UUID) string {
	return dealPrefix + id.String()
}

func taskKey(id uuid.UUID) string {
	return taskPrefix + id.String()
}

func activityKey(dealID, id uuid.UUID) string {
	return activityPrefix + dealID.String() + ":" + id.String()
}

func sessionKey(dealID, id uuid.UUID) string {
	return sessionPrefix + dealID.String() + ":" + id.String()
}

// GetDeal returns the deal or (nil, nil) when it does not exist.
func (s *Store) GetDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	var deal models.Deal
	found, err := getJSON(s.kv, dealKey(id), &deal)
	if err != nil || !found {
		return nil, err
	}
	return &deal, nil
}

// UpsertDeal writes the whole deal.
func (s *Store) UpsertDeal(ctx context.Context, deal *models.Deal) error {
	if deal.ID == uuid.Nil {
		return &models.ValidationError{Field: "id", Message: "is required"}
	}
	return putJSON(s.kv, dealKey(deal.ID), deal)
}

// ListDeals returns deals matching the filter, most recently active first.
func (s *Store) ListDeals(ctx context.Context, filter models.DealFilter) ([]models.Deal, error) {
	all, err := scanPrefix[models.Deal](s.kv, dealPrefix)
	if err != nil {
		return nil, err
	}

	var deals []models.Deal
	for _, deal := range all {
		if filter.AgentID != uuid.Nil && deal.AgentID != filter.AgentID {
			continue
		}
		if filter.Stage != "" && deal.Stage != filter.Stage {
			continue
		}
		if filter.Status != "" && deal.Status != filter.Status {
			continue
		}
		deals = append(deals, deal)
	}

	sort.SliceStable(deals, func(i, j int) bool {
		a, b := lastTouched(&deals[i]), lastTouched(&deals[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return deals[i].ID.String() < deals[j].ID.String()
	})

	if filter.Limit > 0 && len(deals) > filter.Limit {
		deals = deals[:filter.Limit]
	}
	return deals, nil
}

func lastTouched(deal *models.Deal) time.Time {
	if deal.LastActivityAt != nil {
		return *deal.LastActivityAt
	}
	return deal.CreatedAt
}

// GetActivities returns a deal's activity history in the order it happened.
func (s *Store) GetActivities(ctx context.Context, dealID uuid.UUID) ([]models.ActivityRecord, error) {
	activities, err := scanPrefix[models.ActivityRecord](s.kv, activityPrefix+dealID.String()+":")
	if err != nil {
		return nil, err
	}

	sort.SliceStable(activities, func(i, j int) bool {
		if !activities[i].OccurredAt.Equal(activities[j].OccurredAt) {
			return activities[i].OccurredAt.Before(activities[j].OccurredAt)
		}
		return activities[i].ID.String() < activities[j].ID.String()
	})
	return activities, nil
}

// RecordActivity appends an activity. A nil ID is assigned.
func (s *Store) RecordActivity(ctx context.Context, record *models.ActivityRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return putJSON(s.kv, activityKey(record.DealID, record.ID), record)
}

// DeleteActivity removes one activity from a deal's history.
func (s *Store) DeleteActivity(ctx context.Context, dealID, activityID uuid.UUID) (bool, error) {
	key := activityKey(dealID, activityID)
	if _, err := s.kv.Get([]byte(key)); err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, err
	}
	if err := s.kv.Delete([]byte(key)); err != nil {
		return false, err
	}
	return true, nil
}

// RecordSession stores one browsing session. A nil ID is assigned.
func (s *Store) RecordSession(ctx context.Context, session *models.SessionRecord) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return putJSON(s.kv, sessionKey(session.DealID, session.ID), session)
}

// GetSessionAggregate totals every session recorded for a deal.
func (s *Store) GetSessionAggregate(ctx context.Context, dealID uuid.UUID) (models.SessionAggregate, error) {
	sessions, err := scanPrefix[models.SessionRecord](s.kv, sessionPrefix+dealID.String()+":")
	if err != nil {
		return models.SessionAggregate{}, err
	}

	var agg models.SessionAggregate
	for _, session := range sessions {
		agg.SessionCount++
		agg.TotalTimeSpent += session.DurationSeconds
	}
	return agg, nil
}

// CreateTask validates the request and stores a new pending task.
func (s *Store) CreateTask(ctx context.Context, req models.TaskRequest) (*models.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	task := models.NewTask(req, req.Timestamp(time.Now().UTC()))
	if err := putJSON(s.kv, taskKey(task.ID), task); err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask returns the task or (nil, nil) when it does not exist.
func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	found, err := getJSON(s.kv, taskKey(id), &task)
	if err != nil || !found {
		return nil, err
	}
	return &task, nil
}

// ListTasks returns tasks matching the filter, soonest due first with undated
// tasks last.
func (s *Store) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	all, err := scanPrefix[models.Task](s.kv, taskPrefix)
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	for _, task := range all {
		if filter.DealID != uuid.Nil && task.DealID != filter.DealID {
			continue
		}
		if filter.AgentID != uuid.Nil && task.AgentID != filter.AgentID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		tasks = append(tasks, task)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a == nil && b == nil:
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
	})

	if filter.Limit > 0 && len(tasks) > filter.Limit {
		tasks = tasks[:filter.Limit]
	}
	return tasks, nil
}

// UpdateTask overwrites an existing task.
func (s *Store) UpdateTask(ctx context.Context, task *models.Task) error {
	existing, err := s.GetTask(ctx, task.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return models.ErrNotFound
	}
	return putJSON(s.kv, taskKey(task.ID), task)
}

// txBuffer collects writes over a base view until commit.
type txBuffer struct {
	base   kvView
	writes map[string][]byte // nil value marks a delete
	order  []string
}

func newTxBuffer(base kvView) *txBuffer {
	return &txBuffer{base: base, writes: make(map[string][]byte)}
}

func (b *txBuffer) record(key string, value []byte) {
	if _, seen := b.writes[key]; !seen {
		b.order = append(b.order, key)
	}
	b.writes[key] = value
}

func (b *txBuffer) Get(key []byte) ([]byte, error) {
	if value, ok := b.writes[string(key)]; ok {
		if value == nil {
			return nil, badger.ErrKeyNotFound
		}
		return value, nil
	}
	return b.base.Get(key)
}

func (b *txBuffer) Set(key, value []byte) error {
	b.record(string(key), append([]byte{}, value...))
	return nil
}

func (b *txBuffer) Delete(key []byte) error {
	b.record(string(key), nil)
	return nil
}

func (b *txBuffer) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	baseKeys, err := b.base.KeysWithPrefix(prefix)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(baseKeys))
	var keys [][]byte
	for _, key := range baseKeys {
		seen[string(key)] = struct{}{}
		if value, ok := b.writes[string(key)]; ok && value == nil {
			continue
		}
		keys = append(keys, key)
	}
	for _, key := range b.order {
		if _, ok := seen[key]; ok || b.writes[key] == nil || !strings.HasPrefix(key, string(prefix)) {
			continue
		}
		keys = append(keys, []byte(key))
	}
	return keys, nil
}

func (b *txBuffer) commit() error {
	for _, key := range b.order {
		value := b.writes[key]
		var err error
		if value == nil {
			err = b.base.Delete([]byte(key))
		} else {
			err = b.base.Set([]byte(key), value)
		}
		if err != nil {
			return fmt.Errorf("failed to apply %s: %w", key, err)
		}
	}
	return nil
}
