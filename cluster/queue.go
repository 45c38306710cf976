package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/config"
	"github.com/BaSui01/agentfoundry/internal/tlsutil"
	"github.com/BaSui01/agentfoundry/types"
)

// =============================================================================
// 📮 Redis work queue
// =============================================================================

// Envelope is one unit of work submitted to a role queue.
type Envelope struct {
	ID          string      `json:"id"`
	Role        types.Role  `json:"role"`
	Task        *types.Task `json:"task"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// WorkResult is what a worker publishes after processing an envelope.
type WorkResult struct {
	TaskID       string        `json:"task_id"`
	WorkerID     string        `json:"worker_id"`
	Role         types.Role    `json:"role"`
	AgentID      string        `json:"agent_id"`
	Score        float64       `json:"score"`
	Loops        int           `json:"loops"`
	ThresholdMet bool          `json:"threshold_met"`
	Failed       bool          `json:"failed"`
	Error        string        `json:"error,omitempty"`
	Best         *types.Result `json:"best,omitempty"`
	Duration     time.Duration `json:"duration"`
	CompletedAt  time.Time     `json:"completed_at"`
}

// Key layout. One list per role queue, one list per task result, plus
// per-worker heartbeat strings and counter hashes.
func taskQueueKey(role types.Role) string { return "tasks:" + string(role) }
func resultKey(taskID string) string      { return "results:" + taskID }
func heartbeatKey(workerID string) string { return "heartbeat:" + workerID }
func workerKey(workerID string) string    { return "worker:" + workerID }

// Dial connects to Redis with the given configuration and verifies the
// connection with a ping.
func Dial(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(dialOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, types.NewError(types.ErrQueueUnavailable,
			fmt.Sprintf("failed to connect to redis at %s: %v", cfg.Addr, err))
	}

	return client, nil
}

func dialOptions(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if cfg.TLS {
		opts.TLSConfig = tlsutil.DefaultTLSConfig()
	}
	return opts
}

// Queue is the Redis-backed work queue shared by submitters and
// workers. It does not own the client; the caller closes it.
type Queue struct {
	client *redis.Client
	cfg    config.ClusterConfig
	logger *zap.Logger
}

// NewQueue wraps a connected Redis client. Zero durations in cfg fall
// back to the defaults.
func NewQueue(client *redis.Client, cfg config.ClusterConfig, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := config.DefaultClusterConfig()
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = def.ClaimTimeout
	}
	if cfg.HeartbeatTTL <= 0 {
		cfg.HeartbeatTTL = def.HeartbeatTTL
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = def.MonitorInterval
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = def.ResultTTL
	}
	return &Queue{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "cluster_queue")),
	}
}

// Config returns the effective cluster configuration.
func (q *Queue) Config() config.ClusterConfig { return q.cfg }

// Ping checks the Redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Submit validates and enqueues an envelope on its role queue. A
// missing ID and submission time are filled in.
func (q *Queue) Submit(ctx context.Context, env *Envelope) error {
	if env == nil {
		return types.NewInvalidConfigError("envelope is required")
	}
	if !env.Role.Valid() {
		return types.NewInvalidConfigError(fmt.Sprintf("unknown role %q", env.Role))
	}
	if env.Task == nil {
		return types.NewInvalidConfigError("envelope task is required")
	}
	if env.ID == "" {
		env.ID = "task_" + uuid.NewString()[:8]
	}
	if env.SubmittedAt.IsZero() {
		env.SubmittedAt = time.Now()
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := q.client.RPush(ctx, taskQueueKey(env.Role), data).Err(); err != nil {
		return types.NewError(types.ErrQueueUnavailable,
			fmt.Sprintf("failed to enqueue task %s: %v", env.ID, err))
	}

	q.logger.Debug("task submitted",
		zap.String("task_id", env.ID),
		zap.String("role", string(env.Role)))
	return nil
}

// Claim blocks up to timeout for the next envelope on a role queue.
// A timed-out poll returns (nil, nil).
func (q *Queue) Claim(ctx context.Context, role types.Role, timeout time.Duration) (*Envelope, error) {
	vals, err := q.client.BLPop(ctx, timeout, taskQueueKey(role)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim failed: %w", err)
	}
	// BLPOP returns [key, value].
	var env Envelope
	if err := json.Unmarshal([]byte(vals[1]), &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return &env, nil
}

// PublishResult pushes a result onto the task's result list and renews
// its TTL so unconsumed results expire.
func (q *Queue) PublishResult(ctx context.Context, res *WorkResult) error {
	if res == nil || res.TaskID == "" {
		return types.NewInvalidConfigError("result with task_id is required")
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	key := resultKey(res.TaskID)
	pipe := q.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, q.cfg.ResultTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish result for %s: %w", res.TaskID, err)
	}
	return nil
}

// AwaitResult blocks until the task's result arrives or ctx ends. It
// polls in claim-timeout slices so cancellation is honored promptly.
func (q *Queue) AwaitResult(ctx context.Context, taskID string) (*WorkResult, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vals, err := q.client.BLPop(ctx, q.cfg.ClaimTimeout, resultKey(taskID)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("await result failed: %w", err)
		}
		var res WorkResult
		if err := json.Unmarshal([]byte(vals[1]), &res); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		return &res, nil
	}
}

// Heartbeat refreshes the worker's liveness key with the configured TTL.
func (q *Queue) Heartbeat(ctx context.Context, workerID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := q.client.Set(ctx, heartbeatKey(workerID), now, q.cfg.HeartbeatTTL).Err(); err != nil {
		return fmt.Errorf("heartbeat failed: %w", err)
	}
	return nil
}

// LastHeartbeat returns the worker's last recorded heartbeat, or the
// zero time when none is present (expired or never sent).
func (q *Queue) LastHeartbeat(ctx context.Context, workerID string) (time.Time, error) {
	val, err := q.client.Get(ctx, heartbeatKey(workerID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("heartbeat lookup failed: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed heartbeat %q: %w", val, err)
	}
	return ts, nil
}

// IncrCounter bumps one field of the worker's counter hash.
func (q *Queue) IncrCounter(ctx context.Context, workerID, field string) error {
	if err := q.client.HIncrBy(ctx, workerKey(workerID), field, 1).Err(); err != nil {
		return fmt.Errorf("counter increment failed: %w", err)
	}
	return nil
}

// Counters returns the worker's counter hash.
func (q *Queue) Counters(ctx context.Context, workerID string) (map[string]int64, error) {
	raw, err := q.client.HGetAll(ctx, workerKey(workerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("counter lookup failed: %w", err)
	}
	out := make(map[string]int64, len(raw))
	for field, val := range raw {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}

// Depth returns the number of queued envelopes for a role.
func (q *Queue) Depth(ctx context.Context, role types.Role) (int64, error) {
	n, err := q.client.LLen(ctx, taskQueueKey(role)).Result()
	if err != nil {
		return 0, fmt.Errorf("depth lookup failed: %w", err)
	}
	return n, nil
}
